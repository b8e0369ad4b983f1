package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/neexbeast/kruno/internal/itinerary"
	"github.com/neexbeast/kruno/internal/places"
)

const (
	defaultItineraryTTL = time.Hour
	defaultExploreTTL   = 6 * time.Hour
)

// Cache wraps a Redis client and provides typed get/set/delete for
// itinerary documents and Explore candidates.
type Cache struct {
	client       *redis.Client
	itineraryTTL time.Duration
	exploreTTL   time.Duration
}

// NewCache constructs a Cache with a 1-hour itinerary TTL and a 6-hour
// Explore TTL.
func NewCache(client *redis.Client) *Cache {
	return &Cache{client: client, itineraryTTL: defaultItineraryTTL, exploreTTL: defaultExploreTTL}
}

func itineraryKey(tripID uuid.UUID) string {
	return "itinerary:" + tripID.String()
}

func itineraryVersionKey(tripID uuid.UUID) string {
	return "itinerary:" + tripID.String() + ":version"
}

// setIfNewer writes the document and its version marker unless the cached
// version is already at least as new.
var setIfNewer = redis.NewScript(`
local cur = redis.call('GET', KEYS[2])
if cur and tonumber(cur) >= tonumber(ARGV[2]) then
	return 0
end
redis.call('SET', KEYS[1], ARGV[1], 'PX', ARGV[3])
redis.call('SET', KEYS[2], ARGV[2], 'PX', ARGV[3])
return 1
`)

// exploreKey folds case, spacing and accents so "São Paulo" and "sao paulo"
// share an entry.
func exploreKey(city string) string {
	return "explore:" + itinerary.NormalizePlaceKey(city, "")
}

// GetItinerary retrieves a cached itinerary document.
// Returns nil, nil on a cache miss (not an error).
func (c *Cache) GetItinerary(ctx context.Context, tripID uuid.UUID) (*itinerary.Document, error) {
	var doc itinerary.Document
	hit, err := c.getJSON(ctx, itineraryKey(tripID), &doc)
	if err != nil || !hit {
		return nil, err
	}
	return &doc, nil
}

// SetItinerary stores an itinerary document with the itinerary TTL. A
// document older than the cached one is dropped, so a slow reader cannot
// overwrite a newer write.
func (c *Cache) SetItinerary(ctx context.Context, doc *itinerary.Document) error {
	if doc == nil {
		return nil
	}
	b, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshaling cache value for %s: %w", itineraryKey(doc.TripID), err)
	}

	keys := []string{itineraryKey(doc.TripID), itineraryVersionKey(doc.TripID)}
	if err := setIfNewer.Run(ctx, c.client, keys, b, doc.Version, c.itineraryTTL.Milliseconds()).Err(); err != nil {
		return fmt.Errorf("cache set for %s: %w", keys[0], err)
	}
	return nil
}

// DeleteItinerary removes the cached document for the trip.
func (c *Cache) DeleteItinerary(ctx context.Context, tripID uuid.UUID) error {
	if err := c.client.Del(ctx, itineraryKey(tripID), itineraryVersionKey(tripID)).Err(); err != nil {
		return fmt.Errorf("cache delete for %s: %w", itineraryKey(tripID), err)
	}
	return nil
}

// GetCandidates retrieves cached Explore candidates for a city.
// Returns nil, nil on a cache miss.
func (c *Cache) GetCandidates(ctx context.Context, city string) ([]places.Candidate, error) {
	var cands []places.Candidate
	hit, err := c.getJSON(ctx, exploreKey(city), &cands)
	if err != nil || !hit {
		return nil, err
	}
	if cands == nil {
		cands = []places.Candidate{}
	}
	return cands, nil
}

// SetCandidates stores Explore candidates for a city with the Explore TTL.
func (c *Cache) SetCandidates(ctx context.Context, city string, cands []places.Candidate) error {
	if cands == nil {
		return nil
	}
	return c.setJSON(ctx, exploreKey(city), cands, c.exploreTTL)
}

func (c *Cache) getJSON(ctx context.Context, key string, dst any) (bool, error) {
	val, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("cache get for %s: %w", key, err)
	}

	if err := json.Unmarshal(val, dst); err != nil {
		return false, fmt.Errorf("unmarshaling cached value for %s: %w", key, err)
	}
	return true, nil
}

func (c *Cache) setJSON(ctx context.Context, key string, v any, ttl time.Duration) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshaling cache value for %s: %w", key, err)
	}

	if err := c.client.Set(ctx, key, b, ttl).Err(); err != nil {
		return fmt.Errorf("cache set for %s: %w", key, err)
	}
	return nil
}
