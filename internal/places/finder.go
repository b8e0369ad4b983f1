package places

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/neexbeast/kruno/internal/itinerary"
)

// DefaultKinds are the OpenTripMap categories fetched for the Explore deck.
var DefaultKinds = []string{"interesting_places", "foods", "cultural"}

const perKindLimit = 20

// ErrNoResults is returned when every category lookup failed.
var ErrNoResults = errors.New("no place lookups succeeded")

// source is the interface satisfied by POIClient.
type source interface {
	Geocode(ctx context.Context, city string) (Coordinates, error)
	Radius(ctx context.Context, at Coordinates, kind string, limit int) ([]Candidate, error)
}

// Finder gathers Explore candidates for a city across several categories in parallel.
type Finder struct {
	src   source
	kinds []string
	log   *zap.Logger
}

// NewFinder constructs a Finder backed by OpenTripMap. Empty kinds selects DefaultKinds.
func NewFinder(apiKey string, kinds []string, log *zap.Logger) *Finder {
	return NewFinderWithSource(NewPOIClient(apiKey), kinds, log)
}

// NewFinderWithSource constructs a Finder with an injectable source (used in tests).
func NewFinderWithSource(src source, kinds []string, log *zap.Logger) *Finder {
	if len(kinds) == 0 {
		kinds = DefaultKinds
	}
	return &Finder{src: src, kinds: kinds, log: log}
}

// Nearby geocodes city and fetches every configured kind in parallel using
// errgroup. A failed kind is logged and skipped; only when all of them fail
// is an error returned. Results are deduplicated by external id and ordered
// by rate, best first.
func (f *Finder) Nearby(ctx context.Context, city string) ([]Candidate, error) {
	city = strings.TrimSpace(city)
	at, err := f.src.Geocode(ctx, city)
	if err != nil {
		return nil, fmt.Errorf("finding places near %s: %w", city, err)
	}

	results := make([][]Candidate, len(f.kinds))
	failed := make([]bool, len(f.kinds))

	g, gCtx := errgroup.WithContext(ctx)
	for i, kind := range f.kinds {
		i, kind := i, kind // per-iteration copies (go directive is 1.21)
		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					f.log.Error("place lookup panicked", zap.String("kind", kind), zap.Any("recover", r))
					err = fmt.Errorf("place lookup %s panicked: %v", kind, r)
				}
			}()
			cands, fetchErr := f.src.Radius(gCtx, at, kind, perKindLimit)
			if fetchErr != nil {
				f.log.Warn("place lookup failed", zap.String("city", city), zap.String("kind", kind), zap.Error(fetchErr))
				failed[i] = true
				return nil
			}
			results[i] = cands
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("finding places near %s: %w", city, err)
	}

	allFailed := true
	for _, fl := range failed {
		allFailed = allFailed && fl
	}
	if allFailed {
		return nil, fmt.Errorf("finding places near %s: %w", city, ErrNoResults)
	}

	return merge(results, city), nil
}

func merge(groups [][]Candidate, city string) []Candidate {
	seen := make(map[string]bool)
	out := []Candidate{}
	for _, group := range groups {
		for _, c := range group {
			if c.ExternalID != "" {
				if seen[c.ExternalID] {
					continue
				}
				seen[c.ExternalID] = true
			}
			if c.Locality == "" {
				c.Locality = city
			}
			out = append(out, c)
		}
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Rate > out[j].Rate })
	return out
}

// Filter drops candidates that are already part of the trip.
func Filter(cands []Candidate, keys itinerary.PlaceKeys) []Candidate {
	out := make([]Candidate, 0, len(cands))
	for _, c := range cands {
		if keys.Contains(c.ExternalID, c.Name, c.Locality) {
			continue
		}
		out = append(out, c)
	}
	return out
}
