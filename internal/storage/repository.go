package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/neexbeast/kruno/internal/itinerary"
	"github.com/neexbeast/kruno/internal/trip"
)

var (
	// ErrVersionConflict is returned when an itinerary write carries a stale version.
	ErrVersionConflict = errors.New("itinerary version conflict")
	// ErrDayNotFound is returned when an activity targets a day outside the trip.
	ErrDayNotFound = errors.New("trip day not found")
)

// Querier abstracts the subset of pgxpool.Pool used by Repository.
// This allows injection of a mock in tests.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Repository provides database access for trips, activities and itineraries.
type Repository struct {
	q Querier
}

// NewRepository constructs a Repository backed by the given pool.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{q: pool}
}

// NewRepositoryWithQuerier constructs a Repository with a custom Querier (for tests).
func NewRepositoryWithQuerier(q Querier) *Repository {
	return &Repository{q: q}
}

// ---- trips ----

// CreateTrip inserts a trip and one trip_days row per date in its range.
func (r *Repository) CreateTrip(ctx context.Context, t trip.Trip) (*trip.Trip, error) {
	const q = `
		WITH t AS (
			INSERT INTO trips (owner_id, title, destination, start_date, end_date)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id, start_date, end_date, created_at, updated_at
		), days AS (
			INSERT INTO trip_days (trip_id, date)
			SELECT t.id, g::date
			FROM t, generate_series(t.start_date, t.end_date, interval '1 day') AS g
		)
		SELECT id, created_at, updated_at FROM t
	`

	err := r.q.QueryRow(ctx, q, t.OwnerID, t.Title, t.Destination, t.StartDate, t.EndDate).Scan(
		&t.ID,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("inserting trip %q: %w", t.Title, err)
	}

	return &t, nil
}

// GetTrip retrieves a trip by id.
// Returns nil, nil when the trip is not found.
func (r *Repository) GetTrip(ctx context.Context, id uuid.UUID) (*trip.Trip, error) {
	const q = `
		SELECT id, owner_id, title, destination, start_date, end_date, created_at, updated_at
		FROM trips
		WHERE id = $1
	`

	var t trip.Trip
	err := r.q.QueryRow(ctx, q, id).Scan(
		&t.ID,
		&t.OwnerID,
		&t.Title,
		&t.Destination,
		&t.StartDate,
		&t.EndDate,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("querying trip %s: %w", id, err)
	}

	return &t, nil
}

// ListTrips returns the owner's trips, soonest first.
func (r *Repository) ListTrips(ctx context.Context, ownerID string) ([]trip.Trip, error) {
	const q = `
		SELECT id, owner_id, title, destination, start_date, end_date, created_at, updated_at
		FROM trips
		WHERE owner_id = $1
		ORDER BY start_date, created_at
	`

	rows, err := r.q.Query(ctx, q, ownerID)
	if err != nil {
		return nil, fmt.Errorf("querying trips: %w", err)
	}
	defer rows.Close()

	results := []trip.Trip{}
	for rows.Next() {
		var t trip.Trip
		if err := rows.Scan(
			&t.ID,
			&t.OwnerID,
			&t.Title,
			&t.Destination,
			&t.StartDate,
			&t.EndDate,
			&t.CreatedAt,
			&t.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning trip row: %w", err)
		}
		results = append(results, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating trip rows: %w", err)
	}

	return results, nil
}

// ListDays returns the trip's days in date order.
func (r *Repository) ListDays(ctx context.Context, tripID uuid.UUID) ([]trip.Day, error) {
	const q = `SELECT id, trip_id, date FROM trip_days WHERE trip_id = $1 ORDER BY date`

	rows, err := r.q.Query(ctx, q, tripID)
	if err != nil {
		return nil, fmt.Errorf("querying days for trip %s: %w", tripID, err)
	}
	defer rows.Close()

	days := []trip.Day{}
	for rows.Next() {
		var d trip.Day
		if err := rows.Scan(&d.ID, &d.TripID, &d.Date); err != nil {
			return nil, fmt.Errorf("scanning day row: %w", err)
		}
		days = append(days, d)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating day rows: %w", err)
	}

	return days, nil
}

// ---- activities ----

// ListActivities returns the trip's manual activities with their linked
// places, ordered by day and order_number.
func (r *Repository) ListActivities(ctx context.Context, tripID uuid.UUID) ([]trip.Activity, error) {
	const q = `
		SELECT a.id, a.day_id, a.place_id, a.title, a.start_time, a.end_time, a.notes, a.order_number,
		       p.name, p.external_id, p.address, p.locality
		FROM activities a
		JOIN trip_days d ON d.id = a.day_id
		LEFT JOIN places p ON p.id = a.place_id
		WHERE d.trip_id = $1
		ORDER BY d.date, a.order_number
	`

	rows, err := r.q.Query(ctx, q, tripID)
	if err != nil {
		return nil, fmt.Errorf("querying activities for trip %s: %w", tripID, err)
	}
	defer rows.Close()

	results := []trip.Activity{}
	for rows.Next() {
		var a trip.Activity
		var placeName, externalID, address, locality *string

		if err := rows.Scan(
			&a.ID,
			&a.DayID,
			&a.PlaceID,
			&a.Title,
			&a.StartTime,
			&a.EndTime,
			&a.Notes,
			&a.OrderNumber,
			&placeName,
			&externalID,
			&address,
			&locality,
		); err != nil {
			return nil, fmt.Errorf("scanning activity row: %w", err)
		}

		if a.PlaceID != nil && placeName != nil {
			a.Place = &trip.Place{
				ID:         *a.PlaceID,
				Name:       *placeName,
				ExternalID: deref(externalID),
				Address:    deref(address),
				Locality:   deref(locality),
			}
		}
		results = append(results, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating activity rows: %w", err)
	}

	return results, nil
}

// CreateActivity appends an activity to a day of the trip. A linked place is
// upserted by external id, and only when the day belongs to the trip.
// Returns ErrDayNotFound otherwise.
func (r *Repository) CreateActivity(ctx context.Context, tripID uuid.UUID, a trip.Activity) (*trip.Activity, error) {
	const plain = `
		INSERT INTO activities (day_id, place_id, title, start_time, end_time, notes, order_number)
		SELECT d.id, NULL, $3, $4, $5, $6,
		       COALESCE((SELECT MAX(order_number) + 1 FROM activities WHERE day_id = d.id), 0)
		FROM trip_days d
		WHERE d.id = $1 AND d.trip_id = $2
		RETURNING id, place_id, order_number
	`
	const withPlace = `
		WITH d AS (
			SELECT id FROM trip_days WHERE id = $1 AND trip_id = $2
		), p AS (
			INSERT INTO places (name, external_id, address, locality)
			SELECT $7::text, NULLIF($8::text, ''), NULLIF($9::text, ''), NULLIF($10::text, '')
			FROM d
			ON CONFLICT (external_id) DO UPDATE
			SET name     = EXCLUDED.name,
			    address  = COALESCE(EXCLUDED.address, places.address),
			    locality = COALESCE(EXCLUDED.locality, places.locality)
			RETURNING id
		)
		INSERT INTO activities (day_id, place_id, title, start_time, end_time, notes, order_number)
		SELECT d.id, (SELECT id FROM p), $3, $4, $5, $6,
		       COALESCE((SELECT MAX(order_number) + 1 FROM activities WHERE day_id = d.id), 0)
		FROM d
		RETURNING id, place_id, order_number
	`

	q := plain
	args := []any{a.DayID, tripID, a.Title, a.StartTime, a.EndTime, a.Notes}
	if a.Place != nil {
		q = withPlace
		args = append(args, a.Place.Name, a.Place.ExternalID, a.Place.Address, a.Place.Locality)
	}

	err := r.q.QueryRow(ctx, q, args...).Scan(&a.ID, &a.PlaceID, &a.OrderNumber)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrDayNotFound
		}
		return nil, fmt.Errorf("inserting activity %q: %w", a.Title, err)
	}

	if a.Place != nil && a.PlaceID != nil {
		a.Place.ID = *a.PlaceID
	}
	return &a, nil
}

// ---- itineraries ----

// GetItinerary retrieves the itinerary document for a trip.
// Returns nil, nil when the trip has no itinerary yet.
func (r *Repository) GetItinerary(ctx context.Context, tripID uuid.UUID) (*itinerary.Document, error) {
	const q = `
		SELECT document, version, updated_at
		FROM itineraries
		WHERE trip_id = $1
	`

	doc := itinerary.Document{TripID: tripID}
	var docJSON []byte
	var updatedAt time.Time

	err := r.q.QueryRow(ctx, q, tripID).Scan(&docJSON, &doc.Version, &updatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("querying itinerary for trip %s: %w", tripID, err)
	}

	if err := json.Unmarshal(docJSON, &doc.Itinerary); err != nil {
		return nil, fmt.Errorf("unmarshaling itinerary for trip %s: %w", tripID, err)
	}

	doc.UpdatedAt = updatedAt
	return &doc, nil
}

// SaveItinerary replaces the whole itinerary document. expectedVersion is the
// version the caller read; 0 means the document must not exist yet. It
// returns the new version, or ErrVersionConflict when the stored version has
// moved on.
func (r *Repository) SaveItinerary(ctx context.Context, tripID uuid.UUID, it itinerary.SmartItinerary, expectedVersion int) (int, error) {
	docJSON, err := json.Marshal(it)
	if err != nil {
		return 0, fmt.Errorf("marshaling itinerary for trip %s: %w", tripID, err)
	}

	const insert = `
		INSERT INTO itineraries (trip_id, document, version, updated_at)
		VALUES ($1, $2, 1, NOW())
		ON CONFLICT (trip_id) DO NOTHING
		RETURNING version
	`
	const update = `
		UPDATE itineraries
		SET document   = $2,
		    version    = version + 1,
		    updated_at = NOW()
		WHERE trip_id = $1
		AND version = $3
		RETURNING version
	`

	var row pgx.Row
	if expectedVersion == 0 {
		row = r.q.QueryRow(ctx, insert, tripID, docJSON)
	} else {
		row = r.q.QueryRow(ctx, update, tripID, docJSON, expectedVersion)
	}

	var version int
	if err := row.Scan(&version); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrVersionConflict
		}
		return 0, fmt.Errorf("saving itinerary for trip %s: %w", tripID, err)
	}

	return version, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
