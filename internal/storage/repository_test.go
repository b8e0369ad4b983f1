package storage_test

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"testing/fstest"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neexbeast/kruno/internal/itinerary"
	"github.com/neexbeast/kruno/internal/storage"
	"github.com/neexbeast/kruno/internal/trip"
)

// ---- mock Querier ----

type mockQuerier struct {
	queryRowFn func(ctx context.Context, sql string, args ...any) pgx.Row
	queryFn    func(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	execFn     func(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func (m *mockQuerier) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return m.queryRowFn(ctx, sql, args...)
}
func (m *mockQuerier) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return m.queryFn(ctx, sql, args...)
}
func (m *mockQuerier) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	return m.execFn(ctx, sql, args...)
}

// ---- mock pgx.Row ----

type fakeRow struct {
	scanFn func(dest ...any) error
}

func (f *fakeRow) Scan(dest ...any) error { return f.scanFn(dest...) }

// ---- mock pgx.Rows ----

type fakeRows struct {
	rows    [][]any
	idx     int
	rowErr  error
	scanErr error
}

func (f *fakeRows) Next() bool                                   { f.idx++; return f.idx <= len(f.rows) }
func (f *fakeRows) Err() error                                   { return f.rowErr }
func (f *fakeRows) Close()                                       {}
func (f *fakeRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (f *fakeRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (f *fakeRows) Values() ([]any, error)                       { return nil, nil }
func (f *fakeRows) RawValues() [][]byte                          { return nil }
func (f *fakeRows) Conn() *pgx.Conn                              { return nil }

func (f *fakeRows) Scan(dest ...any) error {
	if f.scanErr != nil {
		return f.scanErr
	}
	row := f.rows[f.idx-1]
	for i, d := range dest {
		if i >= len(row) {
			break
		}
		switch v := d.(type) {
		case *int:
			*v = row[i].(int)
		case *string:
			*v = row[i].(string)
		case **string:
			if row[i] == nil {
				*v = nil
			} else {
				s := row[i].(string)
				*v = &s
			}
		case *uuid.UUID:
			*v = row[i].(uuid.UUID)
		case **uuid.UUID:
			if row[i] == nil {
				*v = nil
			} else {
				id := row[i].(uuid.UUID)
				*v = &id
			}
		case *time.Time:
			*v = row[i].(time.Time)
		}
	}
	return nil
}

func rowsErr(err error) pgx.Row {
	return &fakeRow{scanFn: func(_ ...any) error { return err }}
}

// ---- trips ----

func TestCreateTrip_Success(t *testing.T) {
	id := uuid.New()
	now := time.Now().UTC().Truncate(time.Second)
	var capturedArgs []any

	q := &mockQuerier{
		queryRowFn: func(_ context.Context, _ string, args ...any) pgx.Row {
			capturedArgs = args
			return &fakeRow{scanFn: func(dest ...any) error {
				*dest[0].(*uuid.UUID) = id
				*dest[1].(*time.Time) = now
				*dest[2].(*time.Time) = now
				return nil
			}}
		},
	}

	repo := storage.NewRepositoryWithQuerier(q)
	got, err := repo.CreateTrip(context.Background(), trip.Trip{
		OwnerID:     "user_1",
		Title:       "Lisbon long weekend",
		Destination: "Lisbon",
		StartDate:   now,
		EndDate:     now.AddDate(0, 0, 3),
	})
	require.NoError(t, err)
	assert.Equal(t, id, got.ID)
	assert.Equal(t, now, got.CreatedAt)
	require.Len(t, capturedArgs, 5)
	assert.Equal(t, "user_1", capturedArgs[0])
	assert.Equal(t, "Lisbon", capturedArgs[2])
}

func TestCreateTrip_DBError(t *testing.T) {
	q := &mockQuerier{
		queryRowFn: func(_ context.Context, _ string, _ ...any) pgx.Row { return rowsErr(fmt.Errorf("check violation")) },
	}

	repo := storage.NewRepositoryWithQuerier(q)
	_, err := repo.CreateTrip(context.Background(), trip.Trip{Title: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "inserting trip")
}

func TestGetTrip_Found(t *testing.T) {
	id := uuid.New()
	now := time.Now().UTC().Truncate(time.Second)

	q := &mockQuerier{
		queryRowFn: func(_ context.Context, _ string, _ ...any) pgx.Row {
			return &fakeRow{scanFn: func(dest ...any) error {
				*dest[0].(*uuid.UUID) = id
				*dest[1].(*string) = "user_1"
				*dest[2].(*string) = "Paris"
				*dest[3].(*string) = "Paris"
				*dest[4].(*time.Time) = now
				*dest[5].(*time.Time) = now
				*dest[6].(*time.Time) = now
				*dest[7].(*time.Time) = now
				return nil
			}}
		},
	}

	repo := storage.NewRepositoryWithQuerier(q)
	got, err := repo.GetTrip(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "user_1", got.OwnerID)
}

func TestGetTrip_NotFound(t *testing.T) {
	q := &mockQuerier{
		queryRowFn: func(_ context.Context, _ string, _ ...any) pgx.Row { return rowsErr(pgx.ErrNoRows) },
	}

	repo := storage.NewRepositoryWithQuerier(q)
	got, err := repo.GetTrip(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestGetTrip_DBError(t *testing.T) {
	q := &mockQuerier{
		queryRowFn: func(_ context.Context, _ string, _ ...any) pgx.Row { return rowsErr(fmt.Errorf("connection reset")) },
	}

	repo := storage.NewRepositoryWithQuerier(q)
	_, err := repo.GetTrip(context.Background(), uuid.New())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "querying trip")
}

func TestListTrips(t *testing.T) {
	now := time.Now().UTC()
	rows := &fakeRows{rows: [][]any{
		{uuid.New(), "user_1", "Paris", "Paris", now, now, now, now},
		{uuid.New(), "user_1", "Rome", "Rome", now, now, now, now},
	}}
	q := &mockQuerier{
		queryFn: func(_ context.Context, _ string, _ ...any) (pgx.Rows, error) { return rows, nil },
	}

	repo := storage.NewRepositoryWithQuerier(q)
	got, err := repo.ListTrips(context.Background(), "user_1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Rome", got[1].Title)
}

func TestListTrips_Empty(t *testing.T) {
	q := &mockQuerier{
		queryFn: func(_ context.Context, _ string, _ ...any) (pgx.Rows, error) { return &fakeRows{}, nil },
	}

	repo := storage.NewRepositoryWithQuerier(q)
	got, err := repo.ListTrips(context.Background(), "nobody")
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestListTrips_ScanError(t *testing.T) {
	rows := &fakeRows{rows: [][]any{{}}, scanErr: fmt.Errorf("scan failed")}
	q := &mockQuerier{
		queryFn: func(_ context.Context, _ string, _ ...any) (pgx.Rows, error) { return rows, nil },
	}

	repo := storage.NewRepositoryWithQuerier(q)
	_, err := repo.ListTrips(context.Background(), "user_1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scanning")
}

func TestListDays(t *testing.T) {
	tripID := uuid.New()
	d1 := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	rows := &fakeRows{rows: [][]any{
		{uuid.New(), tripID, d1},
		{uuid.New(), tripID, d1.AddDate(0, 0, 1)},
	}}
	q := &mockQuerier{
		queryFn: func(_ context.Context, _ string, _ ...any) (pgx.Rows, error) { return rows, nil },
	}

	repo := storage.NewRepositoryWithQuerier(q)
	days, err := repo.ListDays(context.Background(), tripID)
	require.NoError(t, err)
	require.Len(t, days, 2)
	assert.Equal(t, d1, days[0].Date)
}

func TestListDays_RowsErr(t *testing.T) {
	q := &mockQuerier{
		queryFn: func(_ context.Context, _ string, _ ...any) (pgx.Rows, error) {
			return &fakeRows{rowErr: fmt.Errorf("rows iteration error")}, nil
		},
	}

	repo := storage.NewRepositoryWithQuerier(q)
	_, err := repo.ListDays(context.Background(), uuid.New())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "iterating")
}

// ---- activities ----

func TestListActivities_WithAndWithoutPlace(t *testing.T) {
	dayID := uuid.New()
	placeID := uuid.New()
	rows := &fakeRows{rows: [][]any{
		{uuid.New(), dayID, placeID, "Louvre", nil, nil, "", 0, "Louvre", "W123", "Rue de Rivoli, 1er, Paris, France", nil},
		{uuid.New(), dayID, nil, "Picnic", nil, nil, "bring wine", 1, nil, nil, nil, nil},
	}}
	q := &mockQuerier{
		queryFn: func(_ context.Context, _ string, _ ...any) (pgx.Rows, error) { return rows, nil },
	}

	repo := storage.NewRepositoryWithQuerier(q)
	got, err := repo.ListActivities(context.Background(), uuid.New())
	require.NoError(t, err)
	require.Len(t, got, 2)

	require.NotNil(t, got[0].Place)
	assert.Equal(t, placeID, got[0].Place.ID)
	assert.Equal(t, "W123", got[0].Place.ExternalID)
	assert.Equal(t, "", got[0].Place.Locality)

	assert.Nil(t, got[1].Place)
	assert.Equal(t, 1, got[1].OrderNumber)
}

func TestListActivities_QueryError(t *testing.T) {
	q := &mockQuerier{
		queryFn: func(_ context.Context, _ string, _ ...any) (pgx.Rows, error) { return nil, fmt.Errorf("query failed") },
	}

	repo := storage.NewRepositoryWithQuerier(q)
	_, err := repo.ListActivities(context.Background(), uuid.New())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "querying activities")
}

func TestCreateActivity_NoPlace(t *testing.T) {
	id := uuid.New()
	var capturedArgs []any
	q := &mockQuerier{
		queryRowFn: func(_ context.Context, _ string, args ...any) pgx.Row {
			capturedArgs = args
			return &fakeRow{scanFn: func(dest ...any) error {
				*dest[0].(*uuid.UUID) = id
				*dest[1].(**uuid.UUID) = nil
				*dest[2].(*int) = 3
				return nil
			}}
		},
	}

	repo := storage.NewRepositoryWithQuerier(q)
	got, err := repo.CreateActivity(context.Background(), uuid.New(), trip.Activity{DayID: uuid.New(), Title: "Walk"})
	require.NoError(t, err)
	assert.Equal(t, id, got.ID)
	assert.Equal(t, 3, got.OrderNumber)
	assert.Len(t, capturedArgs, 6)
}

func TestCreateActivity_WithPlace(t *testing.T) {
	placeID := uuid.New()
	var capturedArgs []any
	var capturedSQL string
	q := &mockQuerier{
		queryRowFn: func(_ context.Context, sql string, args ...any) pgx.Row {
			capturedSQL = sql
			capturedArgs = args
			return &fakeRow{scanFn: func(dest ...any) error {
				*dest[0].(*uuid.UUID) = uuid.New()
				*dest[1].(**uuid.UUID) = &placeID
				*dest[2].(*int) = 0
				return nil
			}}
		},
	}

	repo := storage.NewRepositoryWithQuerier(q)
	got, err := repo.CreateActivity(context.Background(), uuid.New(), trip.Activity{
		DayID: uuid.New(),
		Title: "Coffee",
		Place: &trip.Place{Name: "Café de Flore", ExternalID: "X1"},
	})
	require.NoError(t, err)
	require.NotNil(t, got.Place)
	assert.Equal(t, placeID, got.Place.ID)
	require.Len(t, capturedArgs, 10)
	assert.Equal(t, "X1", capturedArgs[7])
	// The place upsert reads from the day guard, so a foreign day inserts nothing.
	assert.Regexp(t, `(?s)INSERT INTO places.*FROM d\s+ON CONFLICT`, capturedSQL)
}

func TestCreateActivity_DayNotInTrip(t *testing.T) {
	q := &mockQuerier{
		queryRowFn: func(_ context.Context, _ string, _ ...any) pgx.Row { return rowsErr(pgx.ErrNoRows) },
	}

	repo := storage.NewRepositoryWithQuerier(q)
	_, err := repo.CreateActivity(context.Background(), uuid.New(), trip.Activity{DayID: uuid.New(), Title: "x"})
	assert.ErrorIs(t, err, storage.ErrDayNotFound)
}

// ---- itineraries ----

func sampleItinerary() itinerary.SmartItinerary {
	return itinerary.SmartItinerary{
		Title: "Paris",
		Days: []itinerary.Day{{
			ID:    uuid.New(),
			Date:  "2026-04-01",
			Slots: []itinerary.Slot{{Label: itinerary.Morning, Places: []itinerary.Place{{ID: uuid.New(), Name: "Louvre"}}}},
		}},
	}
}

func TestGetItinerary_Found(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Second)
	docJSON, err := json.Marshal(sampleItinerary())
	require.NoError(t, err)

	q := &mockQuerier{
		queryRowFn: func(_ context.Context, _ string, _ ...any) pgx.Row {
			return &fakeRow{scanFn: func(dest ...any) error {
				*dest[0].(*[]byte) = docJSON
				*dest[1].(*int) = 4
				*dest[2].(*time.Time) = now
				return nil
			}}
		},
	}

	tripID := uuid.New()
	repo := storage.NewRepositoryWithQuerier(q)
	doc, err := repo.GetItinerary(context.Background(), tripID)
	require.NoError(t, err)
	require.NotNil(t, doc)
	assert.Equal(t, tripID, doc.TripID)
	assert.Equal(t, 4, doc.Version)
	assert.Equal(t, "Louvre", doc.Itinerary.Days[0].Slots[0].Places[0].Name)
}

func TestGetItinerary_NotFound(t *testing.T) {
	q := &mockQuerier{
		queryRowFn: func(_ context.Context, _ string, _ ...any) pgx.Row { return rowsErr(pgx.ErrNoRows) },
	}

	repo := storage.NewRepositoryWithQuerier(q)
	doc, err := repo.GetItinerary(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Nil(t, doc)
}

func TestGetItinerary_BadJSON(t *testing.T) {
	q := &mockQuerier{
		queryRowFn: func(_ context.Context, _ string, _ ...any) pgx.Row {
			return &fakeRow{scanFn: func(dest ...any) error {
				*dest[0].(*[]byte) = []byte("not-valid-json")
				*dest[1].(*int) = 1
				*dest[2].(*time.Time) = time.Now()
				return nil
			}}
		},
	}

	repo := storage.NewRepositoryWithQuerier(q)
	_, err := repo.GetItinerary(context.Background(), uuid.New())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unmarshaling")
}

func versionRow(v int) pgx.Row {
	return &fakeRow{scanFn: func(dest ...any) error {
		*dest[0].(*int) = v
		return nil
	}}
}

func TestSaveItinerary_Insert(t *testing.T) {
	var capturedArgs []any
	q := &mockQuerier{
		queryRowFn: func(_ context.Context, _ string, args ...any) pgx.Row {
			capturedArgs = args
			return versionRow(1)
		},
	}

	repo := storage.NewRepositoryWithQuerier(q)
	v, err := repo.SaveItinerary(context.Background(), uuid.New(), sampleItinerary(), 0)
	require.NoError(t, err)
	assert.Equal(t, 1, v)
	assert.Len(t, capturedArgs, 2, "insert takes no expected version")
}

func TestSaveItinerary_Update(t *testing.T) {
	var capturedArgs []any
	q := &mockQuerier{
		queryRowFn: func(_ context.Context, _ string, args ...any) pgx.Row {
			capturedArgs = args
			return versionRow(5)
		},
	}

	repo := storage.NewRepositoryWithQuerier(q)
	v, err := repo.SaveItinerary(context.Background(), uuid.New(), sampleItinerary(), 4)
	require.NoError(t, err)
	assert.Equal(t, 5, v)
	require.Len(t, capturedArgs, 3)
	assert.Equal(t, 4, capturedArgs[2])
}

func TestSaveItinerary_Conflict(t *testing.T) {
	q := &mockQuerier{
		queryRowFn: func(_ context.Context, _ string, _ ...any) pgx.Row { return rowsErr(pgx.ErrNoRows) },
	}

	repo := storage.NewRepositoryWithQuerier(q)
	_, err := repo.SaveItinerary(context.Background(), uuid.New(), sampleItinerary(), 2)
	assert.ErrorIs(t, err, storage.ErrVersionConflict)

	_, err = repo.SaveItinerary(context.Background(), uuid.New(), sampleItinerary(), 0)
	assert.ErrorIs(t, err, storage.ErrVersionConflict, "insert over an existing document")
}

func TestSaveItinerary_DBError(t *testing.T) {
	q := &mockQuerier{
		queryRowFn: func(_ context.Context, _ string, _ ...any) pgx.Row { return rowsErr(fmt.Errorf("db error")) },
	}

	repo := storage.NewRepositoryWithQuerier(q)
	_, err := repo.SaveItinerary(context.Background(), uuid.New(), sampleItinerary(), 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "saving itinerary")
}

// ---- NewRepository ----

func TestNewRepository_NotNil(t *testing.T) {
	repo := storage.NewRepository(nil)
	assert.NotNil(t, repo)
}

// ---- migrations fixtures ----

func migrationsFS(files map[string]string) fstest.MapFS {
	fsys := fstest.MapFS{}
	for name, body := range files {
		fsys[name] = &fstest.MapFile{Data: []byte(body)}
	}
	return fsys
}
