package api

import (
	"context"

	"github.com/google/uuid"

	"github.com/neexbeast/kruno/internal/itinerary"
	"github.com/neexbeast/kruno/internal/places"
	"github.com/neexbeast/kruno/internal/trip"
)

// TripRepo defines the trip and activity storage operations needed by handlers.
type TripRepo interface {
	CreateTrip(ctx context.Context, t trip.Trip) (*trip.Trip, error)
	GetTrip(ctx context.Context, id uuid.UUID) (*trip.Trip, error)
	ListTrips(ctx context.Context, ownerID string) ([]trip.Trip, error)
	ListDays(ctx context.Context, tripID uuid.UUID) ([]trip.Day, error)
	ListActivities(ctx context.Context, tripID uuid.UUID) ([]trip.Activity, error)
	CreateActivity(ctx context.Context, tripID uuid.UUID, a trip.Activity) (*trip.Activity, error)
}

// ItineraryRepo defines the itinerary document storage needed by handlers.
type ItineraryRepo interface {
	GetItinerary(ctx context.Context, tripID uuid.UUID) (*itinerary.Document, error)
	SaveItinerary(ctx context.Context, tripID uuid.UUID, it itinerary.SmartItinerary, expectedVersion int) (int, error)
}

// Repo is the full storage surface used by the API.
type Repo interface {
	TripRepo
	ItineraryRepo
}

// Cache defines the cache operations needed by handlers.
type Cache interface {
	GetItinerary(ctx context.Context, tripID uuid.UUID) (*itinerary.Document, error)
	SetItinerary(ctx context.Context, doc *itinerary.Document) error
	DeleteItinerary(ctx context.Context, tripID uuid.UUID) error
	GetCandidates(ctx context.Context, city string) ([]places.Candidate, error)
	SetCandidates(ctx context.Context, city string, cands []places.Candidate) error
}

// PlaceFinder defines the external place lookup needed by the Explore handler.
type PlaceFinder interface {
	Nearby(ctx context.Context, city string) ([]places.Candidate, error)
}
