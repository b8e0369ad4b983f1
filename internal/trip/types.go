package trip

import (
	"time"

	"github.com/google/uuid"
)

// Trip is a user-owned trip record.
type Trip struct {
	ID          uuid.UUID `json:"id"`
	OwnerID     string    `json:"owner_id"`
	Title       string    `json:"title"`
	Destination string    `json:"destination"`
	StartDate   time.Time `json:"start_date"`
	EndDate     time.Time `json:"end_date"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Place is a geocoded place linked to a manual activity.
// Locality is the structured city/town field; when empty it is derived from Address.
type Place struct {
	ID         uuid.UUID `json:"id"`
	Name       string    `json:"name"`
	ExternalID string    `json:"external_id,omitempty"`
	Address    string    `json:"address,omitempty"`
	Locality   string    `json:"locality,omitempty"`
}

// Activity is a manually entered entry on a trip day.
type Activity struct {
	ID          uuid.UUID  `json:"id"`
	DayID       uuid.UUID  `json:"day_id"`
	PlaceID     *uuid.UUID `json:"place_id,omitempty"`
	Title       string     `json:"title"`
	StartTime   *string    `json:"start_time,omitempty"`
	EndTime     *string    `json:"end_time,omitempty"`
	Notes       string     `json:"notes"`
	OrderNumber int        `json:"order_number"`
	Place       *Place     `json:"place,omitempty"`
}

// Day is one calendar date of a trip that manual activities hang off.
type Day struct {
	ID     uuid.UUID `json:"id"`
	TripID uuid.UUID `json:"trip_id"`
	Date   time.Time `json:"date"`
}
