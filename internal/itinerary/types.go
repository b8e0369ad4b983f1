package itinerary

import (
	"time"

	"github.com/google/uuid"
)

// MaxPlacesPerDay caps the number of places across all slots of one day.
const MaxPlacesPerDay = 12

// SlotLabel names one of the three daily time buckets.
type SlotLabel string

const (
	Morning   SlotLabel = "morning"
	Afternoon SlotLabel = "afternoon"
	Evening   SlotLabel = "evening"
)

// Valid reports whether l is one of the three known labels.
func (l SlotLabel) Valid() bool {
	switch l {
	case Morning, Afternoon, Evening:
		return true
	}
	return false
}

// Place is a single stop inside a slot.
type Place struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Description  string    `json:"description"`
	Area         string    `json:"area"`
	Neighborhood *string   `json:"neighborhood,omitempty"`
	Photos       []string  `json:"photos"`
	Visited      bool      `json:"visited"`
	Tags         []string  `json:"tags"`
}

// Slot groups the places planned for one part of a day.
type Slot struct {
	Label   SlotLabel `json:"label"`
	Summary string    `json:"summary"`
	Places  []Place   `json:"places"`
}

// Day is one calendar date of the plan.
type Day struct {
	ID          uuid.UUID `json:"id"`
	Index       int       `json:"index"`
	Date        string    `json:"date"`
	Title       string    `json:"title"`
	Theme       string    `json:"theme"`
	AreaCluster string    `json:"areaCluster"`
	Photos      []string  `json:"photos"`
	Overview    string    `json:"overview"`
	Slots       []Slot    `json:"slots"`
}

// SmartItinerary is the generated day-by-day plan for a trip.
// It is stored and rewritten as a single document.
type SmartItinerary struct {
	Title    string   `json:"title"`
	Summary  string   `json:"summary"`
	Days     []Day    `json:"days"`
	TripTips []string `json:"tripTips"`
}

// Document is a stored itinerary together with its version token.
type Document struct {
	TripID    uuid.UUID      `json:"trip_id"`
	Itinerary SmartItinerary `json:"itinerary"`
	Version   int            `json:"version"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// Day returns a pointer to the day with the given id, or nil.
func (it *SmartItinerary) Day(id uuid.UUID) *Day {
	for i := range it.Days {
		if it.Days[i].ID == id {
			return &it.Days[i]
		}
	}
	return nil
}

// Slot returns a pointer to the slot with the given label, or nil.
func (d *Day) Slot(label SlotLabel) *Slot {
	for i := range d.Slots {
		if d.Slots[i].Label == label {
			return &d.Slots[i]
		}
	}
	return nil
}
