package itinerary

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	ErrDayNotFound   = errors.New("day not found")
	ErrSlotNotFound  = errors.New("slot not found")
	ErrPlaceNotFound = errors.New("place not found")
	ErrNoSlots       = errors.New("day has no slots")
	ErrDayFull       = errors.New("day is full")
)

// Placement records where AddPlaces put a place.
type Placement struct {
	PlaceID uuid.UUID `json:"place_id"`
	Slot    SlotLabel `json:"slot"`
}

// AddPlaces appends places to a day. With an empty slot label each place
// goes to the least occupied slot at the time it is added. Places beyond
// MaxPlacesPerDay are skipped; ErrDayFull is returned only when none fit.
func AddPlaces(it *SmartItinerary, dayID uuid.UUID, slot SlotLabel, places []Place) ([]Placement, error) {
	day := it.Day(dayID)
	if day == nil {
		return nil, ErrDayNotFound
	}
	if len(day.Slots) == 0 {
		return nil, ErrNoSlots
	}
	if slot != "" && day.Slot(slot) == nil {
		return nil, fmt.Errorf("%w: %s", ErrSlotNotFound, slot)
	}

	count := placeCount(*day)
	if count >= MaxPlacesPerDay {
		return nil, ErrDayFull
	}

	placed := make([]Placement, 0, len(places))
	for _, p := range places {
		if count >= MaxPlacesPerDay {
			break
		}

		label := slot
		if label == "" {
			label, _ = FindAvailableSlot(day.Slots)
		}
		target := day.Slot(label)

		if p.ID == uuid.Nil {
			p.ID = uuid.New()
		}
		target.Places = append(target.Places, p)
		count++
		placed = append(placed, Placement{PlaceID: p.ID, Slot: label})
	}

	return placed, nil
}

// SetVisited marks a place as visited or not visited.
func SetVisited(it *SmartItinerary, dayID, placeID uuid.UUID, visited bool) error {
	p, err := findPlace(it, dayID, placeID)
	if err != nil {
		return err
	}
	p.Visited = visited
	return nil
}

// RemovePlace deletes a place from whichever slot of the day holds it.
func RemovePlace(it *SmartItinerary, dayID, placeID uuid.UUID) error {
	day := it.Day(dayID)
	if day == nil {
		return ErrDayNotFound
	}
	for si := range day.Slots {
		s := &day.Slots[si]
		for pi := range s.Places {
			if s.Places[pi].ID == placeID {
				s.Places = append(s.Places[:pi], s.Places[pi+1:]...)
				return nil
			}
		}
	}
	return ErrPlaceNotFound
}

func findPlace(it *SmartItinerary, dayID, placeID uuid.UUID) (*Place, error) {
	day := it.Day(dayID)
	if day == nil {
		return nil, ErrDayNotFound
	}
	for si := range day.Slots {
		for pi := range day.Slots[si].Places {
			if day.Slots[si].Places[pi].ID == placeID {
				return &day.Slots[si].Places[pi], nil
			}
		}
	}
	return nil, ErrPlaceNotFound
}

// Validate checks the invariants the database does not enforce: known slot
// labels, each label at most once per day, and at most MaxPlacesPerDay
// places per day.
func (it *SmartItinerary) Validate() error {
	for _, d := range it.Days {
		seen := make(map[SlotLabel]bool, len(d.Slots))
		for _, s := range d.Slots {
			if !s.Label.Valid() {
				return fmt.Errorf("day %d: unknown slot label %q", d.Index, s.Label)
			}
			if seen[s.Label] {
				return fmt.Errorf("day %d: duplicate slot label %q", d.Index, s.Label)
			}
			seen[s.Label] = true
		}
		if n := placeCount(d); n > MaxPlacesPerDay {
			return fmt.Errorf("day %d: %d places exceeds limit of %d", d.Index, n, MaxPlacesPerDay)
		}
	}
	return nil
}

// EnsureIDs assigns fresh ids to days and places that arrive without one.
func (it *SmartItinerary) EnsureIDs() {
	for i := range it.Days {
		d := &it.Days[i]
		if d.ID == uuid.Nil {
			d.ID = uuid.New()
		}
		for j := range d.Slots {
			for k := range d.Slots[j].Places {
				if d.Slots[j].Places[k].ID == uuid.Nil {
					d.Slots[j].Places[k].ID = uuid.New()
				}
			}
		}
	}
}
