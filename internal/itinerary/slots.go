package itinerary

import (
	"sort"

	"github.com/google/uuid"
)

var slotOrder = map[SlotLabel]int{
	Morning:   0,
	Afternoon: 1,
	Evening:   2,
}

func slotRank(l SlotLabel) int {
	if r, ok := slotOrder[l]; ok {
		return r
	}
	return len(slotOrder)
}

// DayActivityCount returns the number of places across all slots of the day,
// or 0 if the day is not in the itinerary.
func DayActivityCount(it SmartItinerary, dayID uuid.UUID) int {
	d := it.Day(dayID)
	if d == nil {
		return 0
	}
	return placeCount(*d)
}

func placeCount(d Day) int {
	n := 0
	for _, s := range d.Slots {
		n += len(s.Places)
	}
	return n
}

// FindAvailableSlot returns the label of the least occupied slot. Ties go to
// the earlier slot in morning, afternoon, evening order; unknown labels rank
// last. It returns false when there are no slots.
func FindAvailableSlot(slots []Slot) (SlotLabel, bool) {
	if len(slots) == 0 {
		return "", false
	}

	ordered := make([]Slot, len(slots))
	copy(ordered, slots)
	sort.SliceStable(ordered, func(i, j int) bool {
		return slotRank(ordered[i].Label) < slotRank(ordered[j].Label)
	})

	best := ordered[0].Label
	minCount := len(ordered[0].Places)
	for _, s := range ordered[1:] {
		// Strict: a later tie never replaces an earlier slot.
		if len(s.Places) < minCount {
			best = s.Label
			minCount = len(s.Places)
		}
	}
	return best, true
}
