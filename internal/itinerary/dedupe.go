package itinerary

import (
	"strings"

	"github.com/neexbeast/kruno/internal/trip"
)

// KeySet is a set of string keys.
type KeySet map[string]struct{}

// Add inserts k. Empty keys are ignored.
func (s KeySet) Add(k string) {
	if k == "" {
		return
	}
	s[k] = struct{}{}
}

// Has reports whether k is in the set.
func (s KeySet) Has(k string) bool {
	_, ok := s[k]
	return ok
}

// PlaceKeys identifies places already committed to a trip.
type PlaceKeys struct {
	PlaceIDs     KeySet
	FallbackKeys KeySet
}

// NewPlaceKeys returns an empty PlaceKeys.
func NewPlaceKeys() PlaceKeys {
	return PlaceKeys{PlaceIDs: KeySet{}, FallbackKeys: KeySet{}}
}

// ExtractPlaceKeys collects the external ids and fallback keys of every
// activity that has a linked place. The fallback key is computed even when
// an external id is present.
func ExtractPlaceKeys(activities []trip.Activity) PlaceKeys {
	keys := NewPlaceKeys()
	for _, a := range activities {
		if a.Place == nil {
			continue
		}
		if id := strings.TrimSpace(a.Place.ExternalID); id != "" {
			keys.PlaceIDs.Add(id)
		}
		keys.FallbackKeys.Add(NormalizePlaceKey(a.Place.Name, placeLocality(*a.Place)))
	}
	return keys
}

// AddItinerary adds every place of the document as fallback keys. Document
// places carry no external id, and their area is usually a district, so each
// place is keyed by name with the trip's city and by name with its area.
func (k PlaceKeys) AddItinerary(it SmartItinerary, city string) {
	for _, d := range it.Days {
		for _, s := range d.Slots {
			for _, p := range s.Places {
				k.FallbackKeys.Add(NormalizePlaceKey(p.Name, city))
				k.FallbackKeys.Add(NormalizePlaceKey(p.Name, p.Area))
			}
		}
	}
}

// Contains reports whether a candidate place is already included. The
// external id is checked first; the normalized name and locality second.
func (k PlaceKeys) Contains(externalID, name, locality string) bool {
	if id := strings.TrimSpace(externalID); id != "" && k.PlaceIDs.Has(id) {
		return true
	}
	return k.FallbackKeys.Has(NormalizePlaceKey(name, locality))
}

// placeLocality prefers the structured locality and otherwise guesses it from
// an address shaped like "street, area, city, country".
func placeLocality(p trip.Place) string {
	if l := strings.TrimSpace(p.Locality); l != "" {
		return l
	}
	city, area := splitAddress(p.Address)
	if city != "" {
		return city
	}
	return area
}

// splitAddress returns the second-to-last and third-to-last comma separated
// components. Addresses with fewer parts yield empty strings.
func splitAddress(address string) (city, area string) {
	if strings.TrimSpace(address) == "" {
		return "", ""
	}
	parts := strings.Split(address, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	n := len(parts)
	if n >= 2 {
		city = parts[n-2]
	}
	if n >= 3 {
		area = parts[n-3]
	}
	return city, area
}
