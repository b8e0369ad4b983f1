package api

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/neexbeast/kruno/internal/itinerary"
)

// loadItinerary reads the trip's document through the cache.
// Returns nil, nil when the trip has no itinerary.
func (h *Handlers) loadItinerary(ctx context.Context, tripID uuid.UUID) (*itinerary.Document, error) {
	cached, err := h.cache.GetItinerary(ctx, tripID)
	if err != nil {
		h.log.Warn("cache get itinerary failed", zap.Stringer("trip_id", tripID), zap.Error(err))
	}
	if cached != nil {
		return cached, nil
	}

	doc, err := h.repo.GetItinerary(ctx, tripID)
	if err != nil || doc == nil {
		return doc, err
	}

	if err := h.cache.SetItinerary(ctx, doc); err != nil {
		h.log.Warn("cache set itinerary failed after db hit", zap.Stringer("trip_id", tripID), zap.Error(err))
	}
	return doc, nil
}

// editItinerary applies edit to the stored document and writes it back with
// the version it was read at. The new version is written through to the cache.
func (h *Handlers) editItinerary(w http.ResponseWriter, r *http.Request, tripID uuid.UUID, edit func(it *itinerary.SmartItinerary) error) (*itinerary.Document, bool) {
	ctx := r.Context()

	doc, err := h.repo.GetItinerary(ctx, tripID)
	if err != nil {
		h.log.Error("db get itinerary failed", zap.Stringer("trip_id", tripID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
		return nil, false
	}
	if doc == nil {
		writeError(w, http.StatusNotFound, "itinerary not found")
		return nil, false
	}

	if err := edit(&doc.Itinerary); err != nil {
		status, msg := editStatus(err)
		writeError(w, status, msg)
		return nil, false
	}

	if !h.save(w, r, doc) {
		return nil, false
	}
	return doc, true
}

// save persists doc at doc.Version and bumps it to the stored version.
func (h *Handlers) save(w http.ResponseWriter, r *http.Request, doc *itinerary.Document) bool {
	version, err := h.repo.SaveItinerary(r.Context(), doc.TripID, doc.Itinerary, doc.Version)
	if err != nil {
		status, msg := editStatus(err)
		if status == http.StatusInternalServerError {
			h.log.Error("db save itinerary failed", zap.Stringer("trip_id", doc.TripID), zap.Error(err))
		}
		writeError(w, status, msg)
		return false
	}
	doc.Version = version
	doc.UpdatedAt = time.Now().UTC()

	// The cache only accepts newer versions, so a read that raced this write
	// cannot put the old document back.
	if err := h.cache.SetItinerary(r.Context(), doc); err != nil {
		h.log.Warn("cache set itinerary failed after save", zap.Stringer("trip_id", doc.TripID), zap.Error(err))
		if err := h.cache.DeleteItinerary(r.Context(), doc.TripID); err != nil {
			h.log.Warn("cache delete itinerary failed", zap.Stringer("trip_id", doc.TripID), zap.Error(err))
		}
	}
	return true
}

// GetItinerary handles GET /api/v1/trips/{tripID}/itinerary.
// Cache hit → return. DB hit → cache + return. Neither → 404.
func (h *Handlers) GetItinerary(w http.ResponseWriter, r *http.Request) {
	t, ok := h.ownedTrip(w, r)
	if !ok {
		return
	}

	doc, err := h.loadItinerary(r.Context(), t.ID)
	if err != nil {
		h.log.Error("db get itinerary failed", zap.Stringer("trip_id", t.ID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if doc == nil {
		writeError(w, http.StatusNotFound, "itinerary not found")
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

type putItineraryRequest struct {
	Version   int                      `json:"version"`
	Itinerary itinerary.SmartItinerary `json:"itinerary"`
}

// PutItinerary handles PUT /api/v1/trips/{tripID}/itinerary.
// Version 0 creates the document; any other value must match the stored one.
func (h *Handlers) PutItinerary(w http.ResponseWriter, r *http.Request) {
	t, ok := h.ownedTrip(w, r)
	if !ok {
		return
	}

	var req putItineraryRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Version < 0 {
		writeError(w, http.StatusBadRequest, "version must not be negative")
		return
	}
	if err := req.Itinerary.Validate(); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	req.Itinerary.EnsureIDs()

	doc := &itinerary.Document{TripID: t.ID, Itinerary: req.Itinerary, Version: req.Version}
	if !h.save(w, r, doc) {
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

// DayCount handles GET /api/v1/trips/{tripID}/itinerary/days/{dayID}/count.
func (h *Handlers) DayCount(w http.ResponseWriter, r *http.Request) {
	t, ok := h.ownedTrip(w, r)
	if !ok {
		return
	}
	dayID, ok := uuidParam(w, r, "dayID")
	if !ok {
		return
	}

	doc, err := h.loadItinerary(r.Context(), t.ID)
	if err != nil {
		h.log.Error("db get itinerary failed", zap.Stringer("trip_id", t.ID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if doc == nil || doc.Itinerary.Day(dayID) == nil {
		writeError(w, http.StatusNotFound, itinerary.ErrDayNotFound.Error())
		return
	}

	count := itinerary.DayActivityCount(doc.Itinerary, dayID)
	writeJSON(w, http.StatusOK, map[string]int{
		"count":     count,
		"max":       itinerary.MaxPlacesPerDay,
		"remaining": max(itinerary.MaxPlacesPerDay-count, 0),
	})
}

type addPlacesRequest struct {
	Slot   itinerary.SlotLabel `json:"slot"`
	Places []itinerary.Place   `json:"places"`
}

type addPlacesResponse struct {
	Placements []itinerary.Placement `json:"placements"`
	Skipped    int                   `json:"skipped"`
	Version    int                   `json:"version"`
}

// AddPlaces handles POST /api/v1/trips/{tripID}/itinerary/days/{dayID}/places.
// Places without an explicit slot go to the least-filled one.
func (h *Handlers) AddPlaces(w http.ResponseWriter, r *http.Request) {
	t, ok := h.ownedTrip(w, r)
	if !ok {
		return
	}
	dayID, ok := uuidParam(w, r, "dayID")
	if !ok {
		return
	}

	var req addPlacesRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if len(req.Places) == 0 {
		writeError(w, http.StatusBadRequest, "places must not be empty")
		return
	}

	var placed []itinerary.Placement
	doc, ok := h.editItinerary(w, r, t.ID, func(it *itinerary.SmartItinerary) error {
		var err error
		placed, err = itinerary.AddPlaces(it, dayID, req.Slot, req.Places)
		return err
	})
	if !ok {
		return
	}

	writeJSON(w, http.StatusCreated, addPlacesResponse{
		Placements: placed,
		Skipped:    len(req.Places) - len(placed),
		Version:    doc.Version,
	})
}

type setVisitedRequest struct {
	Visited *bool `json:"visited"`
}

// SetVisited handles PATCH /api/v1/trips/{tripID}/itinerary/days/{dayID}/places/{placeID}.
func (h *Handlers) SetVisited(w http.ResponseWriter, r *http.Request) {
	t, ok := h.ownedTrip(w, r)
	if !ok {
		return
	}
	dayID, ok := uuidParam(w, r, "dayID")
	if !ok {
		return
	}
	placeID, ok := uuidParam(w, r, "placeID")
	if !ok {
		return
	}

	var req setVisitedRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Visited == nil {
		writeError(w, http.StatusBadRequest, "visited is required")
		return
	}

	doc, ok := h.editItinerary(w, r, t.ID, func(it *itinerary.SmartItinerary) error {
		return itinerary.SetVisited(it, dayID, placeID, *req.Visited)
	})
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

// RemovePlace handles DELETE /api/v1/trips/{tripID}/itinerary/days/{dayID}/places/{placeID}.
func (h *Handlers) RemovePlace(w http.ResponseWriter, r *http.Request) {
	t, ok := h.ownedTrip(w, r)
	if !ok {
		return
	}
	dayID, ok := uuidParam(w, r, "dayID")
	if !ok {
		return
	}
	placeID, ok := uuidParam(w, r, "placeID")
	if !ok {
		return
	}

	_, ok = h.editItinerary(w, r, t.ID, func(it *itinerary.SmartItinerary) error {
		return itinerary.RemovePlace(it, dayID, placeID)
	})
	if !ok {
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
