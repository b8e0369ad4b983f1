package api

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/neexbeast/kruno/internal/itinerary"
	"github.com/neexbeast/kruno/internal/places"
)

type exploreResponse struct {
	City       string             `json:"city"`
	Candidates []places.Candidate `json:"candidates"`
}

// Explore handles GET /api/v1/trips/{tripID}/explore?city=.
// Candidates come from the cache or the place finder and are filtered
// against the trip's activities and itinerary on every request.
func (h *Handlers) Explore(w http.ResponseWriter, r *http.Request) {
	t, ok := h.ownedTrip(w, r)
	if !ok {
		return
	}

	city := strings.TrimSpace(r.URL.Query().Get("city"))
	if city == "" {
		city = t.Destination
	}
	if city == "" {
		writeError(w, http.StatusBadRequest, "city is required")
		return
	}

	ctx := r.Context()
	cands, err := h.cache.GetCandidates(ctx, city)
	if err != nil {
		h.log.Warn("cache get candidates failed", zap.String("city", city), zap.Error(err))
	}
	if cands == nil {
		cands, err = h.finder.Nearby(ctx, city)
		if err != nil {
			h.log.Error("place lookup failed", zap.String("city", city), zap.Error(err))
			writeError(w, http.StatusBadGateway, "failed to fetch places")
			return
		}
		if err := h.cache.SetCandidates(ctx, city, cands); err != nil {
			h.log.Warn("cache set candidates failed", zap.String("city", city), zap.Error(err))
		}
	}

	acts, err := h.repo.ListActivities(ctx, t.ID)
	if err != nil {
		h.log.Error("db list activities failed", zap.Stringer("trip_id", t.ID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	keys := itinerary.ExtractPlaceKeys(acts)

	doc, err := h.loadItinerary(ctx, t.ID)
	if err != nil {
		h.log.Error("db get itinerary failed", zap.Stringer("trip_id", t.ID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if doc != nil {
		keys.AddItinerary(doc.Itinerary, city)
	}

	writeJSON(w, http.StatusOK, exploreResponse{City: city, Candidates: places.Filter(cands, keys)})
}
