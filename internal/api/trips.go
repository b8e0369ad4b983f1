package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/neexbeast/kruno/internal/trip"
)

type createTripRequest struct {
	Title       string `json:"title"`
	Destination string `json:"destination"`
	StartDate   string `json:"start_date"`
	EndDate     string `json:"end_date"`
}

// ListTrips handles GET /api/v1/trips.
func (h *Handlers) ListTrips(w http.ResponseWriter, r *http.Request) {
	trips, err := h.repo.ListTrips(r.Context(), UserID(r.Context()))
	if err != nil {
		h.log.Error("db list trips failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(w, http.StatusOK, trips)
}

// CreateTrip handles POST /api/v1/trips.
func (h *Handlers) CreateTrip(w http.ResponseWriter, r *http.Request) {
	var req createTripRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		writeError(w, http.StatusBadRequest, "title is required")
		return
	}
	start, err := time.Parse(time.DateOnly, req.StartDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "start_date must be YYYY-MM-DD")
		return
	}
	end, err := time.Parse(time.DateOnly, req.EndDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "end_date must be YYYY-MM-DD")
		return
	}
	if end.Before(start) {
		writeError(w, http.StatusBadRequest, "end_date is before start_date")
		return
	}

	created, err := h.repo.CreateTrip(r.Context(), trip.Trip{
		OwnerID:     UserID(r.Context()),
		Title:       req.Title,
		Destination: strings.TrimSpace(req.Destination),
		StartDate:   start,
		EndDate:     end,
	})
	if err != nil {
		h.log.Error("db create trip failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// GetTrip handles GET /api/v1/trips/{tripID}.
func (h *Handlers) GetTrip(w http.ResponseWriter, r *http.Request) {
	t, ok := h.ownedTrip(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// ListDays handles GET /api/v1/trips/{tripID}/days.
func (h *Handlers) ListDays(w http.ResponseWriter, r *http.Request) {
	t, ok := h.ownedTrip(w, r)
	if !ok {
		return
	}

	days, err := h.repo.ListDays(r.Context(), t.ID)
	if err != nil {
		h.log.Error("db list days failed", zap.Stringer("trip_id", t.ID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(w, http.StatusOK, days)
}

// ListActivities handles GET /api/v1/trips/{tripID}/activities.
func (h *Handlers) ListActivities(w http.ResponseWriter, r *http.Request) {
	t, ok := h.ownedTrip(w, r)
	if !ok {
		return
	}

	acts, err := h.repo.ListActivities(r.Context(), t.ID)
	if err != nil {
		h.log.Error("db list activities failed", zap.Stringer("trip_id", t.ID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(w, http.StatusOK, acts)
}

type createActivityRequest struct {
	DayID     uuid.UUID   `json:"day_id"`
	Title     string      `json:"title"`
	StartTime *string     `json:"start_time"`
	EndTime   *string     `json:"end_time"`
	Notes     string      `json:"notes"`
	Place     *trip.Place `json:"place"`
}

// CreateActivity handles POST /api/v1/trips/{tripID}/activities.
func (h *Handlers) CreateActivity(w http.ResponseWriter, r *http.Request) {
	t, ok := h.ownedTrip(w, r)
	if !ok {
		return
	}

	var req createActivityRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" || req.DayID == uuid.Nil {
		writeError(w, http.StatusBadRequest, "day_id and title are required")
		return
	}
	if req.Place != nil && strings.TrimSpace(req.Place.Name) == "" {
		writeError(w, http.StatusBadRequest, "place name is required")
		return
	}

	created, err := h.repo.CreateActivity(r.Context(), t.ID, trip.Activity{
		DayID:     req.DayID,
		Title:     req.Title,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
		Notes:     req.Notes,
		Place:     req.Place,
	})
	if err != nil {
		status, msg := editStatus(err)
		if status == http.StatusInternalServerError {
			h.log.Error("db create activity failed", zap.Stringer("trip_id", t.ID), zap.Error(err))
		}
		writeError(w, status, msg)
		return
	}

	writeJSON(w, http.StatusCreated, created)
}
