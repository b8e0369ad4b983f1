package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/neexbeast/kruno/internal/itinerary"
	"github.com/neexbeast/kruno/internal/storage"
	"github.com/neexbeast/kruno/internal/trip"
)

const maxBodyBytes = 1 << 20

// Handlers holds the dependencies for all HTTP handlers.
type Handlers struct {
	repo   Repo
	cache  Cache
	finder PlaceFinder
	log    *zap.Logger
}

// NewHandlers constructs Handlers with all required dependencies.
func NewHandlers(repo Repo, cache Cache, finder PlaceFinder, log *zap.Logger) *Handlers {
	return &Handlers{
		repo:   repo,
		cache:  cache,
		finder: finder,
		log:    log,
	}
}

// writeJSON encodes v as JSON and writes it with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func uuidParam(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid "+name)
		return uuid.Nil, false
	}
	return id, true
}

// editStatus maps itinerary edit and storage errors to an HTTP status.
func editStatus(err error) (int, string) {
	switch {
	case errors.Is(err, itinerary.ErrDayNotFound),
		errors.Is(err, itinerary.ErrSlotNotFound),
		errors.Is(err, itinerary.ErrPlaceNotFound),
		errors.Is(err, storage.ErrDayNotFound):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, itinerary.ErrDayFull):
		return http.StatusConflict, err.Error()
	case errors.Is(err, storage.ErrVersionConflict):
		return http.StatusConflict, "itinerary was modified concurrently, reload and retry"
	case errors.Is(err, itinerary.ErrNoSlots):
		return http.StatusUnprocessableEntity, err.Error()
	}
	return http.StatusInternalServerError, "internal server error"
}

// ownedTrip resolves {tripID} and checks it belongs to the caller.
// Trips owned by someone else are reported as missing.
func (h *Handlers) ownedTrip(w http.ResponseWriter, r *http.Request) (*trip.Trip, bool) {
	id, ok := uuidParam(w, r, "tripID")
	if !ok {
		return nil, false
	}

	t, err := h.repo.GetTrip(r.Context(), id)
	if err != nil {
		h.log.Error("db get trip failed", zap.Stringer("trip_id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
		return nil, false
	}
	if t == nil || t.OwnerID != UserID(r.Context()) {
		writeError(w, http.StatusNotFound, "trip not found")
		return nil, false
	}
	return t, true
}

// HealthCheck handles GET /api/v1/health.
// Pings DB and Redis; returns 200 if both ok, 503 otherwise.
type pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandlerFunc returns an http.HandlerFunc that checks db and redis connectivity.
func HealthHandlerFunc(db, redis pinger, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()

		status := http.StatusOK
		dbStatus := "ok"
		redisStatus := "ok"

		if err := db.Ping(ctx); err != nil {
			log.Error("health check: db ping failed", zap.Error(err))
			dbStatus = "error"
			status = http.StatusServiceUnavailable
		}

		if err := redis.Ping(ctx); err != nil {
			log.Error("health check: redis ping failed", zap.Error(err))
			redisStatus = "error"
			status = http.StatusServiceUnavailable
		}

		overall := "ok"
		if status != http.StatusOK {
			overall = "degraded"
		}
		writeJSON(w, status, map[string]string{
			"status": overall,
			"db":     dbStatus,
			"redis":  redisStatus,
		})
	}
}
