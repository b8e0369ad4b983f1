package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/rs/cors"
	"go.uber.org/zap"
)

// RouterConfig carries the tunables for NewRouter.
type RouterConfig struct {
	JWTSecret          []byte
	RateLimitPerMinute int
	AllowedOrigins     []string
}

// NewRouter builds and returns the Chi router with all routes configured.
// The health endpoint is unauthenticated; every trip route requires a bearer JWT.
func NewRouter(handlers *Handlers, cfg RouterConfig, db, redis pinger, log *zap.Logger) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.New(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
	}).Handler)
	r.Use(httprate.LimitByIP(cfg.RateLimitPerMinute, time.Minute))

	r.Get("/api/v1/health", HealthHandlerFunc(db, redis, log))

	r.Route("/api/v1/trips", func(r chi.Router) {
		r.Use(BearerAuth(cfg.JWTSecret))

		r.Get("/", handlers.ListTrips)
		r.Post("/", handlers.CreateTrip)

		r.Route("/{tripID}", func(r chi.Router) {
			r.Get("/", handlers.GetTrip)
			r.Get("/days", handlers.ListDays)
			r.Get("/activities", handlers.ListActivities)
			r.Post("/activities", handlers.CreateActivity)
			r.Get("/explore", handlers.Explore)

			r.Get("/itinerary", handlers.GetItinerary)
			r.Put("/itinerary", handlers.PutItinerary)
			r.Get("/itinerary/days/{dayID}/count", handlers.DayCount)
			r.Post("/itinerary/days/{dayID}/places", handlers.AddPlaces)
			r.Patch("/itinerary/days/{dayID}/places/{placeID}", handlers.SetVisited)
			r.Delete("/itinerary/days/{dayID}/places/{placeID}", handlers.RemovePlace)
		})
	})

	return r
}

// Ensure chi.Mux implements http.Handler.
var _ http.Handler = (*chi.Mux)(nil)
