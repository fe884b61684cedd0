package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/hackgods/clinic-booking-engine/internal/appointment"
	"github.com/hackgods/clinic-booking-engine/internal/logging"
)

type RouterConfig struct {
	Availability *appointment.Availability
	Coordinator  *appointment.Coordinator
	Lifecycle    *appointment.Lifecycle
	Health       *HealthHandler
	// Metrics serves /metrics when set.
	Metrics        http.Handler
	Logger         *zap.Logger
	AllowedOrigins []string
}

func NewRouter(cfg RouterConfig) http.Handler {
	logger := logging.OrNop(cfg.Logger)
	r := chi.NewRouter()

	// Apply middleware
	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(logger))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))

	// Health endpoints
	if cfg.Health != nil {
		r.Get("/health/live", cfg.Health.Liveness)
		r.Get("/health/ready", cfg.Health.Readiness)
	}
	if cfg.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", cfg.Metrics)
	}

	// Availability
	r.Get("/slots", allSlotsHandler(cfg.Availability))
	r.Get("/providers/{providerID}/slots", providerSlotsHandler(cfg.Availability))

	// Bookings and lifecycle
	r.Post("/appointments", createAppointmentHandler(cfg.Coordinator))
	r.Post("/providers/{providerID}/blocks", blockSlotHandler(cfg.Coordinator))
	r.Get("/appointments/{id}", getAppointmentHandler(cfg.Lifecycle))
	r.Post("/appointments/{id}/transitions", transitionHandler(cfg.Lifecycle))
	r.Put("/appointments/{id}/notes", notesHandler(cfg.Lifecycle))

	return r
}
