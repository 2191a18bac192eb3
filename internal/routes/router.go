package routes

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"infinite-experiment/logbook/internal/api"
	"infinite-experiment/logbook/internal/logging"
	"infinite-experiment/logbook/internal/metrics"
	"infinite-experiment/logbook/internal/middleware"
)

// RegisterRoutes builds the chi router for the logbook API. ingestLimiter
// guards the manual ingestion endpoint and may be nil to disable limiting.
func RegisterRoutes(deps *api.Dependencies, metricsReg *metrics.MetricsRegistry, ingestLimiter *middleware.RateLimiter, upSince time.Time) http.Handler {

	// initialize Chi router
	r := chi.NewRouter()

	// global middleware
	r.Use(middleware.RequestIDMiddleware)
	r.Use(middleware.InFlightMiddleware(metricsReg))
	r.Use(middleware.MetricsMiddleware(metricsReg))
	r.Use(middleware.Logging)

	// Browsers may read from any dashboard origin; triggering ingestion is
	// left to same-origin callers and operators.
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://localhost:3000"},
		AllowedMethods:   []string{"GET", "HEAD", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", middleware.RequestIDHeader},
		ExposedHeaders:   []string{api.StaleHeader, middleware.RequestIDHeader},
		AllowCredentials: false,
		MaxAge:           300, // Maximum value not ignored by any of major browsers
	}))

	logging.Info("Router initialized with metrics and logging middleware")
	// health check
	r.Get("/healthCheck", api.HealthCheckHandler(deps, upSince))

	RegisterAPIRoutes(r, deps, ingestLimiter)

	return r
}

// RegisterAPIRoutes registers all API v1 routes and handlers
func RegisterAPIRoutes(r chi.Router, deps *api.Dependencies, ingestLimiter *middleware.RateLimiter) {
	r.Route("/api/v1", func(v1 chi.Router) {
		v1.Get("/metrics", api.GetMetricsHandler(deps.Metrics))
		v1.Get("/metrics/export.xlsx", api.ExportWorkbookHandler(deps.Metrics))
		v1.Get("/pilots", api.ListPilotsHandler(deps.Metrics))
		v1.Get("/pilots/{pilotId}", api.GetPilotHandler(deps.Metrics))

		v1.Group(func(ingest chi.Router) {
			if ingestLimiter != nil {
				ingest.Use(ingestLimiter.Middleware)
			}
			ingest.Post("/ingest", api.TriggerIngestHandler(deps.Metrics))
		})
		if deps.History != nil {
			v1.Get("/ingest/runs", api.ListRunsHandler(deps.History))
		}
	})
}
