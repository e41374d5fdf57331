package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		// Health check
		r.Get("/health", s.handleHealth)

		// Ingestion endpoints, one per payload shape
		r.Post("/ingest", s.handleIngest)
		r.Post("/datapoint", s.handleDatapoint)
		r.Post("/sensor-data", s.handleSensorData)

		// Analytics endpoints
		r.Route("/analytics", func(r chi.Router) {
			r.Get("/all", s.handleAnalyticsAll)
			r.Get("/history", s.handleAnalyticsHistory)
			r.Get("/temperature", s.handleAnalyticsTemperature)
		})
	})

	return r
}

// handleHealth returns the server health status, including store
// reachability when a checker was wired in.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	body := map[string]any{
		"status":  "ok",
		"version": s.version,
	}
	if s.store != nil {
		if err := s.store.HealthCheck(r.Context()); err != nil {
			body["status"] = "degraded"
			body["store"] = "unreachable"
			writeJSON(w, http.StatusServiceUnavailable, body)
			return
		}
		body["store"] = "ok"
	}
	writeJSON(w, http.StatusOK, body)
}
