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
		r.Get("/health", s.handleHealth)
		r.Get("/metrics", s.handleMetrics)

		// Device registry
		r.Route("/devices", func(r chi.Router) {
			r.Get("/", s.handleListDevices)
			r.Post("/", s.handleRegisterDevice)
			r.Get("/stats", s.handleDeviceStats)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetDevice)
				r.Delete("/", s.handleRemoveDevice)
			})
		})

		// Controller lifecycle
		r.Route("/controllers", func(r chi.Router) {
			r.Get("/", s.handleListControllers)
			r.Post("/", s.handleActivateController)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleControllerStatus)
				r.Delete("/", s.handleDeactivateController)
				r.Post("/error", s.handleControllerError)
				r.Get("/samples", s.handlePollSamples)
				r.Get("/counters", s.handleSampleCounters)
			})
		})

		// Mapping administration
		r.Route("/mappings", func(r chi.Router) {
			r.Get("/", s.handleListMappings)
			r.Post("/", s.handleCreateMapping)
			r.Delete("/{handle}", s.handleRemoveMapping)
		})

		// Interaction mode
		r.Get("/mode", s.handleGetMode)
		r.Put("/mode", s.handleSetMode)

		// Status event history
		r.Get("/events", s.handleListEvents)

		// WebSocket stream (action results, status events)
		r.Get("/ws", s.handleWebSocket)
	})

	return r
}
