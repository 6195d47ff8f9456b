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

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/metrics", s.handleMetrics)

		// Script catalogue
		r.Route("/scripts", func(r chi.Router) {
			r.Get("/providers", s.handleListProviders)
			r.Route("/sources", func(r chi.Router) {
				r.Get("/", s.handleListSources)
				r.Post("/", s.handleCreateSource)
				r.Get("/{id}", s.handleGetSource)
				r.Put("/{id}/content", s.handleUpdateSourceContent)
			})
		})

		// Event bindings by connection ID
		r.Route("/bindings", func(r chi.Router) {
			r.Get("/", s.handleListBindings)
			r.Delete("/{connection}", s.handleDeleteBinding)
		})

		// Rooms, devices and services
		r.Route("/{kind}", func(r chi.Router) {
			r.Get("/", s.handleListEntities)
			r.Post("/", s.handleCreateEntity)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetEntity)
				r.Patch("/", s.handleRenameEntity)
				r.Delete("/", s.handleDeleteEntity)
				r.Put("/script", s.handleAssignScript)
				r.Get("/properties", s.handleGetProperties)
				r.Patch("/properties", s.handleSetProperties)
				r.Get("/attributes", s.handleGetAttributes)
				r.Post("/methods/{method}", s.handleInvokeMethod)
				r.Post("/events/{event}/bindings", s.handleCreateBinding)
			})
		})

		r.Get(wsPath(s.wsCfg), s.handleWebSocket)
	})

	return r
}

// handleHealth returns the server health status.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"site":    s.home.Name(),
		"version": s.version,
	})
}
