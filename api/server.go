/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for dashboards

ROUTE GROUPS:
  /api/telemetry       Fragment ingestion
  /api/devices/*       Device metadata CRUD
  /api/archive/*       Archive sweep bookkeeping
  /api/upload_photo    Face-match call-through
  /api/chat            Chat-relay call-through

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Route("/api", func(r chi.Router) {
		// Ingestion
		r.Post("/telemetry", h.IngestTelemetry)

		// Device metadata
		r.Route("/devices", func(r chi.Router) {
			r.Get("/", h.ListDevices)
			r.Get("/{id}", h.GetDevice)
			r.Put("/{id}", h.SaveDevice)
			r.Delete("/{id}", h.DeleteDevice)
		})

		// Archive bookkeeping
		r.Route("/archive", func(r chi.Router) {
			r.Get("/runs", h.ListArchiveRuns)
		})

		// Collaborator call-throughs
		r.Post("/upload_photo", h.UploadPhoto)
		r.Post("/chat", h.RelayChat)
	})

	return r
}
