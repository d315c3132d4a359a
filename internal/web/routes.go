package web

import (
	"github.com/go-chi/chi/v5"

	"github.com/chenjuwe/photo-dedup/internal/web/handlers"
)

func (s *Server) setupRoutes() {
	photosHandler := handlers.NewPhotosHandler(s.catalog, s.config.Tuning.HashOptions())
	groupsHandler := handlers.NewGroupsHandler(s.catalog, s.fuser(), s.groupingConfig())

	// Health check
	s.router.Get("/api/v1/health", handlers.HealthCheck)

	// API routes
	s.router.Route("/api/v1", func(r chi.Router) {
		// Photos
		r.Get("/photos", photosHandler.List)
		r.Post("/photos", photosHandler.Register)
		r.Delete("/photos", photosHandler.Clear)
		r.Delete("/photos/{id}", photosHandler.Delete)

		// Duplicate groups
		r.Post("/groups", groupsHandler.Find)
	})
}
