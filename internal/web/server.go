// Package web exposes the similarity engine over HTTP.
package web

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/chenjuwe/photo-dedup/internal/config"
	"github.com/chenjuwe/photo-dedup/internal/grouping"
	"github.com/chenjuwe/photo-dedup/internal/similarity"
	"github.com/chenjuwe/photo-dedup/internal/web/handlers"
)

// Server represents the web server.
type Server struct {
	config     *config.Config
	router     *chi.Mux
	httpServer *http.Server
	catalog    *handlers.Catalog
}

// NewServer creates a new web server.
func NewServer(cfg *config.Config, host string, port int) *Server {
	r := chi.NewRouter()

	s := &Server{
		config:  cfg,
		router:  r,
		catalog: handlers.NewCatalog(),
	}

	// Set up middleware stack
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Timeout(2 * time.Minute))

	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", host, port),
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 2 * time.Minute, // grouping large catalogs takes a while
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// groupingConfig assembles the engine config from the embedded tuning.
func (s *Server) groupingConfig() grouping.Config {
	t := &s.config.Tuning
	return grouping.Config{
		LSH:                 t.LSHConfig(0),
		VectorCandidates:    t.Grouping.VectorCandidates,
		QualityPenaltyScale: t.Grouping.QualityPenaltyScale,
		ReduceDim:           t.Grouping.ReduceDim,
	}
}

func (s *Server) fuser() *similarity.Fuser {
	t := &s.config.Tuning
	return similarity.NewFuser(t.HashWeights(), t.FusionWeights())
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	log.Printf("Starting web server on %s", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	log.Println("Shutting down web server...")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down server: %w", err)
	}
	return nil
}

// Router returns the chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}
