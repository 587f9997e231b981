// Package api serves the query verbs over HTTP as GET /v1/<verb>.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"cix/internal/envelope"
	"cix/internal/query"
)

// Server represents the HTTP API server
type Server struct {
	router  *http.ServeMux
	server  *http.Server
	addr    string
	logger  *slog.Logger
	engine  *query.Engine
	env     *envelope.Builder
	metrics *Metrics
}

// NewServer creates a new HTTP server instance
func NewServer(addr string, engine *query.Engine, env *envelope.Builder, logger *slog.Logger) *Server {
	s := &Server{
		addr:    addr,
		logger:  logger,
		engine:  engine,
		env:     env,
		router:  http.NewServeMux(),
		metrics: NewMetrics(),
	}

	s.registerRoutes()

	handler := s.applyMiddleware(s.router)
	s.server = &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Start serves until Shutdown is called
func (s *Server) Start() error {
	s.logger.Info("Starting HTTP server", "addr", s.addr, "source", s.engine.Source())

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down HTTP server")

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}
	return nil
}

// ServeHTTP implements http.Handler for testing
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.server.Handler.ServeHTTP(w, r)
}

// applyMiddleware wraps the handler with middleware in the correct order
func (s *Server) applyMiddleware(handler http.Handler) http.Handler {
	// Last applied runs first.
	handler = RecoveryMiddleware(s.logger)(handler)
	handler = MetricsMiddleware(s.metrics)(handler)
	handler = LoggingMiddleware(s.logger)(handler)
	handler = RequestIDMiddleware()(handler)
	return handler
}
