package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"chatarchive/internal/core"
	"chatarchive/internal/server/handlers"
)

// Server is the local preview server. Features contribute their routes
// through the registry.
type Server struct {
	addr     string
	logger   *core.Logger
	registry *core.Registry
	server   *http.Server
}

// New creates a preview server listening on the configured host and port
func New(config *core.Config, logger *core.Logger, registry *core.Registry) *Server {
	s := &Server{
		addr:     net.JoinHostPort(config.Server.Host, strconv.Itoa(config.Server.Port)),
		logger:   logger.ForFeature("server"),
		registry: registry,
	}
	s.setupRoutes()
	return s
}

// Addr returns the listen address
func (s *Server) Addr() string {
	return s.addr
}

// Handler returns the HTTP handler with all routes mounted
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

func (s *Server) setupRoutes() {
	mux := chi.NewRouter()

	mux.Use(middleware.Recoverer)
	mux.Use(middleware.RequestID)
	mux.Use(middleware.RealIP)
	mux.Use(middleware.Logger)

	mux.Get("/health", handlers.HealthCheckHandler)

	for _, route := range s.registry.Routes() {
		pattern := route.Path
		if route.Prefix {
			pattern = strings.TrimSuffix(route.Path, "/") + "/*"
		}
		mux.Method(route.Method, pattern, route.Handler)
	}

	s.server = &http.Server{
		Addr:              s.addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// Start serves until Shutdown is called. Features must already be
// initialized.
func (s *Server) Start() error {
	s.logger.Info("Starting preview server", "addr", "http://"+s.addr)

	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("preview server failed: %w", err)
	}
	return nil
}

// Shutdown stops the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down server...")

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown HTTP server: %w", err)
	}
	return nil
}
