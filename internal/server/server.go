// Package server owns the HTTP listener lifecycle: construction from
// bootstrapped collaborators, serving, and graceful shutdown.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/nlatta/caseforge/internal/api"
	"github.com/nlatta/caseforge/internal/mcp"
)

// Config holds HTTP listener configuration.
type Config struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration

	// MCPPath mounts the MCP streamable endpoint when non-empty.
	MCPPath string
}

// DefaultConfig returns the listener defaults.
func DefaultConfig() Config {
	return Config{
		Host:         "0.0.0.0",
		Port:         8080,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
		MCPPath:      "/mcp",
	}
}

// Server wraps the HTTP server around the API router and the optional
// MCP endpoint.
type Server struct {
	config Config
	deps   api.Deps
	logger *slog.Logger
	http   *http.Server
}

// NewServer builds the route tree from deps and wraps it in an http.Server.
func NewServer(deps api.Deps, config Config, logger *slog.Logger) *Server {
	router := api.NewRouter(deps)
	if config.MCPPath != "" {
		router.Mount(config.MCPPath, mcp.Handler(deps.Tools, deps.Orch))
	}

	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", config.Host, config.Port),
		Handler:      router,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
		IdleTimeout:  config.IdleTimeout,
	}

	return &Server{
		config: config,
		deps:   deps,
		logger: logger,
		http:   httpServer,
	}
}

// Addr returns the listener address.
func (s *Server) Addr() string {
	return s.http.Addr
}

// Start serves until the listener fails or Shutdown is called.
// http.ErrServerClosed is the clean-shutdown signal and is swallowed.
func (s *Server) Start() error {
	s.logger.Info("http server listening", "addr", s.http.Addr, "mcp_path", s.config.MCPPath)
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests and closes the database.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")

	if err := s.http.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	if err := s.deps.DB.Close(); err != nil {
		return fmt.Errorf("database close: %w", err)
	}

	s.logger.Info("shutdown complete")
	return nil
}
