// Package api provides the HTTP REST API for Telemetry Core.
//
// It exposes the ingestion endpoints (single, full-metadata and
// multi-metric readings) and the analytics query endpoints over the
// time-series store.
//
// The server follows the same lifecycle pattern as the other
// infrastructure components:
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
//
// Thread Safety: All methods are safe for concurrent use from multiple goroutines.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/factorystack/telemetry-core/internal/infrastructure/config"
	"github.com/factorystack/telemetry-core/internal/infrastructure/logging"
	"github.com/factorystack/telemetry-core/internal/telemetry"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight
// requests to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// HealthChecker reports whether a backing service is reachable. The
// store client implements it.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config  config.APIConfig
	Logger  *logging.Logger
	Writer  *telemetry.Writer
	Reader  *telemetry.Reader
	Store   HealthChecker // optional: enriches /health with store reachability
	Version string
}

// Server is the HTTP API server for Telemetry Core.
//
// It manages the HTTP listener, routes, and middleware. The server is
// created with New() and started with Start().
type Server struct {
	cfg     config.APIConfig
	logger  *logging.Logger
	writer  *telemetry.Writer
	reader  *telemetry.Reader
	store   HealthChecker
	version string
	server  *http.Server
}

// New creates a new API server with the given dependencies.
//
// The server is not started until Start() is called.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Writer == nil {
		return nil, fmt.Errorf("write coordinator is required")
	}
	if deps.Reader == nil {
		return nil, fmt.Errorf("reader is required")
	}

	return &Server{
		cfg:     deps.Config,
		logger:  deps.Logger,
		writer:  deps.Writer,
		reader:  deps.Reader,
		store:   deps.Store,
		version: deps.Version,
	}, nil
}

// Start begins listening for HTTP connections in a background
// goroutine. The server is stopped with Close().
func (s *Server) Start(_ context.Context) error {
	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           s.buildRouter(),
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	go func() {
		s.logger.Info("API server starting", "address", s.server.Addr)
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	return nil
}

// Close gracefully shuts down the API server, waiting up to
// gracefulShutdownTimeout for in-flight requests.
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}
