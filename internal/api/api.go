// Package api provides the HTTP REST API server.
package api

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/good-yellow-bee/blazewatch/internal/api/health"
	"github.com/good-yellow-bee/blazewatch/internal/api/middleware"
	"github.com/good-yellow-bee/blazewatch/internal/monitor"
)

// Config contains HTTP API server configuration.
type Config struct {
	Address string
	// IngestRatePerSecond is the per-IP token refill rate on ingestion
	// routes. Zero uses the default, negative disables limiting.
	IngestRatePerSecond float64
	IngestBurst         int
	// MaxBodyBytes bounds request bodies.
	MaxBodyBytes      int64
	StreamMaxDuration time.Duration // Max lifetime for notification streams
	HeartbeatInterval time.Duration // Keepalive interval for notification streams
	Verbose           bool
}

// SetDefaults applies default values for missing configuration.
func (c *Config) SetDefaults() {
	if c.Address == "" {
		c.Address = ":8080"
	}
	if c.IngestRatePerSecond == 0 {
		c.IngestRatePerSecond = 20
	}
	if c.IngestBurst == 0 {
		c.IngestBurst = 40
	}
	if c.MaxBodyBytes == 0 {
		c.MaxBodyBytes = 1 << 20
	}
	if c.StreamMaxDuration == 0 {
		c.StreamMaxDuration = 30 * time.Minute
	}
	if c.HeartbeatInterval == 0 {
		c.HeartbeatInterval = 15 * time.Second
	}
}

// Server is the HTTP API server.
type Server struct {
	config        *Config
	monitor       *monitor.Monitor
	server        *http.Server
	healthHandler *health.Handler
	ingestLimiter *middleware.RateLimiter
}

// New creates a new API server.
func New(cfg *Config, mon *monitor.Monitor) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if mon == nil {
		return nil, fmt.Errorf("monitor is required")
	}

	cfg.SetDefaults()

	s := &Server{
		config:        cfg,
		monitor:       mon,
		healthHandler: health.NewHandler(),
		ingestLimiter: middleware.NewRateLimiter(cfg.IngestRatePerSecond, cfg.IngestBurst),
	}

	s.server = &http.Server{
		Addr:        cfg.Address,
		Handler:     s.setupRouter(),
		ReadTimeout: 15 * time.Second,
		// No WriteTimeout: notification streams stay open for up to
		// StreamMaxDuration.
		WriteTimeout: 0,
		IdleTimeout:  60 * time.Second,
	}

	return s, nil
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Run starts the HTTP server and blocks until context is canceled.
func (s *Server) Run(ctx context.Context) error {
	errChan := make(chan error, 1)

	go func() {
		log.Printf("HTTP API listening on %s", s.config.Address)
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Printf("shutting down HTTP API server...")
		s.ingestLimiter.Stop()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.server.Shutdown(shutdownCtx)
	case err := <-errChan:
		s.ingestLimiter.Stop()
		return err
	}
}

// Address returns the configured listen address.
func (s *Server) Address() string {
	return s.config.Address
}

// RegisterHealthChecker adds a health checker to the server.
func (s *Server) RegisterHealthChecker(c health.Checker) {
	if s.healthHandler != nil {
		s.healthHandler.RegisterChecker(c)
	}
}
