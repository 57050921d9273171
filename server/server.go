// Package server runs the read-only HTTP API over the latest scrape output.
// It includes middleware configuration, route management, snapshot reloads
// and graceful shutdown.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/giygas/kalimati-scraper/config"
	"github.com/giygas/kalimati-scraper/data"
	"github.com/giygas/kalimati-scraper/handlers"
	"github.com/giygas/kalimati-scraper/health"
	"github.com/giygas/kalimati-scraper/logging"
	"github.com/giygas/kalimati-scraper/metrics"
	"github.com/giygas/kalimati-scraper/validation"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server represents the HTTP server
type Server struct {
	server    *http.Server
	router    chi.Router
	container *data.SnapshotContainer
	limiter   *RateLimiter
	config    *config.Config
	logger    *slog.Logger
}

// NewServer creates a new server instance
func NewServer(cfg *config.Config, container *data.SnapshotContainer, logger *slog.Logger) *Server {
	router := chi.NewRouter()

	server := &Server{
		server: &http.Server{
			Handler:           router,
			Addr:              cfg.Address + ":" + cfg.Port,
			ReadTimeout:       15 * time.Second,
			ReadHeaderTimeout: 5 * time.Second,
			WriteTimeout:      15 * time.Second,
			IdleTimeout:       60 * time.Second,
			MaxHeaderBytes:    int(cfg.MaxHeaderSize),
		},
		router:    router,
		container: container,
		limiter:   NewRateLimiter(),
		config:    cfg,
		logger:    logger,
	}

	server.setupMiddleware()
	server.setupRoutes()

	return server
}

// setupMiddleware configures all middleware
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(RealIPMiddleware(s.config.TrustedProxies))
	s.router.Use(logging.LoggingMiddleware(s.logger))
	s.router.Use(middleware.RedirectSlashes)
	s.router.Use(middleware.Recoverer)
	s.router.Use(RequestSizeMiddleware(s.config, s.logger))
	s.router.Use(metrics.Metrics)
	s.router.Use(s.limiter.Handler)
}

// setupRoutes configures all routes
func (s *Server) setupRoutes() {
	h := handlers.NewHTTPHandler(
		s.container,
		validation.NewRecordValidator(),
		health.NewHealthChecker(s.container),
		s.logger,
	)

	s.router.Get("/prices", h.ServePrices)
	s.router.Get("/prices/{name}", h.FindPrice)
	s.router.Get("/mapping", h.ServeMapping)
	s.router.Get("/mapping/untranslated", h.ServeUntranslated)
	s.router.Get("/health", h.HealthCheck)
	s.router.Handle("/metrics", promhttp.Handler())
}

// Handler returns the configured router
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start loads the initial snapshot and serves until Shutdown. A missing
// snapshot is logged; /health reports unhealthy until a reload succeeds.
func (s *Server) Start(ctx context.Context) error {
	s.container.SetServerStartTime(time.Now())

	if err := s.container.Reload(s.config.DataDir); err != nil {
		s.logger.Warn("No snapshot available yet", "dir", s.config.DataDir, "error", err)
	}

	s.limiter.StartCleanup(ctx, 30*time.Minute)

	s.logger.Info("Starting server", "address", s.config.Address, "port", s.config.Port)
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// WatchReload reloads the snapshot each time a value arrives on signals,
// until ctx is done
func (s *Server) WatchReload(ctx context.Context, signals <-chan os.Signal) {
	for {
		select {
		case <-ctx.Done():
			return
		case sig := <-signals:
			s.logger.Info("Reloading snapshot", "signal", fmt.Sprint(sig))
			if err := s.container.Reload(s.config.DataDir); err != nil {
				s.logger.Error("Failed to reload snapshot", "error", err)
			}
		}
	}
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down server...")

	if err := s.server.Shutdown(ctx); err != nil {
		s.logger.Error("Server forced to shutdown", "error", err)
		// If graceful shutdown fails, force close
		if err := s.server.Close(); err != nil {
			s.logger.Error("Server close error", "error", err)
			return err
		}
	}

	s.logger.Info("Server shutdown complete")
	return nil
}
