package api

import (
	"context"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/amaumene/tamilarr/internal/api/handlers"
	"github.com/amaumene/tamilarr/internal/api/middleware"
	"github.com/amaumene/tamilarr/internal/config"
)

// Server represents the HTTP server
type Server struct {
	app    *fiber.App
	addr   string
	logger zerolog.Logger
}

// NewServer creates a new HTTP server
func NewServer(
	cfg *config.Config,
	addon *handlers.AddonHandler,
	health *handlers.HealthHandler,
	status *handlers.StatusHandler,
	scrape *handlers.ScrapeHandler,
	logger zerolog.Logger,
) *Server {
	s := &Server{
		addr:   ":" + cfg.ServerPort,
		logger: logger.With().Str("component", "http").Logger(),
	}

	s.app = fiber.New(fiber.Config{
		AppName:               cfg.AddonName,
		DisableStartupMessage: true,
		ReadTimeout:           15 * time.Second,
		// Stream requests may wait on debrid polling
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	})
	s.app.Use(recover.New(recover.Config{
		EnableStackTrace: true,
		StackTraceHandler: func(c *fiber.Ctx, e interface{}) {
			s.logger.Error().
				Str("method", c.Method()).
				Str("path", c.Path()).
				Interface("panic", e).
				Msg("Recovered from handler panic")
		},
	}))
	s.app.Use(cors.New())
	s.app.Use(middleware.Logging(s.logger))
	s.app.Use(middleware.NoCache())

	s.setupRoutes(addon, health, status, scrape)
	return s
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes(addon *handlers.AddonHandler, health *handlers.HealthHandler, status *handlers.StatusHandler, scrape *handlers.ScrapeHandler) {
	// Operational endpoints
	s.app.Get("/health", health.Handle)
	s.app.Get("/status", status.Handle)
	s.app.Get("/scrape", scrape.Handle)
	s.app.Post("/scrape", scrape.Handle)
	s.app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	// Addon protocol, with and without a user configuration segment
	for _, prefix := range []string{"", "/:config"} {
		s.app.Get(prefix+"/manifest.json", addon.HandleManifest)
		s.app.Get(prefix+"/catalog/:type/*", addon.HandleCatalog)
		s.app.Get(prefix+"/meta/:type/*", addon.HandleMeta)
		s.app.Get(prefix+"/stream/:type/*", addon.HandleStream)
	}
}

// App exposes the fiber application for in-process requests
func (s *Server) App() *fiber.App {
	return s.app
}

// Start starts the HTTP server
func (s *Server) Start(ctx context.Context) error {
	s.logger.Info().Str("addr", s.addr).Msg("Starting HTTP server")

	errChan := make(chan error, 1)
	go func() {
		if err := s.app.Listen(s.addr); err != nil {
			errChan <- err
		}
	}()

	select {
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		return s.Shutdown()
	}
}

// Shutdown gracefully shuts down the HTTP server
func (s *Server) Shutdown() error {
	s.logger.Info().Msg("Shutting down HTTP server")
	return s.app.ShutdownWithTimeout(10 * time.Second)
}
