package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
)

// StatusHandler handles status requests
type StatusHandler struct {
	health HealthService
	logger zerolog.Logger
}

// NewStatusHandler creates a new status handler
func NewStatusHandler(health HealthService, logger zerolog.Logger) *StatusHandler {
	return &StatusHandler{
		health: health,
		logger: logger,
	}
}

// Handle serves the full snapshot: cache sizes, store counts and last scrapes
func (h *StatusHandler) Handle(c *fiber.Ctx) error {
	return c.JSON(h.health.Snapshot(c.UserContext()))
}
