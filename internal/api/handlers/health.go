package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/amaumene/tamilarr/internal/controllers"
)

// HealthService builds health snapshots
type HealthService interface {
	Snapshot(ctx context.Context) controllers.HealthSnapshot
}

// HealthHandler handles health check requests
type HealthHandler struct {
	health HealthService
	logger zerolog.Logger
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(health HealthService, logger zerolog.Logger) *HealthHandler {
	return &HealthHandler{health: health, logger: logger}
}

// Handle serves the health check endpoint. A degraded store still answers 200:
// the addon keeps serving from the cache.
func (h *HealthHandler) Handle(c *fiber.Ctx) error {
	snapshot := h.health.Snapshot(c.UserContext())
	return c.JSON(fiber.Map{
		"status":    snapshot.Status,
		"timestamp": snapshot.Timestamp,
	})
}
