package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/amaumene/tamilarr/internal/models"
)

// ScrapeService runs on-demand scrapes
type ScrapeService interface {
	Sources() []models.Source
	ScrapeOnce(ctx context.Context, source models.Source) ([]models.ContentItem, error)
}

// ScrapeHandler triggers scrapes over HTTP
type ScrapeHandler struct {
	scrape ScrapeService
	logger zerolog.Logger
}

// NewScrapeHandler creates a new scrape handler
func NewScrapeHandler(scrape ScrapeService, logger zerolog.Logger) *ScrapeHandler {
	return &ScrapeHandler{
		scrape: scrape,
		logger: logger.With().Str("component", "scrape_handler").Logger(),
	}
}

// Handle scrapes the source named by ?source=, or every source, and reports
// the item count per source
func (h *ScrapeHandler) Handle(c *fiber.Ctx) error {
	sources := h.scrape.Sources()
	if raw := c.Query("source"); raw != "" {
		source := models.Source(raw)
		if !source.Valid() {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "unknown source",
			})
		}
		sources = []models.Source{source}
	}

	counts := make(map[models.Source]int, len(sources))
	errs := make(map[models.Source]string)
	for _, source := range sources {
		items, err := h.scrape.ScrapeOnce(c.UserContext(), source)
		if err != nil {
			h.logger.Error().Err(err).Str("source", string(source)).Msg("On-demand scrape failed")
			errs[source] = err.Error()
			continue
		}
		counts[source] = len(items)
	}

	body := fiber.Map{"items": counts}
	if len(errs) > 0 {
		body["errors"] = errs
	}
	return c.JSON(body)
}
