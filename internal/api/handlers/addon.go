package handlers

import (
	"context"
	"net/url"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/amaumene/tamilarr/internal/config"
	"github.com/amaumene/tamilarr/internal/controllers"
	"github.com/amaumene/tamilarr/internal/models"
)

// CatalogService assembles catalog pages
type CatalogService interface {
	Catalog(ctx context.Context, contentType models.ContentType, catalogID string, extra controllers.Extra, user controllers.UserConfig) models.CatalogResponse
}

// MetaService serves detail records
type MetaService interface {
	Meta(ctx context.Context, contentType models.ContentType, id string) models.MetaResponse
}

// StreamService finds playable streams
type StreamService interface {
	Streams(ctx context.Context, contentType models.ContentType, id string, user controllers.UserConfig) models.StreamResponse
}

// AddonHandler serves the addon protocol resources
type AddonHandler struct {
	cfg     *config.Config
	catalog CatalogService
	meta    MetaService
	stream  StreamService
	logger  zerolog.Logger
}

// NewAddonHandler creates a new addon handler
func NewAddonHandler(cfg *config.Config, catalog CatalogService, meta MetaService, stream StreamService, logger zerolog.Logger) *AddonHandler {
	return &AddonHandler{
		cfg:     cfg,
		catalog: catalog,
		meta:    meta,
		stream:  stream,
		logger:  logger.With().Str("component", "addon_handler").Logger(),
	}
}

// HandleManifest serves the manifest, restricted to the configured catalogs
// on the /:config/manifest.json route
func (h *AddonHandler) HandleManifest(c *fiber.Ctx) error {
	if raw := c.Params("config"); raw != "" {
		return c.JSON(controllers.ConfiguredManifest(h.cfg, controllers.ParseUserConfig(raw)))
	}
	return c.JSON(controllers.NewManifest(h.cfg))
}

// HandleCatalog serves /catalog/:type/:id.json and /catalog/:type/:id/:extra.json
func (h *AddonHandler) HandleCatalog(c *fiber.Ctx) error {
	id, extra := resourcePath(c.Params("*"))
	resp := h.catalog.Catalog(c.UserContext(), models.ContentType(c.Params("type")), id, controllers.ParseExtra(extra), h.userConfig(c))
	return c.JSON(resp)
}

// HandleMeta serves /meta/:type/:id.json
func (h *AddonHandler) HandleMeta(c *fiber.Ctx) error {
	id, _ := resourcePath(c.Params("*"))
	return c.JSON(h.meta.Meta(c.UserContext(), models.ContentType(c.Params("type")), id))
}

// HandleStream serves /stream/:type/:id.json
func (h *AddonHandler) HandleStream(c *fiber.Ctx) error {
	id, _ := resourcePath(c.Params("*"))
	return c.JSON(h.stream.Streams(c.UserContext(), models.ContentType(c.Params("type")), id, h.userConfig(c)))
}

func (h *AddonHandler) userConfig(c *fiber.Ctx) controllers.UserConfig {
	return controllers.ParseUserConfig(c.Params("config"))
}

// resourcePath splits "id.json" or "id/extra.json" into its unescaped parts
func resourcePath(rest string) (id, extra string) {
	rest = strings.TrimSuffix(rest, ".json")
	id, extra, _ = strings.Cut(rest, "/")
	if unescaped, err := url.PathUnescape(id); err == nil {
		id = unescaped
	}
	return id, extra
}
