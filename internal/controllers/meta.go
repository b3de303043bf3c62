package controllers

import (
	"context"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/amaumene/tamilarr/internal/cache"
	"github.com/amaumene/tamilarr/internal/models"
)

// MetaController serves the detail view of a catalog entry
type MetaController struct {
	cache    *cache.Cache
	metadata MetadataResolver
	logger   zerolog.Logger
}

// NewMetaController creates a new meta controller
func NewMetaController(c *cache.Cache, metadata MetadataResolver, logger zerolog.Logger) *MetaController {
	return &MetaController{
		cache:    c,
		metadata: metadata,
		logger:   logger.With().Str("component", "meta").Logger(),
	}
}

// Meta returns the detail record for an IMDb or internal id, or a nil meta
func (c *MetaController) Meta(ctx context.Context, contentType models.ContentType, id string) models.MetaResponse {
	if strings.HasPrefix(id, "tt") {
		imdbID := strings.SplitN(id, ":", 2)[0]
		if meta := c.metadata.Meta(ctx, imdbID); meta != nil {
			return models.MetaResponse{Meta: meta}
		}
		return models.MetaResponse{}
	}

	if !strings.HasPrefix(id, InternalIDPrefix) {
		return models.MetaResponse{}
	}

	for _, item := range c.cache.AllContent() {
		if InternalID(item.SourceTitle) != id {
			continue
		}

		entry := entryFromItem(item)
		metaType := item.Parsed.Type
		if !metaType.Valid() {
			metaType = contentType
		}
		meta := &models.Meta{
			ID:          id,
			Type:        metaType,
			Name:        entry.name(),
			Poster:      PlaceholderFor(entry.name()),
			Description: describeEntry(entry),
		}
		if item.Parsed.Year != 0 {
			meta.ReleaseInfo = strconv.Itoa(item.Parsed.Year)
		}
		return models.MetaResponse{Meta: meta}
	}

	c.logger.Debug().Str("id", id).Msg("Unknown internal id")
	return models.MetaResponse{}
}
