package controllers

import (
	"context"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/amaumene/tamilarr/internal/cache"
	"github.com/amaumene/tamilarr/internal/config"
	"github.com/amaumene/tamilarr/internal/models"
	"github.com/amaumene/tamilarr/internal/parser"
	"github.com/amaumene/tamilarr/internal/services/omdb"
	"github.com/amaumene/tamilarr/internal/utils"
)

// MaxFallbackStreams caps the raw magnet descriptors returned when nothing resolves
const MaxFallbackStreams = 5

// MagnetLookup finds stored magnets by external id
type MagnetLookup interface {
	QueryByExternalID(ctx context.Context, externalID string) ([]models.ContentMagnet, error)
}

// BatchResolver resolves a ranked set of candidates
type BatchResolver interface {
	ResolveMany(ctx context.Context, candidates []Candidate, apiKey string, maxResults int) []models.Stream
}

// StreamID is a parsed stream request identifier
type StreamID struct {
	Raw      string
	BaseID   string // tt-id or internal id without episode suffix
	Season   int
	Episode  int
	Internal bool
}

// ParseStreamID splits "tt123", "tt123:1:2" and "tamilmv:..." identifiers
func ParseStreamID(id string) StreamID {
	sid := StreamID{Raw: id, BaseID: id}
	if strings.HasPrefix(id, InternalIDPrefix) {
		sid.Internal = true
		return sid
	}

	parts := strings.Split(id, ":")
	sid.BaseID = parts[0]
	if len(parts) >= 3 {
		sid.Season, _ = strconv.Atoi(parts[1])
		sid.Episode, _ = strconv.Atoi(parts[2])
	}
	return sid
}

// StreamController finds the magnets behind an identifier and resolves them
type StreamController struct {
	cache      *cache.Cache
	store      MagnetLookup
	metadata   MetadataResolver
	resolver   BatchResolver
	maxResults int
	logger     zerolog.Logger
}

// NewStreamController creates a new stream controller
func NewStreamController(cfg *config.Config, c *cache.Cache, store MagnetLookup, metadata MetadataResolver, resolver BatchResolver, logger zerolog.Logger) *StreamController {
	return &StreamController{
		cache:      c,
		store:      store,
		metadata:   metadata,
		resolver:   resolver,
		maxResults: cfg.MaxResults,
		logger:     logger.With().Str("component", "stream").Logger(),
	}
}

// Streams returns the playable streams for an identifier. When nothing
// resolves, raw magnet descriptors are returned instead. It never fails.
func (c *StreamController) Streams(ctx context.Context, contentType models.ContentType, id string, user UserConfig) models.StreamResponse {
	sid := ParseStreamID(id)
	logger := c.logger.With().Str("id", id).Str("type", string(contentType)).Logger()

	var magnets []cache.IndexedMagnet
	switch {
	case sid.Internal:
		magnets = c.internalMagnets(sid.BaseID)
	case strings.HasPrefix(sid.BaseID, "tt"):
		magnets = c.externalMagnets(ctx, sid.BaseID)
	}

	magnets = filterEpisode(magnets, sid.Season, sid.Episode)
	if len(magnets) == 0 {
		logger.Debug().Msg("No matching magnets")
		return models.StreamResponse{Streams: []models.Stream{}}
	}

	candidates := make([]Candidate, 0, len(magnets))
	for _, m := range magnets {
		candidates = append(candidates, Candidate{Magnet: m.MagnetRecord, Title: m.Title})
	}

	streams := c.resolver.ResolveMany(ctx, candidates, user.TorBoxKey, user.ResultLimit(c.maxResults))
	if len(streams) == 0 {
		streams = fallbackStreams(magnets)
	}

	logger.Info().Int("magnets", len(magnets)).Int("streams", len(streams)).Msg("Streams assembled")
	return models.StreamResponse{Streams: streams}
}

// externalMagnets looks up magnets for an IMDb id: title mapping, then the
// store, then a fuzzy title match over every cached magnet
func (c *StreamController) externalMagnets(ctx context.Context, imdbID string) []cache.IndexedMagnet {
	if mapping, ok := c.cache.TitleMapping(imdbID); ok && len(mapping.Magnets) > 0 {
		return mapping.Magnets
	}

	rows, err := c.store.QueryByExternalID(ctx, imdbID)
	if err != nil {
		c.logger.Warn().Err(err).Str("imdb_id", imdbID).Msg("Failed to query stored magnets")
	}
	if len(rows) > 0 {
		magnets := make([]cache.IndexedMagnet, 0, len(rows))
		for _, row := range rows {
			parsed := parser.ParseTitle(row.Title)
			if row.CleanTitle != "" {
				parsed.CleanTitle = row.CleanTitle
			}
			if row.Type.Valid() {
				parsed.Type = row.Type
			}
			magnets = append(magnets, cache.IndexedMagnet{
				MagnetRecord: row.Record(),
				Title:        row.Title,
				Parsed:       parsed,
				Source:       row.Source,
				Category:     row.Category,
				PublishedAt:  row.PublishedAt,
			})
		}
		return c.cache.AddTitleMapping(imdbID, magnets, "", 0).Magnets
	}

	meta := c.metadata.Meta(ctx, imdbID)
	if meta == nil {
		return nil
	}
	year := omdb.StartYear(meta.ReleaseInfo)

	var matched []cache.IndexedMagnet
	for _, m := range c.cache.AllMagnets() {
		if utils.TitlesMatch(meta.Name, year, magnetTitle(m), m.Parsed.Year) {
			matched = append(matched, m)
		}
	}
	if len(matched) == 0 {
		return nil
	}

	c.logger.Debug().Str("imdb_id", imdbID).Str("title", meta.Name).Int("count", len(matched)).Msg("Matched magnets by title")
	return c.cache.AddTitleMapping(imdbID, matched, meta.Name, year).Magnets
}

// internalMagnets looks up magnets for an id derived from a scraped title
func (c *StreamController) internalMagnets(id string) []cache.IndexedMagnet {
	if mapping, ok := c.cache.TitleMapping(id); ok && len(mapping.Magnets) > 0 {
		return mapping.Magnets
	}

	all := c.cache.AllMagnets()

	var matched []cache.IndexedMagnet
	for _, m := range all {
		if InternalID(m.Title) == id {
			matched = append(matched, m)
		}
	}

	if len(matched) == 0 {
		decoded := decodeInternalID(id)
		if decoded == "" {
			return nil
		}
		for _, m := range all {
			if strings.Contains(m.Title, decoded) {
				matched = append(matched, m)
			}
		}
	}

	if len(matched) == 0 {
		return nil
	}
	return c.cache.AddTitleMapping(id, matched, matched[0].Title, matched[0].Parsed.Year).Magnets
}

// filterEpisode narrows magnets to a season and episode. Season packs count
// as a match; when nothing matches the input is returned unchanged.
func filterEpisode(magnets []cache.IndexedMagnet, season, episode int) []cache.IndexedMagnet {
	if season == 0 {
		return magnets
	}

	var matched []cache.IndexedMagnet
	for _, m := range magnets {
		parsed := m.Parsed
		if parsed.Season == 0 {
			parsed = parser.ParseTitle(m.DisplayName)
		}
		if parsed.Season != season {
			continue
		}
		if parsed.Episode != 0 && episode != 0 && parsed.Episode != episode {
			continue
		}
		matched = append(matched, m)
	}

	if len(matched) == 0 {
		return magnets
	}
	return matched
}

func magnetTitle(m cache.IndexedMagnet) string {
	if m.Parsed.CleanTitle != "" {
		return m.Parsed.CleanTitle
	}
	if m.DisplayName != "" && m.DisplayName != parser.UnknownMagnetName {
		return m.DisplayName
	}
	return m.Title
}

// fallbackStreams exposes the best magnets directly for clients with a torrent engine
func fallbackStreams(magnets []cache.IndexedMagnet) []models.Stream {
	quality := make(map[string]string, len(magnets))
	candidates := make([]Candidate, 0, len(magnets))
	for _, m := range magnets {
		quality[m.InfoHash] = m.Parsed.Quality
		candidates = append(candidates, Candidate{Magnet: m.MagnetRecord, Title: m.Title})
	}

	ranked := RankCandidates(candidates)
	if len(ranked) > MaxFallbackStreams {
		ranked = ranked[:MaxFallbackStreams]
	}

	streams := make([]models.Stream, 0, len(ranked))
	for _, candidate := range ranked {
		label := quality[candidate.Magnet.InfoHash]
		if label == "" {
			label = "Unknown"
		}
		title := candidate.Magnet.DisplayName
		if title == "" || title == parser.UnknownMagnetName {
			title = firstNonEmpty(candidate.Title, parser.UnknownMagnetName)
		}
		streams = append(streams, models.Stream{
			Name:     "Magnet\n" + label,
			Title:    title,
			InfoHash: candidate.Magnet.InfoHash,
			BehaviorHints: &models.BehaviorHints{
				BingeGroup: "magnet-" + candidate.Magnet.InfoHash,
			},
		})
	}
	return streams
}
