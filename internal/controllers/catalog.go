package controllers

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/amaumene/tamilarr/internal/cache"
	"github.com/amaumene/tamilarr/internal/models"
	"github.com/amaumene/tamilarr/internal/parser"
	"github.com/amaumene/tamilarr/internal/services/fanart"
	"github.com/amaumene/tamilarr/internal/services/metadata"
)

// CatalogPageSize is the number of entries per catalog page
const CatalogPageSize = 100

// hdQualityTokens mark a release as HD regardless of its category
var hdQualityTokens = []string{"1080p", "2160p", "4k", "bluray"}

// ContentStore is the persistent catalog
type ContentStore interface {
	QueryReadyContent(ctx context.Context, filter models.ReadyContentFilter, limit, offset int) ([]models.Content, error)
	QueryMagnetsForContent(ctx context.Context, contentID uint) ([]models.MagnetWithStatus, error)
	UpsertContent(ctx context.Context, content *models.Content) (uint, error)
}

// MetadataResolver enriches scraped titles
type MetadataResolver interface {
	Match(ctx context.Context, title string, year int, contentType models.ContentType) *metadata.Match
	Artwork(ctx context.Context, imdbID string) *fanart.Images
	Meta(ctx context.Context, imdbID string) *models.Meta
}

// Extra holds the optional catalog request parameters
type Extra struct {
	Skip   int
	Search string
	Genre  string
}

// ParseExtra decodes the "skip=100&search=leo" path segment of a catalog request
func ParseExtra(raw string) Extra {
	var extra Extra
	for _, part := range strings.Split(raw, "&") {
		key, value, ok := strings.Cut(part, "=")
		if !ok {
			continue
		}
		if unescaped, err := url.QueryUnescape(value); err == nil {
			value = unescaped
		}
		switch key {
		case "skip":
			extra.Skip, _ = strconv.Atoi(value)
		case "search":
			extra.Search = value
		case "genre":
			extra.Genre = value
		}
	}
	if extra.Skip < 0 {
		extra.Skip = 0
	}
	return extra
}

// catalogEntry is a release from either the cache or the store
type catalogEntry struct {
	contentID   uint
	title       string
	parsed      models.ReleaseTitle
	source      models.Source
	category    string
	publishedAt *time.Time
	magnets     []models.MagnetRecord
	externalID  string
	poster      string
	background  string
	stored      bool
}

func entryFromItem(item models.ContentItem) catalogEntry {
	return catalogEntry{
		title:       item.SourceTitle,
		parsed:      item.Parsed,
		source:      item.Source,
		category:    item.Category,
		publishedAt: item.PublishedAt,
		magnets:     item.Magnets,
	}
}

func entryFromContent(content models.Content) catalogEntry {
	return catalogEntry{
		contentID: content.ID,
		title:     content.Title,
		parsed: models.ReleaseTitle{
			RawTitle:   content.Title,
			CleanTitle: content.CleanTitle,
			Year:       content.Year,
			Type:       content.Type,
		},
		source:      content.Source,
		category:    content.Category,
		publishedAt: content.PublishedAt,
		externalID:  content.ExternalID,
		poster:      content.Poster,
		background:  content.Background,
		stored:      true,
	}
}

func (e catalogEntry) name() string {
	if e.parsed.CleanTitle != "" {
		return e.parsed.CleanTitle
	}
	if e.title != "" {
		return e.title
	}
	return "Unknown"
}

func (e catalogEntry) dedupeKey() string {
	return strings.ToLower(e.name())
}

func (e catalogEntry) published() time.Time {
	if e.publishedAt == nil {
		return time.Time{}
	}
	return *e.publishedAt
}

// CatalogController assembles catalog pages from scraped and stored content
type CatalogController struct {
	cache    *cache.Cache
	store    ContentStore
	metadata MetadataResolver
	logger   zerolog.Logger
}

// NewCatalogController creates a new catalog assembler
func NewCatalogController(c *cache.Cache, store ContentStore, resolver MetadataResolver, logger zerolog.Logger) *CatalogController {
	return &CatalogController{
		cache:    c,
		store:    store,
		metadata: resolver,
		logger:   logger.With().Str("component", "catalog").Logger(),
	}
}

// Catalog returns one page of a catalog. It never fails: an unknown catalog,
// an empty cache or a store outage yield fewer (or no) entries.
func (c *CatalogController) Catalog(ctx context.Context, contentType models.ContentType, catalogID string, extra Extra, user UserConfig) models.CatalogResponse {
	entries := c.collect(ctx, contentType, catalogID, extra.Skip+CatalogPageSize)

	entries = filterEntries(entries, func(e catalogEntry) bool {
		return matchesType(e, contentType) &&
			matchesCatalog(e, catalogID) &&
			matchesUserFilters(e, user) &&
			matchesSearch(e, extra.Search)
	})
	entries = dedupeEntries(entries)
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].published().After(entries[j].published())
	})

	if extra.Skip >= len(entries) {
		return models.CatalogResponse{Metas: []models.Meta{}}
	}
	page := entries[extra.Skip:]
	if len(page) > CatalogPageSize {
		page = page[:CatalogPageSize]
	}

	metas := make([]models.Meta, 0, len(page))
	for _, entry := range page {
		metas = append(metas, c.enrich(ctx, entry, contentType))
	}

	c.logger.Debug().
		Str("type", string(contentType)).
		Str("catalog", catalogID).
		Int("skip", extra.Skip).
		Int("count", len(metas)).
		Msg("Catalog assembled")

	return models.CatalogResponse{Metas: metas}
}

// collect gathers stored releases with ready streams, then the cached scrape results
func (c *CatalogController) collect(ctx context.Context, contentType models.ContentType, catalogID string, limit int) []catalogEntry {
	var entries []catalogEntry

	filter := models.ReadyContentFilter{Type: contentType}
	switch catalogID {
	case CatalogHollywoodMulti:
		filter.Categories = []string{models.CategoryHollywoodMulti}
	case CatalogTamilSeries:
		filter.Type = models.ContentTypeSeries
	}

	stored, err := c.store.QueryReadyContent(ctx, filter, limit, 0)
	if err != nil {
		c.logger.Warn().Err(err).Msg("Failed to query ready content")
	}
	for _, content := range stored {
		entries = append(entries, entryFromContent(content))
	}

	for _, item := range c.cache.AllContent() {
		entries = append(entries, entryFromItem(item))
	}
	return entries
}

func (c *CatalogController) enrich(ctx context.Context, entry catalogEntry, contentType models.ContentType) models.Meta {
	internalID := InternalID(entry.title)
	metaType := entry.parsed.Type
	if !metaType.Valid() {
		metaType = contentType
	}

	meta := models.Meta{
		ID:          internalID,
		Type:        metaType,
		Name:        entry.name(),
		Poster:      entry.poster,
		Background:  entry.background,
		Description: describeEntry(entry),
	}
	if entry.parsed.Year != 0 {
		meta.ReleaseInfo = strconv.Itoa(entry.parsed.Year)
	}

	magnets := c.entryMagnets(ctx, entry)

	if entry.externalID != "" {
		meta.ID = entry.externalID
	} else if entry.parsed.CleanTitle != "" && entry.parsed.Year != 0 {
		if match := c.metadata.Match(ctx, entry.parsed.CleanTitle, entry.parsed.Year, entry.parsed.Type); match != nil {
			meta.ID = match.ID
			meta.Name = match.Name
			if match.Poster != "" {
				meta.Poster = match.Poster
			}
			if match.Year != 0 {
				meta.ReleaseInfo = strconv.Itoa(match.Year)
			}
		}
	}

	if meta.ID != internalID {
		if images := c.metadata.Artwork(ctx, meta.ID); images != nil {
			if meta.Poster == "" {
				meta.Poster = images.Poster
			}
			if images.Background != "" {
				meta.Background = images.Background
			}
		}
	}

	if len(magnets) > 0 {
		c.cache.AddTitleMapping(meta.ID, indexEntry(entry, magnets), entry.title, entry.parsed.Year)
	}

	if meta.ID != internalID && meta.ID != entry.externalID && entry.source.Valid() {
		c.writeBack(ctx, entry, meta)
	}

	if meta.Poster == "" {
		meta.Poster = PlaceholderFor(meta.Name)
	}
	return meta
}

// entryMagnets returns the entry's magnets, loading them from the store for stored rows
func (c *CatalogController) entryMagnets(ctx context.Context, entry catalogEntry) []models.MagnetRecord {
	if !entry.stored || len(entry.magnets) > 0 {
		return entry.magnets
	}
	rows, err := c.store.QueryMagnetsForContent(ctx, entry.contentID)
	if err != nil {
		c.logger.Warn().Err(err).Uint("content_id", entry.contentID).Msg("Failed to load magnets")
		return nil
	}
	magnets := make([]models.MagnetRecord, 0, len(rows))
	for _, row := range rows {
		magnets = append(magnets, row.Record())
	}
	return magnets
}

// writeBack records a newly found external id and artwork on the stored release
func (c *CatalogController) writeBack(ctx context.Context, entry catalogEntry, meta models.Meta) {
	content := &models.Content{
		Title:       entry.title,
		Source:      entry.source,
		CleanTitle:  entry.parsed.CleanTitle,
		Year:        entry.parsed.Year,
		Type:        entry.parsed.Type,
		Category:    entry.category,
		PublishedAt: entry.publishedAt,
		ExternalID:  meta.ID,
		Poster:      meta.Poster,
		Background:  meta.Background,
	}
	if _, err := c.store.UpsertContent(ctx, content); err != nil {
		c.logger.Warn().Err(err).Str("title", entry.title).Msg("Failed to store catalog match")
	}
}

func indexEntry(entry catalogEntry, magnets []models.MagnetRecord) []cache.IndexedMagnet {
	indexed := make([]cache.IndexedMagnet, 0, len(magnets))
	for _, m := range magnets {
		indexed = append(indexed, cache.IndexedMagnet{
			MagnetRecord: m,
			Title:        entry.title,
			Parsed:       entry.parsed,
			Source:       entry.source,
			Category:     entry.category,
			PublishedAt:  entry.publishedAt,
		})
	}
	return indexed
}

func describeEntry(entry catalogEntry) string {
	quality := entry.parsed.Quality
	if quality == "" {
		quality = "Unknown"
	}
	return fmt.Sprintf("Source: %s\nCategory: %s\nQuality: %s", entry.source, entry.category, quality)
}

// Filters

func filterEntries(entries []catalogEntry, keep func(catalogEntry) bool) []catalogEntry {
	out := entries[:0:0]
	for _, e := range entries {
		if keep(e) {
			out = append(out, e)
		}
	}
	return out
}

func dedupeEntries(entries []catalogEntry) []catalogEntry {
	seen := make(map[string]bool, len(entries))
	out := make([]catalogEntry, 0, len(entries))
	for _, e := range entries {
		key := e.dedupeKey()
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, e)
	}
	return out
}

func matchesType(e catalogEntry, contentType models.ContentType) bool {
	if !contentType.Valid() {
		return true
	}
	return e.parsed.Type == contentType
}

func matchesCatalog(e catalogEntry, catalogID string) bool {
	switch catalogID {
	case CatalogTamilMoviesHD:
		if e.category == models.CategoryWebHD || e.category == models.CategoryHDRips {
			return true
		}
		quality := strings.ToLower(e.parsed.Quality)
		for _, token := range hdQualityTokens {
			if quality != "" && strings.Contains(quality, token) {
				return true
			}
		}
		return false
	case CatalogHollywoodMulti:
		return e.category == models.CategoryHollywoodMulti
	case CatalogTamilSeries:
		return e.category == models.CategorySeries || e.parsed.Type == models.ContentTypeSeries
	default:
		return true
	}
}

// matchesUserFilters applies the user's explicit quality and language choices.
// Releases with no detectable language pass the language filter.
func matchesUserFilters(e catalogEntry, user UserConfig) bool {
	text := strings.ToLower(e.title + " " + e.parsed.CleanTitle + " " + e.category)

	if len(user.Qualities) > 0 {
		found := false
		for _, q := range user.Qualities {
			q = strings.ToLower(strings.TrimSpace(q))
			if q == "" {
				continue
			}
			if strings.Contains(text, q) || (q == "4k" && strings.Contains(text, "2160p")) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	if len(user.Languages) > 0 {
		attrs := parser.Describe(e.title)
		if len(attrs.Languages) == 0 {
			return true
		}
		for _, lang := range user.Languages {
			if attrs.HasLanguage(strings.TrimSpace(lang)) {
				return true
			}
		}
		return false
	}

	return true
}

func matchesSearch(e catalogEntry, search string) bool {
	search = strings.ToLower(strings.TrimSpace(search))
	if search == "" {
		return true
	}
	return strings.Contains(strings.ToLower(e.title), search) ||
		strings.Contains(strings.ToLower(e.parsed.CleanTitle), search)
}
