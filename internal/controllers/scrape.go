package controllers

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/amaumene/tamilarr/internal/cache"
	"github.com/amaumene/tamilarr/internal/metrics"
	"github.com/amaumene/tamilarr/internal/models"
	"github.com/amaumene/tamilarr/internal/parser"
	"github.com/amaumene/tamilarr/internal/utils"
)

// Scraper fetches the current releases of one source
type Scraper interface {
	Source() models.Source
	Scrape(ctx context.Context) ([]models.ContentItem, error)
}

// IngestStore persists scraped releases
type IngestStore interface {
	UpsertContent(ctx context.Context, content *models.Content) (uint, error)
	UpsertMagnet(ctx context.Context, contentID uint, magnet models.MagnetRecord, quality string, size int64) (uint, error)
}

// ScrapeController runs scrapes and feeds the cache and the store
type ScrapeController struct {
	scrapers  map[models.Source]Scraper
	cache     *cache.Cache
	store     IngestStore
	blacklist *utils.Blacklist
	now       func() time.Time
	logger    zerolog.Logger

	mu         sync.RWMutex
	lastScrape map[models.Source]time.Time
}

// NewScrapeController creates a new scrape controller
func NewScrapeController(scrapers []Scraper, c *cache.Cache, store IngestStore, blacklist *utils.Blacklist, logger zerolog.Logger) *ScrapeController {
	bySource := make(map[models.Source]Scraper, len(scrapers))
	for _, s := range scrapers {
		bySource[s.Source()] = s
	}
	return &ScrapeController{
		scrapers:   bySource,
		cache:      c,
		store:      store,
		blacklist:  blacklist,
		now:        time.Now,
		logger:     logger.With().Str("component", "scrape").Logger(),
		lastScrape: make(map[models.Source]time.Time),
	}
}

// Sources lists the configured sources in a stable order
func (c *ScrapeController) Sources() []models.Source {
	sources := make([]models.Source, 0, len(c.scrapers))
	for source := range c.scrapers {
		sources = append(sources, source)
	}
	sort.Slice(sources, func(i, j int) bool { return sources[i] < sources[j] })
	return sources
}

// ScrapeOnce scrapes one source, replaces its cache entry and persists the
// result. A failed scrape leaves the cached content untouched.
func (c *ScrapeController) ScrapeOnce(ctx context.Context, source models.Source) ([]models.ContentItem, error) {
	scraper, ok := c.scrapers[source]
	if !ok {
		return nil, fmt.Errorf("unknown source %q", source)
	}

	logger := c.logger.With().Str("source", string(source)).Logger()
	logger.Info().Msg("Starting scrape")
	start := c.now()

	// Step 1: Scrape
	scraped, err := scraper.Scrape(ctx)
	metrics.ScrapeDuration.WithLabelValues(string(source)).Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, fmt.Errorf("failed to scrape %s: %w", source, err)
	}

	// Step 2: Drop blacklisted and invalid items
	items := make([]models.ContentItem, 0, len(scraped))
	for _, item := range scraped {
		if blocked, term := c.blacklist.IsBlacklisted(item.SourceTitle); blocked {
			logger.Debug().Str("title", item.SourceTitle).Str("term", term).Msg("Skipping blacklisted release")
			continue
		}
		if err := item.Validate(); err != nil {
			logger.Debug().Err(err).Str("title", item.SourceTitle).Msg("Skipping invalid release")
			continue
		}
		items = append(items, item)
	}

	// Step 3: Replace the cached content and magnet index
	c.cache.SetContent(source, items)
	metrics.ScrapedItems.WithLabelValues(string(source)).Add(float64(len(items)))

	// Step 4: Persist, item by item
	stored := 0
	for _, item := range items {
		if c.persist(ctx, item, logger) {
			stored++
		}
	}

	c.mu.Lock()
	c.lastScrape[source] = c.now()
	c.mu.Unlock()

	logger.Info().Int("count", len(items)).Int("stored", stored).Msg("Scrape completed")
	return items, nil
}

// ScrapeAll scrapes every source in turn, logging failures
func (c *ScrapeController) ScrapeAll(ctx context.Context) {
	for _, source := range c.Sources() {
		if _, err := c.ScrapeOnce(ctx, source); err != nil {
			c.logger.Error().Err(err).Str("source", string(source)).Msg("Scrape failed")
		}
	}
}

// persist writes one release and its magnets. Failures are logged and skipped.
func (c *ScrapeController) persist(ctx context.Context, item models.ContentItem, logger zerolog.Logger) bool {
	content := &models.Content{
		Title:       item.SourceTitle,
		Source:      item.Source,
		CleanTitle:  item.Parsed.CleanTitle,
		Year:        item.Parsed.Year,
		Type:        item.Parsed.Type,
		Category:    item.Category,
		SourceURL:   item.SourceURL,
		PublishedAt: item.PublishedAt,
	}
	contentID, err := c.store.UpsertContent(ctx, content)
	if err != nil {
		logger.Warn().Err(err).Str("title", item.SourceTitle).Msg("Failed to store content")
		return false
	}

	for _, magnet := range item.Magnets {
		if !magnet.Resolvable() {
			continue
		}
		quality := parser.ParseTitle(magnet.DisplayName).Quality
		if quality == "" {
			quality = item.Parsed.Quality
		}
		if _, err := c.store.UpsertMagnet(ctx, contentID, magnet, quality, parser.ParseSize(magnet.DisplayName)); err != nil {
			logger.Warn().Err(err).Str("hash", magnet.InfoHash).Msg("Failed to store magnet")
		}
	}
	return true
}

// LastScrapes returns the completion time of the latest scrape per source
func (c *ScrapeController) LastScrapes() map[models.Source]time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[models.Source]time.Time, len(c.lastScrape))
	for source, at := range c.lastScrape {
		out[source] = at
	}
	return out
}
