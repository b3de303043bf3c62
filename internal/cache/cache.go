// Package cache keeps scraped content, resolved streams, title mappings and
// metadata in memory with a per-kind expiry.
package cache

import (
	"strings"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/amaumene/tamilarr/internal/metrics"
	"github.com/amaumene/tamilarr/internal/models"
)

const (
	contentPrefix  = "content:"
	streamPrefix   = "stream:"
	mappingPrefix  = "mapping:"
	metadataPrefix = "meta:"
)

// TTLs holds the lifetime of each key class
type TTLs struct {
	RSS       time.Duration // forum feed content
	Secondary time.Duration // listing-site content
	Stream    time.Duration // resolved stream descriptors
	Metadata  time.Duration // metadata and artwork lookups
	Mapping   time.Duration // external id to magnets
}

// DefaultTTLs returns the standard lifetimes
func DefaultTTLs() TTLs {
	return TTLs{
		RSS:       30 * time.Minute,
		Secondary: 10 * time.Minute,
		Stream:    5 * time.Minute,
		Metadata:  time.Hour,
		Mapping:   time.Hour,
	}
}

// IndexedMagnet is a magnet together with the release it was scraped from
type IndexedMagnet struct {
	models.MagnetRecord
	Title       string
	Parsed      models.ReleaseTitle
	Source      models.Source
	Category    string
	PublishedAt *time.Time
}

// Key identifies the magnet for deduplication
func (m IndexedMagnet) Key() string {
	if m.InfoHash != "" {
		return m.InfoHash
	}
	return m.MagnetURI
}

// TitleMapping links an external id to the magnets matched to it
type TitleMapping struct {
	ID      string
	Title   string
	Year    int
	Magnets []IndexedMagnet
}

// Cache is safe for concurrent use
type Cache struct {
	store *gocache.Cache
	ttls  TTLs

	mu    sync.Mutex
	index map[models.Source][]IndexedMagnet
}

// New creates a cache with the given lifetimes
func New(ttls TTLs) *Cache {
	return &Cache{
		store: gocache.New(gocache.NoExpiration, 10*time.Minute),
		ttls:  ttls,
		index: make(map[models.Source][]IndexedMagnet),
	}
}

func (c *Cache) contentTTL(source models.Source) time.Duration {
	if source == models.SourceTamilMV {
		return c.ttls.RSS
	}
	return c.ttls.Secondary
}

func lookup[T any](c *Cache, kind, key string) (T, bool) {
	var zero T
	value, ok := c.store.Get(key)
	if !ok {
		metrics.CacheLookups.WithLabelValues(kind, metrics.ResultMiss).Inc()
		return zero, false
	}
	typed, ok := value.(T)
	if !ok {
		metrics.CacheLookups.WithLabelValues(kind, metrics.ResultMiss).Inc()
		return zero, false
	}
	metrics.CacheLookups.WithLabelValues(kind, metrics.ResultHit).Inc()
	return typed, true
}

// Scraped content

// Content returns the cached items of a source, or nil when absent or expired
func (c *Cache) Content(source models.Source) []models.ContentItem {
	items, _ := lookup[[]models.ContentItem](c, "content", contentPrefix+string(source))
	return items
}

// SetContent replaces a source's items and rebuilds the flat magnet index
func (c *Cache) SetContent(source models.Source, items []models.ContentItem) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.store.Set(contentPrefix+string(source), items, c.contentTTL(source))

	var magnets []IndexedMagnet
	for _, item := range items {
		for _, m := range item.Magnets {
			magnets = append(magnets, IndexedMagnet{
				MagnetRecord: m,
				Title:        item.SourceTitle,
				Parsed:       item.Parsed,
				Source:       item.Source,
				Category:     item.Category,
				PublishedAt:  item.PublishedAt,
			})
		}
	}
	c.index[source] = magnets
}

// AllContent returns the cached items of every source
func (c *Cache) AllContent() []models.ContentItem {
	var all []models.ContentItem
	for _, source := range models.Sources {
		all = append(all, c.Content(source)...)
	}
	return all
}

// AllMagnets returns every magnet of every source whose content is still cached
func (c *Cache) AllMagnets() []IndexedMagnet {
	c.mu.Lock()
	defer c.mu.Unlock()

	var all []IndexedMagnet
	for _, source := range models.Sources {
		if _, ok := c.store.Get(contentPrefix + string(source)); !ok {
			delete(c.index, source)
			continue
		}
		all = append(all, c.index[source]...)
	}
	return all
}

// Resolved streams

type streamEntry struct {
	Streams []models.Stream
}

// Stream returns the cached descriptors for an info hash
func (c *Cache) Stream(hash string) ([]models.Stream, bool) {
	entry, ok := lookup[streamEntry](c, "stream", streamPrefix+hash)
	if !ok {
		return nil, false
	}
	return entry.Streams, true
}

// SetStream caches descriptors for an info hash. The entry never outlives
// expiresAt when it is set.
func (c *Cache) SetStream(hash string, streams []models.Stream, expiresAt time.Time) {
	ttl := c.ttls.Stream
	if !expiresAt.IsZero() {
		if remaining := time.Until(expiresAt); remaining < ttl {
			ttl = remaining
		}
	}
	if ttl <= 0 {
		return
	}
	c.store.Set(streamPrefix+hash, streamEntry{Streams: streams}, ttl)
}

// Title mappings

// TitleMapping returns the magnets matched to an external id
func (c *Cache) TitleMapping(id string) (TitleMapping, bool) {
	return lookup[TitleMapping](c, "mapping", mappingPrefix+id)
}

// AddTitleMapping merges magnets into the mapping of id, deduplicated by hash.
// A non-empty title or non-zero year replaces the stored one.
func (c *Cache) AddTitleMapping(id string, magnets []IndexedMagnet, title string, year int) TitleMapping {
	c.mu.Lock()
	defer c.mu.Unlock()

	mapping := TitleMapping{ID: id}
	if existing, ok := c.store.Get(mappingPrefix + id); ok {
		if m, ok := existing.(TitleMapping); ok {
			mapping = m
		}
	}
	if title != "" {
		mapping.Title = title
	}
	if year != 0 {
		mapping.Year = year
	}

	seen := make(map[string]bool, len(mapping.Magnets))
	merged := make([]IndexedMagnet, 0, len(mapping.Magnets)+len(magnets))
	for _, batch := range [][]IndexedMagnet{mapping.Magnets, magnets} {
		for _, m := range batch {
			if seen[m.Key()] {
				continue
			}
			seen[m.Key()] = true
			merged = append(merged, m)
		}
	}
	mapping.Magnets = merged

	c.store.Set(mappingPrefix+id, mapping, c.ttls.Mapping)
	return mapping
}

// Metadata

// Metadata returns a cached metadata value
func (c *Cache) Metadata(key string) (interface{}, bool) {
	return lookup[interface{}](c, "metadata", metadataPrefix+key)
}

// SetMetadata caches a metadata value, including negative results
func (c *Cache) SetMetadata(key string, value interface{}) {
	c.store.Set(metadataPrefix+key, value, c.ttls.Metadata)
}

// Stats

// Stats is a point-in-time summary of the cache
type Stats struct {
	Content  map[models.Source]int `json:"content"`
	Magnets  int                   `json:"magnets"`
	Mappings int                   `json:"mappings"`
	Streams  int                   `json:"streams"`
	Metadata int                   `json:"metadata"`
}

// Stats counts live entries per kind
func (c *Cache) Stats() Stats {
	stats := Stats{Content: make(map[models.Source]int)}

	for key, item := range c.store.Items() {
		switch {
		case strings.HasPrefix(key, contentPrefix):
			if items, ok := item.Object.([]models.ContentItem); ok {
				stats.Content[models.Source(strings.TrimPrefix(key, contentPrefix))] = len(items)
			}
		case strings.HasPrefix(key, streamPrefix):
			stats.Streams++
		case strings.HasPrefix(key, mappingPrefix):
			stats.Mappings++
		case strings.HasPrefix(key, metadataPrefix):
			stats.Metadata++
		}
	}
	stats.Magnets = len(c.AllMagnets())

	return stats
}

// Flush drops every entry
func (c *Cache) Flush() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.store.Flush()
	c.index = make(map[models.Source][]IndexedMagnet)
}
