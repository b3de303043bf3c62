package controllers

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/amaumene/tamilarr/internal/cache"
	"github.com/amaumene/tamilarr/internal/models"
)

// StatsStore reports row counts
type StatsStore interface {
	Stats(ctx context.Context) (models.StoreStats, error)
}

// ScrapeTimes reports when each source was last scraped
type ScrapeTimes interface {
	LastScrapes() map[models.Source]time.Time
}

// HealthSnapshot summarizes the state of the addon
type HealthSnapshot struct {
	Status        string                      `json:"status"`
	Cache         cache.Stats                 `json:"cache"`
	Store         *models.StoreStats          `json:"store,omitempty"`
	StoreError    string                      `json:"store_error,omitempty"`
	LastScrape    map[models.Source]time.Time `json:"last_scrape"`
	WorkerEnabled bool                        `json:"worker_enabled"`
	WorkerRunning bool                        `json:"worker_running"`
	Timestamp     time.Time                   `json:"timestamp"`
}

// HealthController builds health snapshots
type HealthController struct {
	cache  *cache.Cache
	store  StatsStore
	scrape ScrapeTimes
	worker *ResolveWorker
	logger zerolog.Logger
}

// NewHealthController creates a new health controller
func NewHealthController(c *cache.Cache, store StatsStore, scrape ScrapeTimes, worker *ResolveWorker, logger zerolog.Logger) *HealthController {
	return &HealthController{
		cache:  c,
		store:  store,
		scrape: scrape,
		worker: worker,
		logger: logger.With().Str("component", "health").Logger(),
	}
}

// Snapshot never fails; a store outage is reported as "degraded"
func (c *HealthController) Snapshot(ctx context.Context) HealthSnapshot {
	snapshot := HealthSnapshot{
		Status:     "ok",
		Cache:      c.cache.Stats(),
		LastScrape: c.scrape.LastScrapes(),
		Timestamp:  time.Now().UTC(),
	}

	stats, err := c.store.Stats(ctx)
	if err != nil {
		c.logger.Warn().Err(err).Msg("Failed to read store stats")
		snapshot.Status = "degraded"
		snapshot.StoreError = err.Error()
	} else {
		snapshot.Store = &stats
	}

	if c.worker != nil {
		snapshot.WorkerEnabled = c.worker.Enabled()
		snapshot.WorkerRunning = c.worker.Running()
	}
	return snapshot
}
