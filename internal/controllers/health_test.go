package controllers

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amaumene/tamilarr/internal/cache"
	"github.com/amaumene/tamilarr/internal/models"
)

func TestHealthSnapshot(t *testing.T) {
	c := cache.New(cache.DefaultTTLs())
	c.SetContent(models.SourceTamilMV, []models.ContentItem{
		scrapedItem(models.SourceTamilMV, models.CategoryWebHD, "Leo (2023) Tamil WEB-DL 1080p", time.Now(), magnetFor(hashLeo, "leo")),
	})
	store := newFakeStore()
	scrape := NewScrapeController(nil, c, store, nil, zerolog.Nop())
	resolver := newBlockingResolver()
	worker := NewResolveWorker(testConfig(), resolver, store, zerolog.Nop())

	health := NewHealthController(c, store, scrape, worker, zerolog.Nop())
	snapshot := health.Snapshot(context.Background())

	assert.Equal(t, "ok", snapshot.Status)
	assert.Equal(t, 1, snapshot.Cache.Content[models.SourceTamilMV])
	assert.Equal(t, 1, snapshot.Cache.Magnets)
	require.NotNil(t, snapshot.Store)
	assert.Empty(t, snapshot.StoreError)
	assert.True(t, snapshot.WorkerEnabled)
	assert.False(t, snapshot.WorkerRunning)
}

func TestHealthSnapshotStoreOutage(t *testing.T) {
	c := cache.New(cache.DefaultTTLs())
	store := newFakeStore()
	store.err = errStoreDown
	health := NewHealthController(c, store, NewScrapeController(nil, c, store, nil, zerolog.Nop()), nil, zerolog.Nop())

	snapshot := health.Snapshot(context.Background())
	assert.Equal(t, "degraded", snapshot.Status)
	assert.Nil(t, snapshot.Store)
	assert.NotEmpty(t, snapshot.StoreError)
	assert.False(t, snapshot.WorkerEnabled)
}
