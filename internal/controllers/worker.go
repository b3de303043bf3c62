package controllers

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"

	"github.com/amaumene/tamilarr/internal/config"
	"github.com/amaumene/tamilarr/internal/metrics"
	"github.com/amaumene/tamilarr/internal/models"
)

// Resolver resolves a single magnet
type Resolver interface {
	HasCredential(apiKey string) bool
	Resolve(ctx context.Context, candidate Candidate, apiKey string) Outcome
}

// PendingStore lists the magnets awaiting background resolution
type PendingStore interface {
	QueryPendingMagnets(ctx context.Context, limit int) ([]models.PendingMagnet, error)
}

// ResolveWorker promotes pending magnets to ready streams in the background
type ResolveWorker struct {
	resolver  Resolver
	store     PendingStore
	batchSize int
	itemDelay time.Duration
	running   atomic.Bool
	logger    zerolog.Logger
}

// NewResolveWorker creates a new background worker
func NewResolveWorker(cfg *config.Config, resolver Resolver, store PendingStore, logger zerolog.Logger) *ResolveWorker {
	return &ResolveWorker{
		resolver:  resolver,
		store:     store,
		batchSize: cfg.WorkerBatchSize,
		itemDelay: cfg.WorkerItemDelay,
		logger:    logger.With().Str("component", "worker").Logger(),
	}
}

// Enabled reports whether a default debrid credential is configured
func (w *ResolveWorker) Enabled() bool {
	return w.resolver.HasCredential("")
}

// Running reports whether a tick is in flight
func (w *ResolveWorker) Running() bool {
	return w.running.Load()
}

// RunOnce processes one batch of pending magnets. A tick that starts while
// another is still running is skipped and reports ran=false.
func (w *ResolveWorker) RunOnce(ctx context.Context) (processed int, ran bool) {
	if !w.Enabled() {
		return 0, false
	}
	if !w.running.CompareAndSwap(false, true) {
		metrics.WorkerTicks.WithLabelValues("skipped").Inc()
		w.logger.Debug().Msg("Previous tick still running, skipping")
		return 0, false
	}
	defer w.running.Store(false)
	metrics.WorkerTicks.WithLabelValues("ran").Inc()

	ctx, span := tracer.Start(ctx, "worker.tick")
	defer span.End()

	pending, err := w.store.QueryPendingMagnets(ctx, w.batchSize)
	if err != nil {
		w.logger.Error().Err(err).Msg("Failed to query pending magnets")
		return 0, true
	}
	span.SetAttributes(attribute.Int("pending", len(pending)))
	if len(pending) == 0 {
		return 0, true
	}

	w.logger.Info().Int("count", len(pending)).Msg("Resolving pending magnets")

	statuses := make(map[models.StreamStatus]int)
	for i, magnet := range pending {
		if i > 0 {
			if err := sleepCtx(ctx, w.itemDelay); err != nil {
				break
			}
		}

		outcome := w.resolver.Resolve(ctx, Candidate{Magnet: magnet.Record(), Title: magnet.Title}, "")
		statuses[outcome.Status]++
		processed++
	}

	w.logger.Info().
		Int("processed", processed).
		Int("ready", statuses[models.StreamStatusReady]).
		Int("not_cached", statuses[models.StreamStatusNotCached]).
		Int("processing", statuses[models.StreamStatusProcessing]).
		Int("errors", statuses[models.StreamStatusError]).
		Msg("Worker tick completed")

	return processed, true
}
