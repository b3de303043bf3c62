package controllers

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amaumene/tamilarr/internal/models"
)

// blockingResolver holds the first Resolve call until released
type blockingResolver struct {
	credential bool
	started    chan struct{}
	release    chan struct{}
	once       sync.Once
	calls      atomic.Int32
}

func newBlockingResolver() *blockingResolver {
	return &blockingResolver{
		credential: true,
		started:    make(chan struct{}),
		release:    make(chan struct{}),
	}
}

func (r *blockingResolver) HasCredential(apiKey string) bool {
	return r.credential
}

func (r *blockingResolver) Resolve(ctx context.Context, candidate Candidate, apiKey string) Outcome {
	r.calls.Add(1)
	r.once.Do(func() {
		close(r.started)
		<-r.release
	})
	return Outcome{Hash: candidate.Magnet.InfoHash, Status: models.StreamStatusNotCached}
}

func pendingBatch(hashes ...string) []models.PendingMagnet {
	var batch []models.PendingMagnet
	for i, hash := range hashes {
		batch = append(batch, models.PendingMagnet{
			MagnetID:    uint(i + 1),
			MagnetURI:   "magnet:?xt=urn:btih:" + hash,
			InfoHash:    hash,
			DisplayName: "Film",
			Title:       "Film (2024)",
		})
	}
	return batch
}

func TestWorkerSingleFlight(t *testing.T) {
	resolver := newBlockingResolver()
	store := newFakeStore()
	store.pending = pendingBatch(hashLeo)
	worker := NewResolveWorker(testConfig(), resolver, store, zerolog.Nop())

	done := make(chan int)
	go func() {
		processed, _ := worker.RunOnce(context.Background())
		done <- processed
	}()

	<-resolver.started
	assert.True(t, worker.Running())

	processed, ran := worker.RunOnce(context.Background())
	assert.False(t, ran, "overlapping tick is skipped")
	assert.Zero(t, processed)

	close(resolver.release)
	assert.Equal(t, 1, <-done)
	assert.EqualValues(t, 1, resolver.calls.Load())
	assert.False(t, worker.Running())
}

func TestWorkerInertWithoutCredential(t *testing.T) {
	resolver := newBlockingResolver()
	resolver.credential = false
	store := newFakeStore()
	store.pending = pendingBatch(hashLeo)
	worker := NewResolveWorker(testConfig(), resolver, store, zerolog.Nop())

	assert.False(t, worker.Enabled())
	processed, ran := worker.RunOnce(context.Background())
	assert.False(t, ran)
	assert.Zero(t, processed)
	assert.Zero(t, resolver.calls.Load())
}

func TestWorkerDrivesBatchThroughResolver(t *testing.T) {
	resolver, debrid, store := newResolveFixture("key")
	debrid.cached[hashJailer] = true
	store.pending = pendingBatch(hashLeo, hashJailer)

	cfg := testConfig()
	cfg.WorkerBatchSize = 1
	worker := NewResolveWorker(cfg, resolver, store, zerolog.Nop())

	processed, ran := worker.RunOnce(context.Background())
	require.True(t, ran)
	assert.Equal(t, 1, processed, "batch size bounds the tick")
	assert.Equal(t, models.StreamStatusNotCached, store.status(hashLeo))
	assert.Empty(t, store.status(hashJailer))
}

func TestWorkerStoreFailure(t *testing.T) {
	resolver := newBlockingResolver()
	store := newFakeStore()
	store.err = errStoreDown
	worker := NewResolveWorker(testConfig(), resolver, store, zerolog.Nop())

	processed, ran := worker.RunOnce(context.Background())
	assert.True(t, ran)
	assert.Zero(t, processed)
	assert.Zero(t, resolver.calls.Load())
}
