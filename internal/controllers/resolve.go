package controllers

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/amaumene/tamilarr/internal/config"
	"github.com/amaumene/tamilarr/internal/metrics"
	"github.com/amaumene/tamilarr/internal/models"
	"github.com/amaumene/tamilarr/internal/parser"
	"github.com/amaumene/tamilarr/internal/services/torbox"
	"github.com/amaumene/tamilarr/internal/utils"
)

const (
	// MaxResolveCandidates caps how many magnets one request may send to the debrid service
	MaxResolveCandidates = 5
	// MaxFilesPerTorrent caps how many download links are minted per torrent
	MaxFilesPerTorrent = 5
	// ProviderName prefixes resolved stream labels
	ProviderName = "TorBox"
)

// PlayableExtensions are the file extensions exposed as streams
var PlayableExtensions = map[string]bool{
	"mp4":  true,
	"mkv":  true,
	"avi":  true,
	"webm": true,
	"mov":  true,
}

var errFilesNotListed = errors.New("torrent files not listed yet")

var tracer = otel.Tracer("github.com/amaumene/tamilarr/internal/controllers")

// DebridClient is the part of the TorBox API the resolution engine drives
type DebridClient interface {
	HasCredential(apiKey string) bool
	FindTorrentByHash(ctx context.Context, apiKey, hash string) (*torbox.Torrent, error)
	CheckCached(ctx context.Context, apiKey, hash string) (bool, error)
	CreateTorrent(ctx context.Context, apiKey, magnet string) (int, error)
	GetTorrent(ctx context.Context, apiKey string, torrentID int) (*torbox.Torrent, error)
	RequestDownloadLink(ctx context.Context, apiKey string, torrentID, fileID int) (string, error)
}

// StreamStore persists resolution outcomes
type StreamStore interface {
	ReadyStream(ctx context.Context, hash string) (*models.ResolvedStream, error)
	UpsertResolvedStream(ctx context.Context, stream *models.ResolvedStream) error
}

// StreamCache holds recently resolved descriptors
type StreamCache interface {
	Stream(hash string) ([]models.Stream, bool)
	SetStream(hash string, streams []models.Stream, expiresAt time.Time)
}

// Candidate is a magnet offered for resolution
type Candidate struct {
	Magnet models.MagnetRecord
	Title  string // release title the magnet was scraped from
}

// Label is the text used to rank and describe the candidate
func (c Candidate) Label() string {
	if c.Title != "" {
		return c.Title
	}
	return c.Magnet.DisplayName
}

// Outcome is the result of resolving one magnet
type Outcome struct {
	Hash    string
	Status  models.StreamStatus
	Streams []models.Stream
}

// ResolveController turns magnets into playable debrid links
type ResolveController struct {
	debrid       DebridClient
	store        StreamStore
	cache        StreamCache
	pollInterval time.Duration
	pollAttempts int
	linkTTL      time.Duration
	now          func() time.Time
	logger       zerolog.Logger
}

// NewResolveController creates a new resolution engine
func NewResolveController(cfg *config.Config, debrid DebridClient, store StreamStore, cache StreamCache, logger zerolog.Logger) *ResolveController {
	return &ResolveController{
		debrid:       debrid,
		store:        store,
		cache:        cache,
		pollInterval: cfg.ResolvePollInterval,
		pollAttempts: cfg.ResolvePollAttempts,
		linkTTL:      cfg.StreamLinkTTL,
		now:          time.Now,
		logger:       logger.With().Str("component", "resolver").Logger(),
	}
}

// HasCredential reports whether resolution can run for the caller's key
func (c *ResolveController) HasCredential(apiKey string) bool {
	return c.debrid.HasCredential(apiKey)
}

// Resolve drives one magnet through the debrid pipeline. The caller's key takes
// precedence over the configured one. It never returns an error: failures are
// persisted and reported through the outcome status.
func (c *ResolveController) Resolve(ctx context.Context, candidate Candidate, apiKey string) Outcome {
	hash := candidate.Magnet.InfoHash
	ctx, span := tracer.Start(ctx, "resolve.magnet", trace.WithAttributes(attribute.String("hash", hash)))
	defer span.End()

	outcome := c.resolve(ctx, candidate, apiKey)

	span.SetAttributes(
		attribute.String("status", string(outcome.Status)),
		attribute.Int("streams", len(outcome.Streams)),
	)
	if outcome.Status == models.StreamStatusError {
		span.SetStatus(codes.Error, "resolution failed")
	}
	metrics.Resolutions.WithLabelValues(string(outcome.Status)).Inc()

	return outcome
}

func (c *ResolveController) resolve(ctx context.Context, candidate Candidate, apiKey string) Outcome {
	hash := candidate.Magnet.InfoHash
	logger := c.logger.With().Str("hash", hash).Logger()

	// Step 1: Magnets without a hash can never be tracked
	if !candidate.Magnet.Resolvable() {
		return Outcome{Status: models.StreamStatusUnresolvable}
	}

	// Step 2: Recently resolved
	if streams, ok := c.cache.Stream(hash); ok {
		return Outcome{Hash: hash, Status: models.StreamStatusReady, Streams: streams}
	}

	// Step 3: Resolved earlier, possibly by the background worker
	ready, err := c.store.ReadyStream(ctx, hash)
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to read stored stream")
	}
	if links := storedLinks(ready); len(links) > 0 {
		streams := make([]models.Stream, 0, len(links))
		for _, link := range links {
			streams = append(streams, c.describe(candidate, link.Name, link.Size, link.URL))
		}
		c.cache.SetStream(hash, streams, expiry(ready.ExpiresAt))
		return Outcome{Hash: hash, Status: models.StreamStatusReady, Streams: streams}
	}

	if !c.debrid.HasCredential(apiKey) {
		return Outcome{Hash: hash, Status: models.StreamStatusPending}
	}

	// Step 4: Reuse the account's torrent when the hash was added before
	torrent, err := c.debrid.FindTorrentByHash(ctx, apiKey, hash)
	if err != nil {
		return c.fail(ctx, hash, "", fmt.Errorf("failed to look up torrent: %w", err))
	}

	if torrent == nil {
		// Step 5: Only cached torrents are added; anything else would need a real download
		cached, err := c.debrid.CheckCached(ctx, apiKey, hash)
		if err != nil {
			return c.fail(ctx, hash, "", fmt.Errorf("failed to check cache: %w", err))
		}
		if !cached {
			logger.Debug().Msg("Hash not cached on debrid")
			return c.record(ctx, hash, "", models.StreamStatusNotCached)
		}

		// Step 6: Register the magnet
		torrentID, err := c.debrid.CreateTorrent(ctx, apiKey, candidate.Magnet.MagnetURI)
		if err != nil {
			return c.fail(ctx, hash, "", fmt.Errorf("failed to add torrent: %w", err))
		}
		torrent = &torbox.Torrent{ID: torrentID, Hash: hash}

		if err := sleepCtx(ctx, c.pollInterval); err != nil {
			return c.record(ctx, hash, torrentRef(torrentID), models.StreamStatusProcessing)
		}
	}
	ref := torrentRef(torrent.ID)

	// Step 7: Wait for the file listing
	if len(torrent.Files) == 0 {
		listed, err := c.pollFiles(ctx, apiKey, torrent.ID)
		if errors.Is(err, errFilesNotListed) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			logger.Info().Int("torrent_id", torrent.ID).Msg("Torrent still processing")
			return c.record(ctx, hash, ref, models.StreamStatusProcessing)
		}
		if err != nil {
			return c.fail(ctx, hash, ref, fmt.Errorf("failed to get torrent: %w", err))
		}
		torrent = listed
	}

	files := PlayableFiles(torrent.Files)
	if len(files) == 0 {
		logger.Info().Int("torrent_id", torrent.ID).Int("files", len(torrent.Files)).Msg("Torrent holds no playable file")
		return c.record(ctx, hash, ref, models.StreamStatusNoVideo)
	}
	if len(files) > MaxFilesPerTorrent {
		files = files[:MaxFilesPerTorrent]
	}

	// Step 8: Mint download links
	var streams []models.Stream
	var links []models.StreamFile
	for i := range files {
		link, err := c.debrid.RequestDownloadLink(ctx, apiKey, torrent.ID, files[i].ID)
		if err != nil {
			logger.Warn().Err(err).Int("file_id", files[i].ID).Msg("Failed to get download link")
			continue
		}
		name := files[i].DisplayName()
		links = append(links, models.StreamFile{Name: name, Size: files[i].Size, URL: link})
		streams = append(streams, c.describe(candidate, name, files[i].Size, link))
	}
	if len(streams) == 0 {
		return c.fail(ctx, hash, ref, errors.New("no download link could be minted"))
	}

	// Step 9: Persist and cache
	expiresAt := c.now().Add(c.linkTTL)
	err = c.store.UpsertResolvedStream(ctx, &models.ResolvedStream{
		InfoHash:    hash,
		ExternalID:  ref,
		Status:      models.StreamStatusReady,
		DownloadURL: links[0].URL,
		FileName:    links[0].Name,
		FileSize:    links[0].Size,
		Files:       links,
		ExpiresAt:   &expiresAt,
	})
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to persist ready stream")
	}
	c.cache.SetStream(hash, streams, expiresAt)

	logger.Info().Int("torrent_id", torrent.ID).Int("streams", len(streams)).Msg("Resolved magnet")
	return Outcome{Hash: hash, Status: models.StreamStatusReady, Streams: streams}
}

// pollFiles re-reads the torrent at a fixed interval until its files are listed
func (c *ResolveController) pollFiles(ctx context.Context, apiKey string, torrentID int) (*torbox.Torrent, error) {
	attempts := c.pollAttempts
	if attempts < 1 {
		attempts = 1
	}

	var listed *torbox.Torrent
	operation := func() error {
		torrent, err := c.debrid.GetTorrent(ctx, apiKey, torrentID)
		if err != nil {
			return backoff.Permanent(err)
		}
		if torrent == nil || len(torrent.Files) == 0 {
			return errFilesNotListed
		}
		listed = torrent
		return nil
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(c.pollInterval), uint64(attempts-1)),
		ctx,
	)
	if err := backoff.Retry(operation, policy); err != nil {
		return nil, err
	}
	return listed, nil
}

func (c *ResolveController) describe(candidate Candidate, fileName string, size int64, url string) models.Stream {
	name := candidate.Magnet.DisplayName
	if name == "" || name == parser.UnknownMagnetName {
		name = candidate.Title
	}
	return models.Stream{
		Name:  parser.StreamLabel(ProviderName, firstNonEmpty(fileName, name)),
		Title: parser.StreamDescription(name, fileName, size),
		URL:   url,
		BehaviorHints: &models.BehaviorHints{
			BingeGroup: "torbox-" + candidate.Magnet.InfoHash,
		},
	}
}

func (c *ResolveController) record(ctx context.Context, hash, ref string, status models.StreamStatus) Outcome {
	// The outcome is kept even when the request went away
	err := c.store.UpsertResolvedStream(context.WithoutCancel(ctx), &models.ResolvedStream{
		InfoHash:   hash,
		ExternalID: ref,
		Status:     status,
	})
	if err != nil {
		c.logger.Warn().Err(err).Str("hash", hash).Str("status", string(status)).Msg("Failed to persist stream status")
	}
	return Outcome{Hash: hash, Status: status}
}

func (c *ResolveController) fail(ctx context.Context, hash, ref string, cause error) Outcome {
	c.logger.Error().Err(cause).Str("hash", hash).Msg("Resolution failed")

	err := c.store.UpsertResolvedStream(context.WithoutCancel(ctx), &models.ResolvedStream{
		InfoHash:     hash,
		ExternalID:   ref,
		Status:       models.StreamStatusError,
		ErrorMessage: cause.Error(),
	})
	if err != nil {
		c.logger.Warn().Err(err).Str("hash", hash).Msg("Failed to persist stream error")
	}
	return Outcome{Hash: hash, Status: models.StreamStatusError}
}

// ResolveMany resolves the best candidates and concatenates their streams.
// Candidates are deduplicated by hash, unresolvable ones dropped, and at most
// min(MaxResolveCandidates, maxResults) are attempted, best quality first.
func (c *ResolveController) ResolveMany(ctx context.Context, candidates []Candidate, apiKey string, maxResults int) []models.Stream {
	limit := MaxResolveCandidates
	if maxResults > 0 && maxResults < limit {
		limit = maxResults
	}

	ranked := RankCandidates(candidates)
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}

	var streams []models.Stream
	for _, candidate := range ranked {
		if ctx.Err() != nil {
			break
		}
		outcome := c.Resolve(ctx, candidate, apiKey)
		streams = append(streams, outcome.Streams...)
	}
	return streams
}

// RankCandidates deduplicates candidates by hash, drops the unresolvable ones
// and orders the rest by descending quality
func RankCandidates(candidates []Candidate) []Candidate {
	seen := make(map[string]bool, len(candidates))
	unique := make([]Candidate, 0, len(candidates))
	for _, candidate := range candidates {
		hash := candidate.Magnet.InfoHash
		if hash == "" || seen[hash] {
			continue
		}
		seen[hash] = true
		unique = append(unique, candidate)
	}
	return utils.SortByQuality(unique, func(c Candidate) string {
		return c.Label() + " " + c.Magnet.DisplayName
	})
}

// PlayableFiles keeps the files with a playable extension, in listing order
func PlayableFiles(files []torbox.TorrentFile) []torbox.TorrentFile {
	var playable []torbox.TorrentFile
	for _, file := range files {
		ext := strings.TrimPrefix(strings.ToLower(path.Ext(file.Name)), ".")
		if PlayableExtensions[ext] {
			playable = append(playable, file)
		}
	}
	return playable
}

func storedLinks(ready *models.ResolvedStream) []models.StreamFile {
	if ready == nil {
		return nil
	}
	return ready.Links()
}

func torrentRef(id int) string {
	if id == 0 {
		return ""
	}
	return fmt.Sprintf("%d", id)
}

func expiry(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
