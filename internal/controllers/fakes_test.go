package controllers

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/amaumene/tamilarr/internal/config"
	"github.com/amaumene/tamilarr/internal/models"
	"github.com/amaumene/tamilarr/internal/parser"
	"github.com/amaumene/tamilarr/internal/services/fanart"
	"github.com/amaumene/tamilarr/internal/services/metadata"
	"github.com/amaumene/tamilarr/internal/services/torbox"
)

const (
	hashLeo    = "abcdef0123456789abcdef0123456789abcdef01"
	hashJailer = "1111111111111111111111111111111111111111"
)

func testConfig() *config.Config {
	return &config.Config{
		ResolvePollInterval: time.Millisecond,
		ResolvePollAttempts: 3,
		StreamLinkTTL:       4 * time.Hour,
		MaxResults:          10,
		WorkerBatchSize:     20,
		AddonID:             "community.tamilarr",
		AddonName:           "Tamilarr",
		AddonVersion:        "1.0.0",
	}
}

func magnetFor(hash, name string) models.MagnetRecord {
	return models.MagnetRecord{
		MagnetURI:   fmt.Sprintf("magnet:?xt=urn:btih:%s&dn=%s", hash, name),
		InfoHash:    hash,
		DisplayName: name,
	}
}

// fakeDebrid records every call it receives
type fakeDebrid struct {
	mu         sync.Mutex
	defaultKey string
	account    map[string]*torbox.Torrent
	cached     map[string]bool
	checkErr   error
	files      []torbox.TorrentFile
	calls      map[string]int
	lookups    []string
}

func newFakeDebrid(defaultKey string) *fakeDebrid {
	return &fakeDebrid{
		defaultKey: defaultKey,
		account:    make(map[string]*torbox.Torrent),
		cached:     make(map[string]bool),
		calls:      make(map[string]int),
	}
}

func (f *fakeDebrid) count(op string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[op]++
}

func (f *fakeDebrid) total() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		n += c
	}
	return n
}

func (f *fakeDebrid) HasCredential(apiKey string) bool {
	return apiKey != "" || f.defaultKey != ""
}

func (f *fakeDebrid) FindTorrentByHash(ctx context.Context, apiKey, hash string) (*torbox.Torrent, error) {
	f.count("mylist")
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lookups = append(f.lookups, hash)
	return f.account[hash], nil
}

func (f *fakeDebrid) CheckCached(ctx context.Context, apiKey, hash string) (bool, error) {
	f.count("checkcached")
	if f.checkErr != nil {
		return false, f.checkErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cached[hash], nil
}

func (f *fakeDebrid) CreateTorrent(ctx context.Context, apiKey, magnet string) (int, error) {
	f.count("createtorrent")
	return 42, nil
}

func (f *fakeDebrid) GetTorrent(ctx context.Context, apiKey string, torrentID int) (*torbox.Torrent, error) {
	f.count("gettorrent")
	f.mu.Lock()
	defer f.mu.Unlock()
	return &torbox.Torrent{ID: torrentID, Files: f.files}, nil
}

func (f *fakeDebrid) RequestDownloadLink(ctx context.Context, apiKey string, torrentID, fileID int) (string, error) {
	f.count("requestdl")
	return fmt.Sprintf("https://dl.example/%d/%d", torrentID, fileID), nil
}

// fakeStore is an in-memory store
type fakeStore struct {
	mu        sync.Mutex
	streams   map[string]models.ResolvedStream
	pending   []models.PendingMagnet
	contents  []models.Content
	byID      map[string][]models.ContentMagnet
	byContent map[uint][]models.MagnetWithStatus
	upserts   []models.Content
	magnets   []models.MagnetRecord
	err       error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		streams:   make(map[string]models.ResolvedStream),
		byID:      make(map[string][]models.ContentMagnet),
		byContent: make(map[uint][]models.MagnetWithStatus),
	}
}

func (s *fakeStore) ReadyStream(ctx context.Context, hash string) (*models.ResolvedStream, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	row, ok := s.streams[hash]
	if !ok || row.Status != models.StreamStatusReady {
		return nil, nil
	}
	return &row, nil
}

func (s *fakeStore) UpsertResolvedStream(ctx context.Context, stream *models.ResolvedStream) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	if !stream.Status.Valid() {
		return models.ErrInvalidStatus
	}
	s.streams[stream.InfoHash] = *stream
	return nil
}

func (s *fakeStore) status(hash string) models.StreamStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.streams[hash].Status
}

func (s *fakeStore) QueryPendingMagnets(ctx context.Context, limit int) ([]models.PendingMagnet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	if len(s.pending) > limit {
		return s.pending[:limit], nil
	}
	return s.pending, nil
}

func (s *fakeStore) QueryReadyContent(ctx context.Context, filter models.ReadyContentFilter, limit, offset int) ([]models.Content, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	var out []models.Content
	for _, c := range s.contents {
		if filter.Type != "" && c.Type != filter.Type {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

func (s *fakeStore) QueryByExternalID(ctx context.Context, externalID string) ([]models.ContentMagnet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	return s.byID[externalID], nil
}

func (s *fakeStore) QueryMagnetsForContent(ctx context.Context, contentID uint) ([]models.MagnetWithStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	return s.byContent[contentID], nil
}

func (s *fakeStore) UpsertContent(ctx context.Context, content *models.Content) (uint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return 0, s.err
	}
	s.upserts = append(s.upserts, *content)
	return uint(len(s.upserts)), nil
}

func (s *fakeStore) UpsertMagnet(ctx context.Context, contentID uint, magnet models.MagnetRecord, quality string, size int64) (uint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return 0, s.err
	}
	if magnet.InfoHash == "" {
		return 0, models.ErrMissingHash
	}
	s.magnets = append(s.magnets, magnet)
	return uint(len(s.magnets)), nil
}

func (s *fakeStore) Stats(ctx context.Context) (models.StoreStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return models.StoreStats{}, s.err
	}
	return models.StoreStats{
		Contents:        int64(len(s.upserts)),
		Magnets:         int64(len(s.magnets)),
		StreamsByStatus: map[models.StreamStatus]int64{},
	}, nil
}

var errStoreDown = fmt.Errorf("%w: connection refused", models.ErrStoreUnavailable)

var errBoom = errors.New("boom")

// fakeMetadata answers from fixed tables and counts lookups
type fakeMetadata struct {
	mu      sync.Mutex
	matches map[string]*metadata.Match // keyed by lower-cased title
	artwork map[string]*fanart.Images
	metas   map[string]*models.Meta
	calls   int
}

func newFakeMetadata() *fakeMetadata {
	return &fakeMetadata{
		matches: make(map[string]*metadata.Match),
		artwork: make(map[string]*fanart.Images),
		metas:   make(map[string]*models.Meta),
	}
}

func (f *fakeMetadata) Match(ctx context.Context, title string, year int, contentType models.ContentType) *metadata.Match {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.matches[strings.ToLower(title)]
}

func (f *fakeMetadata) Artwork(ctx context.Context, imdbID string) *fanart.Images {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.artwork[imdbID]
}

func (f *fakeMetadata) Meta(ctx context.Context, imdbID string) *models.Meta {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.metas[imdbID]
}

// scrapedItem builds a cached release as a scraper would
func scrapedItem(source models.Source, category, title string, published time.Time, magnets ...models.MagnetRecord) models.ContentItem {
	return models.ContentItem{
		SourceTitle: title,
		SourceURL:   "https://forum.example/topic/" + strings.ReplaceAll(title, " ", "-"),
		PublishedAt: &published,
		Parsed:      parser.ParseTitle(title),
		Magnets:     magnets,
		Source:      source,
		Category:    category,
	}
}
