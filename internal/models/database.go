package models

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
)

const (
	// PendingRetryAfter is how long a pending or processing magnet waits before the worker retries it
	PendingRetryAfter = 5 * time.Minute
	// ErrorRetryAfter is how long a failed magnet waits before the worker retries it
	ErrorRetryAfter = 30 * time.Minute
)

var (
	// ErrStoreUnavailable wraps every failure of the underlying database
	ErrStoreUnavailable = errors.New("content store unavailable")
	ErrMissingHash      = errors.New("magnet has no info hash")
	ErrInvalidStatus    = errors.New("stream status cannot be persisted")
)

// Database wraps the gorm connection
type Database struct {
	db  *gorm.DB
	now func() time.Time
}

// NewDatabase opens (and migrates) the SQLite database at path
func NewDatabase(path string) (*Database, error) {
	gdb, err := gorm.Open(sqlite.Open(path+"?_foreign_keys=on&_busy_timeout=5000"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql handle: %w", err)
	}
	// SQLite allows one writer
	sqlDB.SetMaxOpenConns(1)

	if err := gdb.AutoMigrate(&Content{}, &Magnet{}, &ResolvedStream{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &Database{
		db:  gdb,
		now: func() time.Time { return time.Now().UTC() },
	}, nil
}

// SetClock replaces the clock used for timestamps and freshness checks
func (d *Database) SetClock(now func() time.Time) {
	d.now = func() time.Time { return now().UTC() }
}

// Close closes the database connection
func (d *Database) Close() error {
	sqlDB, err := d.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func storeErr(op string, err error) error {
	return fmt.Errorf("%w: failed to %s: %w", ErrStoreUnavailable, op, err)
}

// keepExisting keeps the stored value when the incoming one is empty
func keepExisting(table, column string) clause.Expr {
	return gorm.Expr(fmt.Sprintf("COALESCE(NULLIF(excluded.%s, ''), %s.%s)", column, table, column))
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}

// Content operations

// UpsertContent inserts or refreshes a release keyed by (title, source) and returns its id.
// A known external id or artwork is never cleared by an empty incoming value.
func (d *Database) UpsertContent(ctx context.Context, content *Content) (uint, error) {
	now := d.now()

	row := *content
	row.ID = 0
	row.Magnets = nil
	row.PublishedAt = utcPtr(row.PublishedAt)
	row.CreatedAt = now
	row.UpdatedAt = now

	set := clause.AssignmentColumns([]string{
		"clean_title", "year", "type", "category", "source_url", "published_at", "updated_at",
	})
	set = append(set, clause.Assignments(map[string]interface{}{
		"external_id": keepExisting("contents", "external_id"),
		"poster":      keepExisting("contents", "poster"),
		"background":  keepExisting("contents", "background"),
	})...)

	err := d.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "title"}, {Name: "source"}},
		DoUpdates: set,
	}).Create(&row).Error
	if err != nil {
		return 0, storeErr("upsert content", err)
	}

	var stored Content
	err = d.db.WithContext(ctx).Select("id").
		Where("title = ? AND source = ?", content.Title, content.Source).
		Take(&stored).Error
	if err != nil {
		return 0, storeErr("read content id", err)
	}

	content.ID = stored.ID
	return stored.ID, nil
}

// UpsertMagnet inserts a magnet or re-associates an existing hash with contentID
func (d *Database) UpsertMagnet(ctx context.Context, contentID uint, magnet MagnetRecord, quality string, size int64) (uint, error) {
	if !magnet.Resolvable() {
		return 0, ErrMissingHash
	}

	row := Magnet{
		ContentID:   contentID,
		MagnetURI:   magnet.MagnetURI,
		InfoHash:    magnet.InfoHash,
		DisplayName: magnet.DisplayName,
		Quality:     quality,
		SizeBytes:   size,
		CreatedAt:   d.now(),
	}

	err := d.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "info_hash"}},
		DoUpdates: clause.AssignmentColumns([]string{"content_id", "magnet_uri", "display_name", "quality", "size_bytes"}),
	}).Create(&row).Error
	if err != nil {
		return 0, storeErr("upsert magnet", err)
	}

	var stored Magnet
	err = d.db.WithContext(ctx).Select("id").Where("info_hash = ?", magnet.InfoHash).Take(&stored).Error
	if err != nil {
		return 0, storeErr("read magnet id", err)
	}

	return stored.ID, nil
}

// Stream operations

// UpsertResolvedStream records the latest resolution outcome for a hash
func (d *Database) UpsertResolvedStream(ctx context.Context, stream *ResolvedStream) error {
	if stream.InfoHash == "" {
		return ErrMissingHash
	}
	if !stream.Status.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, stream.Status)
	}

	now := d.now()
	row := *stream
	row.ID = 0
	row.ExpiresAt = utcPtr(row.ExpiresAt)
	row.LastCheckedAt = now
	row.UpdatedAt = now
	row.CreatedAt = now

	set := clause.AssignmentColumns([]string{
		"status", "download_url", "file_name", "file_size", "files", "expires_at",
		"error_message", "last_checked_at", "updated_at",
	})
	set = append(set, clause.Assignments(map[string]interface{}{
		"external_id": keepExisting("resolved_streams", "external_id"),
	})...)

	err := d.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "info_hash"}},
		DoUpdates: set,
	}).Create(&row).Error
	if err != nil {
		return storeErr("upsert resolved stream", err)
	}

	stream.LastCheckedAt = now
	stream.UpdatedAt = now
	return nil
}

// ReadyStream returns the ready, unexpired stream for hash, or nil when there is none
func (d *Database) ReadyStream(ctx context.Context, hash string) (*ResolvedStream, error) {
	var stream ResolvedStream
	err := d.db.WithContext(ctx).
		Where("info_hash = ? AND status = ? AND (expires_at IS NULL OR expires_at > ?)", hash, StreamStatusReady, d.now()).
		Take(&stream).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, storeErr("read ready stream", err)
	}
	return &stream, nil
}

// GetResolvedStream returns the stream row for hash, or nil when none exists
func (d *Database) GetResolvedStream(ctx context.Context, hash string) (*ResolvedStream, error) {
	var stream ResolvedStream
	err := d.db.WithContext(ctx).Where("info_hash = ?", hash).Take(&stream).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, storeErr("read resolved stream", err)
	}
	return &stream, nil
}

// Queries

// ReadyContentFilter narrows QueryReadyContent. Zero fields match everything.
type ReadyContentFilter struct {
	Type       ContentType
	Categories []string
}

// QueryReadyContent lists releases with at least one ready, unexpired stream, newest first
func (d *Database) QueryReadyContent(ctx context.Context, filter ReadyContentFilter, limit, offset int) ([]Content, error) {
	query := d.db.WithContext(ctx).Model(&Content{}).
		Where(`EXISTS (
			SELECT 1 FROM magnets m
			JOIN resolved_streams rs ON rs.info_hash = m.info_hash
			WHERE m.content_id = contents.id
			AND rs.status = ?
			AND (rs.expires_at IS NULL OR rs.expires_at > ?))`, StreamStatusReady, d.now())

	if filter.Type != "" {
		query = query.Where("type = ?", filter.Type)
	}
	if len(filter.Categories) > 0 {
		query = query.Where("category IN ?", filter.Categories)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	var contents []Content
	if err := query.Order("published_at DESC").Order("id DESC").Find(&contents).Error; err != nil {
		return nil, storeErr("query ready content", err)
	}
	return contents, nil
}

// QueryMagnetsForContent lists a release's magnets with their latest status, newest first
func (d *Database) QueryMagnetsForContent(ctx context.Context, contentID uint) ([]MagnetWithStatus, error) {
	var magnets []MagnetWithStatus
	err := d.db.WithContext(ctx).Table("magnets").
		Select(`magnets.*,
			COALESCE(rs.status, ?) AS status,
			COALESCE(rs.download_url, '') AS download_url,
			COALESCE(rs.file_name, '') AS file_name,
			rs.expires_at AS expires_at,
			rs.last_checked_at AS last_checked`, StreamStatusPending).
		Joins("LEFT JOIN resolved_streams rs ON rs.info_hash = magnets.info_hash").
		Where("magnets.content_id = ?", contentID).
		Order("magnets.created_at DESC").Order("magnets.id DESC").
		Scan(&magnets).Error
	if err != nil {
		return nil, storeErr("query magnets for content", err)
	}
	return magnets, nil
}

// QueryPendingMagnets returns up to limit magnets the worker should try next:
// never attempted, pending or processing for longer than PendingRetryAfter,
// or failed longer than ErrorRetryAfter ago.
func (d *Database) QueryPendingMagnets(ctx context.Context, limit int) ([]PendingMagnet, error) {
	now := d.now()

	var pending []PendingMagnet
	err := d.db.WithContext(ctx).Raw(`
		SELECT m.id AS magnet_id, m.content_id, m.magnet_uri, m.info_hash, m.display_name, m.quality,
			c.title AS title, COALESCE(rs.status, '') AS status
		FROM magnets m
		JOIN contents c ON c.id = m.content_id
		LEFT JOIN resolved_streams rs ON rs.info_hash = m.info_hash
		WHERE rs.id IS NULL
			OR (rs.status IN (?, ?) AND rs.last_checked_at < ?)
			OR (rs.status = ? AND rs.last_checked_at < ?)
		ORDER BY c.published_at DESC, m.id DESC
		LIMIT ?`,
		StreamStatusPending, StreamStatusProcessing, now.Add(-PendingRetryAfter),
		StreamStatusError, now.Add(-ErrorRetryAfter),
		limit,
	).Scan(&pending).Error
	if err != nil {
		return nil, storeErr("query pending magnets", err)
	}
	return pending, nil
}

// ContentMagnet is a magnet joined with the release it belongs to
type ContentMagnet struct {
	ContentID   uint
	Title       string
	CleanTitle  string
	Year        int
	Type        ContentType
	Category    string
	Source      Source
	PublishedAt *time.Time
	MagnetURI   string
	InfoHash    string
	DisplayName string
	Quality     string
}

// Record converts the row into a magnet value
func (c ContentMagnet) Record() MagnetRecord {
	return MagnetRecord{MagnetURI: c.MagnetURI, InfoHash: c.InfoHash, DisplayName: c.DisplayName}
}

// QueryByExternalID lists every magnet of the releases matched to an external id
func (d *Database) QueryByExternalID(ctx context.Context, externalID string) ([]ContentMagnet, error) {
	var magnets []ContentMagnet
	err := d.db.WithContext(ctx).Table("magnets").
		Select(`contents.id AS content_id, contents.title, contents.clean_title, contents.year,
			contents.type, contents.category, contents.source, contents.published_at,
			magnets.magnet_uri, magnets.info_hash, magnets.display_name, magnets.quality`).
		Joins("JOIN contents ON contents.id = magnets.content_id").
		Where("contents.external_id = ?", externalID).
		Order("contents.published_at DESC").Order("magnets.id DESC").
		Scan(&magnets).Error
	if err != nil {
		return nil, storeErr("query by external id", err)
	}
	return magnets, nil
}

// GetContent returns the release stored under (title, source), or nil when absent
func (d *Database) GetContent(ctx context.Context, title string, source Source) (*Content, error) {
	var content Content
	err := d.db.WithContext(ctx).Where("title = ? AND source = ?", title, source).Take(&content).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, storeErr("read content", err)
	}
	return &content, nil
}

// StoreStats summarizes the store for health reporting
type StoreStats struct {
	Contents        int64                  `json:"contents"`
	Magnets         int64                  `json:"magnets"`
	StreamsByStatus map[StreamStatus]int64 `json:"streams_by_status"`
}

// Stats counts rows per table and streams per status
func (d *Database) Stats(ctx context.Context) (StoreStats, error) {
	stats := StoreStats{StreamsByStatus: make(map[StreamStatus]int64)}
	db := d.db.WithContext(ctx)

	if err := db.Model(&Content{}).Count(&stats.Contents).Error; err != nil {
		return stats, storeErr("count contents", err)
	}
	if err := db.Model(&Magnet{}).Count(&stats.Magnets).Error; err != nil {
		return stats, storeErr("count magnets", err)
	}

	var rows []struct {
		Status StreamStatus
		Count  int64
	}
	if err := db.Model(&ResolvedStream{}).Select("status, COUNT(*) AS count").Group("status").Scan(&rows).Error; err != nil {
		return stats, storeErr("count streams", err)
	}
	for _, row := range rows {
		stats.StreamsByStatus[row.Status] = row.Count
	}

	return stats, nil
}
