package models

import "time"

// Content is a persisted release, unique per (title, source)
type Content struct {
	ID          uint   `gorm:"primaryKey"`
	Title       string `gorm:"not null;uniqueIndex:idx_content_title_source"`
	Source      Source `gorm:"not null;uniqueIndex:idx_content_title_source"`
	CleanTitle  string `gorm:"index"`
	Year        int
	Type        ContentType `gorm:"index"`
	Category    string      `gorm:"index"`
	SourceURL   string
	PublishedAt *time.Time `gorm:"index"`
	ExternalID  string     `gorm:"index"` // IMDb id, filled lazily
	Poster      string
	Background  string

	Magnets []Magnet `gorm:"constraint:OnDelete:CASCADE"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Magnet is a persisted magnet link, unique by info hash
type Magnet struct {
	ID          uint   `gorm:"primaryKey"`
	ContentID   uint   `gorm:"not null;index"`
	MagnetURI   string `gorm:"not null"`
	InfoHash    string `gorm:"not null;uniqueIndex"`
	DisplayName string
	Quality     string
	SizeBytes   int64

	CreatedAt time.Time
}

// Record converts the row back into the scrape-time value
func (m Magnet) Record() MagnetRecord {
	return MagnetRecord{MagnetURI: m.MagnetURI, InfoHash: m.InfoHash, DisplayName: m.DisplayName}
}

// ResolvedStream is the latest resolution outcome for one info hash
type ResolvedStream struct {
	ID            uint         `gorm:"primaryKey"`
	InfoHash      string       `gorm:"not null;uniqueIndex"`
	ExternalID    string       // debrid torrent id
	Status        StreamStatus `gorm:"not null;index"`
	DownloadURL   string       // primary file
	FileName      string
	FileSize      int64
	Files         []StreamFile `gorm:"serializer:json"` // every minted link, primary first
	ExpiresAt     *time.Time
	ErrorMessage  string
	LastCheckedAt time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// StreamFile is one playable file of a resolved torrent
type StreamFile struct {
	Name string `json:"name"`
	Size int64  `json:"size"`
	URL  string `json:"url"`
}

// Links returns the stored files, falling back to the primary file for rows
// written before every link was kept
func (r ResolvedStream) Links() []StreamFile {
	if len(r.Files) > 0 {
		return r.Files
	}
	if r.DownloadURL == "" {
		return nil
	}
	return []StreamFile{{Name: r.FileName, Size: r.FileSize, URL: r.DownloadURL}}
}

// MagnetWithStatus is a magnet joined with its latest resolution state
type MagnetWithStatus struct {
	Magnet
	Status      StreamStatus
	DownloadURL string
	FileName    string
	ExpiresAt   *time.Time
	LastChecked *time.Time
}

// PendingMagnet is a magnet awaiting background resolution
type PendingMagnet struct {
	MagnetID    uint
	ContentID   uint
	MagnetURI   string
	InfoHash    string
	DisplayName string
	Quality     string
	Title       string
	Status      StreamStatus // empty when never attempted
}

// Record converts the pending row into a magnet value
func (p PendingMagnet) Record() MagnetRecord {
	return MagnetRecord{MagnetURI: p.MagnetURI, InfoHash: p.InfoHash, DisplayName: p.DisplayName}
}
