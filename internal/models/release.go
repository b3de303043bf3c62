package models

import (
	"errors"
	"time"
)

// ReleaseTitle is the structured form of a scraped release name
type ReleaseTitle struct {
	RawTitle   string
	CleanTitle string
	Year       int // 0 when absent
	Quality    string
	Type       ContentType
	Season     int // 0 when absent
	Episode    int // 0 when absent
}

// MagnetRecord is a magnet link as extracted from a page or feed
type MagnetRecord struct {
	MagnetURI   string `json:"magnet"`
	InfoHash    string `json:"hash,omitempty"` // lowercase hex, empty when unparseable
	DisplayName string `json:"name"`
}

// Resolvable reports whether the magnet can be sent to the debrid service
func (m MagnetRecord) Resolvable() bool {
	return m.InfoHash != ""
}

// ContentItem is one scraped release with its magnets
type ContentItem struct {
	SourceTitle string
	SourceURL   string
	PublishedAt *time.Time
	Parsed      ReleaseTitle
	Magnets     []MagnetRecord
	Source      Source
	Category    string
}

var (
	ErrEmptyTitle = errors.New("content item has no title")
	ErrNoMagnets  = errors.New("content item has no magnets")
)

// Validate checks the ingestion invariants of a scraped item
func (c ContentItem) Validate() error {
	if c.SourceTitle == "" {
		return ErrEmptyTitle
	}
	if len(c.Magnets) == 0 {
		return ErrNoMagnets
	}
	return nil
}

// Published returns the publish date or the zero time
func (c ContentItem) Published() time.Time {
	if c.PublishedAt == nil {
		return time.Time{}
	}
	return *c.PublishedAt
}

// Stream is a playback descriptor returned to addon clients
type Stream struct {
	Name          string         `json:"name,omitempty"`
	Title         string         `json:"title,omitempty"`
	URL           string         `json:"url,omitempty"`
	InfoHash      string         `json:"infoHash,omitempty"`
	BehaviorHints *BehaviorHints `json:"behaviorHints,omitempty"`
}

// BehaviorHints groups streams of the same torrent for binge playback
type BehaviorHints struct {
	BingeGroup  string `json:"bingeGroup,omitempty"`
	NotWebReady bool   `json:"notWebReady,omitempty"`
}
