package models

// ContentType is the kind of title a release belongs to
type ContentType string

const (
	ContentTypeMovie  ContentType = "movie"
	ContentTypeSeries ContentType = "series"
)

// Valid reports whether t is a known content type
func (t ContentType) Valid() bool {
	return t == ContentTypeMovie || t == ContentTypeSeries
}

// Source identifies the site a release was scraped from
type Source string

const (
	SourceTamilMV       Source = "tamilmv"
	SourceTamilBlasters Source = "tamilblasters"
)

// Sources lists every scrape source in scrape order
var Sources = []Source{SourceTamilMV, SourceTamilBlasters}

// Valid reports whether s is a known scrape source
func (s Source) Valid() bool {
	return s == SourceTamilMV || s == SourceTamilBlasters
}

// Release categories assigned at scrape time
const (
	CategoryPreDVD         = "predvd"
	CategoryWebHD          = "web-hd"
	CategoryHDRips         = "hd-rips"
	CategoryHollywoodMulti = "hollywood-multi"
	CategoryHDTV           = "hdtv"
	CategorySeries         = "series"
	CategoryMovies         = "movies"
	CategoryMain           = "main" // magnets listed directly on a site's front page
	CategoryOther          = "other"
)

// StreamStatus represents the resolution state of a magnet against the debrid service
type StreamStatus string

const (
	StreamStatusPending    StreamStatus = "pending"    // Known, never attempted
	StreamStatusProcessing StreamStatus = "processing" // Added to debrid, files not listed yet
	StreamStatusNotCached  StreamStatus = "not_cached" // Debrid has no cached copy
	StreamStatusNoVideo    StreamStatus = "no_video"   // Torrent holds no playable file
	StreamStatusError      StreamStatus = "error"      // External call failed
	StreamStatusReady      StreamStatus = "ready"      // Download links available

	// StreamStatusUnresolvable marks a magnet without an info hash. It is never persisted.
	StreamStatusUnresolvable StreamStatus = "unresolvable"
)

// Valid reports whether s may be written to the store
func (s StreamStatus) Valid() bool {
	switch s {
	case StreamStatusPending, StreamStatusProcessing, StreamStatusNotCached,
		StreamStatusNoVideo, StreamStatusError, StreamStatusReady:
		return true
	case StreamStatusUnresolvable:
		return false
	default:
		return false
	}
}

// Terminal reports whether the worker should leave a magnet with this status alone
func (s StreamStatus) Terminal() bool {
	switch s {
	case StreamStatusNotCached, StreamStatusNoVideo, StreamStatusReady, StreamStatusUnresolvable:
		return true
	case StreamStatusPending, StreamStatusProcessing, StreamStatusError:
		return false
	default:
		return false
	}
}

// Retryable reports whether the status is eligible for a later resolution attempt
func (s StreamStatus) Retryable() bool {
	return s.Valid() && !s.Terminal()
}
