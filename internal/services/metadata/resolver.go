// Package metadata matches scraped titles to catalog ids and enriches them
// with details and artwork.
package metadata

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/amaumene/tamilarr/internal/cache"
	"github.com/amaumene/tamilarr/internal/models"
	"github.com/amaumene/tamilarr/internal/parser"
	"github.com/amaumene/tamilarr/internal/services/fanart"
	"github.com/amaumene/tamilarr/internal/services/omdb"
)

// TitleProvider searches titles and fetches their details
type TitleProvider interface {
	Enabled() bool
	SearchTitle(ctx context.Context, title string, year int, mediaType string) ([]omdb.SearchResult, error)
	GetByID(ctx context.Context, imdbID string) (*omdb.Title, error)
}

// ArtworkProvider fetches artwork by IMDb id
type ArtworkProvider interface {
	Enabled() bool
	MovieImages(ctx context.Context, imdbID string) (*fanart.Images, error)
}

// Match is the catalog entry a scraped title resolved to
type Match struct {
	ID     string
	Name   string
	Year   int
	Poster string
	Type   models.ContentType
}

// lookupTimeout bounds one provider call shared by every waiting caller
const lookupTimeout = 15 * time.Second

// Resolver never returns errors: provider failures are logged and yield no enrichment.
// Results and genuine "no match" answers are cached for the metadata TTL. Failures are not.
type Resolver struct {
	titles  TitleProvider
	artwork ArtworkProvider
	cache   *cache.Cache
	group   singleflight.Group
	logger  zerolog.Logger
}

// NewResolver creates a resolver over the given providers
func NewResolver(titles TitleProvider, artwork ArtworkProvider, c *cache.Cache, logger zerolog.Logger) *Resolver {
	return &Resolver{
		titles:  titles,
		artwork: artwork,
		cache:   c,
		logger:  logger.With().Str("component", "metadata").Logger(),
	}
}

// cached returns the cached value of key or computes it once across concurrent callers.
// The computation runs detached from ctx's cancellation so one caller leaving does not
// fail the lookup for the others. A failed computation yields the zero value and is
// retried by the next caller.
func cached[T any](ctx context.Context, r *Resolver, key string, compute func(context.Context) (T, error)) T {
	if value, ok := r.cache.Metadata(key); ok {
		if typed, ok := value.(T); ok {
			return typed
		}
	}

	value, err, _ := r.group.Do(key, func() (interface{}, error) {
		lookupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), lookupTimeout)
		defer cancel()

		result, err := compute(lookupCtx)
		if err != nil {
			return nil, err
		}
		r.cache.SetMetadata(key, result)
		return result, nil
	})
	if err != nil {
		var zero T
		return zero
	}
	typed, _ := value.(T)
	return typed
}

// Match resolves a clean title (and optional year) to the first search hit
func (r *Resolver) Match(ctx context.Context, title string, year int, contentType models.ContentType) *Match {
	title = strings.TrimSpace(title)
	if title == "" || !r.titles.Enabled() {
		return nil
	}

	key := fmt.Sprintf("search:%s:%d:%s", parser.Normalize(title), year, contentType)
	match := cached(ctx, r, key, func(ctx context.Context) (Match, error) {
		results, err := r.titles.SearchTitle(ctx, title, year, string(contentType))
		if err != nil {
			r.logger.Warn().Err(err).Str("title", title).Int("year", year).Msg("Title search failed")
			return Match{}, err
		}
		if len(results) == 0 {
			r.logger.Debug().Str("title", title).Int("year", year).Msg("No title match")
			return Match{}, nil
		}

		hit := results[0]
		matchType := models.ContentTypeMovie
		if hit.Type == "series" {
			matchType = models.ContentTypeSeries
		}
		return Match{
			ID:     hit.IMDbID,
			Name:   hit.Title,
			Year:   omdb.StartYear(hit.Year),
			Poster: omdb.Value(hit.Poster),
			Type:   matchType,
		}, nil
	})

	if match.ID == "" {
		return nil
	}
	return &match
}

// Artwork returns fanart.tv images for an IMDb id, or nil
func (r *Resolver) Artwork(ctx context.Context, imdbID string) *fanart.Images {
	if !strings.HasPrefix(imdbID, "tt") || !r.artwork.Enabled() {
		return nil
	}

	images := cached(ctx, r, "art:"+imdbID, func(ctx context.Context) (fanart.Images, error) {
		images, err := r.artwork.MovieImages(ctx, imdbID)
		if err != nil {
			r.logger.Warn().Err(err).Str("imdb_id", imdbID).Msg("Artwork lookup failed")
			return fanart.Images{}, err
		}
		if images == nil {
			return fanart.Images{}, nil
		}
		return *images, nil
	})

	if images == (fanart.Images{}) {
		return nil
	}
	return &images
}

// Meta returns the detail record of an IMDb id enriched with artwork, or nil
func (r *Resolver) Meta(ctx context.Context, imdbID string) *models.Meta {
	if !strings.HasPrefix(imdbID, "tt") || !r.titles.Enabled() {
		return nil
	}

	meta := cached(ctx, r, "meta:"+imdbID, func(ctx context.Context) (models.Meta, error) {
		title, err := r.titles.GetByID(ctx, imdbID)
		if errors.Is(err, omdb.ErrNotFound) || (err == nil && title == nil) {
			return models.Meta{}, nil
		}
		if err != nil {
			r.logger.Warn().Err(err).Str("imdb_id", imdbID).Msg("Title lookup failed")
			return models.Meta{}, err
		}

		metaType := models.ContentTypeMovie
		if title.Type == "series" {
			metaType = models.ContentTypeSeries
		}
		return models.Meta{
			ID:          imdbID,
			Type:        metaType,
			Name:        title.Title,
			Poster:      omdb.Value(title.Poster),
			Description: omdb.Value(title.Plot),
			ReleaseInfo: omdb.Value(title.Year),
			IMDbRating:  omdb.Value(title.IMDbRating),
			Genres:      omdb.List(title.Genre),
			Cast:        omdb.List(title.Actors),
			Director:    omdb.List(title.Director),
			Runtime:     omdb.Value(title.Runtime),
			Country:     omdb.Value(title.Country),
		}, nil
	})

	if meta.ID == "" {
		return nil
	}

	if images := r.Artwork(ctx, imdbID); images != nil {
		if meta.Poster == "" {
			meta.Poster = images.Poster
		}
		if images.Background != "" {
			meta.Background = images.Background
		}
		if images.Logo != "" {
			meta.Logo = images.Logo
		}
	}
	return &meta
}
