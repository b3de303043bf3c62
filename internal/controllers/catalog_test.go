package controllers

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amaumene/tamilarr/internal/cache"
	"github.com/amaumene/tamilarr/internal/models"
	"github.com/amaumene/tamilarr/internal/services/fanart"
	"github.com/amaumene/tamilarr/internal/services/metadata"
)

func newCatalogFixture() (*CatalogController, *cache.Cache, *fakeStore, *fakeMetadata) {
	c := cache.New(cache.DefaultTTLs())
	store := newFakeStore()
	meta := newFakeMetadata()
	return NewCatalogController(c, store, meta, zerolog.Nop()), c, store, meta
}

func TestCatalogEmpty(t *testing.T) {
	catalog, _, _, _ := newCatalogFixture()

	resp := catalog.Catalog(context.Background(), models.ContentTypeMovie, CatalogTamilMovies, Extra{}, DefaultUserConfig())
	require.NotNil(t, resp.Metas)
	assert.Empty(t, resp.Metas)
}

func TestCatalogReadyRowYieldsOneEntry(t *testing.T) {
	catalog, _, store, _ := newCatalogFixture()
	published := time.Date(2023, 8, 10, 0, 0, 0, 0, time.UTC)
	store.contents = []models.Content{{
		ID:          1,
		Title:       "Jailer (2023) Tamil HQ PreDVD x264 400MB",
		Source:      models.SourceTamilMV,
		CleanTitle:  "Jailer",
		Year:        2023,
		Type:        models.ContentTypeMovie,
		Category:    models.CategoryPreDVD,
		PublishedAt: &published,
		ExternalID:  "tt11663228",
	}}
	store.byContent[1] = []models.MagnetWithStatus{{
		Magnet: models.Magnet{ID: 1, ContentID: 1, MagnetURI: magnetFor(hashJailer, "Jailer").MagnetURI, InfoHash: hashJailer, DisplayName: "Jailer"},
		Status: models.StreamStatusReady,
	}}

	resp := catalog.Catalog(context.Background(), models.ContentTypeMovie, CatalogTamilMovies, Extra{}, DefaultUserConfig())
	require.Len(t, resp.Metas, 1)

	meta := resp.Metas[0]
	assert.Equal(t, "tt11663228", meta.ID)
	assert.Equal(t, "Jailer", meta.Name)
	assert.Equal(t, "2023", meta.ReleaseInfo)
	assert.NotEmpty(t, meta.Poster)
	assert.True(t, strings.HasPrefix(meta.Poster, PlaceholderPoster))
	assert.Empty(t, store.upserts, "a known external id is not written back")
}

func TestCatalogEnrichesCachedContent(t *testing.T) {
	catalog, c, store, meta := newCatalogFixture()
	meta.matches["leo"] = &metadata.Match{ID: "tt15654328", Name: "Leo", Year: 2023, Type: models.ContentTypeMovie}
	meta.artwork["tt15654328"] = &fanart.Images{Poster: "https://art.example/leo.jpg", Background: "https://art.example/leo-bg.jpg"}

	item := scrapedItem(models.SourceTamilMV, models.CategoryWebHD, "Leo (2023) Tamil WEB-DL 1080p", time.Now(), magnetFor(hashLeo, "Leo.2023.1080p"))
	c.SetContent(models.SourceTamilMV, []models.ContentItem{item})

	resp := catalog.Catalog(context.Background(), models.ContentTypeMovie, CatalogTamilMoviesHD, Extra{}, DefaultUserConfig())
	require.Len(t, resp.Metas, 1)
	assert.Equal(t, "tt15654328", resp.Metas[0].ID)
	assert.Equal(t, "https://art.example/leo.jpg", resp.Metas[0].Poster)
	assert.Equal(t, "https://art.example/leo-bg.jpg", resp.Metas[0].Background)

	mapping, ok := c.TitleMapping("tt15654328")
	require.True(t, ok)
	require.Len(t, mapping.Magnets, 1)
	assert.Equal(t, hashLeo, mapping.Magnets[0].InfoHash)

	require.Len(t, store.upserts, 1)
	assert.Equal(t, "tt15654328", store.upserts[0].ExternalID)
}

func TestCatalogUnmatchedEntryUsesInternalID(t *testing.T) {
	catalog, c, _, _ := newCatalogFixture()
	title := "Some Random Upload"
	c.SetContent(models.SourceTamilBlasters, []models.ContentItem{
		scrapedItem(models.SourceTamilBlasters, models.CategoryMovies, title, time.Now(), magnetFor(hashLeo, "upload")),
	})

	resp := catalog.Catalog(context.Background(), models.ContentTypeMovie, CatalogTamilMovies, Extra{}, DefaultUserConfig())
	require.Len(t, resp.Metas, 1)
	assert.Equal(t, InternalID(title), resp.Metas[0].ID)
	assert.Equal(t, PlaceholderFor(title), resp.Metas[0].Poster)
	assert.Contains(t, resp.Metas[0].Description, "Source: tamilblasters")
}

func TestCatalogFilters(t *testing.T) {
	catalog, c, _, _ := newCatalogFixture()
	now := time.Now()
	c.SetContent(models.SourceTamilMV, []models.ContentItem{
		scrapedItem(models.SourceTamilMV, models.CategoryPreDVD, "Jailer (2023) Tamil HQ PreDVD x264 400MB", now.Add(-time.Hour), magnetFor(hashJailer, "jailer")),
		scrapedItem(models.SourceTamilMV, models.CategoryWebHD, "Leo (2023) Tamil WEB-DL 1080p", now, magnetFor(hashLeo, "leo")),
		scrapedItem(models.SourceTamilMV, models.CategoryHollywoodMulti, "Oppenheimer (2023) [Tamil + Telugu + Hindi + Eng] BluRay 1080p", now.Add(-2*time.Hour), magnetFor("2222222222222222222222222222222222222222", "opp")),
		scrapedItem(models.SourceTamilMV, models.CategorySeries, "Suzhal The Vortex S01E05 (2022) Tamil WEB-DL 720p", now.Add(-3*time.Hour), magnetFor("3333333333333333333333333333333333333333", "suzhal")),
	})

	names := func(resp models.CatalogResponse) []string {
		var out []string
		for _, m := range resp.Metas {
			out = append(out, m.Name)
		}
		return out
	}
	ctx := context.Background()
	user := DefaultUserConfig()

	t.Run("movies newest first", func(t *testing.T) {
		resp := catalog.Catalog(ctx, models.ContentTypeMovie, CatalogTamilMovies, Extra{}, user)
		assert.Equal(t, []string{"Leo", "Jailer", "Oppenheimer"}, names(resp))
	})

	t.Run("hd catalog", func(t *testing.T) {
		resp := catalog.Catalog(ctx, models.ContentTypeMovie, CatalogTamilMoviesHD, Extra{}, user)
		assert.Equal(t, []string{"Leo", "Oppenheimer"}, names(resp))
	})

	t.Run("hollywood catalog", func(t *testing.T) {
		resp := catalog.Catalog(ctx, models.ContentTypeMovie, CatalogHollywoodMulti, Extra{}, user)
		assert.Equal(t, []string{"Oppenheimer"}, names(resp))
	})

	t.Run("series catalog", func(t *testing.T) {
		resp := catalog.Catalog(ctx, models.ContentTypeSeries, CatalogTamilSeries, Extra{}, user)
		assert.Equal(t, []string{"Suzhal The Vortex"}, names(resp))
	})

	t.Run("search", func(t *testing.T) {
		resp := catalog.Catalog(ctx, models.ContentTypeMovie, CatalogTamilMovies, Extra{Search: "jail"}, user)
		assert.Equal(t, []string{"Jailer"}, names(resp))
	})

	t.Run("skip past the end", func(t *testing.T) {
		resp := catalog.Catalog(ctx, models.ContentTypeMovie, CatalogTamilMovies, Extra{Skip: 10}, user)
		require.NotNil(t, resp.Metas)
		assert.Empty(t, resp.Metas)
	})

	t.Run("user quality filter", func(t *testing.T) {
		filtered := user
		filtered.Qualities = []string{"1080p"}
		resp := catalog.Catalog(ctx, models.ContentTypeMovie, CatalogTamilMovies, Extra{}, filtered)
		assert.Equal(t, []string{"Leo", "Oppenheimer"}, names(resp))
	})
}

func TestCatalogDeduplicatesByTitle(t *testing.T) {
	catalog, c, store, _ := newCatalogFixture()
	older := time.Now().Add(-24 * time.Hour)
	store.contents = []models.Content{{
		ID: 1, Title: "Leo (2023) Tamil PreDVD", Source: models.SourceTamilMV,
		CleanTitle: "Leo", Year: 2023, Type: models.ContentTypeMovie,
		Category: models.CategoryPreDVD, PublishedAt: &older, ExternalID: "tt15654328",
	}}
	c.SetContent(models.SourceTamilMV, []models.ContentItem{
		scrapedItem(models.SourceTamilMV, models.CategoryWebHD, "Leo (2023) Tamil WEB-DL 1080p", time.Now(), magnetFor(hashLeo, "leo")),
	})

	resp := catalog.Catalog(context.Background(), models.ContentTypeMovie, CatalogTamilMovies, Extra{}, DefaultUserConfig())
	require.Len(t, resp.Metas, 1)
	assert.Equal(t, "tt15654328", resp.Metas[0].ID)
}

func TestCatalogStoreOutage(t *testing.T) {
	catalog, c, store, _ := newCatalogFixture()
	store.err = errStoreDown
	c.SetContent(models.SourceTamilMV, []models.ContentItem{
		scrapedItem(models.SourceTamilMV, models.CategoryWebHD, "Some Random Upload", time.Now(), magnetFor(hashLeo, "leo")),
	})

	resp := catalog.Catalog(context.Background(), models.ContentTypeMovie, CatalogTamilMovies, Extra{}, DefaultUserConfig())
	assert.Len(t, resp.Metas, 1)
}

func TestParseExtra(t *testing.T) {
	extra := ParseExtra("search=the%20greatest&skip=100")
	assert.Equal(t, 100, extra.Skip)
	assert.Equal(t, "the greatest", extra.Search)

	assert.Equal(t, Extra{}, ParseExtra(""))
	assert.Zero(t, ParseExtra("skip=-5").Skip)
}
