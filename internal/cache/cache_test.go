package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amaumene/tamilarr/internal/models"
)

func magnet(hash string) models.MagnetRecord {
	return models.MagnetRecord{MagnetURI: "magnet:?xt=urn:btih:" + hash, InfoHash: hash, DisplayName: hash}
}

func TestMissingKeysReturnEmpty(t *testing.T) {
	c := New(DefaultTTLs())

	assert.Nil(t, c.Content(models.SourceTamilMV))
	assert.Empty(t, c.AllMagnets())

	streams, ok := c.Stream("abc")
	assert.False(t, ok)
	assert.Nil(t, streams)

	_, ok = c.TitleMapping("tt0000001")
	assert.False(t, ok)
}

func TestSetContentRebuildsMagnetIndex(t *testing.T) {
	c := New(DefaultTTLs())

	c.SetContent(models.SourceTamilMV, []models.ContentItem{
		{SourceTitle: "A", Source: models.SourceTamilMV, Magnets: []models.MagnetRecord{magnet("a1"), magnet("a2")}},
	})
	c.SetContent(models.SourceTamilBlasters, []models.ContentItem{
		{SourceTitle: "B", Source: models.SourceTamilBlasters, Category: models.CategoryMovies, Magnets: []models.MagnetRecord{magnet("b1")}},
	})
	require.Len(t, c.AllMagnets(), 3)

	c.SetContent(models.SourceTamilMV, []models.ContentItem{
		{SourceTitle: "C", Source: models.SourceTamilMV, Magnets: []models.MagnetRecord{magnet("c1")}},
	})

	all := c.AllMagnets()
	require.Len(t, all, 2)
	assert.Equal(t, "C", all[0].Title)
	assert.Equal(t, models.CategoryMovies, all[1].Category)

	assert.Len(t, c.AllContent(), 2)
}

func TestExpiredContentLeavesIndex(t *testing.T) {
	ttls := DefaultTTLs()
	ttls.Secondary = 20 * time.Millisecond
	c := New(ttls)

	c.SetContent(models.SourceTamilBlasters, []models.ContentItem{
		{SourceTitle: "B", Magnets: []models.MagnetRecord{magnet("b1")}},
	})
	require.Len(t, c.AllMagnets(), 1)

	time.Sleep(40 * time.Millisecond)
	assert.Empty(t, c.AllMagnets())
	assert.Nil(t, c.Content(models.SourceTamilBlasters))
}

func TestSetStreamRespectsLinkExpiry(t *testing.T) {
	c := New(DefaultTTLs())
	streams := []models.Stream{{Name: "TorBox", URL: "https://dl/x"}}

	c.SetStream("live", streams, time.Now().Add(4*time.Hour))
	got, ok := c.Stream("live")
	require.True(t, ok)
	assert.Equal(t, streams, got)

	c.SetStream("stale", streams, time.Now().Add(-time.Minute))
	_, ok = c.Stream("stale")
	assert.False(t, ok, "already expired links are not cached")
}

func TestAddTitleMappingMergesByHash(t *testing.T) {
	c := New(DefaultTTLs())

	c.AddTitleMapping("tt1", []IndexedMagnet{{MagnetRecord: magnet("h1")}, {MagnetRecord: magnet("h2")}}, "Leo", 2023)
	mapping := c.AddTitleMapping("tt1", []IndexedMagnet{{MagnetRecord: magnet("h2")}, {MagnetRecord: magnet("h3")}}, "", 0)

	assert.Equal(t, "Leo", mapping.Title)
	assert.Equal(t, 2023, mapping.Year)
	require.Len(t, mapping.Magnets, 3)

	stored, ok := c.TitleMapping("tt1")
	require.True(t, ok)
	assert.Equal(t, mapping, stored)
}

func TestMetadataAndStats(t *testing.T) {
	c := New(DefaultTTLs())

	c.SetMetadata("search:leo:2023", "tt15654328")
	value, ok := c.Metadata("search:leo:2023")
	require.True(t, ok)
	assert.Equal(t, "tt15654328", value)

	c.SetContent(models.SourceTamilMV, []models.ContentItem{{SourceTitle: "A", Magnets: []models.MagnetRecord{magnet("a1")}}})
	c.SetStream("a1", []models.Stream{{URL: "u"}}, time.Time{})
	c.AddTitleMapping("tt1", nil, "A", 0)

	stats := c.Stats()
	assert.Equal(t, 1, stats.Content[models.SourceTamilMV])
	assert.Equal(t, 1, stats.Magnets)
	assert.Equal(t, 1, stats.Streams)
	assert.Equal(t, 1, stats.Mappings)
	assert.Equal(t, 1, stats.Metadata)
}
