package controllers

import (
	"encoding/base64"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amaumene/tamilarr/internal/models"
)

func TestInternalID(t *testing.T) {
	title := "Leo (2023) Tamil TRUE WEB-DL - 1080p - AVC - 2.5GB - ESub.mkv"
	id := InternalID(title)

	assert.True(t, strings.HasPrefix(id, InternalIDPrefix))
	assert.Len(t, strings.TrimPrefix(id, InternalIDPrefix), 30)
	assert.Equal(t, id, InternalID(title), "derived ids are stable")
	assert.True(t, strings.HasPrefix(title, decodeInternalID(id)))
	assert.NotEmpty(t, decodeInternalID(id))

	short := InternalID("Leo")
	assert.Equal(t, "Leo", decodeInternalID(short))
}

func TestPlaceholderFor(t *testing.T) {
	poster := PlaceholderFor("Ponniyin Selvan Part Two")
	assert.Equal(t, PlaceholderPoster+url.QueryEscape("Ponniyin Selvan Part"), poster)
}

func TestParseUserConfig(t *testing.T) {
	raw := base64.StdEncoding.EncodeToString([]byte(`{"catalogs":["tamil-series"],"qualities":["1080p"],"torboxKey":"abc","maxResults":3}`))

	cfg := ParseUserConfig(url.PathEscape(raw))
	assert.Equal(t, []string{CatalogTamilSeries}, cfg.Catalogs)
	assert.Equal(t, []string{"1080p"}, cfg.Qualities)
	assert.Equal(t, "abc", cfg.TorBoxKey)
	assert.Equal(t, 3, cfg.ResultLimit(10))

	urlSafe := base64.RawURLEncoding.EncodeToString([]byte(`{"languages":["tamil"]}`))
	cfg = ParseUserConfig(urlSafe)
	assert.Equal(t, []string{"tamil"}, cfg.Languages)
	assert.Len(t, cfg.Catalogs, len(Catalogs), "an empty catalog selection keeps every catalog")
	assert.Equal(t, 10, cfg.ResultLimit(10))
}

func TestParseUserConfigMalformed(t *testing.T) {
	for _, raw := range []string{"", "%%%", "not base64!", base64.StdEncoding.EncodeToString([]byte("not json"))} {
		assert.Equal(t, DefaultUserConfig(), ParseUserConfig(raw), raw)
	}
}

func TestNewManifest(t *testing.T) {
	manifest := NewManifest(testConfig())
	assert.Equal(t, "community.tamilarr", manifest.ID)
	assert.Equal(t, []string{"tt", "tamilmv"}, manifest.IDPrefixes)
	assert.Equal(t, []string{"catalog", "stream", "meta"}, manifest.Resources)
	assert.Len(t, manifest.Catalogs, 4)
	assert.True(t, manifest.BehaviorHints.Configurable)
}

func TestConfiguredManifest(t *testing.T) {
	user := UserConfig{Catalogs: []string{CatalogTamilSeries, "unknown"}}
	manifest := ConfiguredManifest(testConfig(), user)

	require.Len(t, manifest.Catalogs, 1)
	assert.Equal(t, CatalogTamilSeries, manifest.Catalogs[0].ID)
	assert.Equal(t, []models.ContentType{models.ContentTypeSeries}, manifest.Types)
	assert.Contains(t, manifest.Description, "Configured with 1 catalogs")

	all := ConfiguredManifest(testConfig(), UserConfig{Catalogs: []string{"unknown"}})
	assert.Len(t, all.Catalogs, 4)
}
