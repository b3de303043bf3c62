package controllers

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/amaumene/tamilarr/internal/config"
	"github.com/amaumene/tamilarr/internal/models"
)

// InternalIDPrefix marks identifiers derived from a scraped title
const InternalIDPrefix = "tamilmv:"

// PlaceholderPoster is used when no artwork is known
const PlaceholderPoster = "https://via.placeholder.com/270x400/1a1a2e/eee?text="

// InternalID derives a stable identifier from a raw scraped title
func InternalID(title string) string {
	encoded := base64.StdEncoding.EncodeToString([]byte(title))
	if len(encoded) > 30 {
		encoded = encoded[:30]
	}
	return InternalIDPrefix + encoded
}

// decodeInternalID returns the decodable prefix of the title behind an internal id
func decodeInternalID(id string) string {
	encoded := strings.TrimPrefix(id, InternalIDPrefix)
	// Truncation may leave a partial quantum
	encoded = encoded[:len(encoded)/4*4]
	decoded, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return ""
	}
	return strings.ToValidUTF8(string(decoded), "")
}

// PlaceholderFor returns a generated poster URL showing the first characters of name
func PlaceholderFor(name string) string {
	runes := []rune(name)
	if len(runes) > 20 {
		runes = runes[:20]
	}
	return PlaceholderPoster + url.QueryEscape(string(runes))
}

// UserConfig is the per-install configuration carried base64-encoded in addon URLs
type UserConfig struct {
	Catalogs       []string `json:"catalogs,omitempty"`
	Qualities      []string `json:"qualities,omitempty"`
	Languages      []string `json:"languages,omitempty"`
	DebridProvider string   `json:"debridProvider,omitempty"`
	TorBoxKey      string   `json:"torboxKey,omitempty"`
	MaxResults     int      `json:"maxResults,omitempty"`
}

// DefaultUserConfig enables every catalog without quality or language filters
func DefaultUserConfig() UserConfig {
	catalogs := make([]string, len(Catalogs))
	for i, c := range Catalogs {
		catalogs[i] = c.ID
	}
	return UserConfig{
		Catalogs:       catalogs,
		DebridProvider: "torbox",
	}
}

// ParseUserConfig decodes a base64 JSON configuration. Malformed input yields the default.
func ParseUserConfig(raw string) UserConfig {
	if raw == "" {
		return DefaultUserConfig()
	}
	if unescaped, err := url.PathUnescape(raw); err == nil {
		raw = unescaped
	}

	var decoded []byte
	var err error
	for _, enc := range []*base64.Encoding{base64.StdEncoding, base64.URLEncoding, base64.RawStdEncoding, base64.RawURLEncoding} {
		if decoded, err = enc.DecodeString(raw); err == nil {
			break
		}
	}
	if err != nil {
		return DefaultUserConfig()
	}

	var cfg UserConfig
	if err := json.Unmarshal(decoded, &cfg); err != nil {
		return DefaultUserConfig()
	}
	if len(cfg.Catalogs) == 0 {
		cfg.Catalogs = DefaultUserConfig().Catalogs
	}
	return cfg
}

// ResultLimit caps the number of magnets resolved per stream request
func (u UserConfig) ResultLimit(fallback int) int {
	if u.MaxResults > 0 {
		return u.MaxResults
	}
	return fallback
}

// ExtraField declares an optional catalog query parameter
type ExtraField struct {
	Name       string `json:"name"`
	IsRequired bool   `json:"isRequired"`
}

// CatalogDefinition is one catalog offered by the addon
type CatalogDefinition struct {
	Type  models.ContentType `json:"type"`
	ID    string             `json:"id"`
	Name  string             `json:"name"`
	Extra []ExtraField       `json:"extra"`
}

// Catalog identifiers
const (
	CatalogTamilMovies    = "tamil-movies"
	CatalogTamilMoviesHD  = "tamil-movies-hd"
	CatalogHollywoodMulti = "hollywood-multi"
	CatalogTamilSeries    = "tamil-series"
)

var catalogExtra = []ExtraField{{Name: "skip"}, {Name: "search"}}

// Catalogs lists every catalog in manifest order
var Catalogs = []CatalogDefinition{
	{Type: models.ContentTypeMovie, ID: CatalogTamilMovies, Name: "Tamil Movies", Extra: catalogExtra},
	{Type: models.ContentTypeMovie, ID: CatalogTamilMoviesHD, Name: "Tamil HD Movies", Extra: catalogExtra},
	{Type: models.ContentTypeMovie, ID: CatalogHollywoodMulti, Name: "Hollywood (Multi Audio)", Extra: catalogExtra},
	{Type: models.ContentTypeSeries, ID: CatalogTamilSeries, Name: "Tamil Series", Extra: catalogExtra},
}

// ManifestBehaviorHints advertises addon capabilities
type ManifestBehaviorHints struct {
	Adult                 bool `json:"adult"`
	Configurable          bool `json:"configurable"`
	ConfigurationRequired bool `json:"configurationRequired"`
}

// Manifest describes the addon to clients
type Manifest struct {
	ID            string                `json:"id"`
	Version       string                `json:"version"`
	Name          string                `json:"name"`
	Description   string                `json:"description"`
	Types         []models.ContentType  `json:"types"`
	Catalogs      []CatalogDefinition   `json:"catalogs"`
	Resources     []string              `json:"resources"`
	IDPrefixes    []string              `json:"idPrefixes"`
	BehaviorHints ManifestBehaviorHints `json:"behaviorHints"`
}

const addonDescription = "Tamil movies and series from 1TamilMV and 1TamilBlasters, streamed through TorBox"

// NewManifest returns the manifest with every catalog
func NewManifest(cfg *config.Config) Manifest {
	return Manifest{
		ID:          cfg.AddonID,
		Version:     cfg.AddonVersion,
		Name:        cfg.AddonName,
		Description: addonDescription,
		Types:       []models.ContentType{models.ContentTypeMovie, models.ContentTypeSeries},
		Catalogs:    Catalogs,
		Resources:   []string{"catalog", "stream", "meta"},
		IDPrefixes:  []string{"tt", strings.TrimSuffix(InternalIDPrefix, ":")},
		BehaviorHints: ManifestBehaviorHints{
			Configurable: true,
		},
	}
}

// ConfiguredManifest returns the manifest restricted to the user's catalogs.
// Unknown catalog ids are ignored; an empty selection keeps every catalog.
func ConfiguredManifest(cfg *config.Config, user UserConfig) Manifest {
	manifest := NewManifest(cfg)

	var catalogs []CatalogDefinition
	var types []models.ContentType
	seenType := make(map[models.ContentType]bool)
	for _, id := range user.Catalogs {
		def, ok := catalogByID(id)
		if !ok {
			continue
		}
		catalogs = append(catalogs, def)
		if !seenType[def.Type] {
			seenType[def.Type] = true
			types = append(types, def.Type)
		}
	}
	if len(catalogs) == 0 {
		return manifest
	}

	manifest.Catalogs = catalogs
	manifest.Types = types
	manifest.Description = fmt.Sprintf("%s - Configured with %d catalogs", addonDescription, len(catalogs))
	return manifest
}

func catalogByID(id string) (CatalogDefinition, bool) {
	for _, def := range Catalogs {
		if def.ID == id {
			return def, true
		}
	}
	return CatalogDefinition{}, false
}
