package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// DefaultRSSFeeds are the forum feeds scraped when RSS_FEEDS is not set
var DefaultRSSFeeds = []string{
	"https://www.1tamilmv.fi/index.php?/forums/forum/10-predvd-dvdscr-cam-tc.xml",
	"https://www.1tamilmv.fi/index.php?/forums/forum/11-web-hd-itunes-hd-bluray.xml",
	"https://www.1tamilmv.fi/index.php?/forums/forum/12-hd-rips-dvd-rips-br-rips.xml",
	"https://www.1tamilmv.fi/index.php?/forums/forum/17-hollywood-movies-in-multi-audios.xml",
	"https://www.1tamilmv.fi/index.php?/forums/forum/14-hdtv-sdtv-hdtv-rips.xml",
	"https://www.1tamilmv.fi/index.php?/forums/forum/19-web-series-tv-shows.xml",
}

// Config holds all application configuration
type Config struct {
	// API credentials, all optional
	TorBoxAPIKey string
	OMDbAPIKey   string
	FanartAPIKey string

	// Sources
	RSSFeeds         []string
	TamilBlastersURL string

	// Scrape cadence
	RSSScrapeInterval           time.Duration
	TamilBlastersScrapeInterval time.Duration

	// Cache lifetimes
	StreamCacheTTL   time.Duration
	MetadataCacheTTL time.Duration

	// Background worker
	WorkerInterval  time.Duration
	WorkerBatchSize int
	WorkerItemDelay time.Duration

	// Resolution
	ResolvePollInterval time.Duration
	ResolvePollAttempts int
	StreamLinkTTL       time.Duration
	MaxResults          int

	// Addon manifest
	AddonID      string
	AddonName    string
	AddonVersion string

	// Server
	ServerPort string

	// Paths
	BlacklistFile string // $CONFIG_DIR/blacklist.txt
	DatabaseFile  string // $CONFIG_DIR/tamilarr.db

	// Logging
	LogLevel string
}

// Load loads configuration from environment variables and .env file
func Load() (*Config, error) {
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")
	viper.AutomaticEnv()

	// .env is optional
	_ = viper.ReadInConfig()

	setDefaults()

	configDir := viper.GetString("CONFIG_DIR")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		configDir = filepath.Join(homeDir, ".config", "tamilarr")
	} else {
		absPath, err := filepath.Abs(configDir)
		if err != nil {
			return nil, fmt.Errorf("failed to get absolute path for CONFIG_DIR: %w", err)
		}
		configDir = absPath
	}

	if err := os.MkdirAll(configDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	config := &Config{
		TorBoxAPIKey: viper.GetString("TORBOX_API_KEY"),
		OMDbAPIKey:   viper.GetString("OMDB_API_KEY"),
		FanartAPIKey: viper.GetString("FANART_API_KEY"),

		RSSFeeds:         splitList(viper.GetString("RSS_FEEDS")),
		TamilBlastersURL: viper.GetString("TAMILBLASTERS_URL"),

		RSSScrapeInterval:           viper.GetDuration("RSS_SCRAPE_INTERVAL"),
		TamilBlastersScrapeInterval: viper.GetDuration("TAMILBLASTERS_SCRAPE_INTERVAL"),

		StreamCacheTTL:   viper.GetDuration("STREAM_CACHE_TTL"),
		MetadataCacheTTL: viper.GetDuration("METADATA_CACHE_TTL"),

		WorkerInterval:  viper.GetDuration("WORKER_INTERVAL"),
		WorkerBatchSize: viper.GetInt("WORKER_BATCH_SIZE"),
		WorkerItemDelay: viper.GetDuration("WORKER_ITEM_DELAY"),

		ResolvePollInterval: viper.GetDuration("RESOLVE_POLL_INTERVAL"),
		ResolvePollAttempts: viper.GetInt("RESOLVE_POLL_ATTEMPTS"),
		StreamLinkTTL:       viper.GetDuration("STREAM_LINK_TTL"),
		MaxResults:          viper.GetInt("MAX_RESULTS"),

		AddonID:      viper.GetString("ADDON_ID"),
		AddonName:    viper.GetString("ADDON_NAME"),
		AddonVersion: viper.GetString("ADDON_VERSION"),

		ServerPort: viper.GetString("SERVER_PORT"),

		BlacklistFile: filepath.Join(configDir, "blacklist.txt"),
		DatabaseFile:  filepath.Join(configDir, "tamilarr.db"),

		LogLevel: viper.GetString("LOG_LEVEL"),
	}

	if len(config.RSSFeeds) == 0 {
		config.RSSFeeds = DefaultRSSFeeds
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func setDefaults() {
	viper.SetDefault("TAMILBLASTERS_URL", "https://www.1tamilblasters.fi")
	viper.SetDefault("RSS_SCRAPE_INTERVAL", "30m")
	viper.SetDefault("TAMILBLASTERS_SCRAPE_INTERVAL", "10m")
	viper.SetDefault("STREAM_CACHE_TTL", "5m")
	viper.SetDefault("METADATA_CACHE_TTL", "1h")
	viper.SetDefault("WORKER_INTERVAL", "60s")
	viper.SetDefault("WORKER_BATCH_SIZE", 20)
	viper.SetDefault("WORKER_ITEM_DELAY", "500ms")
	viper.SetDefault("RESOLVE_POLL_INTERVAL", "2s")
	viper.SetDefault("RESOLVE_POLL_ATTEMPTS", 3)
	viper.SetDefault("STREAM_LINK_TTL", "4h")
	viper.SetDefault("MAX_RESULTS", 10)
	viper.SetDefault("ADDON_ID", "community.tamilarr")
	viper.SetDefault("ADDON_NAME", "Tamilarr")
	viper.SetDefault("ADDON_VERSION", "1.0.0")
	viper.SetDefault("SERVER_PORT", "5000")
	viper.SetDefault("LOG_LEVEL", "info")
}

// Validate rejects settings the scheduler and worker cannot run with.
// Missing API keys are accepted: the features that need them stay inert.
func (c *Config) Validate() error {
	intervals := map[string]time.Duration{
		"RSS_SCRAPE_INTERVAL":           c.RSSScrapeInterval,
		"TAMILBLASTERS_SCRAPE_INTERVAL": c.TamilBlastersScrapeInterval,
		"WORKER_INTERVAL":               c.WorkerInterval,
		"STREAM_CACHE_TTL":              c.StreamCacheTTL,
		"METADATA_CACHE_TTL":            c.MetadataCacheTTL,
		"RESOLVE_POLL_INTERVAL":         c.ResolvePollInterval,
		"STREAM_LINK_TTL":               c.StreamLinkTTL,
	}
	for key, value := range intervals {
		if value <= 0 {
			return fmt.Errorf("%s must be a positive duration", key)
		}
	}
	if c.WorkerBatchSize <= 0 {
		return fmt.Errorf("WORKER_BATCH_SIZE must be positive")
	}
	if c.ResolvePollAttempts <= 0 {
		return fmt.Errorf("RESOLVE_POLL_ATTEMPTS must be positive")
	}
	if c.MaxResults <= 0 {
		return fmt.Errorf("MAX_RESULTS must be positive")
	}
	if c.WorkerItemDelay < 0 {
		return fmt.Errorf("WORKER_ITEM_DELAY must not be negative")
	}
	return nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
