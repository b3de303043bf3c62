// Package app assembles the application graph.
package app

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/google/wire"
	"github.com/rs/zerolog"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/amaumene/tamilarr/internal/api"
	"github.com/amaumene/tamilarr/internal/api/handlers"
	"github.com/amaumene/tamilarr/internal/cache"
	"github.com/amaumene/tamilarr/internal/config"
	"github.com/amaumene/tamilarr/internal/controllers"
	"github.com/amaumene/tamilarr/internal/models"
	"github.com/amaumene/tamilarr/internal/scheduler"
	"github.com/amaumene/tamilarr/internal/services/fanart"
	"github.com/amaumene/tamilarr/internal/services/metadata"
	"github.com/amaumene/tamilarr/internal/services/omdb"
	"github.com/amaumene/tamilarr/internal/services/scraper"
	"github.com/amaumene/tamilarr/internal/services/torbox"
	"github.com/amaumene/tamilarr/internal/utils"
)

// App holds the long-lived components the commands run
type App struct {
	Config    *config.Config
	Logger    zerolog.Logger
	Scrape    *controllers.ScrapeController
	Worker    *controllers.ResolveWorker
	Scheduler *scheduler.Scheduler
	Server    *api.Server
	Tracer    *sdktrace.TracerProvider
}

// ProviderSet is the full dependency graph
var ProviderSet = wire.NewSet(
	ProvideLogger,
	ProvideTracerProvider,
	ProvideDatabase,
	ProvideCache,
	ProvideBlacklist,
	ProvideScrapers,
	ProvideTorBox,
	ProvideOMDb,
	ProvideFanart,
	metadata.NewResolver,
	wire.Bind(new(metadata.TitleProvider), new(*omdb.Client)),
	wire.Bind(new(metadata.ArtworkProvider), new(*fanart.Client)),

	controllers.NewResolveController,
	controllers.NewResolveWorker,
	controllers.NewScrapeController,
	controllers.NewCatalogController,
	controllers.NewMetaController,
	controllers.NewStreamController,
	controllers.NewHealthController,
	wire.Bind(new(controllers.DebridClient), new(*torbox.Client)),
	wire.Bind(new(controllers.StreamCache), new(*cache.Cache)),
	wire.Bind(new(controllers.StreamStore), new(*models.Database)),
	wire.Bind(new(controllers.PendingStore), new(*models.Database)),
	wire.Bind(new(controllers.ContentStore), new(*models.Database)),
	wire.Bind(new(controllers.IngestStore), new(*models.Database)),
	wire.Bind(new(controllers.MagnetLookup), new(*models.Database)),
	wire.Bind(new(controllers.StatsStore), new(*models.Database)),
	wire.Bind(new(controllers.MetadataResolver), new(*metadata.Resolver)),
	wire.Bind(new(controllers.Resolver), new(*controllers.ResolveController)),
	wire.Bind(new(controllers.BatchResolver), new(*controllers.ResolveController)),
	wire.Bind(new(controllers.ScrapeTimes), new(*controllers.ScrapeController)),

	scheduler.NewScheduler,
	wire.Bind(new(scheduler.ScrapeRunner), new(*controllers.ScrapeController)),
	wire.Bind(new(scheduler.WorkerRunner), new(*controllers.ResolveWorker)),

	handlers.NewAddonHandler,
	handlers.NewHealthHandler,
	handlers.NewStatusHandler,
	handlers.NewScrapeHandler,
	wire.Bind(new(handlers.CatalogService), new(*controllers.CatalogController)),
	wire.Bind(new(handlers.MetaService), new(*controllers.MetaController)),
	wire.Bind(new(handlers.StreamService), new(*controllers.StreamController)),
	wire.Bind(new(handlers.HealthService), new(*controllers.HealthController)),
	wire.Bind(new(handlers.ScrapeService), new(*controllers.ScrapeController)),
	api.NewServer,

	wire.Struct(new(App), "*"),
)

// ProvideLogger builds the root logger
func ProvideLogger(cfg *config.Config) zerolog.Logger {
	logger := utils.NewLogger(cfg.LogLevel)
	logger.Info().Str("config_dir", filepath.Dir(cfg.DatabaseFile)).Msg("Configuration loaded")
	return logger
}

// ProvideTracerProvider installs the tracer provider and flushes it on cleanup
func ProvideTracerProvider(cfg *config.Config, logger zerolog.Logger) (*sdktrace.TracerProvider, func()) {
	tp := utils.NewTracerProvider(cfg.AddonName)
	return tp, func() {
		if err := tp.Shutdown(context.Background()); err != nil {
			logger.Warn().Err(err).Msg("Failed to shut down tracer provider")
		}
	}
}

// ProvideDatabase opens the content store
func ProvideDatabase(cfg *config.Config, logger zerolog.Logger) (*models.Database, func(), error) {
	db, err := models.NewDatabase(cfg.DatabaseFile)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	logger.Info().Str("path", cfg.DatabaseFile).Msg("Database initialized")
	return db, func() {
		if err := db.Close(); err != nil {
			logger.Warn().Err(err).Msg("Failed to close database")
		}
	}, nil
}

// ProvideCache sizes the content cache from the configured cadences
func ProvideCache(cfg *config.Config) *cache.Cache {
	return cache.New(cache.TTLs{
		RSS:       cfg.RSSScrapeInterval,
		Secondary: cfg.TamilBlastersScrapeInterval,
		Stream:    cfg.StreamCacheTTL,
		Metadata:  cfg.MetadataCacheTTL,
		Mapping:   cfg.MetadataCacheTTL,
	})
}

// ProvideBlacklist loads the blacklist, continuing without one on failure
func ProvideBlacklist(cfg *config.Config, logger zerolog.Logger) *utils.Blacklist {
	blacklist, err := utils.LoadBlacklist(cfg.BlacklistFile)
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to load blacklist, continuing without it")
		return utils.NewBlacklist()
	}
	logger.Info().Int("terms", blacklist.Len()).Msg("Blacklist loaded")
	return blacklist
}

// ProvideScrapers builds one scraper per source sharing a fetcher
func ProvideScrapers(cfg *config.Config, logger zerolog.Logger) []controllers.Scraper {
	fetcher := scraper.NewHTTPFetcher(logger)
	return []controllers.Scraper{
		scraper.NewRSSScraper(fetcher, cfg.RSSFeeds, logger),
		scraper.NewTamilBlastersScraper(fetcher, cfg.TamilBlastersURL, logger),
	}
}

// ProvideTorBox builds the debrid client
func ProvideTorBox(cfg *config.Config, logger zerolog.Logger) *torbox.Client {
	return torbox.NewClient(cfg, logger)
}

// ProvideOMDb builds the title provider
func ProvideOMDb(cfg *config.Config, logger zerolog.Logger) *omdb.Client {
	return omdb.NewClient(cfg, logger)
}

// ProvideFanart builds the artwork provider
func ProvideFanart(cfg *config.Config, logger zerolog.Logger) *fanart.Client {
	return fanart.NewClient(cfg, logger)
}
