package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/amaumene/tamilarr/internal/config"
	"github.com/amaumene/tamilarr/internal/models"
)

// ScrapeRunner scrapes one source at a time
type ScrapeRunner interface {
	Sources() []models.Source
	ScrapeOnce(ctx context.Context, source models.Source) ([]models.ContentItem, error)
}

// WorkerRunner runs one background resolution tick
type WorkerRunner interface {
	Enabled() bool
	RunOnce(ctx context.Context) (int, bool)
}

// Scheduler manages scheduled tasks
type Scheduler struct {
	cron           *cron.Cron
	chain          cron.Chain
	jobs           map[models.Source]cron.Job
	scrape         ScrapeRunner
	worker         WorkerRunner
	intervals      map[models.Source]time.Duration
	workerInterval time.Duration
	logger         zerolog.Logger

	ctx     context.Context
	cancel  context.CancelFunc
	initial sync.WaitGroup
}

// NewScheduler creates a new scheduler
func NewScheduler(cfg *config.Config, scrape ScrapeRunner, worker WorkerRunner, logger zerolog.Logger) *Scheduler {
	logger = logger.With().Str("component", "scheduler").Logger()
	cronLogger := cronLogAdapter{logger: logger}

	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron: cron.New(),
		// Jobs are wrapped once so the initial run and the ticks share one guard
		chain: cron.NewChain(
			cron.Recover(cronLogger),
			cron.SkipIfStillRunning(cronLogger),
		),
		jobs:   make(map[models.Source]cron.Job),
		scrape: scrape,
		worker: worker,
		intervals: map[models.Source]time.Duration{
			models.SourceTamilMV:       cfg.RSSScrapeInterval,
			models.SourceTamilBlasters: cfg.TamilBlastersScrapeInterval,
		},
		workerInterval: cfg.WorkerInterval,
		logger:         logger,
		ctx:            ctx,
		cancel:         cancel,
	}
}

// Start registers the jobs, starts the cron loop and kicks off an initial scrape
func (s *Scheduler) Start() error {
	s.logger.Info().Msg("Starting scheduler")

	// Scrape every source on its own cadence
	for _, source := range s.scrape.Sources() {
		source := source
		interval, ok := s.intervals[source]
		if !ok || interval <= 0 {
			return fmt.Errorf("no scrape interval for source %s", source)
		}
		job := s.chain.Then(cron.FuncJob(func() { s.runScrape(source) }))
		if _, err := s.cron.AddJob(every(interval), job); err != nil {
			return fmt.Errorf("failed to add %s scrape job: %w", source, err)
		}
		s.jobs[source] = job
	}

	// Background resolution only runs with a debrid credential
	if s.worker.Enabled() {
		if _, err := s.cron.AddJob(every(s.workerInterval), s.chain.Then(cron.FuncJob(s.runWorker))); err != nil {
			return fmt.Errorf("failed to add worker job: %w", err)
		}
	} else {
		s.logger.Info().Msg("No debrid credential, background resolution disabled")
	}

	s.cron.Start()
	s.logger.Info().Int("jobs", len(s.cron.Entries())).Msg("Scheduler started")

	// Run the initial scrape immediately, through the same guarded jobs
	s.initial.Add(1)
	go func() {
		defer s.initial.Done()
		for _, source := range s.scrape.Sources() {
			s.jobs[source].Run()
		}
	}()

	return nil
}

// Stop stops the scheduler and waits for running jobs
func (s *Scheduler) Stop() {
	s.logger.Info().Msg("Stopping scheduler")
	s.cancel()
	<-s.cron.Stop().Done()
	s.initial.Wait()
}

// runScrape executes one scrape job
func (s *Scheduler) runScrape(source models.Source) {
	logger := s.logger.With().Str("source", string(source)).Logger()
	logger.Debug().Msg("Running scheduled scrape")

	items, err := s.scrape.ScrapeOnce(s.ctx, source)
	if err != nil {
		logger.Error().Err(err).Msg("Scrape job failed")
		return
	}
	logger.Info().Int("count", len(items)).Msg("Scrape job completed")
}

// runWorker executes one worker tick
func (s *Scheduler) runWorker() {
	processed, ran := s.worker.RunOnce(s.ctx)
	if !ran {
		s.logger.Debug().Msg("Worker tick skipped")
		return
	}
	s.logger.Debug().Int("processed", processed).Msg("Worker tick completed")
}

func every(d time.Duration) string {
	return "@every " + d.String()
}

// cronLogAdapter routes cron's own logging through zerolog
type cronLogAdapter struct {
	logger zerolog.Logger
}

func (a cronLogAdapter) Info(msg string, keysAndValues ...interface{}) {
	a.logger.Debug().Fields(keysAndValues).Msg(msg)
}

func (a cronLogAdapter) Error(err error, msg string, keysAndValues ...interface{}) {
	a.logger.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
