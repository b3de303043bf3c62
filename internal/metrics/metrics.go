// Package metrics holds the prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ScrapedItems = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tamilarr_scraped_items_total",
		Help: "Content items accepted from a scrape, by source.",
	}, []string{"source"})

	ScrapeDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "tamilarr_scrape_duration_seconds",
		Help:    "Duration of a full scrape of one source.",
		Buckets: []float64{1, 5, 15, 30, 60, 120, 300},
	}, []string{"source"})

	DebridRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tamilarr_debrid_requests_total",
		Help: "Debrid API calls, by operation and result.",
	}, []string{"operation", "result"})

	Resolutions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tamilarr_resolutions_total",
		Help: "Resolution outcomes, by status.",
	}, []string{"status"})

	WorkerTicks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tamilarr_worker_ticks_total",
		Help: "Background worker ticks, by outcome (ran or skipped).",
	}, []string{"outcome"})

	CacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tamilarr_cache_lookups_total",
		Help: "Content cache lookups, by kind and result.",
	}, []string{"kind", "result"})
)

// Result labels
const (
	ResultOK    = "ok"
	ResultError = "error"
	ResultHit   = "hit"
	ResultMiss  = "miss"
)
