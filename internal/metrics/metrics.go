// Package metrics declares the process-wide Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Scrape and model outcome label values.
const (
	OutcomeOK          = "ok"
	OutcomeFailed      = "failed"
	OutcomeFallback    = "fallback"
	OutcomeUnavailable = "unavailable"
	OutcomeParseError  = "parse_error"
)

var (
	ScrapeRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "advisor_scrape_runs_total",
			Help: "Total number of scraper runs by source and result status",
		},
		[]string{"source", "status"},
	)

	ScrapeItems = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "advisor_scrape_items",
			Help: "Number of items held in the latest snapshot per source",
		},
		[]string{"source"},
	)

	ScrapeDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "advisor_scrape_duration_seconds",
			Help: "Duration of scraper runs in seconds",
		},
		[]string{"source"},
	)

	ModelCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "advisor_model_calls_total",
			Help: "Total number of language model calls by call site and outcome",
		},
		[]string{"call_site", "outcome"},
	)

	ModelRateLimitRetries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "advisor_model_rate_limit_retries_total",
			Help: "Total number of rate-limit backoff waits before model calls",
		},
	)

	ScheduledJobRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "advisor_scheduled_job_runs_total",
			Help: "Total number of scheduled job runs by job name",
		},
		[]string{"job"},
	)

	ScheduledJobFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "advisor_scheduled_job_failures_total",
			Help: "Total number of scheduled job runs that returned an error",
		},
		[]string{"job"},
	)
)
