// Package metrics provides Prometheus metrics for the scraper.
// Pipeline metrics:
//   - scraper_runs_total: Counter with status label (success, failure)
//   - scraper_run_duration_seconds: Histogram of complete runs
//   - scraper_records: Gauge with source label, records of the last successful run
//   - scraper_nucc_strategy_total: Counter with strategy label (csv, discovered_csv, html)
//   - scraper_upstream_requests_total: Counter with host and outcome labels
//   - scraper_upstream_request_duration_seconds: Histogram with host label
//
// HTTP server metrics:
//   - http_request_total, http_request_duration_seconds, http_request_in_flight
//
// All metrics are registered with the Prometheus default registry
// during package initialization.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	RunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scraper_runs_total",
			Help: "Total pipeline runs by outcome",
		},
		[]string{"status"},
	)

	RunDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "scraper_run_duration_seconds",
			Help:    "Duration of complete pipeline runs",
			Buckets: []float64{1, 2.5, 5, 10, 30, 60, 120, 300},
		},
	)

	RecordsScraped = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "scraper_records",
			Help: "Records produced by the last successful run",
		},
		[]string{"source"},
	)

	NUCCStrategyTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scraper_nucc_strategy_total",
			Help: "NUCC scrapes by the strategy that succeeded",
		},
		[]string{"strategy"},
	)

	UpstreamRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scraper_upstream_requests_total",
			Help: "Requests to upstream sources by outcome",
		},
		[]string{"host", "outcome"},
	)

	UpstreamRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "scraper_upstream_request_duration_seconds",
			Help:    "Latency of requests to upstream sources",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"host"},
	)

	HTTPRequestTotals = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_request_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 30, 120},
		},
		[]string{"method", "path"},
	)

	HTTPRequestInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_request_in_flight",
			Help: "Current in-flight requests",
		},
	)
)

func init() {
	prometheus.MustRegister(
		RunsTotal,
		RunDuration,
		RecordsScraped,
		NUCCStrategyTotal,
		UpstreamRequestsTotal,
		UpstreamRequestDuration,
		HTTPRequestTotals,
		HTTPRequestDuration,
		HTTPRequestInFlight,
	)
}
