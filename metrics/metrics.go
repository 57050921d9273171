// Package metrics provides Prometheus metrics for scrape runs and the serve mode.
//
// Scrape run metrics:
//   - kalimati_scrape_rows, kalimati_scrape_records: size of the last run
//   - kalimati_mapping_entries, kalimati_mapping_new_entries, kalimati_mapping_untranslated
//   - kalimati_scrape_duration_seconds, kalimati_scrape_last_success_timestamp_seconds
//   - kalimati_scrape_failures_total: Counter with a stage label
//
// HTTP metrics, used by the serve mode:
//   - http_request_total: Counter with method, path, and status labels
//   - http_request_duration_seconds: Histogram with method and path labels
//   - http_request_in_flight: Gauge for concurrent requests
//
// All metrics are registered with the Prometheus default registry during
// package initialization. Run metrics are also registered with a dedicated
// registry written by WriteTextfile.
package metrics

import (
	"fmt"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
)

// Failure stages of a scrape run.
const (
	StageFetch       = "fetch"
	StageExtract     = "extract"
	StageMappingLoad = "mapping_load"
	StageMappingSave = "mapping_save"
	StageDiagnostics = "diagnostics"
	StageExport      = "export"
)

var (
	ScrapeRows = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "kalimati_scrape_rows",
			Help: "Table rows extracted by the last scrape",
		},
	)

	ScrapeRecords = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "kalimati_scrape_records",
			Help: "Records written by the last scrape",
		},
	)

	MappingEntries = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "kalimati_mapping_entries",
			Help: "Products in the Nepali to English mapping",
		},
	)

	MappingNewEntries = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "kalimati_mapping_new_entries",
			Help: "Products added to the mapping by the last scrape",
		},
	)

	MappingUntranslated = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "kalimati_mapping_untranslated",
			Help: "Products in the mapping without an English name",
		},
	)

	ScrapeDuration = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "kalimati_scrape_duration_seconds",
			Help: "Duration of the last scrape",
		},
	)

	ScrapeLastSuccess = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "kalimati_scrape_last_success_timestamp_seconds",
			Help: "Unix time of the last scrape that wrote an output file",
		},
	)

	ScrapeFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kalimati_scrape_failures_total",
			Help: "Scrape failures by stage",
		},
		[]string{"stage"},
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
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"method", "path"},
	)

	HTTPRequestInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_request_in_flight",
			Help: "Current in-flight requests",
		},
	)

	RateLimiterBucketsTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "rate_limiter_buckets_total",
			Help: "Total number of rate limiter buckets (IPs seen in last ~5 minutes)",
		},
	)
)

// runRegistry holds only the scrape run metrics, for the textfile collector
var runRegistry = prometheus.NewRegistry()

func init() {
	runCollectors := []prometheus.Collector{
		ScrapeRows,
		ScrapeRecords,
		MappingEntries,
		MappingNewEntries,
		MappingUntranslated,
		ScrapeDuration,
		ScrapeLastSuccess,
		ScrapeFailures,
	}
	for _, c := range runCollectors {
		prometheus.MustRegister(c)
		runRegistry.MustRegister(c)
	}

	prometheus.MustRegister(HTTPRequestTotals)
	prometheus.MustRegister(HTTPRequestDuration)
	prometheus.MustRegister(HTTPRequestInFlight)
	prometheus.MustRegister(RateLimiterBucketsTotal)
}

// RecordFailure counts a failed stage of a scrape run.
func RecordFailure(stage string) {
	ScrapeFailures.WithLabelValues(stage).Inc()
}

// WriteTextfile writes the run metrics in the text exposition format for the
// node_exporter textfile collector. The file name must end in .prom.
func WriteTextfile(path string) error {
	if filepath.Ext(path) != ".prom" {
		return fmt.Errorf("metrics textfile %s must have a .prom extension", path)
	}
	if err := prometheus.WriteToTextfile(path, runRegistry); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	return nil
}
