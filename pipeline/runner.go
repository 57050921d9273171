// Package pipeline runs one complete scrape: fetch, extract, update the
// product mapping, transform, report and persist.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/giygas/kalimati-scraper/config"
	"github.com/giygas/kalimati-scraper/export"
	"github.com/giygas/kalimati-scraper/interfaces"
	"github.com/giygas/kalimati-scraper/mapping"
	"github.com/giygas/kalimati-scraper/marketparser"
	"github.com/giygas/kalimati-scraper/metrics"
	"github.com/giygas/kalimati-scraper/validation"
	"github.com/google/uuid"
)

// Result describes a finished run.
type Result struct {
	RunID       string
	Rows        int
	NewMappings int
	Records     int
	OutputPath  string
	Report      *interfaces.QualityReport
	Duration    time.Duration
}

// Runner wires the scrape components together. It is used once per process
// but may be run again; every run reloads the mapping.
type Runner struct {
	fetcher     interfaces.PageFetcher
	extractor   interfaces.TableExtractor
	store       interfaces.MappingStore
	transformer interfaces.RecordTransformer
	validator   interfaces.RecordValidator
	exporter    interfaces.RecordExporter
	extra       []interfaces.RecordExporter
	outputFile  string
	metricsFile string
	logger      *slog.Logger
}

// Option customizes a Runner
type Option func(*Runner)

// WithOutputFile overrides the timestamped output file name.
func WithOutputFile(name string) Option {
	return func(r *Runner) { r.outputFile = name }
}

// WithExtraExporter adds an exporter that writes a copy of the output, such as a spreadsheet.
// Its failures are logged and do not fail the run.
func WithExtraExporter(e interfaces.RecordExporter) Option {
	return func(r *Runner) { r.extra = append(r.extra, e) }
}

// WithMetricsTextfile writes the run metrics to path when the run ends.
func WithMetricsTextfile(path string) Option {
	return func(r *Runner) { r.metricsFile = path }
}

// NewRunner creates a runner from its components
func NewRunner(
	fetcher interfaces.PageFetcher,
	extractor interfaces.TableExtractor,
	store interfaces.MappingStore,
	transformer interfaces.RecordTransformer,
	validator interfaces.RecordValidator,
	exporter interfaces.RecordExporter,
	logger *slog.Logger,
	opts ...Option,
) *Runner {
	r := &Runner{
		fetcher:     fetcher,
		extractor:   extractor,
		store:       store,
		transformer: transformer,
		validator:   validator,
		exporter:    exporter,
		logger:      logger,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// NewFromConfig builds the production runner for cfg
func NewFromConfig(cfg *config.Config, logger *slog.Logger) *Runner {
	opts := []Option{
		WithOutputFile(cfg.OutputFile),
		WithMetricsTextfile(cfg.MetricsFile),
	}
	if cfg.ExportXLSX {
		opts = append(opts, WithExtraExporter(export.NewXLSXExporter(cfg.DataDir, logger)))
	}

	return NewRunner(
		marketparser.NewFetcher(cfg, logger),
		marketparser.NewExtractor(logger),
		mapping.NewStoreInDir(cfg.DataDir, logger),
		marketparser.NewTransformer(logger),
		validation.NewRecordValidator(),
		export.NewJSONExporter(cfg.DataDir, logger),
		logger,
		opts...,
	)
}

// Run performs one scrape. A fetch failure returns an error wrapping
// marketparser.ErrFetch and writes nothing. A missing table is logged and
// produces an empty output file. Mapping and diagnostics failures are logged
// and never stop the run; only a failure to write the output is returned.
func (r *Runner) Run(ctx context.Context) (*Result, error) {
	start := time.Now()
	result := &Result{RunID: uuid.NewString()}
	logger := r.logger.With("run_id", result.RunID)

	logger.Info("Starting Kalimati Market scraper...")
	defer r.finish(logger, result, start)

	doc, err := r.fetcher.Fetch(ctx)
	if err != nil {
		metrics.RecordFailure(metrics.StageFetch)
		logger.Error("Failed to fetch the website", "error", err)
		return result, err
	}

	rows, err := r.extractor.Extract(doc)
	if err != nil {
		metrics.RecordFailure(metrics.StageExtract)
		if errors.Is(err, marketparser.ErrTableNotFound) {
			logger.Warn("Price table not found, continuing with an empty dataset", "error", err)
		} else {
			logger.Error("Failed to extract the price table", "error", err)
		}
	}
	result.Rows = len(rows)

	if len(rows) > 0 {
		logger.Info("Successfully scraped items", "rows", len(rows))
	} else {
		logger.Warn("No data was scraped.")
	}

	if err := r.store.Load(); err != nil {
		metrics.RecordFailure(metrics.StageMappingLoad)
	}
	result.NewMappings = r.store.Merge(rows)
	if _, err := r.store.Save(); err != nil {
		metrics.RecordFailure(metrics.StageMappingSave)
	}
	if err := r.store.WriteDiagnostics(rows); err != nil {
		metrics.RecordFailure(metrics.StageDiagnostics)
	}

	records := r.transformer.Transform(rows, r.store.Mapping())
	result.Records = len(records)

	result.Report = r.validator.ReportDataQuality(records)
	logReport(logger, result.Report)

	path, err := r.exporter.Export(records, r.outputFile)
	if err != nil {
		metrics.RecordFailure(metrics.StageExport)
		return result, fmt.Errorf("failed to save output: %w", err)
	}
	result.OutputPath = path

	for _, e := range r.extra {
		if _, err := e.Export(records, filepath.Base(path)); err != nil {
			metrics.RecordFailure(metrics.StageExport)
			logger.Warn("Failed to write additional export", "error", err)
		}
	}

	metrics.ScrapeLastSuccess.SetToCurrentTime()
	return result, nil
}

// finish publishes the run gauges and the optional textfile
func (r *Runner) finish(logger *slog.Logger, result *Result, start time.Time) {
	result.Duration = time.Since(start)

	metrics.ScrapeRows.Set(float64(result.Rows))
	metrics.ScrapeRecords.Set(float64(result.Records))
	metrics.MappingEntries.Set(float64(r.store.Len()))
	metrics.MappingNewEntries.Set(float64(result.NewMappings))
	metrics.MappingUntranslated.Set(float64(len(r.store.Untranslated())))
	metrics.ScrapeDuration.Set(result.Duration.Seconds())

	if r.metricsFile != "" {
		if err := metrics.WriteTextfile(r.metricsFile); err != nil {
			logger.Warn("Failed to write metrics textfile", "path", r.metricsFile, "error", err)
		}
	}

	logger.Info("Scrape completed",
		"duration", result.Duration.String(),
		"rows", result.Rows,
		"records", result.Records,
		"new_mappings", result.NewMappings,
		"output", result.OutputPath,
	)
}

func logReport(logger *slog.Logger, report *interfaces.QualityReport) {
	if report == nil {
		return
	}

	if len(report.ZeroPriceNames) > 0 {
		logger.Warn("Records without any price",
			"count", len(report.ZeroPriceNames),
			"names", report.ZeroPriceNames,
		)
	}

	if len(report.InvertedRanges) > 0 {
		logger.Warn("Records with average outside the min/max range",
			"count", len(report.InvertedRanges),
			"names", report.InvertedRanges,
		)
	}

	if len(report.DuplicateNames) > 0 {
		logger.Warn("Duplicate product names detected",
			"count", len(report.DuplicateNames),
			"names", report.DuplicateNames,
		)
	}

	if len(report.Untranslated) > 0 {
		logger.Warn("Products without English translation",
			"count", len(report.Untranslated),
		)
	}

	logger.Info("Data quality report",
		"total", report.TotalRecords,
		"invalid", report.InvalidRecords,
		"mean_average", report.MeanAverage,
		"median_average", report.MedianAverage,
	)
}
