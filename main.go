package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/giygas/kalimati-scraper/config"
	"github.com/giygas/kalimati-scraper/data"
	"github.com/giygas/kalimati-scraper/logging"
	"github.com/giygas/kalimati-scraper/marketparser"
	"github.com/giygas/kalimati-scraper/pipeline"
	"github.com/giygas/kalimati-scraper/server"
	"golang.org/x/sync/errgroup"
)

func main() {
	output := flag.String("output", "", "output file name inside DATA_DIR (overrides OUTPUT_FILE)")
	serve := flag.Bool("serve", false, "serve the latest scrape over HTTP instead of scraping")
	xlsx := flag.Bool("xlsx", false, "also write an XLSX copy of the records")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if *output != "" {
		if err := config.ValidateOutputFile(*output); err != nil {
			fmt.Fprintf(os.Stderr, "Invalid -output: %v\n", err)
			os.Exit(1)
		}
		cfg.OutputFile = *output
	}
	if *xlsx {
		cfg.ExportXLSX = true
	}

	logger, closer := logging.New(cfg)
	defer func() { _ = closer.Close() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if *serve {
		if err := runServer(ctx, cfg, logger); err != nil {
			logger.Error("Server failed", "error", err)
			_ = closer.Close()
			os.Exit(1)
		}
		return
	}

	runScrape(ctx, cfg, logger)
}

// runScrape performs one scrape. Failures are logged and the exit code stays 0.
func runScrape(ctx context.Context, cfg *config.Config, logger *slog.Logger) {
	result, err := pipeline.NewFromConfig(cfg, logger).Run(ctx)
	switch {
	case errors.Is(err, marketparser.ErrFetch):
		logger.Error("Could not fetch the market page, no data written", "error", err)
	case err != nil:
		logger.Error("Scrape failed", "error", err)
	default:
		logger.Info("Data saved", "path", result.OutputPath, "records", result.Records)
	}
}

func runServer(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	container := data.NewSnapshotContainer(logger)
	srv := server.NewServer(cfg, container, logger)

	reload := make(chan os.Signal, 1)
	signal.Notify(reload, syscall.SIGHUP)
	defer signal.Stop(reload)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.Start(gctx) })
	g.Go(func() error {
		srv.WatchReload(gctx, reload)
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
