// Package logging builds the structured loggers used across the scraper.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/giygas/kalimati-scraper/config"
)

// filePrefix names the rotating log files, e.g. scraper-2026-W42.log
const filePrefix = "scraper"

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// New configures a logger that writes text to stdout and JSON to a weekly rotating file.
// If the log directory cannot be used it falls back to the console only.
// The returned closer releases the log file.
func New(cfg *config.Config) (*slog.Logger, io.Closer) {
	consoleHandler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: GetConsoleLogLevel(cfg.Env, cfg.LogLevel, false),
	})

	if err := os.MkdirAll(cfg.LogDir, 0755); err != nil {
		logger := slog.New(consoleHandler)
		logger.Error("Failed to create logs directory", "dir", cfg.LogDir, "error", err)
		return logger, nopCloser{}
	}

	rotating := NewRotatingFile(cfg.LogDir, filePrefix, cfg.LogRetentionWeeks, cfg.MaxLogFileSize)

	fileHandler := slog.NewJSONHandler(rotating, &slog.HandlerOptions{
		Level: GetFileLogLevel(),
	})

	logger := slog.New(&multiHandler{
		handlers: []slog.Handler{consoleHandler, fileHandler},
	})

	if deleted, err := rotating.Cleanup(); err != nil {
		logger.Warn("Failed to cleanup old logs", "error", err)
	} else if deleted > 0 {
		logger.Info("Cleaned up old log files", "count", deleted)
	}

	return logger, rotating
}

// parseLogLevel converts a level name to a slog.Level, defaulting to info
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// GetConsoleLogLevel picks the console level. Tests stay quiet unless verbose,
// an explicit LOG_LEVEL wins elsewhere, and staging/prod default to warn.
func GetConsoleLogLevel(env config.Environment, logLevel string, verbose bool) slog.Level {
	if env == config.EnvTest {
		if verbose {
			return slog.LevelInfo
		}
		return slog.LevelError
	}

	if logLevel != "" {
		return parseLogLevel(logLevel)
	}

	switch env {
	case config.EnvProduction, config.EnvStaging:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}

// GetFileLogLevel returns the level for the rotating file; it keeps everything
func GetFileLogLevel() slog.Level {
	return slog.LevelDebug
}

// multiHandler fans records out to several handlers
type multiHandler struct {
	handlers []slog.Handler
}

func (m *multiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range m.handlers {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (m *multiHandler) Handle(ctx context.Context, r slog.Record) error {
	for _, h := range m.handlers {
		if h.Enabled(ctx, r.Level) {
			if err := h.Handle(ctx, r.Clone()); err != nil {
				return err
			}
		}
	}
	return nil
}

func (m *multiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	newHandlers := make([]slog.Handler, len(m.handlers))
	for i, h := range m.handlers {
		newHandlers[i] = h.WithAttrs(attrs)
	}
	return &multiHandler{handlers: newHandlers}
}

func (m *multiHandler) WithGroup(name string) slog.Handler {
	newHandlers := make([]slog.Handler, len(m.handlers))
	for i, h := range m.handlers {
		newHandlers[i] = h.WithGroup(name)
	}
	return &multiHandler{handlers: newHandlers}
}
