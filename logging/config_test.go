package logging

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/giygas/kalimati-scraper/config"
)

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"ERROR", slog.LevelError},
		{"invalid", slog.LevelInfo},
		{"", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := parseLogLevel(tt.input)
			if got != tt.expected {
				t.Errorf("parseLogLevel(%q) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestGetConsoleLogLevel(t *testing.T) {
	tests := []struct {
		name        string
		env         config.Environment
		logLevelStr string
		verbose     bool
		expected    slog.Level
	}{
		{"dev defaults to info", config.EnvDevelopment, "", false, slog.LevelInfo},
		{"test quiet defaults to error", config.EnvTest, "", false, slog.LevelError},
		{"test verbose defaults to info", config.EnvTest, "", true, slog.LevelInfo},
		{"prod defaults to warn", config.EnvProduction, "", false, slog.LevelWarn},
		{"staging defaults to warn", config.EnvStaging, "", false, slog.LevelWarn},
		{"prod with debug override", config.EnvProduction, "debug", false, slog.LevelDebug},
		{"dev with error override", config.EnvDevelopment, "error", false, slog.LevelError},
		{"test with debug override (ignored)", config.EnvTest, "debug", false, slog.LevelError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := GetConsoleLogLevel(tt.env, tt.logLevelStr, tt.verbose)
			if got != tt.expected {
				t.Errorf("GetConsoleLogLevel(%v, %q, %v) = %v, want %v", tt.env, tt.logLevelStr, tt.verbose, got, tt.expected)
			}
		})
	}
}

func TestNewWritesJSONToRotatingFile(t *testing.T) {
	logDir := t.TempDir()
	cfg := &config.Config{
		Env:               config.EnvTest,
		LogLevel:          "info",
		LogDir:            logDir,
		LogRetentionWeeks: 1,
		MaxLogFileSize:    1024 * 1024,
	}

	logger, closer := New(cfg)
	logger.Info("Successfully scraped items", "rows", 42)
	if err := closer.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	content, err := os.ReadFile(logDir + "/scraper-" + weekKey(time.Now()) + ".log")
	if err != nil {
		t.Fatalf("Expected rotating log file: %v", err)
	}
	if !strings.Contains(string(content), `"msg":"Successfully scraped items"`) || !strings.Contains(string(content), `"rows":42`) {
		t.Errorf("Expected JSON log line, got %s", content)
	}
}

func TestNewFallsBackToConsole(t *testing.T) {
	blocker := t.TempDir() + "/file"
	if err := os.WriteFile(blocker, []byte("x"), 0644); err != nil {
		t.Fatalf("Failed to create blocker file: %v", err)
	}

	cfg := &config.Config{Env: config.EnvTest, LogDir: blocker + "/logs", LogRetentionWeeks: 1}
	logger, closer := New(cfg)
	if logger == nil {
		t.Fatal("Expected a console logger")
	}
	if err := closer.Close(); err != nil {
		t.Errorf("Expected no-op closer, got %v", err)
	}
}

func TestMultiHandlerMethods(t *testing.T) {
	var info, debug bytes.Buffer

	multi := &multiHandler{
		handlers: []slog.Handler{
			slog.NewTextHandler(&info, &slog.HandlerOptions{Level: slog.LevelInfo}),
			slog.NewJSONHandler(&debug, &slog.HandlerOptions{Level: slog.LevelDebug}),
		},
	}

	if !multi.Enabled(context.Background(), slog.LevelDebug) {
		t.Error("Expected Enabled() to return true when any handler accepts debug")
	}

	logger := slog.New(multi).With("run_id", "abc").WithGroup("table")
	logger.Debug("headers found", "count", 4)

	if info.Len() != 0 {
		t.Errorf("Expected info handler to skip debug records, got %s", info.String())
	}
	if !strings.Contains(debug.String(), `"run_id":"abc"`) || !strings.Contains(debug.String(), `"table":{"count":4}`) {
		t.Errorf("Expected attrs and group in debug output, got %s", debug.String())
	}
}
