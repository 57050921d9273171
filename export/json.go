package export

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/giygas/kalimati-scraper/interfaces"
	"github.com/giygas/kalimati-scraper/marketparser/entities"
)

// Output files are named kalimati_market_data_YYYYMMDD_HHMMSS.json
const (
	FilePrefix      = "kalimati_market_data_"
	FileExtension   = ".json"
	timestampLayout = "20060102_150405"
)

// ErrNoSnapshot is returned when a directory holds no output file.
var ErrNoSnapshot = errors.New("no market data snapshot found")

// Compile-time check to ensure JSONExporter implements RecordExporter interface
var _ interfaces.RecordExporter = (*JSONExporter)(nil)

// JSONExporter writes the records of a run as a JSON array into a directory.
type JSONExporter struct {
	dir    string
	now    func() time.Time
	logger *slog.Logger
}

// NewJSONExporter creates an exporter writing into dir
func NewJSONExporter(dir string, logger *slog.Logger) *JSONExporter {
	return &JSONExporter{dir: dir, now: time.Now, logger: logger}
}

// DefaultFilename returns the timestamped file name for t.
func DefaultFilename(t time.Time) string {
	return FilePrefix + t.Format(timestampLayout) + FileExtension
}

// Export writes records to filename inside the exporter's directory. An empty
// filename selects the timestamped default. A nil slice is written as [].
func (e *JSONExporter) Export(records []entities.StandardRecord, filename string) (string, error) {
	if filename == "" {
		filename = DefaultFilename(e.now())
	}
	if records == nil {
		records = []entities.StandardRecord{}
	}

	path := filepath.Join(e.dir, filename)
	if err := WriteJSONFile(path, records); err != nil {
		e.logger.Error("Failed to save data", "path", path, "error", err)
		return "", err
	}

	e.logger.Info("Data saved", "path", path, "records", len(records))
	return path, nil
}

// LatestJSON returns the most recently modified output file in dir.
// Files with the same modification time are ordered by name.
func LatestJSON(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return "", ErrNoSnapshot
		}
		return "", fmt.Errorf("failed to read data directory: %w", err)
	}

	type candidate struct {
		name    string
		modTime time.Time
	}
	var candidates []candidate
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, FilePrefix) || !strings.HasSuffix(name, FileExtension) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		candidates = append(candidates, candidate{name: name, modTime: info.ModTime()})
	}

	if len(candidates) == 0 {
		return "", ErrNoSnapshot
	}

	sort.Slice(candidates, func(i, j int) bool {
		if !candidates[i].modTime.Equal(candidates[j].modTime) {
			return candidates[i].modTime.After(candidates[j].modTime)
		}
		return candidates[i].name > candidates[j].name
	})

	return filepath.Join(dir, candidates[0].name), nil
}
