// Package data provides thread-safe storage of the latest scrape output for
// the serve mode. Snapshots are swapped atomically so readers never block.
package data

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/giygas/kalimati-scraper/export"
	"github.com/giygas/kalimati-scraper/interfaces"
	"github.com/giygas/kalimati-scraper/mapping"
	"github.com/giygas/kalimati-scraper/marketparser/entities"
)

// ErrUpdateInProgress is returned by Reload while another reload runs.
var ErrUpdateInProgress = errors.New("reload already in progress")

// Compile-time check to ensure SnapshotContainer implements SnapshotStore
var _ interfaces.SnapshotStore = (*SnapshotContainer)(nil)

// Snapshot is the output of one scrape loaded from disk.
type Snapshot struct {
	Records    []entities.StandardRecord
	Mapping    entities.ProductMapping
	SourceFile string
	ScrapedAt  time.Time // modification time of SourceFile
	LoadedAt   time.Time
}

// SnapshotContainer holds the current snapshot behind an atomic pointer
type SnapshotContainer struct {
	snapshot        atomic.Pointer[Snapshot]
	updating        atomic.Bool
	serverStartTime atomic.Value // time.Time
	logger          *slog.Logger
}

// NewSnapshotContainer creates a container with an empty snapshot
func NewSnapshotContainer(logger *slog.Logger) *SnapshotContainer {
	sc := &SnapshotContainer{logger: logger}
	sc.snapshot.Store(&Snapshot{
		Records: []entities.StandardRecord{},
		Mapping: entities.ProductMapping{},
	})
	sc.serverStartTime.Store(time.Time{})
	return sc
}

// Snapshot returns the current snapshot. Callers must not modify it.
func (sc *SnapshotContainer) Snapshot() *Snapshot {
	return sc.snapshot.Load()
}

// GetRecords returns the records of the current snapshot
func (sc *SnapshotContainer) GetRecords() []entities.StandardRecord {
	return sc.Snapshot().Records
}

// GetMapping returns the product mapping of the current snapshot
func (sc *SnapshotContainer) GetMapping() entities.ProductMapping {
	return sc.Snapshot().Mapping
}

// GetSourceFile returns the output file the snapshot was read from
func (sc *SnapshotContainer) GetSourceFile() string {
	return sc.Snapshot().SourceFile
}

// GetLastUpdated returns when the snapshot's data was scraped
func (sc *SnapshotContainer) GetLastUpdated() time.Time {
	return sc.Snapshot().ScrapedAt
}

// IsUpdating returns true if a reload is currently in progress
func (sc *SnapshotContainer) IsUpdating() bool {
	return sc.updating.Load()
}

// SetServerStartTime sets the server start time
func (sc *SnapshotContainer) SetServerStartTime(startTime time.Time) {
	sc.serverStartTime.Store(startTime)
}

// GetServerStartTime returns the server start time
func (sc *SnapshotContainer) GetServerStartTime() time.Time {
	if v := sc.serverStartTime.Load(); v != nil {
		if startTime, ok := v.(time.Time); ok {
			return startTime
		}
	}

	sc.logger.Warn("Could not get the server start time value")
	return time.Time{}
}

// Update atomically replaces the current snapshot
func (sc *SnapshotContainer) Update(s *Snapshot) {
	if s.Records == nil {
		s.Records = []entities.StandardRecord{}
	}
	if s.Mapping == nil {
		s.Mapping = entities.ProductMapping{}
	}
	sc.snapshot.Store(s)
}

// Reload reads the newest output file and the mapping from dir and swaps
// them in. On error the current snapshot is kept.
func (sc *SnapshotContainer) Reload(dir string) error {
	if !sc.updating.CompareAndSwap(false, true) {
		return ErrUpdateInProgress
	}
	defer sc.updating.Store(false)

	snapshot, err := LoadSnapshot(dir)
	if err != nil {
		return err
	}

	sc.Update(snapshot)
	sc.logger.Info("Snapshot loaded",
		"file", snapshot.SourceFile,
		"records", len(snapshot.Records),
		"mapping_entries", len(snapshot.Mapping),
		"scraped_at", snapshot.ScrapedAt.Format(time.RFC3339),
	)
	return nil
}

// LoadSnapshot reads the newest output file of dir. A missing mapping file
// yields an empty mapping.
func LoadSnapshot(dir string) (*Snapshot, error) {
	path, err := export.LatestJSON(dir)
	if err != nil {
		return nil, err
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat snapshot: %w", err)
	}

	var records []entities.StandardRecord
	if err := json.Unmarshal(content, &records); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", filepath.Base(path), err)
	}

	productMapping, err := mapping.ReadFile(filepath.Join(dir, mapping.MappingFile))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load product mapping: %w", err)
	}

	return &Snapshot{
		Records:    records,
		Mapping:    productMapping,
		SourceFile: path,
		ScrapedAt:  info.ModTime(),
		LoadedAt:   time.Now(),
	}, nil
}
