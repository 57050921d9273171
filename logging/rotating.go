package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// maxSequence bounds the number of size-rotated files per week
const maxSequence = 99

// RotatingFile is an io.Writer that writes to one log file per ISO week and
// starts a numbered file when the size limit is reached.
type RotatingFile struct {
	dir       string
	prefix    string
	retention time.Duration
	maxSize   int64
	now       func() time.Time

	mu   sync.Mutex
	file *os.File
	week string
	seq  int
	size int64
}

// NewRotatingFile creates a rotating writer. The first file is opened lazily on Write.
// A maxSize of 0 disables size-based rotation.
func NewRotatingFile(dir, prefix string, retentionWeeks int, maxSize int64) *RotatingFile {
	return &RotatingFile{
		dir:       dir,
		prefix:    prefix,
		retention: time.Duration(retentionWeeks) * 7 * 24 * time.Hour,
		maxSize:   maxSize,
		now:       time.Now,
	}
}

// weekKey returns the week key in YYYY-Www format (ISO week)
func weekKey(t time.Time) string {
	year, week := t.ISOWeek()
	return fmt.Sprintf("%d-W%02d", year, week)
}

// fileName returns the name of the seq-th file of a week. Sequence 0 has no suffix.
func (rf *RotatingFile) fileName(week string, seq int) string {
	if seq == 0 {
		return fmt.Sprintf("%s-%s.log", rf.prefix, week)
	}
	return fmt.Sprintf("%s-%s_%02d.log", rf.prefix, week, seq)
}

// open switches to the first file of week, starting at sequence from, that still has room.
// Caller must hold the lock.
func (rf *RotatingFile) open(week string, from int) error {
	if rf.file != nil {
		if err := rf.file.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "failed to close log file: %v\n", err)
		}
		rf.file = nil
	}

	for seq := from; seq <= maxSequence; seq++ {
		path := filepath.Join(rf.dir, rf.fileName(week, seq))

		var existing int64
		if info, err := os.Stat(path); err == nil {
			existing = info.Size()
			if rf.maxSize > 0 && existing >= rf.maxSize {
				continue
			}
		}

		file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return fmt.Errorf("failed to open log file %s: %w", path, err)
		}

		rf.file = file
		rf.week = week
		rf.seq = seq
		rf.size = existing
		return nil
	}

	return fmt.Errorf("too many log files for week %s", week)
}

// Write writes p to the current log file, rotating first if needed
func (rf *RotatingFile) Write(p []byte) (int, error) {
	rf.mu.Lock()
	defer rf.mu.Unlock()

	week := weekKey(rf.now())
	if rf.file == nil || rf.week != week {
		if err := rf.open(week, 0); err != nil {
			return 0, err
		}
	}

	if rf.maxSize > 0 && rf.size > 0 && rf.size+int64(len(p)) > rf.maxSize {
		if err := rf.open(week, rf.seq+1); err != nil {
			return 0, err
		}
	}

	n, err := rf.file.Write(p)
	rf.size += int64(n)
	return n, err
}

// Cleanup removes this writer's log files older than the retention period
// and returns how many were deleted
func (rf *RotatingFile) Cleanup() (int, error) {
	entries, err := os.ReadDir(rf.dir)
	if err != nil {
		return 0, fmt.Errorf("failed to read log directory: %w", err)
	}

	cutoff := rf.now().Add(-rf.retention)
	deleted := 0

	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, rf.prefix+"-") || !strings.HasSuffix(name, ".log") {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}

		if info.ModTime().Before(cutoff) {
			if err := os.Remove(filepath.Join(rf.dir, name)); err == nil {
				deleted++
			}
		}
	}

	return deleted, nil
}

// Close closes the current log file
func (rf *RotatingFile) Close() error {
	rf.mu.Lock()
	defer rf.mu.Unlock()

	if rf.file == nil {
		return nil
	}
	err := rf.file.Close()
	rf.file = nil
	return err
}
