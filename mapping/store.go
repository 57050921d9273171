// Package mapping maintains the persisted Nepali to English product dictionary.
package mapping

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"sort"

	"github.com/giygas/kalimati-scraper/export"
	"github.com/giygas/kalimati-scraper/interfaces"
	"github.com/giygas/kalimati-scraper/marketparser"
	"github.com/giygas/kalimati-scraper/marketparser/entities"
)

// Default file names inside the data directory.
const (
	MappingFile     = "product_mapping.json"
	DiagnosticsFile = "product_names_debug.json"
)

// Compile-time check to ensure Store implements MappingStore interface
var _ interfaces.MappingStore = (*Store)(nil)

// Store holds the product mapping in memory between Load and Save.
// It is not safe for concurrent use; a scrape run owns it exclusively.
type Store struct {
	path      string
	debugPath string
	entries   entities.ProductMapping
	added     int
	loadErr   error
	logger    *slog.Logger
}

// NewStore creates a store for the mapping at path and the diagnostics at debugPath.
func NewStore(path, debugPath string, logger *slog.Logger) *Store {
	return &Store{
		path:      path,
		debugPath: debugPath,
		entries:   entities.ProductMapping{},
		logger:    logger,
	}
}

// NewStoreInDir uses the default file names inside dir.
func NewStoreInDir(dir string, logger *slog.Logger) *Store {
	return NewStore(filepath.Join(dir, MappingFile), filepath.Join(dir, DiagnosticsFile), logger)
}

// Path returns the mapping file location.
func (s *Store) Path() string {
	return s.path
}

// Load replaces the in-memory mapping with the file contents. A missing file
// leaves the mapping empty and is not an error. Any other failure also leaves
// the mapping empty; the error is returned and remembered for Save.
func (s *Store) Load() error {
	s.entries = entities.ProductMapping{}
	s.added = 0
	s.loadErr = nil

	entries, err := ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			s.logger.Debug("No product mapping yet", "path", s.path)
			return nil
		}
		s.loadErr = err
		s.logger.Error("Failed to load existing product mapping", "path", s.path, "error", err)
		return err
	}

	s.entries = entries
	s.logger.Info("Loaded existing product mapping", "entries", len(entries))
	return nil
}

// ReadFile decodes a mapping file. Keys and values must all be strings.
func ReadFile(path string) (entities.ProductMapping, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	entries := entities.ProductMapping{}
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", filepath.Base(path), err)
	}
	if entries == nil {
		// a literal null decodes into a nil map
		entries = entities.ProductMapping{}
	}
	return entries, nil
}

// Merge inserts every product name found in the item column that is not yet
// mapped, with an empty translation. Existing translations are never touched.
// It returns the number of names added by this call.
func (s *Store) Merge(rows []entities.RawRow) int {
	unique := make(map[string]struct{})
	for _, row := range rows {
		text, ok := row.Get(marketparser.ItemColumn)
		if !ok {
			continue
		}
		unique[marketparser.ProductName(text)] = struct{}{}
	}
	s.logger.Info("Found unique products in the data", "products", len(unique))

	added := 0
	for name := range unique {
		if _, exists := s.entries[name]; exists {
			continue
		}
		s.entries[name] = ""
		added++
		s.logger.Debug("Added new product to mapping", "product", name)
	}

	s.added += added
	return added
}

// Save writes the mapping when Merge added entries since the last save and
// reports whether a write happened. If Load failed on an existing file, that
// file is copied to <path>.bak first.
func (s *Store) Save() (bool, error) {
	if s.added == 0 {
		return false, nil
	}

	if s.loadErr != nil {
		backup := s.path + ".bak"
		if err := copyFile(s.path, backup); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return false, fmt.Errorf("failed to back up unreadable mapping: %w", err)
			}
		} else {
			s.logger.Warn("Unreadable product mapping backed up before overwrite", "path", s.path, "backup", backup)
		}
	}

	// encoding/json sorts map keys
	if err := export.WriteJSONFile(s.path, s.entries); err != nil {
		s.logger.Error("Failed to save product mapping", "path", s.path, "error", err)
		return false, err
	}

	s.logger.Info("Updated product mapping", "new_products", s.added)
	s.added = 0
	s.loadErr = nil
	return true, nil
}

// WriteDiagnostics writes the raw item text of every row, in order, as a JSON
// array. It does not change the store.
func (s *Store) WriteDiagnostics(rows []entities.RawRow) error {
	raw := make([]string, 0, len(rows))
	for _, row := range rows {
		if text, ok := row.Get(marketparser.ItemColumn); ok {
			raw = append(raw, text)
		}
	}

	if err := export.WriteJSONFile(s.debugPath, raw); err != nil {
		s.logger.Error("Failed to save debug file", "path", s.debugPath, "error", err)
		return err
	}

	s.logger.Info("Saved raw product names for debugging", "path", s.debugPath)
	return nil
}

// Mapping returns a copy of the current entries.
func (s *Store) Mapping() entities.ProductMapping {
	return maps.Clone(s.entries)
}

// lookup returns the English name of product, if translated.
func (s *Store) lookup(product string) (string, bool) {
	english := s.entries[product]
	return english, english != ""
}

// Len returns the number of mapped products, translated or not.
func (s *Store) Len() int {
	return len(s.entries)
}

// pending returns how many entries are waiting to be saved.
func (s *Store) pending() int {
	return s.added
}

// Untranslated returns the sorted product names without an English name.
func (s *Store) Untranslated() []string {
	return Untranslated(s.entries)
}

// Untranslated returns the sorted keys of m with an empty value.
func Untranslated(m entities.ProductMapping) []string {
	names := make([]string, 0)
	for name, english := range m {
		if english == "" {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
