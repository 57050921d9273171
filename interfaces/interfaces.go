// Package interfaces defines core abstractions for the Kalimati scraper
// to improve testability, maintainability, and separation of concerns.
package interfaces

import (
	"context"
	"net/http"
	"time"

	"github.com/giygas/kalimati-scraper/marketparser/entities"
	"golang.org/x/net/html"
)

// QualityReport summarizes data quality issues found in one run's records
type QualityReport struct {
	TotalRecords   int
	ZeroPriceNames []string // Records whose minimum, maximum and average are all 0
	InvertedRanges []string // Records where minimum > average or average > maximum
	Untranslated   []string // Nepali names with no English translation
	DuplicateNames []string // Nepali names appearing more than once
	InvalidRecords int
	MeanAverage    float64 // Mean of the non-zero average prices
	MedianAverage  float64 // Median of the non-zero average prices
}

// PageFetcher retrieves the source page as a parsed HTML tree.
type PageFetcher interface {
	Fetch(ctx context.Context) (*html.Node, error)
}

// TableExtractor locates the price table in a document and extracts its rows.
type TableExtractor interface {
	Extract(doc *html.Node) ([]entities.RawRow, error)
}

// RecordTransformer converts raw rows into standard records.
type RecordTransformer interface {
	Transform(rows []entities.RawRow, mapping entities.ProductMapping) []entities.StandardRecord
}

// MappingStore defines the contract for the persisted Nepali to English product dictionary.
type MappingStore interface {
	// Load reads the persisted mapping. On failure the store is left empty.
	Load() error

	// Merge adds unseen product names with an empty translation and returns how many were added
	Merge(rows []entities.RawRow) int

	// Save persists the mapping if entries were added. It reports whether a write happened.
	Save() (bool, error)

	// WriteDiagnostics writes the raw item text of every row for manual review
	WriteDiagnostics(rows []entities.RawRow) error

	Mapping() entities.ProductMapping
	Len() int
	Untranslated() []string
}

// RecordExporter persists the records of a run and returns the written path.
type RecordExporter interface {
	Export(records []entities.StandardRecord, filename string) (string, error)
}

// RecordValidator defines the contract for data validation operations.
type RecordValidator interface {
	// ValidateRecord checks if a standard record is consistent
	ValidateRecord(r *entities.StandardRecord) error

	// ReportDataQuality generates a data quality report with all issues found
	ReportDataQuality(records []entities.StandardRecord) *QualityReport

	// ValidateInput validates user input strings
	ValidateInput(input string) error
}

// SnapshotStore defines the contract for the read side used by serve mode.
// It provides thread-safe access to the latest scraped records.
type SnapshotStore interface {
	GetRecords() []entities.StandardRecord
	GetMapping() entities.ProductMapping
	GetSourceFile() string
	GetLastUpdated() time.Time
	GetServerStartTime() time.Time
	IsUpdating() bool
}

// HealthChecker defines the contract for health check functionality.
type HealthChecker interface {
	// HealthCheck returns current system health status
	HealthCheck() (status string, details map[string]any, httpStatus int)
}

// HTTPHandler defines the contract for HTTP request handlers.
type HTTPHandler interface {
	ServePrices(w http.ResponseWriter, r *http.Request)
	FindPrice(w http.ResponseWriter, r *http.Request)
	ServeMapping(w http.ResponseWriter, r *http.Request)
	ServeUntranslated(w http.ResponseWriter, r *http.Request)
	HealthCheck(w http.ResponseWriter, r *http.Request)
}
