package marketparser

import (
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/giygas/kalimati-scraper/interfaces"
	"github.com/giygas/kalimati-scraper/marketparser/entities"
)

// Column headers of the commodity table.
const (
	ItemColumn    = "कृषि उपज"
	MinimumColumn = "न्यूनतम"
	MaximumColumn = "अधिकतम"
	AverageColumn = "औसत"
)

// HeaderMapping maps the Nepali column headers to their English field names.
var HeaderMapping = map[string]string{
	ItemColumn:    "item",
	MinimumColumn: "minimum",
	MaximumColumn: "maximum",
	AverageColumn: "average",
}

var (
	priceRegex = regexp.MustCompile(`(\d+(?:\.\d+)?)`)

	// The site sometimes renders prices with Devanagari numerals.
	devanagariDigits = strings.NewReplacer(
		"०", "0", "१", "1", "२", "2", "३", "3", "४", "4",
		"५", "5", "६", "6", "७", "7", "८", "8", "९", "9",
	)
)

// Compile-time check to ensure Transformer implements RecordTransformer interface
var _ interfaces.RecordTransformer = (*Transformer)(nil)

// Transformer converts raw rows into standard records.
type Transformer struct {
	logger *slog.Logger
}

// NewTransformer creates a new Transformer
func NewTransformer(logger *slog.Logger) *Transformer {
	return &Transformer{logger: logger}
}

// Transform converts every row. The result always has one record per row and is never nil.
func (t *Transformer) Transform(rows []entities.RawRow, mapping entities.ProductMapping) []entities.StandardRecord {
	records := make([]entities.StandardRecord, 0, len(rows))
	for _, row := range rows {
		records = append(records, TransformRow(row, mapping))
	}

	t.logger.Info("Transformed items to standardized format", "records", len(records))
	return records
}

// TransformRow builds the standard record for one raw row. Missing or
// malformed cells leave the corresponding field at its default.
func TransformRow(row entities.RawRow, mapping entities.ProductMapping) entities.StandardRecord {
	record := entities.NewStandardRecord()

	if itemText, ok := row.Get(ItemColumn); ok {
		product, unitNepali, unitEnglish := ParseItem(itemText)
		record.NepaliName = product
		record.UnitType = unitEnglish
		record.UnitNepali = unitNepali

		if english := mapping[product]; english != "" {
			record.EnglishName = english
		}
	}

	if text, ok := row.Get(MinimumColumn); ok {
		record.Minimum = ExtractPrice(text)
	}
	if text, ok := row.Get(MaximumColumn); ok {
		record.Maximum = ExtractPrice(text)
	}
	if text, ok := row.Get(AverageColumn); ok {
		record.Average = ExtractPrice(text)
	}

	return record
}

// ExtractPrice returns the first decimal number in text, ignoring thousands
// separators and currency markers such as "रू". It returns 0 when none is found.
func ExtractPrice(text string) float64 {
	clean := strings.ReplaceAll(devanagariDigits.Replace(text), ",", "")

	match := priceRegex.FindString(clean)
	if match == "" {
		return 0
	}

	value, err := strconv.ParseFloat(match, 64)
	if err != nil {
		return 0
	}
	return value
}
