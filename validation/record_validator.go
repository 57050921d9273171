// Package validation checks scraped records and API input.
package validation

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/giygas/kalimati-scraper/interfaces"
	"github.com/giygas/kalimati-scraper/marketparser"
	"github.com/giygas/kalimati-scraper/marketparser/entities"
	"github.com/montanaflynn/stats"
)

// MaxInputLength is the longest product name accepted from a request, in characters.
const MaxInputLength = 100

var (
	// Letters and combining marks cover Devanagari vowel signs and the virama
	inputRegex = regexp.MustCompile(`^[\p{L}\p{M}\p{N}\s\-\.\(\)]+$`)

	// Sequences the character class allows but a product name never contains
	dangerousPatterns = []string{"--", "..", "()"}
)

var (
	ErrNilRecord     = errors.New("record is nil")
	ErrEmptyName     = errors.New("empty nepali name")
	ErrNegativePrice = errors.New("negative price")
	ErrInvertedRange = errors.New("average outside minimum/maximum range")
	ErrUnknownUnit   = errors.New("unknown unit type")
	ErrBadCurrency   = errors.New("unexpected currency")
)

// Compile-time check to ensure RecordValidatorImpl implements RecordValidator interface
var _ interfaces.RecordValidator = (*RecordValidatorImpl)(nil)

// RecordValidatorImpl implements the interfaces.RecordValidator interface
type RecordValidatorImpl struct{}

// NewRecordValidator creates a new record validator
func NewRecordValidator() *RecordValidatorImpl {
	return &RecordValidatorImpl{}
}

// ValidateRecord checks if a standard record is consistent
func (v *RecordValidatorImpl) ValidateRecord(r *entities.StandardRecord) error {
	if r == nil {
		return ErrNilRecord
	}

	if strings.TrimSpace(r.NepaliName) == "" {
		return ErrEmptyName
	}

	if r.Minimum < 0 || r.Maximum < 0 || r.Average < 0 {
		return fmt.Errorf("%w for %s", ErrNegativePrice, r.NepaliName)
	}

	if hasInvertedRange(r) {
		return fmt.Errorf("%w for %s: %.2f/%.2f/%.2f", ErrInvertedRange, r.NepaliName, r.Minimum, r.Average, r.Maximum)
	}

	if !marketparser.IsKnownUnit(r.UnitType) {
		return fmt.Errorf("%w %q for %s", ErrUnknownUnit, r.UnitType, r.NepaliName)
	}

	if r.Currency != entities.Currency {
		return fmt.Errorf("%w %q for %s", ErrBadCurrency, r.Currency, r.NepaliName)
	}

	return nil
}

// hasInvertedRange only judges rows where all three prices were parsed
func hasInvertedRange(r *entities.StandardRecord) bool {
	if r.Minimum == 0 || r.Maximum == 0 || r.Average == 0 {
		return false
	}
	return r.Minimum > r.Average || r.Average > r.Maximum
}

// ReportDataQuality generates a data quality report for one run. Records are
// never modified or dropped.
func (v *RecordValidatorImpl) ReportDataQuality(records []entities.StandardRecord) *interfaces.QualityReport {
	report := &interfaces.QualityReport{
		TotalRecords:   len(records),
		ZeroPriceNames: []string{},
		InvertedRanges: []string{},
		Untranslated:   []string{},
		DuplicateNames: []string{},
	}

	seen := make(map[string]int)
	var averages stats.Float64Data

	for i := range records {
		r := &records[i]

		if err := v.ValidateRecord(r); err != nil {
			report.InvalidRecords++
		}

		if r.Minimum == 0 && r.Maximum == 0 && r.Average == 0 {
			report.ZeroPriceNames = append(report.ZeroPriceNames, r.NepaliName)
		}

		if hasInvertedRange(r) {
			report.InvertedRanges = append(report.InvertedRanges, r.NepaliName)
		}

		if r.EnglishName == "" && r.NepaliName != "" {
			report.Untranslated = append(report.Untranslated, r.NepaliName)
		}

		seen[r.NepaliName]++
		if seen[r.NepaliName] == 2 {
			report.DuplicateNames = append(report.DuplicateNames, r.NepaliName)
		}

		if r.Average > 0 {
			averages = append(averages, r.Average)
		}
	}

	// Both return an error only for empty input
	if mean, err := stats.Mean(averages); err == nil {
		report.MeanAverage, _ = stats.Round(mean, 2)
	}
	if median, err := stats.Median(averages); err == nil {
		report.MedianAverage = median
	}

	return report
}

// ValidateInput validates a product name taken from a request path
func (v *RecordValidatorImpl) ValidateInput(input string) error {
	if strings.TrimSpace(input) == "" {
		return fmt.Errorf("input cannot be empty")
	}

	if utf8.RuneCountInString(input) > MaxInputLength {
		return fmt.Errorf("input too long: maximum %d characters", MaxInputLength)
	}

	for _, pattern := range dangerousPatterns {
		if strings.Contains(input, pattern) {
			return fmt.Errorf("input contains potentially dangerous content")
		}
	}

	if !inputRegex.MatchString(input) {
		return fmt.Errorf("input contains invalid characters. Only letters, numbers, spaces, hyphens, periods and parentheses are allowed")
	}

	if hasExcessiveRepetition(input) {
		return fmt.Errorf("input contains excessive character repetition")
	}

	return nil
}

// hasExcessiveRepetition reports a character repeated more than 10 times in a row
func hasExcessiveRepetition(input string) bool {
	var last rune
	run := 0
	for _, r := range input {
		if r == last {
			run++
			if run > 10 {
				return true
			}
			continue
		}
		last = r
		run = 1
	}
	return false
}
