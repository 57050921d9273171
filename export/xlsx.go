package export

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/giygas/kalimati-scraper/interfaces"
	"github.com/giygas/kalimati-scraper/marketparser/entities"
	"github.com/xuri/excelize/v2"
)

// SheetName is the worksheet holding the price rows.
const SheetName = "Prices"

var xlsxHeaders = []any{
	"nepali_name", "english_name", "minimum", "maximum", "average", "unit_type", "unit_nepali", "currency",
}

var _ interfaces.RecordExporter = (*XLSXExporter)(nil)

// XLSXExporter writes a spreadsheet copy of the records next to the JSON output.
type XLSXExporter struct {
	dir    string
	now    func() time.Time
	logger *slog.Logger
}

// NewXLSXExporter creates an exporter writing into dir
func NewXLSXExporter(dir string, logger *slog.Logger) *XLSXExporter {
	return &XLSXExporter{dir: dir, now: time.Now, logger: logger}
}

// XLSXFilename swaps the extension of a JSON output name for .xlsx.
func XLSXFilename(jsonName string) string {
	return strings.TrimSuffix(jsonName, filepath.Ext(jsonName)) + ".xlsx"
}

// Export writes one header row and one row per record. filename may be the
// JSON output name; its extension is replaced.
func (e *XLSXExporter) Export(records []entities.StandardRecord, filename string) (string, error) {
	if filename == "" {
		filename = DefaultFilename(e.now())
	}
	path := filepath.Join(e.dir, XLSXFilename(filename))

	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			e.logger.Warn("Failed to close workbook", "error", err)
		}
	}()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return "", fmt.Errorf("failed to name sheet: %w", err)
	}
	if err := f.SetSheetRow(SheetName, "A1", &xlsxHeaders); err != nil {
		return "", fmt.Errorf("failed to write header row: %w", err)
	}

	for i, r := range records {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return "", err
		}
		row := []any{r.NepaliName, r.EnglishName, r.Minimum, r.Maximum, r.Average, r.UnitType, r.UnitNepali, r.Currency}
		if err := f.SetSheetRow(SheetName, cell, &row); err != nil {
			return "", fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return "", fmt.Errorf("failed to render workbook: %w", err)
	}
	if err := WriteFileAtomic(path, buf.Bytes()); err != nil {
		e.logger.Error("Failed to save spreadsheet", "path", path, "error", err)
		return "", err
	}

	e.logger.Info("Spreadsheet saved", "path", path, "records", len(records))
	return path, nil
}
