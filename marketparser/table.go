package marketparser

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/giygas/kalimati-scraper/interfaces"
	"github.com/giygas/kalimati-scraper/marketparser/entities"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
	"golang.org/x/text/unicode/norm"
)

// CommodityTableID is the id of the daily price table on the market home page.
const CommodityTableID = "commodityDailyPrice"

// ErrTableNotFound is returned when no table in the document looks like the price table.
var ErrTableNotFound = errors.New("commodity price table not found")

// tableKeywords identify a price table when the stable id is missing.
var tableKeywords = []string{"commodity", "price", "कृषि उपज", "मूल्य"}

// Compile-time check to ensure Extractor implements TableExtractor interface
var _ interfaces.TableExtractor = (*Extractor)(nil)

// Extractor locates the commodity table in a parsed document and turns it into raw rows.
type Extractor struct {
	logger *slog.Logger
}

// NewExtractor creates a new Extractor
func NewExtractor(logger *slog.Logger) *Extractor {
	return &Extractor{logger: logger}
}

// Extract returns one RawRow per data row of the commodity table. When no table
// matches, it returns an empty slice together with ErrTableNotFound.
func (e *Extractor) Extract(doc *html.Node) ([]entities.RawRow, error) {
	table := e.FindTable(doc)
	if table == nil {
		e.logger.Error("Could not find the commodity price table")
		return []entities.RawRow{}, ErrTableNotFound
	}
	e.logger.Info("Successfully found the price table")

	trs := findAll(table, atom.Tr)
	if len(trs) == 0 {
		return []entities.RawRow{}, nil
	}

	var headers []string
	for _, cell := range rowCells(trs[0]) {
		headers = append(headers, norm.NFC.String(strings.TrimSpace(textContent(cell))))
	}
	e.logger.Info("Extracted headers", "headers", headers)
	e.logger.Info("Found data rows", "rows", len(trs)-1)

	rows := make([]entities.RawRow, 0, len(trs)-1)
	for _, tr := range trs[1:] {
		cells := rowCells(tr)
		if len(cells) == 0 {
			continue
		}

		var row entities.RawRow
		for i, cell := range cells {
			label := fmt.Sprintf("column_%d", i)
			if i < len(headers) {
				label = headers[i]
			}
			row.Set(label, NormalizeCellText(textContent(cell)))
		}
		rows = append(rows, row)
	}

	e.logger.Info("Successfully extracted items", "rows", len(rows))
	return rows, nil
}

// FindTable returns the table with CommodityTableID, or else the first table
// that has a header cell and mentions one of the price keywords.
func (e *Extractor) FindTable(doc *html.Node) *html.Node {
	if doc == nil {
		return nil
	}

	tables := findAll(doc, atom.Table)
	for _, t := range tables {
		if attr(t, "id") == CommodityTableID {
			return t
		}
	}

	e.logger.Warn("Table id not found, trying alternative methods", "id", CommodityTableID)
	e.logger.Info("Found tables on the page", "tables", len(tables))

	for i, t := range tables {
		if len(findAll(t, atom.Th)) == 0 {
			continue
		}
		text := strings.ToLower(textContent(t))
		for _, keyword := range tableKeywords {
			if strings.Contains(text, keyword) {
				e.logger.Info("Found potential price table", "index", i)
				return t
			}
		}
	}

	return nil
}

// NormalizeCellText flattens line breaks, collapses repeated spaces and trims the result.
// The code points are otherwise kept as published so product names stay
// byte-identical to existing mapping keys.
func NormalizeCellText(s string) string {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, "\r", "")
	for strings.Contains(s, "  ") {
		s = strings.ReplaceAll(s, "  ", " ")
	}
	return strings.TrimSpace(s)
}

// findAll returns every descendant element of n with the given atom, in document order.
func findAll(n *html.Node, a atom.Atom) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.ElementNode && c.DataAtom == a {
				out = append(out, c)
			}
			walk(c)
		}
	}
	walk(n)
	return out
}

// rowCells returns the th and td children of a tr.
func rowCells(tr *html.Node) []*html.Node {
	var cells []*html.Node
	for c := tr.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && (c.DataAtom == atom.Td || c.DataAtom == atom.Th) {
			cells = append(cells, c)
		}
	}
	return cells
}

func textContent(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		if node.Type == html.TextNode {
			b.WriteString(node.Data)
			return
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}
