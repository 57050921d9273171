package entities

// Cell is one labelled value of a scraped table row.
type Cell struct {
	Label string
	Text  string
}

// RawRow keeps the cells of a scraped row in column order and indexes them by label.
type RawRow struct {
	cells []Cell
	index map[string]int
}

// NewRawRow builds a row from label/text pairs, in order.
func NewRawRow(pairs ...Cell) RawRow {
	var r RawRow
	for _, c := range pairs {
		r.Set(c.Label, c.Text)
	}
	return r
}

// Set stores text under label. An existing label keeps its position.
func (r *RawRow) Set(label, text string) {
	if r.index == nil {
		r.index = make(map[string]int)
	}
	if i, ok := r.index[label]; ok {
		r.cells[i].Text = text
		return
	}
	r.index[label] = len(r.cells)
	r.cells = append(r.cells, Cell{Label: label, Text: text})
}

// Get returns the text stored under label.
func (r RawRow) Get(label string) (string, bool) {
	i, ok := r.index[label]
	if !ok {
		return "", false
	}
	return r.cells[i].Text, true
}

// Len returns the number of distinct labels.
func (r RawRow) Len() int {
	return len(r.cells)
}

// Labels returns the labels in column order.
func (r RawRow) Labels() []string {
	labels := make([]string, len(r.cells))
	for i, c := range r.cells {
		labels[i] = c.Label
	}
	return labels
}

// Cells returns a copy of the cells in column order.
func (r RawRow) Cells() []Cell {
	out := make([]Cell, len(r.cells))
	copy(out, r.cells)
	return out
}
