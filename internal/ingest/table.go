package ingest

import "strings"

// Table is a header plus string rows, as read from an uploaded sheet.
// Nothing is typed yet; the reorder engine owns coercion.
type Table struct {
	Columns []string
	Rows    [][]string
}

// NewTable builds a table, copying the header so callers can keep mutating theirs.
func NewTable(columns []string, rows [][]string) *Table {
	return &Table{
		Columns: append([]string(nil), columns...),
		Rows:    rows,
	}
}

// Len returns the number of data rows.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// Cell returns the trimmed value at (row, col), or "" when the row is short.
func (t *Table) Cell(row, col int) string {
	if row < 0 || row >= len(t.Rows) || col < 0 {
		return ""
	}
	record := t.Rows[row]
	if col >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[col])
}

// ColumnIndex returns the index of the first column named exactly name.
func (t *Table) ColumnIndex(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// Clone deep-copies the table.
func (t *Table) Clone() *Table {
	if t == nil {
		return nil
	}
	rows := make([][]string, len(t.Rows))
	for i, r := range t.Rows {
		rows[i] = append([]string(nil), r...)
	}
	return NewTable(t.Columns, rows)
}
