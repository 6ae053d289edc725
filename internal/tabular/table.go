package tabular

import (
	"cmp"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
)

// Table is a header row followed by data rows.
// Rows may be shorter than the header; missing trailing cells read as empty.
type Table struct {
	Header []string
	Rows   [][]string

	// source is set by ReadExcel and reordered along with Rows.
	source *workbookSource
}

// Len returns the number of data rows.
func (t *Table) Len() int {
	return len(t.Rows)
}

// ColumnIndex returns the index of the named column, or -1.
// Header cells are compared after trimming surrounding whitespace.
func (t *Table) ColumnIndex(name string) int {
	for i, h := range t.Header {
		if strings.TrimSpace(h) == name {
			return i
		}
	}
	return -1
}

// Cell returns the cell at row and column index col, or "" if the row is short.
func (t *Table) Cell(row, col int) string {
	r := t.Rows[row]
	if col < 0 || col >= len(r) {
		return ""
	}
	return r[col]
}

// Float64Column returns the numeric values of the named column.
// Empty and NaN cells are skipped, so the result can be shorter than Len.
// A cell that is not a number fails with ErrNonNumeric.
func (t *Table) Float64Column(name string) ([]float64, error) {
	col := t.ColumnIndex(name)
	if col < 0 {
		return nil, fmt.Errorf("%w: %q", ErrColumnNotFound, name)
	}

	values := make([]float64, 0, len(t.Rows))
	for i := range t.Rows {
		cell := strings.TrimSpace(t.Cell(i, col))
		if cell == "" {
			continue
		}
		v, ok := ParseNumber(cell)
		if !ok {
			// Row numbers are 1-based and count the header.
			return nil, fmt.Errorf("%w: column %q row %d: %q", ErrNonNumeric, name, i+2, cell)
		}
		if math.IsNaN(v) {
			continue
		}
		values = append(values, v)
	}
	return values, nil
}

// SortByColumnDesc sorts the rows by the named column, largest first.
// The sort is stable. Rows whose cell is empty or not a number keep their
// relative order and go after all numeric rows.
func (t *Table) SortByColumnDesc(name string) error {
	col := t.ColumnIndex(name)
	if col < 0 {
		return fmt.Errorf("%w: %q", ErrColumnNotFound, name)
	}

	type keyed struct {
		row     []string
		index   int
		value   float64
		numeric bool
	}

	rows := make([]keyed, len(t.Rows))
	for i, r := range t.Rows {
		v, ok := ParseNumber(t.Cell(i, col))
		rows[i] = keyed{row: r, index: i, value: v, numeric: ok && !math.IsNaN(v)}
	}

	slices.SortStableFunc(rows, func(a, b keyed) int {
		switch {
		case a.numeric && b.numeric:
			return cmp.Compare(b.value, a.value)
		case a.numeric:
			return -1
		case b.numeric:
			return 1
		default:
			return 0
		}
	})

	for i := range rows {
		t.Rows[i] = rows[i].row
	}
	if t.source != nil && len(t.source.rows) == len(rows) {
		sourceRows := make([]sourceRow, len(rows))
		for i := range rows {
			sourceRows[i] = t.source.rows[rows[i].index]
		}
		t.source.rows = sourceRows
	}
	return nil
}

// ParseNumber parses s as a float64 after trimming whitespace.
func ParseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
