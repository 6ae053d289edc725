package tabular

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

// DefaultSheet is the sheet name of workbooks created by ExcelBytes.
const DefaultSheet = "Sheet1"

// workbookSource is the workbook a Table was read from.
type workbookSource struct {
	data  []byte
	sheet string

	// width is the widest row of the sheet.
	width int

	// rows holds, in Rows order, where each data row came from.
	rows []sourceRow
}

// sourceRow is the sheet row number and cell formats of one data row.
type sourceRow struct {
	num   int
	cells []cellFormat
}

// cellFormat is the stored type and style of one cell.
type cellFormat struct {
	typ   excelize.CellType
	style int
}

// ReadExcel reads the first worksheet of an .xlsx workbook.
// The first non-empty row is the header. Cell values are read raw, without
// number formatting, so numeric cells parse back as numbers. Blank rows are
// dropped.
//
// The table remembers the workbook it came from, so ExcelBytes writes the
// rows back into it with each cell's original type and style.
func ReadExcel(r io.Reader) (*Table, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read workbook: %w", err)
	}

	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrNoSheets
	}
	sheet := sheets[0]

	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
	}

	src := &workbookSource{data: data, sheet: sheet}
	for _, row := range rows {
		src.width = max(src.width, len(row))
	}

	t := &Table{Rows: make([][]string, 0, len(rows))}
	for i, row := range rows {
		if isBlank(row) {
			continue
		}
		if t.Header == nil {
			t.Header = row
			continue
		}

		// GetRows keeps blank rows in between, so i+1 is the sheet row.
		formats, err := readFormats(f, sheet, i+1, src.width)
		if err != nil {
			return nil, err
		}
		t.Rows = append(t.Rows, row)
		src.rows = append(src.rows, sourceRow{num: i + 1, cells: formats})
	}

	if t.Header == nil {
		return nil, ErrNoHeader
	}
	t.source = src
	return t, nil
}

// readFormats returns the type and style of the first width cells of a
// sheet row.
func readFormats(f *excelize.File, sheet string, rowNum, width int) ([]cellFormat, error) {
	formats := make([]cellFormat, width)
	for col := range formats {
		cell, err := excelize.CoordinatesToCellName(col+1, rowNum)
		if err != nil {
			return nil, err
		}
		if formats[col].typ, err = f.GetCellType(sheet, cell); err != nil {
			return nil, fmt.Errorf("failed to read cell %s type: %w", cell, err)
		}
		if formats[col].style, err = f.GetCellStyle(sheet, cell); err != nil {
			return nil, fmt.Errorf("failed to read cell %s style: %w", cell, err)
		}
	}
	return formats, nil
}

// ExcelBytes encodes the table as an .xlsx workbook.
//
// A table read by ReadExcel is written back into its source workbook: the
// data rows take the sheet rows the data occupied, in the table's current
// order, and every cell keeps the type and style it had in the source. The
// rest of the workbook is unchanged.
//
// Any other table becomes a new workbook with one sheet. Header cells are
// written as strings; data cells that parse as numbers are written as
// numbers and everything else as strings. Empty cells are left unset.
func (t *Table) ExcelBytes() ([]byte, error) {
	if t.source != nil && len(t.source.rows) == len(t.Rows) {
		return t.rewriteSource()
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := setRow(f, 1, t.Header, false); err != nil {
		return nil, err
	}
	for i, row := range t.Rows {
		if err := setRow(f, i+2, row, true); err != nil {
			return nil, err
		}
	}

	return encode(f)
}

// rewriteSource writes the rows into a copy of the source workbook.
func (t *Table) rewriteSource() ([]byte, error) {
	src := t.source

	f, err := excelize.OpenReader(bytes.NewReader(src.data))
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	targets := make([]int, len(src.rows))
	for i, r := range src.rows {
		targets[i] = r.num
	}
	slices.Sort(targets)

	for i, row := range t.Rows {
		from := src.rows[i]
		for col := range src.width {
			cell, err := excelize.CoordinatesToCellName(col+1, targets[i])
			if err != nil {
				return nil, err
			}

			var format cellFormat
			if col < len(from.cells) {
				format = from.cells[col]
			}
			value := ""
			if col < len(row) {
				value = row[col]
			}
			if err := setFormattedCell(f, src.sheet, cell, value, format); err != nil {
				return nil, fmt.Errorf("failed to set cell %s: %w", cell, err)
			}
		}
	}

	return encode(f)
}

// setFormattedCell writes value into cell with the given type and style.
// Numbers, serial dates and unset cells are written untyped, as stored.
func setFormattedCell(f *excelize.File, sheet, cell, value string, format cellFormat) error {
	var err error
	switch format.typ {
	case excelize.CellTypeSharedString, excelize.CellTypeInlineString,
		excelize.CellTypeFormula, excelize.CellTypeError:
		if value == "" {
			err = f.SetCellDefault(sheet, cell, "")
		} else {
			err = f.SetCellStr(sheet, cell, value)
		}
	case excelize.CellTypeBool:
		err = f.SetCellBool(sheet, cell, value == "1" || strings.EqualFold(value, "true"))
	default:
		err = f.SetCellDefault(sheet, cell, value)
	}
	if err != nil {
		return err
	}
	return f.SetCellStyle(sheet, cell, cell, format.style)
}

// encode serializes f.
func encode(f *excelize.File) ([]byte, error) {
	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("failed to encode workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// setRow writes cells into the 1-based row of DefaultSheet.
func setRow(f *excelize.File, rowNum int, cells []string, typed bool) error {
	for i, value := range cells {
		if value == "" {
			continue
		}
		cell, err := excelize.CoordinatesToCellName(i+1, rowNum)
		if err != nil {
			return err
		}

		var v any = value
		if typed {
			v = cellValue(value)
		}
		if err := f.SetCellValue(DefaultSheet, cell, v); err != nil {
			return fmt.Errorf("failed to set cell %s: %w", cell, err)
		}
	}
	return nil
}

// cellValue returns s as an int64 or float64 when it is numeric.
func cellValue(s string) any {
	trimmed := strings.TrimSpace(s)
	if n, err := strconv.ParseInt(trimmed, 10, 64); err == nil {
		return n
	}
	if v, ok := ParseNumber(trimmed); ok && !math.IsNaN(v) && !math.IsInf(v, 0) {
		return v
	}
	return s
}

// isBlank reports whether every cell of row is empty.
func isBlank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
