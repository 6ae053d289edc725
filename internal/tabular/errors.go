package tabular

import "errors"

var (
	// ErrNoHeader is returned when the input has no header row.
	ErrNoHeader = errors.New("table has no header row")

	// ErrColumnNotFound is returned when a named column is not in the header.
	ErrColumnNotFound = errors.New("column not found")

	// ErrNonNumeric is returned when a numeric column holds a value that is
	// not a number.
	ErrNonNumeric = errors.New("non-numeric value in numeric column")

	// ErrNoSheets is returned for a workbook without worksheets.
	ErrNoSheets = errors.New("workbook has no sheets")
)
