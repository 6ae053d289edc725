package tabular

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
)

// ParseCSV reads a comma-separated table whose first record is the header.
// Records may have differing numbers of fields.
func ParseCSV(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrNoHeader
		}
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}

	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV: %w", err)
	}

	return &Table{Header: header, Rows: rows}, nil
}
