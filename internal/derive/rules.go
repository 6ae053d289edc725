package derive

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/tmontague/datafetch/internal/model"
	"github.com/tmontague/datafetch/internal/tabular"
)

// Operation names recorded in derive errors.
const (
	opColumnAverages = "derive column averages"
	opSortedExport   = "derive sorted export"
	opMovieGenres    = "derive genres"
)

// wordFrequency counts whitespace-separated tokens.
// Output lines follow the order in which each token first appears.
func wordFrequency(text string) []byte {
	tokens := strings.Fields(text)

	counts := make(map[string]int, len(tokens))
	order := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		if counts[tok] == 0 {
			order = append(order, tok)
		}
		counts[tok]++
	}

	var buf bytes.Buffer
	for _, tok := range order {
		fmt.Fprintf(&buf, "%s: %d\n", tok, counts[tok])
	}
	return buf.Bytes()
}

// columnAverages reports the means of the audience score and profitability
// columns.
func (p *Processor) columnAverages(data []byte, inputPath string) ([]byte, error) {
	table, err := tabular.ParseCSV(bytes.NewReader(data))
	if err != nil {
		return nil, tableError(opColumnAverages, inputPath, err)
	}

	lines := []struct {
		label  string
		column string
	}{
		{"Average Audience Score %", p.audienceScoreColumn},
		{"Average Profitability", p.profitabilityColumn},
	}

	var buf bytes.Buffer
	for _, l := range lines {
		values, err := table.Float64Column(l.column)
		if err != nil {
			return nil, tableError(opColumnAverages, inputPath, err)
		}
		if len(values) == 0 {
			return nil, model.NewError(model.ErrSchema, opColumnAverages, inputPath,
				fmt.Errorf("column %q has no numeric values", l.column))
		}
		fmt.Fprintf(&buf, "%s: %s\n", l.label, FormatFloat(mean(values)))
	}
	return buf.Bytes(), nil
}

// sortedExport sorts the first worksheet by the sort column, largest first,
// and re-encodes the workbook with the rows in that order.
func (p *Processor) sortedExport(data []byte, inputPath string) ([]byte, error) {
	table, err := tabular.ReadExcel(bytes.NewReader(data))
	if err != nil {
		return nil, tableError(opSortedExport, inputPath, err)
	}

	if err := table.SortByColumnDesc(p.sortColumn); err != nil {
		return nil, tableError(opSortedExport, inputPath, err)
	}

	out, err := table.ExcelBytes()
	if err != nil {
		return nil, model.NewError(model.ErrDecode, opSortedExport, inputPath, err)
	}
	return out, nil
}

// tableError classifies a tabular error: header, column and cell problems
// are schema errors, everything else is a decode error.
func tableError(op, path string, err error) error {
	switch {
	case errors.Is(err, tabular.ErrNoHeader),
		errors.Is(err, tabular.ErrColumnNotFound),
		errors.Is(err, tabular.ErrNonNumeric),
		errors.Is(err, tabular.ErrNoSheets):
		return model.NewError(model.ErrSchema, op, path, err)
	default:
		return model.NewError(model.ErrDecode, op, path, err)
	}
}

// Movie is one record of the JSON movie list.
// Title is a pointer so a missing title can be told apart from an empty one.
type Movie struct {
	Title  *string  `json:"title"`
	Genres []string `json:"genres"`
}

// ParseMovies decodes a JSON array of movie records.
// Malformed JSON is a decode error; a non-array document, a record that is
// not an object, a missing title or mistyped fields are schema errors.
func ParseMovies(data []byte) ([]Movie, error) {
	var doc json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, model.NewError(model.ErrDecode, opMovieGenres, "", err)
	}

	var records []json.RawMessage
	if err := json.Unmarshal(doc, &records); err != nil || records == nil {
		return nil, model.NewError(model.ErrSchema, opMovieGenres, "", errors.New("expected an array of movie records"))
	}

	movies := make([]Movie, 0, len(records))
	for i, rec := range records {
		var m Movie
		if err := json.Unmarshal(rec, &m); err != nil {
			return nil, model.NewError(model.ErrSchema, opMovieGenres, "", fmt.Errorf("record %d: %w", i, err))
		}
		if m.Title == nil {
			return nil, model.NewError(model.ErrSchema, opMovieGenres, "", fmt.Errorf("record %d: missing title", i))
		}
		movies = append(movies, m)
	}
	return movies, nil
}

// movieGenres writes one "title: genre, genre" line per record.
func movieGenres(data []byte, inputPath string) ([]byte, error) {
	movies, err := ParseMovies(data)
	if err != nil {
		var me *model.Error
		if errors.As(err, &me) {
			me.Path = inputPath
		}
		return nil, err
	}

	var buf bytes.Buffer
	for _, m := range movies {
		fmt.Fprintf(&buf, "%s: %s\n", *m.Title, strings.Join(m.Genres, ", "))
	}
	return buf.Bytes(), nil
}
