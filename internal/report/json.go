package report

import (
	"encoding/json"
	"io"

	"github.com/tmontague/datafetch/internal/model"
)

// JSONWriter outputs run reports in JSON format.
// This format is designed for tool integration and programmatic processing.
type JSONWriter struct {
	baseWriter

	// indent enables pretty-printed JSON output.
	// When false, output is compact (no extra whitespace).
	indent bool

	// indentPrefix is the prefix for each line in indented output.
	indentPrefix string

	// indentString is the indentation string (typically "  " or "\t").
	indentString string
}

// JSONWriterOption configures a JSONWriter.
type JSONWriterOption func(*JSONWriter)

// WithIndent enables pretty-printed JSON output.
// The prefix is prepended to each line, and indent is used for each level.
func WithIndent(prefix, indent string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.indent = true
		w.indentPrefix = prefix
		w.indentString = indent
	}
}

// WithPrettyPrint enables pretty-printed JSON with default indentation.
func WithPrettyPrint() JSONWriterOption {
	return WithIndent("", "  ")
}

// NewJSONWriter creates a JSONWriter that outputs to the given writer.
func NewJSONWriter(output io.Writer, opts ...JSONWriterOption) *JSONWriter {
	w := &JSONWriter{
		baseWriter: newBaseWriter(output),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs the run report in JSON format.
func (w *JSONWriter) Write(report *model.RunReport) (int, error) {
	return w.writeJSON(report)
}

// writeJSON marshals the given value to JSON and writes it to the output.
func (w *JSONWriter) writeJSON(v any) (int, error) {
	var data []byte
	var err error

	if w.indent {
		data, err = json.MarshalIndent(v, w.indentPrefix, w.indentString)
	} else {
		data, err = json.Marshal(v)
	}

	if err != nil {
		return 0, err
	}

	// Add trailing newline for better terminal output
	data = append(data, '\n')

	return w.output.Write(data)
}

// Summary holds the lane counts of a run.
type Summary struct {
	Lanes     int `json:"lanes"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
}

// JSONReport wraps a run report with version and summary metadata.
type JSONReport struct {
	// Version is the datafetch version that produced the run.
	Version string `json:"version"`

	// Summary holds the lane counts.
	Summary Summary `json:"summary"`

	// Run is the full run report.
	Run *model.RunReport `json:"run"`
}

// NewJSONReport creates a JSONReport wrapper with version information.
func NewJSONReport(report *model.RunReport, version string) *JSONReport {
	return &JSONReport{
		Version: version,
		Summary: Summary{
			Lanes:     len(report.Lanes),
			Succeeded: report.Succeeded(),
			Failed:    report.Failed(),
		},
		Run: report,
	}
}

// FullJSONWriter outputs run reports inside a JSONReport envelope.
type FullJSONWriter struct {
	*JSONWriter

	// version is the datafetch version string.
	version string
}

// NewFullJSONWriter creates a writer for enveloped run reports.
func NewFullJSONWriter(output io.Writer, version string, opts ...JSONWriterOption) *FullJSONWriter {
	return &FullJSONWriter{
		JSONWriter: NewJSONWriter(output, opts...),
		version:    version,
	}
}

// Write outputs the run report wrapped with metadata.
func (w *FullJSONWriter) Write(report *model.RunReport) (int, error) {
	return w.writeJSON(NewJSONReport(report, w.version))
}
