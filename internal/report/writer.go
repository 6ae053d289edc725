package report

import (
	"fmt"
	"io"

	"github.com/tmontague/datafetch/internal/model"
)

// Format selects a report writer.
type Format string

// Supported report formats.
const (
	FormatText     Format = "text"
	FormatJSON     Format = "json"
	FormatMarkdown Format = "markdown"
)

// Writer defines the interface for run summary output.
type Writer interface {
	// Write outputs the run summary to the configured destination.
	// Returns the number of bytes written and any error encountered.
	Write(report *model.RunReport) (int, error)
}

// NewWriter returns the writer for format. version is embedded in the JSON
// envelope; verbose adds per-lane detail to the text output.
func NewWriter(format Format, output io.Writer, version string, verbose bool) Writer {
	switch format {
	case FormatJSON:
		return NewFullJSONWriter(output, version, WithPrettyPrint())
	case FormatMarkdown:
		return NewMarkdownWriter(output)
	default:
		return NewSimpleWriter(output, WithVerbose(verbose))
	}
}

// MultiWriter writes to multiple Writers in order.
// Our Writer renders reports rather than raw bytes, so io.MultiWriter
// does not apply.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a Writer that writes to all provided Writers.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// Write outputs the report to all configured Writers.
// Returns the total bytes written across all writers.
// Stops on first error encountered.
func (m *MultiWriter) Write(report *model.RunReport) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.Write(report)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// baseWriter provides common functionality for report writers.
type baseWriter struct {
	output io.Writer
}

// newBaseWriter creates a baseWriter with the given output destination.
func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}

// laneStatus returns a short status for a lane.
func laneStatus(lane *model.LaneResult) string {
	if !lane.Failed() {
		return "ok"
	}
	return fmt.Sprintf("failed at %s (%s)", lane.FailedStage, lane.ErrorKind)
}

// orDash returns s, or "-" when s is empty.
func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
