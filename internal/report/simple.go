package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/tmontague/datafetch/internal/model"
)

// SimpleWriter outputs human-readable text summaries.
// This format is designed for terminal display: plain ASCII sections that
// can be piped to files or other tools.
type SimpleWriter struct {
	baseWriter

	// verbose enables additional detail in the output.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithVerbose enables verbose output with digests and performed steps.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs the run summary in human-readable format.
func (w *SimpleWriter) Write(report *model.RunReport) (int, error) {
	var sb strings.Builder

	w.writeHeader(&sb, report)
	w.writeLanes(&sb, report)
	w.writeFooter(&sb, report)

	return w.output.Write([]byte(sb.String()))
}

// writeHeader writes the run information block.
func (w *SimpleWriter) writeHeader(sb *strings.Builder, report *model.RunReport) {
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("                          DATAFETCH RUN\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n\n")

	fmt.Fprintf(sb, "Run ID:    %s\n", report.ID)
	fmt.Fprintf(sb, "Root:      %s\n", report.Root)
	fmt.Fprintf(sb, "Started:   %s\n", report.StartedAt.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(sb, "Elapsed:   %s\n", report.Duration().Round(time.Millisecond))
	fmt.Fprintf(sb, "Lanes:     %d succeeded, %d failed\n", report.Succeeded(), report.Failed())
	sb.WriteString("\n")
}

// writeLanes writes one block per lane.
func (w *SimpleWriter) writeLanes(sb *strings.Builder, report *model.RunReport) {
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString("LANES\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")

	if len(report.Lanes) == 0 {
		sb.WriteString("  No lanes selected\n\n")
		return
	}

	for _, lane := range report.Lanes {
		indicator := "+"
		if lane.Failed() {
			indicator = "!"
		}
		fmt.Fprintf(sb, "[%s] %s: %s\n", indicator, lane.Kind(), laneStatus(lane))
		fmt.Fprintf(sb, "    Source:  %s\n", lane.Fetch.SourceURL)
		if lane.PayloadPath != "" {
			fmt.Fprintf(sb, "    Payload: %s (%s)\n", lane.PayloadPath, humanize.Bytes(uint64(max(lane.PayloadBytes, 0))))
		}
		if lane.ReportPath != "" {
			fmt.Fprintf(sb, "    Report:  %s\n", lane.ReportPath)
		}
		if lane.Failed() {
			fmt.Fprintf(sb, "    Error:   %s\n", lane.ErrorMessage)
		}
		if w.verbose {
			if lane.PayloadDigest != "" {
				fmt.Fprintf(sb, "    Digest:  %s\n", lane.PayloadDigest)
			}
			fmt.Fprintf(sb, "    Steps:   %s\n", strings.Join(lane.PerformedSteps, ", "))
		}
		sb.WriteString("\n")
	}
}

// writeFooter writes the closing rule and total transferred.
func (w *SimpleWriter) writeFooter(sb *strings.Builder, report *model.RunReport) {
	var total int64
	for _, lane := range report.Lanes {
		total += lane.PayloadBytes
	}

	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	fmt.Fprintf(sb, "Total written: %s\n", humanize.Bytes(uint64(max(total, 0))))
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
}
