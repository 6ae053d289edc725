package report

import (
	"io"
	"strconv"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"
	"github.com/tmontague/datafetch/internal/model"
)

// MarkdownWriter outputs run reports in Markdown format.
// This format is designed for documentation and sharing.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs the run report in Markdown format.
func (w *MarkdownWriter) Write(report *model.RunReport) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, report)
	w.writeOutcome(md, report)
	w.writeLanes(md, report)
	w.writeFailures(md, report)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// writeHeader writes the run information table.
func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, report *model.RunReport) {
	md.H1("Datafetch Run")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Run ID", "`" + report.ID + "`"},
			{"Root", "`" + report.Root + "`"},
			{"Started", report.StartedAt.Format("2006-01-02 15:04:05 MST")},
			{"Elapsed", report.Duration().String()},
			{"Lanes", strconv.Itoa(len(report.Lanes))},
		},
	})
	md.PlainText("")
}

// writeOutcome writes the success chart and an alert for the run outcome.
func (w *MarkdownWriter) writeOutcome(md *markdown.Markdown, report *model.RunReport) {
	md.H2("Outcome")
	md.PlainText("")

	if len(report.Lanes) > 0 {
		chart := piechart.NewPieChart(
			io.Discard,
			piechart.WithTitle("Lane Outcome"),
			piechart.WithShowData(true),
		)
		if n := report.Succeeded(); n > 0 {
			chart.LabelAndIntValue("Succeeded", uint64(n))
		}
		if n := report.Failed(); n > 0 {
			chart.LabelAndIntValue("Failed", uint64(n))
		}
		md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
		md.PlainText("")
	}

	switch {
	case len(report.Lanes) == 0:
		md.Note("No lanes were selected for this run.")
	case report.Succeeded() == 0:
		md.Cautionf("Every lane failed. %d lane(s) produced no report.", report.Failed())
	case report.Failed() > 0:
		md.Warningf("%d of %d lane(s) failed.", report.Failed(), len(report.Lanes))
	default:
		md.Tip("All lanes completed.")
	}
	md.PlainText("")
}

// writeLanes writes the lane table.
func (w *MarkdownWriter) writeLanes(md *markdown.Markdown, report *model.RunReport) {
	md.H2("Lanes")
	md.PlainText("")

	if len(report.Lanes) == 0 {
		md.PlainText("No lanes.")
		md.PlainText("")
		return
	}

	rows := make([][]string, len(report.Lanes))
	for i, lane := range report.Lanes {
		rows[i] = []string{
			lane.Kind().String(),
			laneStatus(lane),
			orDash(lane.PayloadPath),
			orDash(lane.ReportPath),
		}
	}

	md.Table(markdown.TableSet{
		Header: []string{"Kind", "Status", "Payload", "Report"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeFailures writes the error message of every failed lane.
func (w *MarkdownWriter) writeFailures(md *markdown.Markdown, report *model.RunReport) {
	if report.Failed() == 0 {
		return
	}

	md.H2("Failures")
	md.PlainText("")
	for _, lane := range report.Lanes {
		if lane.Failed() {
			md.Details(lane.Kind().String()+" ("+lane.FailedStage+")", lane.ErrorMessage)
		}
	}
	md.PlainText("")
}

// writeFooter writes the report footer.
func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Generated by datafetch*")
}
