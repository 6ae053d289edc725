// Package report renders run summaries.
//
// This package contains writers for different output formats:
//   - SimpleWriter: Human-readable text output for terminal display
//   - JSONWriter: Structured JSON output for tool integration
//   - MarkdownWriter: Markdown output for sharing and documentation
//
// Writers render a model.RunReport, the outcome of one pipeline run. They
// never touch the payload or derived files themselves; those are written by
// the storage and derive packages.
//
// Writers implement the Writer interface, allowing them to be used
// interchangeably and composed for multi-format output.
package report
