// Package model defines the core data structures used throughout datafetch.
//
// This package contains the following main types:
//   - ContentKind: The four payload kinds (text, CSV, Excel, JSON)
//   - FetchRequest / ReportRequest: Per-lane instructions for the pipeline
//   - Payload: A decoded response body, owned by the fetch → write hand-off
//   - LaneResult / RunReport: The observable outcome of a pipeline run
//   - Error: The structured error taxonomy (network, decode, schema, filesystem)
//
// Models live in their own package so that fetch, storage, derive, pipeline
// and report can share them without import cycles. Result types are
// serializable to JSON for run summaries and the history database.
package model
