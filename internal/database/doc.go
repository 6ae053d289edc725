// Package database provides the SQLite run history for datafetch.
//
// HistoryDB stores:
//   - One row per run with its lane counts and the full JSON report
//   - One row per lane with its paths, digest and failure fields
//
// SQLite (via modernc.org/sqlite) keeps the history in a single file
// without CGO. WAL mode allows reading the history while a run writes.
package database
