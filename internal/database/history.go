package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/tmontague/datafetch/internal/model"
)

// FileName is the name of the history database inside its directory.
const FileName = "datafetch.db"

// ErrRunNotFound is returned by GetRun when no run has the requested ID.
var ErrRunNotFound = errors.New("run not found")

// HistoryDB provides SQLite-based storage for run reports.
type HistoryDB struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string
}

// Options configures HistoryDB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates a HistoryDB in dbDir.
// If CreateIfNotExists is false and the database doesn't exist, an error is returned.
func Open(dbDir string, opts Options) (*HistoryDB, error) {
	dbPath := filepath.Join(dbDir, FileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("history database not found at %s", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else {
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// mode=rw refuses to create a missing file; mode=rwc allows it.
	dsn := dbPath + "?mode=rw"
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite supports a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	hdb := &HistoryDB{
		db:     db,
		dbPath: dbPath,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := hdb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return hdb, nil
}

// Path returns the database file path.
func (h *HistoryDB) Path() string {
	return h.dbPath
}

// Close closes the database connection.
func (h *HistoryDB) Close() error {
	return h.db.Close()
}

// createTables creates the database schema if it doesn't exist.
func (h *HistoryDB) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		root TEXT NOT NULL,
		started_at TEXT NOT NULL,
		finished_at TEXT NOT NULL,
		succeeded INTEGER NOT NULL,
		failed INTEGER NOT NULL,
		report_json TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);

	CREATE TABLE IF NOT EXISTS lane_results (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		position INTEGER NOT NULL,
		kind TEXT NOT NULL,
		source_url TEXT NOT NULL,
		payload_path TEXT,
		payload_bytes INTEGER,
		payload_digest TEXT,
		report_path TEXT,
		failed_stage TEXT,
		error_kind TEXT,
		error_message TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_lanes_run ON lane_results(run_id);
	CREATE INDEX IF NOT EXISTS idx_lanes_kind ON lane_results(kind);
	`

	_, err := h.db.ExecContext(context.Background(), schema)
	return err
}

// SaveRun stores a run report and its lanes in one transaction.
// It implements pipeline.RunRecorder.
func (h *HistoryDB) SaveRun(ctx context.Context, report *model.RunReport) error {
	reportJSON, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to serialize run: %w", err)
	}

	tx, err := h.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback() //nolint:errcheck // no-op after commit
	}()

	_, err = tx.ExecContext(ctx, `
	INSERT INTO runs (id, root, started_at, finished_at, succeeded, failed, report_json)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		report.ID,
		report.Root,
		formatTimestamp(report.StartedAt),
		formatTimestamp(report.FinishedAt),
		report.Succeeded(),
		report.Failed(),
		string(reportJSON),
	)
	if err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}

	for i, lane := range report.Lanes {
		_, err = tx.ExecContext(ctx, `
		INSERT INTO lane_results (run_id, position, kind, source_url, payload_path, payload_bytes,
			payload_digest, report_path, failed_stage, error_kind, error_message)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			report.ID,
			i,
			lane.Kind().String(),
			lane.Fetch.SourceURL,
			lane.PayloadPath,
			lane.PayloadBytes,
			lane.PayloadDigest,
			lane.ReportPath,
			lane.FailedStage,
			lane.ErrorKind,
			lane.ErrorMessage,
		)
		if err != nil {
			return fmt.Errorf("failed to save lane %s: %w", lane.Kind(), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit run: %w", err)
	}
	return nil
}

// RunSummary is the metadata of a stored run.
type RunSummary struct {
	ID         string    `json:"id"`
	Root       string    `json:"root"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Succeeded  int       `json:"succeeded"`
	Failed     int       `json:"failed"`
}

// ListRuns returns up to limit runs, newest first. A limit <= 0 returns all runs.
func (h *HistoryDB) ListRuns(ctx context.Context, limit int) ([]RunSummary, error) {
	if limit <= 0 {
		limit = -1 // SQLite: no limit
	}

	rows, err := h.db.QueryContext(ctx, `
	SELECT id, root, started_at, finished_at, succeeded, failed
	FROM runs
	ORDER BY started_at DESC, rowid DESC
	LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var results []RunSummary
	for rows.Next() {
		var s RunSummary
		var started, finished string
		if err := rows.Scan(&s.ID, &s.Root, &started, &finished, &s.Succeeded, &s.Failed); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		s.StartedAt = parseTimestamp(started)
		s.FinishedAt = parseTimestamp(finished)
		results = append(results, s)
	}

	return results, rows.Err()
}

// GetRun retrieves a full run report by ID.
// Returns ErrRunNotFound if no run has that ID.
func (h *HistoryDB) GetRun(ctx context.Context, id string) (*model.RunReport, error) {
	var reportJSON string
	err := h.db.QueryRowContext(ctx, `SELECT report_json FROM runs WHERE id = ?`, id).Scan(&reportJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	var report model.RunReport
	if err := json.Unmarshal([]byte(reportJSON), &report); err != nil {
		return nil, fmt.Errorf("failed to parse run: %w", err)
	}
	return &report, nil
}

// LaneRecord is one stored lane outcome.
type LaneRecord struct {
	RunID         string    `json:"run_id"`
	StartedAt     time.Time `json:"started_at"`
	Kind          string    `json:"kind"`
	SourceURL     string    `json:"source_url"`
	PayloadBytes  int64     `json:"payload_bytes"`
	PayloadDigest string    `json:"payload_digest,omitempty"`
	FailedStage   string    `json:"failed_stage,omitempty"`
	ErrorKind     string    `json:"error_kind,omitempty"`
}

// LaneHistory returns up to limit outcomes of the kind's lane, newest first.
// Comparing digests across runs shows when a source changed.
func (h *HistoryDB) LaneHistory(ctx context.Context, kind model.ContentKind, limit int) ([]LaneRecord, error) {
	if limit <= 0 {
		limit = -1
	}

	rows, err := h.db.QueryContext(ctx, `
	SELECT l.run_id, r.started_at, l.kind, l.source_url, COALESCE(l.payload_bytes, 0),
		COALESCE(l.payload_digest, ''), COALESCE(l.failed_stage, ''), COALESCE(l.error_kind, '')
	FROM lane_results l
	JOIN runs r ON r.id = l.run_id
	WHERE l.kind = ?
	ORDER BY r.started_at DESC, l.id DESC
	LIMIT ?
	`, kind.String(), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query lane history: %w", err)
	}
	defer rows.Close()

	var results []LaneRecord
	for rows.Next() {
		var rec LaneRecord
		var started string
		if err := rows.Scan(&rec.RunID, &started, &rec.Kind, &rec.SourceURL, &rec.PayloadBytes,
			&rec.PayloadDigest, &rec.FailedStage, &rec.ErrorKind); err != nil {
			return nil, fmt.Errorf("failed to scan lane: %w", err)
		}
		rec.StartedAt = parseTimestamp(started)
		results = append(results, rec)
	}

	return results, rows.Err()
}

// formatTimestamp stores times in UTC with nanoseconds so they sort as text.
func formatTimestamp(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000000000Z07:00")
}

// timestampFormats contains the timestamp formats that SQLite may return.
// The order matters: more specific formats should come first.
var timestampFormats = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05", // SQLite default datetime format
	"2006-01-02T15:04:05",
}

// parseTimestamp attempts to parse a timestamp string using multiple formats.
// If parsing fails with all formats, returns zero time.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
