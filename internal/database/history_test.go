package database

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/tmontague/datafetch/internal/model"
)

// setupTestDB creates a temporary database for testing.
func setupTestDB(t *testing.T) *HistoryDB {
	t.Helper()

	db, err := Open(t.TempDir(), DefaultOptions())
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	return db
}

// newTestRun creates a run started at start with a csv and a json lane.
// The json lane fails at fetch.
func newTestRun(id string, start time.Time, digest string) *model.RunReport {
	report := model.NewRunReport(id, "/data")
	report.StartedAt = start
	report.FinishedAt = start.Add(time.Second)

	csv := model.NewLaneResult(
		model.FetchRequest{Kind: model.KindCSV, SourceURL: "https://example.com/movies.csv"},
		model.ReportRequest{Kind: model.KindCSV, OutputPath: "result_csv.txt"},
	)
	csv.PayloadPath = "/data/data-csv/data.csv"
	csv.PayloadBytes = 42
	csv.PayloadDigest = digest
	csv.ReportPath = "/data/result_csv.txt"

	js := model.NewLaneResult(
		model.FetchRequest{Kind: model.KindJSON, SourceURL: "https://example.com/movies.json"},
		model.ReportRequest{Kind: model.KindJSON},
	)
	js.Fail(model.StageFetch, model.NewError(model.ErrNetwork, "fetch", js.Fetch.SourceURL, errors.New("timeout")))

	report.Lanes = append(report.Lanes, csv, js)
	return report
}

// TestOpen tests database opening and creation.
func TestOpen(t *testing.T) {
	t.Parallel()

	t.Run("creates database in new directory", func(t *testing.T) {
		t.Parallel()

		dbDir := filepath.Join(t.TempDir(), "newdir", "subdir")
		db, err := Open(dbDir, DefaultOptions())
		if err != nil {
			t.Fatalf("failed to open database: %v", err)
		}
		defer db.Close()

		if _, err := os.Stat(filepath.Join(dbDir, FileName)); err != nil {
			t.Errorf("database file was not created: %v", err)
		}
		if db.Path() != filepath.Join(dbDir, FileName) {
			t.Errorf("unexpected path %q", db.Path())
		}
	})

	t.Run("CreateIfNotExists=false returns error when database does not exist", func(t *testing.T) {
		t.Parallel()

		dbDir := filepath.Join(t.TempDir(), "missing")
		if _, err := Open(dbDir, Options{CreateIfNotExists: false}); err == nil {
			t.Error("expected error for missing database")
		}
		if _, err := os.Stat(dbDir); !os.IsNotExist(err) {
			t.Error("expected no directory to be created")
		}
	})

	t.Run("reopens existing database", func(t *testing.T) {
		t.Parallel()

		dbDir := t.TempDir()
		db, err := Open(dbDir, DefaultOptions())
		if err != nil {
			t.Fatalf("failed to open database: %v", err)
		}
		if err := db.SaveRun(context.Background(), newTestRun("r1", time.Now(), "d1")); err != nil {
			t.Fatalf("SaveRun() error = %v", err)
		}
		_ = db.Close()

		db, err = Open(dbDir, Options{CreateIfNotExists: false, EnableWAL: true})
		if err != nil {
			t.Fatalf("failed to reopen database: %v", err)
		}
		defer db.Close()

		runs, err := db.ListRuns(context.Background(), 0)
		if err != nil || len(runs) != 1 {
			t.Errorf("expected 1 persisted run, got %d, %v", len(runs), err)
		}
	})
}

// TestSaveAndGetRun tests the run round trip.
func TestSaveAndGetRun(t *testing.T) {
	t.Parallel()

	t.Run("round trip keeps lanes and failures", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)
		ctx := context.Background()
		start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

		if err := db.SaveRun(ctx, newTestRun("run-1", start, "abc")); err != nil {
			t.Fatalf("SaveRun() error = %v", err)
		}

		got, err := db.GetRun(ctx, "run-1")
		if err != nil {
			t.Fatalf("GetRun() error = %v", err)
		}
		if got.ID != "run-1" || got.Root != "/data" || !got.StartedAt.Equal(start) {
			t.Errorf("unexpected run: %+v", got)
		}
		if len(got.Lanes) != 2 {
			t.Fatalf("expected 2 lanes, got %d", len(got.Lanes))
		}
		if got.Lanes[0].Kind() != model.KindCSV || got.Lanes[0].PayloadDigest != "abc" {
			t.Errorf("unexpected csv lane: %+v", got.Lanes[0])
		}
		js := got.Lanes[1]
		if !js.Failed() || js.FailedStage != model.StageFetch || js.ErrorKind != "network" {
			t.Errorf("expected json failure to survive, got %+v", js)
		}
		if got.Failed() != 1 || got.Succeeded() != 1 {
			t.Errorf("expected 1 failed and 1 succeeded, got %d and %d", got.Failed(), got.Succeeded())
		}
	})

	t.Run("unknown run", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)
		if _, err := db.GetRun(context.Background(), "nope"); !errors.Is(err, ErrRunNotFound) {
			t.Errorf("expected ErrRunNotFound, got %v", err)
		}
	})

	t.Run("duplicate run ID is rejected atomically", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)
		ctx := context.Background()
		if err := db.SaveRun(ctx, newTestRun("dup", time.Now(), "a")); err != nil {
			t.Fatalf("SaveRun() error = %v", err)
		}
		if err := db.SaveRun(ctx, newTestRun("dup", time.Now(), "b")); err == nil {
			t.Fatal("expected error for duplicate run ID")
		}

		lanes, err := db.LaneHistory(ctx, model.KindCSV, 0)
		if err != nil {
			t.Fatalf("LaneHistory() error = %v", err)
		}
		if len(lanes) != 1 {
			t.Errorf("expected the failed save to leave no lanes behind, got %d", len(lanes))
		}
	})
}

// TestListRuns tests listing run summaries.
func TestListRuns(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	for i, id := range []string{"first", "second", "third"} {
		if err := db.SaveRun(ctx, newTestRun(id, base.Add(time.Duration(i)*time.Hour), id)); err != nil {
			t.Fatalf("SaveRun(%s) error = %v", id, err)
		}
	}

	t.Run("newest first", func(t *testing.T) {
		t.Parallel()

		runs, err := db.ListRuns(ctx, 0)
		if err != nil {
			t.Fatalf("ListRuns() error = %v", err)
		}
		if len(runs) != 3 {
			t.Fatalf("expected 3 runs, got %d", len(runs))
		}
		if runs[0].ID != "third" || runs[2].ID != "first" {
			t.Errorf("unexpected order: %s, %s, %s", runs[0].ID, runs[1].ID, runs[2].ID)
		}
		if runs[0].Succeeded != 1 || runs[0].Failed != 1 {
			t.Errorf("unexpected counts: %+v", runs[0])
		}
		if !runs[0].StartedAt.Equal(base.Add(2 * time.Hour)) {
			t.Errorf("unexpected start time %v", runs[0].StartedAt)
		}
	})

	t.Run("limit", func(t *testing.T) {
		t.Parallel()

		runs, err := db.ListRuns(ctx, 2)
		if err != nil {
			t.Fatalf("ListRuns() error = %v", err)
		}
		if len(runs) != 2 || runs[1].ID != "second" {
			t.Errorf("expected the two newest runs, got %v", runs)
		}
	})

	t.Run("lane history tracks digests", func(t *testing.T) {
		t.Parallel()

		lanes, err := db.LaneHistory(ctx, model.KindCSV, 0)
		if err != nil {
			t.Fatalf("LaneHistory() error = %v", err)
		}
		if len(lanes) != 3 {
			t.Fatalf("expected 3 csv lanes, got %d", len(lanes))
		}
		if lanes[0].PayloadDigest != "third" || lanes[0].RunID != "third" || lanes[0].PayloadBytes != 42 {
			t.Errorf("unexpected newest lane: %+v", lanes[0])
		}

		failed, err := db.LaneHistory(ctx, model.KindJSON, 1)
		if err != nil {
			t.Fatalf("LaneHistory() error = %v", err)
		}
		if len(failed) != 1 || failed[0].FailedStage != model.StageFetch || failed[0].ErrorKind != "network" {
			t.Errorf("unexpected json lane history: %+v", failed)
		}
	})
}

// TestParseTimestamp tests timestamp parsing fallbacks.
func TestParseTimestamp(t *testing.T) {
	t.Parallel()

	want := time.Date(2026, 3, 1, 12, 30, 0, 0, time.UTC)
	for _, s := range []string{
		formatTimestamp(want),
		"2026-03-01 12:30:00",
		"2026-03-01T12:30:00",
	} {
		if got := parseTimestamp(s); !got.Equal(want) {
			t.Errorf("parseTimestamp(%q) = %v, want %v", s, got, want)
		}
	}
	if !parseTimestamp("garbage").IsZero() {
		t.Error("expected zero time for unparseable input")
	}
}
