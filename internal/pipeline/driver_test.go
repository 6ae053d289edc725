package pipeline

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/tmontague/datafetch/internal/config"
	"github.com/tmontague/datafetch/internal/derive"
	"github.com/tmontague/datafetch/internal/fetch"
	"github.com/tmontague/datafetch/internal/model"
	"github.com/tmontague/datafetch/internal/storage"
	"github.com/tmontague/datafetch/internal/tabular"
)

// fakeRecorder captures saved runs.
type fakeRecorder struct {
	saved []*model.RunReport
	err   error
}

// SaveRun implements RunRecorder.
func (r *fakeRecorder) SaveRun(_ context.Context, report *model.RunReport) error {
	r.saved = append(r.saved, report)
	return r.err
}

// ctxRecorder records the run and the state of the context it was given.
type ctxRecorder struct {
	saved  *model.RunReport
	ctxErr error
}

// SaveRun implements RunRecorder.
func (r *ctxRecorder) SaveRun(ctx context.Context, report *model.RunReport) error {
	r.saved = report
	r.ctxErr = ctx.Err()
	return ctx.Err()
}

// testLanes returns the default layout with sources below baseURL,
// restricted to kinds when any are given.
func testLanes(baseURL string, kinds ...model.ContentKind) []config.Lane {
	cfg := config.NewConfig()
	for i := range cfg.Lanes {
		cfg.Lanes[i].SourceURL = baseURL + "/" + cfg.Lanes[i].Kind.String()
	}
	cfg.Kinds = kinds
	return cfg.SelectedLanes()
}

// excelPayload builds a small movie workbook.
func excelPayload(t *testing.T) []byte {
	t.Helper()

	table := &tabular.Table{
		Header: []string{"Film", "Domestic Gross"},
		Rows:   [][]string{{"Ten", "10"}, {"Thirty", "30"}, {"Twenty", "20"}},
	}
	data, err := table.ExcelBytes()
	if err != nil {
		t.Fatalf("ExcelBytes() error = %v", err)
	}
	return data
}

// movieServer serves the four movie datasets. Paths listed in fail return 500.
func movieServer(t *testing.T, excel []byte, fail ...string) *httptest.Server {
	t.Helper()

	bodies := map[string][]byte{
		"/text":  []byte("a b a"),
		"/csv":   []byte("Film,Audience score %,Profitability\nA,50,1.0\nB,70,3.0\n"),
		"/excel": excel,
		"/json":  []byte(`[{"title": "X", "genres": ["Drama", "War"]}]`),
	}
	for _, p := range fail {
		delete(bodies, p)
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := bodies[r.URL.Path]
		if !ok {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		_, _ = w.Write(body) //nolint:errcheck // test server
	}))
	t.Cleanup(server.Close)
	return server
}

// newTestDriver wires a driver with the real fetch, storage and derive packages.
func newTestDriver(t *testing.T, server *httptest.Server, root string, lanes []config.Lane, opts ...DriverOption) *Driver {
	t.Helper()

	f, err := fetch.New(fetch.WithHTTPClient(server.Client()))
	if err != nil {
		t.Fatalf("fetch.New() error = %v", err)
	}
	store := storage.NewWriter(root)

	opts = append([]DriverOption{WithRoot(root)}, opts...)
	return NewDriver(lanes, f, store, derive.NewProcessor(store), opts...)
}

// TestDriverRun tests complete runs over all four lanes.
func TestDriverRun(t *testing.T) {
	t.Parallel()

	t.Run("all lanes succeed", func(t *testing.T) {
		t.Parallel()

		root := t.TempDir()
		server := movieServer(t, excelPayload(t))
		recorder := &fakeRecorder{}
		d := newTestDriver(t, server, root, testLanes(server.URL),
			WithRecorder(recorder), WithRunIDFunc(func() string { return "run-1" }))

		report := d.Run(context.Background())

		if report.ID != "run-1" || report.Root != root {
			t.Errorf("unexpected report identity: %q %q", report.ID, report.Root)
		}
		if len(report.Lanes) != 4 || report.Failed() != 0 {
			t.Fatalf("expected 4 successful lanes, got %d lanes, %d failed", len(report.Lanes), report.Failed())
		}
		for _, lane := range report.Lanes {
			if len(lane.PerformedSteps) != 3 {
				t.Errorf("%s: expected 3 steps, got %v", lane.Kind(), lane.PerformedSteps)
			}
			if lane.PayloadDigest == "" || lane.ReportPath == "" {
				t.Errorf("%s: expected payload digest and report path", lane.Kind())
			}
		}

		checks := map[string]string{
			"data-txt/data.txt": "a b a",
			"result_txt.txt":    "a: 2\nb: 1\n",
			"result_csv.txt":    "Average Audience Score %: 60.0\nAverage Profitability: 2.0\n",
			"result_json.txt":   "X: Drama, War\n",
		}
		for path, want := range checks {
			got, err := os.ReadFile(filepath.Join(root, path))
			if err != nil {
				t.Errorf("failed to read %s: %v", path, err)
				continue
			}
			if string(got) != want {
				t.Errorf("%s: expected %q, got %q", path, want, got)
			}
		}

		excel, err := os.ReadFile(filepath.Join(root, "result_excel.xlsx"))
		if err != nil {
			t.Fatalf("failed to read sorted export: %v", err)
		}
		table, err := tabular.ReadExcel(bytes.NewReader(excel))
		if err != nil {
			t.Fatalf("ReadExcel() error = %v", err)
		}
		if table.Cell(0, 0) != "Thirty" || table.Cell(1, 0) != "Twenty" || table.Cell(2, 0) != "Ten" {
			t.Errorf("unexpected sort order: %v", table.Rows)
		}

		if len(recorder.saved) != 1 || recorder.saved[0] != report {
			t.Error("expected the run to be recorded once")
		}
		if report.FinishedAt.Before(report.StartedAt) {
			t.Error("expected FinishedAt after StartedAt")
		}
	})

	t.Run("a failing lane does not abort the others", func(t *testing.T) {
		t.Parallel()

		root := t.TempDir()
		server := movieServer(t, excelPayload(t), "/csv")
		d := newTestDriver(t, server, root, testLanes(server.URL))

		report := d.Run(context.Background())

		if report.Failed() != 1 || report.Succeeded() != 3 {
			t.Fatalf("expected 1 failed and 3 succeeded, got %d and %d", report.Failed(), report.Succeeded())
		}

		csv := report.Lane(model.KindCSV)
		if csv.FailedStage != model.StageFetch || !errors.Is(csv.Err, model.ErrNetwork) {
			t.Errorf("expected csv to fail at fetch with a network error, got %q %v", csv.FailedStage, csv.Err)
		}
		if _, err := os.Stat(filepath.Join(root, "result_csv.txt")); !os.IsNotExist(err) {
			t.Error("expected no csv report")
		}
		if _, err := os.Stat(filepath.Join(root, "result_json.txt")); err != nil {
			t.Errorf("expected json report to be written: %v", err)
		}
	})

	t.Run("stale payload is still processed after a failed fetch", func(t *testing.T) {
		t.Parallel()

		root := t.TempDir()
		store := storage.NewWriter(root)
		if _, err := store.WriteFile("data-txt/data.txt", []byte("old old")); err != nil {
			t.Fatalf("setup error: %v", err)
		}

		server := movieServer(t, excelPayload(t), "/text")
		d := newTestDriver(t, server, root, testLanes(server.URL, model.KindText))

		report := d.Run(context.Background())

		lane := report.Lane(model.KindText)
		if lane.FailedStage != model.StageFetch {
			t.Errorf("expected the fetch failure to be kept, got %q", lane.FailedStage)
		}
		got, err := os.ReadFile(filepath.Join(root, "result_txt.txt"))
		if err != nil || string(got) != "old: 2\n" {
			t.Errorf("expected report from the stale payload, got %q, %v", got, err)
		}
	})

	t.Run("schema error is recorded at the process stage", func(t *testing.T) {
		t.Parallel()

		root := t.TempDir()
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte("Film,Year\nUp,2009\n")) //nolint:errcheck // test server
		}))
		t.Cleanup(server.Close)
		d := newTestDriver(t, server, root, testLanes(server.URL, model.KindCSV))

		report := d.Run(context.Background())

		lane := report.Lane(model.KindCSV)
		if lane.FailedStage != model.StageProcess || lane.ErrorKind != "schema" {
			t.Errorf("expected schema failure at process, got %q %q", lane.FailedStage, lane.ErrorKind)
		}
		if lane.PayloadPath == "" {
			t.Error("expected payload to be written before processing failed")
		}
	})
}

// TestDriverOptions tests kind filtering, skipping and history errors.
func TestDriverOptions(t *testing.T) {
	t.Parallel()

	newFakes := func() (*fakeFetcher, *fakeProcessor) {
		payloads := make(map[string]*model.Payload)
		for _, lane := range testLanes("http://src") {
			payloads[lane.SourceURL] = model.NewTextPayload(lane.Kind, "x")
		}
		payloads["http://src/excel"] = model.NewBinaryPayload([]byte("x"))
		payloads["http://src/json"] = model.NewJSONPayload(map[string]any{})
		return &fakeFetcher{payloads: payloads}, &fakeProcessor{}
	}

	t.Run("acquisition completes before processing", func(t *testing.T) {
		t.Parallel()

		var events []string
		f, _ := newFakes()
		fetcher := fetcherFunc(func(ctx context.Context, url string, kind model.ContentKind) (*model.Payload, error) {
			events = append(events, "fetch "+kind.String())
			return f.Fetch(ctx, url, kind)
		})
		processor := processorFunc(func(_ context.Context, req model.ReportRequest) (string, error) {
			events = append(events, "process "+req.Kind.String())
			return req.OutputPath, nil
		})

		d := NewDriver(testLanes("http://src"), fetcher, storage.NewWriter(t.TempDir()), processor)
		d.Run(context.Background())

		want := []string{
			"fetch text", "fetch csv", "fetch excel", "fetch json",
			"process text", "process csv", "process excel", "process json",
		}
		if len(events) != len(want) {
			t.Fatalf("expected %v, got %v", want, events)
		}
		for i := range want {
			if events[i] != want[i] {
				t.Errorf("event %d: expected %q, got %q", i, want[i], events[i])
			}
		}
	})

	t.Run("runs only the lanes it is given", func(t *testing.T) {
		t.Parallel()

		f, p := newFakes()
		d := NewDriver(testLanes("http://src", model.KindJSON, model.KindText), f, storage.NewWriter(t.TempDir()), p)

		report := d.Run(context.Background())

		if len(report.Lanes) != 2 || report.Lanes[0].Kind() != model.KindText || report.Lanes[1].Kind() != model.KindJSON {
			t.Errorf("expected text and json lanes in config order, got %d lanes", len(report.Lanes))
		}
		if len(f.calls) != 2 {
			t.Errorf("expected 2 fetches, got %d", len(f.calls))
		}
	})

	t.Run("skip process", func(t *testing.T) {
		t.Parallel()

		f, p := newFakes()
		d := NewDriver(testLanes("http://src"), f, storage.NewWriter(t.TempDir()), p, WithSkipProcess(true))

		report := d.Run(context.Background())

		if len(p.calls) != 0 {
			t.Errorf("expected no processing, got %d calls", len(p.calls))
		}
		if report.Failed() != 0 {
			t.Errorf("expected no failures, got %d", report.Failed())
		}
	})

	t.Run("history error does not fail the run", func(t *testing.T) {
		t.Parallel()

		f, p := newFakes()
		recorder := &fakeRecorder{err: errors.New("disk full")}
		d := NewDriver(testLanes("http://src"), f, storage.NewWriter(t.TempDir()), p, WithRecorder(recorder))

		report := d.Run(context.Background())

		if report.Failed() != 0 || len(recorder.saved) != 1 {
			t.Errorf("expected a clean run recorded once, got %d failed, %d saved", report.Failed(), len(recorder.saved))
		}
	})

	t.Run("cancelled run is still recorded", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		f, p := newFakes()
		recorder := &ctxRecorder{}
		d := NewDriver(testLanes("http://src"), f, storage.NewWriter(t.TempDir()), p, WithRecorder(recorder))

		report := d.Run(ctx)

		if report.Failed() != len(report.Lanes) {
			t.Errorf("expected every lane to fail on cancellation, got %d of %d", report.Failed(), len(report.Lanes))
		}
		if recorder.saved != report {
			t.Fatal("expected the cancelled run to be recorded")
		}
		if recorder.ctxErr != nil {
			t.Errorf("expected a live context for recording, got %v", recorder.ctxErr)
		}
	})

	t.Run("default run IDs are unique", func(t *testing.T) {
		t.Parallel()

		f, p := newFakes()
		d := NewDriver(testLanes("http://src"), f, storage.NewWriter(t.TempDir()), p, WithSkipProcess(true))

		first, second := d.Run(context.Background()), d.Run(context.Background())
		if first.ID == "" || first.ID == second.ID {
			t.Errorf("expected distinct run IDs, got %q and %q", first.ID, second.ID)
		}
	})
}

// fetcherFunc adapts a function to Fetcher.
type fetcherFunc func(ctx context.Context, url string, kind model.ContentKind) (*model.Payload, error)

// Fetch implements Fetcher.
func (f fetcherFunc) Fetch(ctx context.Context, url string, kind model.ContentKind) (*model.Payload, error) {
	return f(ctx, url, kind)
}

// processorFunc adapts a function to ReportProcessor.
type processorFunc func(ctx context.Context, req model.ReportRequest) (string, error)

// Process implements ReportProcessor.
func (f processorFunc) Process(ctx context.Context, req model.ReportRequest) (string, error) {
	return f(ctx, req)
}
