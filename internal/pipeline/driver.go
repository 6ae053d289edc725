package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/tmontague/datafetch/internal/config"
	"github.com/tmontague/datafetch/internal/model"
)

// RunRecorder stores a finished run. *database.HistoryDB implements it.
type RunRecorder interface {
	SaveRun(ctx context.Context, report *model.RunReport) error
}

// Driver runs every lane it is given through fetch, write and process.
// Lane selection (config.Config.SelectedLanes) happens before the driver.
//
// Lanes run one after another. The acquisition phase fetches and writes
// every lane; the processing phase then derives every lane's report from
// the files on disk. A failing lane is logged and recorded in the returned
// RunReport and never stops the other lanes.
type Driver struct {
	lanes     []config.Lane
	fetcher   Fetcher
	writer    PayloadWriter
	processor ReportProcessor

	// skipProcess disables the processing phase.
	skipProcess bool

	// root is recorded in the run report.
	root string

	// recorder, if set, receives the finished run.
	recorder RunRecorder

	// newID generates run IDs.
	newID func() string

	logger *slog.Logger
}

// DriverOption configures a Driver.
type DriverOption func(*Driver)

// WithSkipProcess disables the processing phase when skip is true.
func WithSkipProcess(skip bool) DriverOption {
	return func(d *Driver) {
		d.skipProcess = skip
	}
}

// WithRoot sets the root directory recorded in the run report.
func WithRoot(root string) DriverOption {
	return func(d *Driver) {
		d.root = root
	}
}

// WithRecorder sets the history recorder for finished runs.
func WithRecorder(recorder RunRecorder) DriverOption {
	return func(d *Driver) {
		d.recorder = recorder
	}
}

// WithRunIDFunc sets the run ID generator. The default generates UUIDs.
func WithRunIDFunc(fn func() string) DriverOption {
	return func(d *Driver) {
		if fn != nil {
			d.newID = fn
		}
	}
}

// WithDriverLogger sets a custom logger for the driver and its pipelines.
func WithDriverLogger(logger *slog.Logger) DriverOption {
	return func(d *Driver) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// NewDriver creates a Driver for lanes.
func NewDriver(
	lanes []config.Lane,
	fetcher Fetcher,
	writer PayloadWriter,
	processor ReportProcessor,
	opts ...DriverOption,
) *Driver {
	d := &Driver{
		lanes:     lanes,
		fetcher:   fetcher,
		writer:    writer,
		processor: processor,
		newID:     uuid.NewString,
		logger:    slog.Default(),
	}

	for _, opt := range opts {
		opt(d)
	}

	return d
}

// Run attempts every lane and returns the outcome.
// Run always completes; per-lane failures are recorded in the report.
// A failure to record the run in the history is logged, not returned.
func (d *Driver) Run(ctx context.Context) *model.RunReport {
	report := model.NewRunReport(d.newID(), d.root)

	for _, lane := range d.lanes {
		result := model.NewLaneResult(lane.FetchRequest(), lane.ReportRequest())
		result.StartedAt = time.Now()
		report.Lanes = append(report.Lanes, result)
	}

	acquire := New(WithLogger(d.logger))
	acquire.AddSteps(
		NewFetchStep(d.fetcher, d.logger),
		NewWriteStep(d.writer, d.logger),
	)
	process := New(WithLogger(d.logger))
	process.AddStep(NewProcessStep(d.processor, d.logger))

	d.logger.Info("starting run",
		"run_id", report.ID,
		"lanes", len(report.Lanes),
	)
	d.logger.Debug("run phases",
		"acquire", acquire.StepNames(),
		"process", process.StepNames(),
		"skip_process", d.skipProcess,
	)
	for _, lane := range report.Lanes {
		_ = acquire.Execute(ctx, lane) //nolint:errcheck // recorded on the lane
		lane.FinishedAt = time.Now()
	}

	// Every lane is processed, even after a failed fetch: an earlier
	// payload may still be on disk.
	if !d.skipProcess {
		for _, lane := range report.Lanes {
			_ = process.Execute(ctx, lane) //nolint:errcheck // recorded on the lane
			lane.FinishedAt = time.Now()
		}
	}

	report.FinishedAt = time.Now()

	d.logger.Info("run complete",
		"run_id", report.ID,
		"succeeded", report.Succeeded(),
		"failed", report.Failed(),
		"elapsed", report.Duration(),
	)

	if d.recorder != nil {
		// A cancelled run is still recorded.
		if err := d.recorder.SaveRun(context.WithoutCancel(ctx), report); err != nil {
			d.logger.Warn("failed to record run history",
				"run_id", report.ID,
				"error", err,
			)
		}
	}

	return report
}
