package pipeline

import (
	"context"
	"log/slog"

	"github.com/tmontague/datafetch/internal/model"
)

// Step defines the interface that all pipeline steps must implement.
// Steps are executed in sequence, each receiving the lane result filled in
// by the previous steps.
type Step interface {
	// Do executes the step for one lane.
	// A returned error is recorded on the lane by the pipeline.
	Do(ctx context.Context, lane *model.LaneResult) error

	// Name returns the step's name. It doubles as the failed stage name.
	Name() string
}

// Pipeline orchestrates the execution of multiple steps for one lane.
type Pipeline struct {
	// steps contains the ordered list of steps to execute.
	steps []Step

	// logger is used for structured logging during execution.
	logger *slog.Logger

	// continueOnError determines whether to continue executing steps
	// after one fails. If false, the pipeline stops on first error.
	continueOnError bool
}

// Option is a function that configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets a custom logger for the pipeline.
// If not set, slog.Default is used.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// WithContinueOnError configures the pipeline to run the remaining steps
// after one fails. The first failure stays recorded on the lane.
//
// The acquisition pipeline stops on error since writing needs a payload.
func WithContinueOnError(continueOnError bool) Option {
	return func(p *Pipeline) {
		p.continueOnError = continueOnError
	}
}

// New creates a new Pipeline with the given options.
// Steps should be added using AddStep after creation.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{
		steps:           make([]Step, 0),
		continueOnError: false,
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.logger == nil {
		p.logger = slog.Default()
	}

	return p
}

// AddStep appends a step to the pipeline.
// Steps are executed in the order they are added.
func (p *Pipeline) AddStep(step Step) {
	p.steps = append(p.steps, step)
}

// AddSteps appends multiple steps to the pipeline.
func (p *Pipeline) AddSteps(steps ...Step) {
	p.steps = append(p.steps, steps...)
}

// Execute runs all pipeline steps in sequence for lane.
// Context cancellation is checked before each step; steps handle their own
// timeouts.
//
// A failing step is recorded on the lane and logged once as "lane failed".
// Execute returns the first error if continueOnError is false, or nil
// otherwise.
func (p *Pipeline) Execute(ctx context.Context, lane *model.LaneResult) error {
	kind := lane.Kind().String()

	for _, step := range p.steps {
		select {
		case <-ctx.Done():
			p.logger.Warn("pipeline cancelled",
				"kind", kind,
				"step", step.Name(),
				"reason", ctx.Err(),
			)
			lane.Fail(step.Name(), ctx.Err())
			return ctx.Err()
		default:
		}

		p.logger.Debug("executing step",
			"kind", kind,
			"step", step.Name(),
		)

		err := step.Do(ctx, lane)
		lane.PerformedSteps = append(lane.PerformedSteps, step.Name())

		if err != nil {
			p.logger.Error("lane failed",
				"kind", kind,
				"stage", step.Name(),
				"error_kind", model.ErrorKindOf(err),
				"error", err,
			)
			lane.Fail(step.Name(), err)

			if !p.continueOnError {
				return err
			}
			continue
		}

		p.logger.Debug("step completed",
			"kind", kind,
			"step", step.Name(),
		)
	}

	return nil
}

// StepNames returns the names of all steps in execution order.
func (p *Pipeline) StepNames() []string {
	names := make([]string, len(p.steps))
	for i, step := range p.steps {
		names[i] = step.Name()
	}
	return names
}
