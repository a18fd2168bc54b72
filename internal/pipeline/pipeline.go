package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/nao1215/sitescan/internal/model"
)

// Step defines the interface that all pipeline steps must implement.
//
// Design decision: We use an interface rather than function types because:
// 1. It allows steps to carry configuration state
// 2. It provides a Name() method for logging and reporting
// 3. Tests can substitute stub steps
type Step interface {
	// Do executes the step. A non-nil error means the check failed and its
	// message becomes the check's report text.
	Do(ctx context.Context, report *model.RunReport) error

	// Name returns the step's check name.
	Name() string
}

// Pipeline orchestrates the execution of multiple steps.
type Pipeline struct {
	steps  []Step
	logger *slog.Logger

	// continueOnError runs the remaining steps after a failed one.
	continueOnError bool
}

// Option is a function that configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets a custom logger for the pipeline.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// WithContinueOnError configures the pipeline to continue execution
// even when a step fails.
//
// Design decision: A site run is a test suite, so the default pipeline
// reports every check. Stopping early is still useful in tests and when
// the first step is a precondition for the rest.
func WithContinueOnError(continueOnError bool) Option {
	return func(p *Pipeline) {
		p.continueOnError = continueOnError
	}
}

// New creates a new Pipeline with the given options.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{
		steps: make([]Step, 0),
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
func (p *Pipeline) AddStep(step Step) {
	p.steps = append(p.steps, step)
}

// AddSteps appends multiple steps to the pipeline.
func (p *Pipeline) AddSteps(steps ...Step) {
	p.steps = append(p.steps, steps...)
}

// Execute runs all steps in order and records one CheckResult per step.
//
// When ctx is cancelled or its deadline passes, the current step's partial
// result is discarded, the report is marked TimedOut and ctx.Err() is
// returned. Otherwise the first step error is returned when continueOnError
// is false, and nil when it is true.
func (p *Pipeline) Execute(ctx context.Context, report *model.RunReport) error {
	defer func() {
		report.Duration = time.Since(report.StartedAt)
	}()

	for _, step := range p.steps {
		if err := ctx.Err(); err != nil {
			return p.abort(report, step, err)
		}

		p.logger.Info("executing step", "step", step.Name(), "site", report.Site)

		start := time.Now()
		err := step.Do(ctx, report)
		elapsed := time.Since(start)

		if err != nil && isContextError(err) && ctx.Err() != nil {
			return p.abort(report, step, ctx.Err())
		}

		result := model.CheckResult{Name: step.Name(), Passed: err == nil, Duration: elapsed}
		if err != nil {
			result.Message = err.Error()
			p.logger.Debug("step failed", "step", step.Name(), "site", report.Site, "error", err)
		} else {
			p.logger.Debug("step completed", "step", step.Name(), "site", report.Site, "elapsed", elapsed)
		}
		report.AddCheck(result)

		if err != nil && !p.continueOnError {
			return err
		}
	}
	return nil
}

func (p *Pipeline) abort(report *model.RunReport, step Step, err error) error {
	p.logger.Warn("run aborted", "step", step.Name(), "site", report.Site, "reason", err)
	report.TimedOut = true
	report.Error = "run aborted during " + step.Name() + ": " + err.Error()
	return err
}

func isContextError(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// StepCount returns the number of steps in the pipeline.
func (p *Pipeline) StepCount() int {
	return len(p.steps)
}

// StepNames returns the names of all steps in execution order.
func (p *Pipeline) StepNames() []string {
	names := make([]string, len(p.steps))
	for i, step := range p.steps {
		names[i] = step.Name()
	}
	return names
}
