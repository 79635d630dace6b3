package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/pflag"

	"github.com/entrhq/pwplugin/pkg/logging"
	"github.com/entrhq/pwplugin/pkg/types"
)

var debugLog *logging.Logger

func init() {
	var err error
	debugLog, err = logging.NewLogger("runner")
	if err != nil {
		// Logger fell back to stderr due to initialization failure
		debugLog.Warnf("Failed to initialize runner logger, using stderr fallback: %v", err)
	}
}

// StepFunc is the body of a step. Resources acquired by the step register
// their cleanup on scope.
type StepFunc func(ctx context.Context, scope *Scope) error

// Step is a named unit of work within a scenario.
type Step struct {
	Name string
	Fn   StepFunc
}

// Scenario is a test case identified by a stable ID.
type Scenario struct {
	ID      string
	Subject string
	Steps   []Step
}

// Option configures a Runner.
type Option func(*Runner)

// WithReruns reschedules a failed scenario up to n more times.
func WithReruns(n int) Option {
	return func(r *Runner) {
		if n > 0 {
			r.reruns = n
		}
	}
}

// WithOutput sets where the run summary is printed.
func WithOutput(w io.Writer) Option {
	return func(r *Runner) {
		r.out = w
	}
}

// WithFlagSet makes the runner register plugin flags on fs.
func WithFlagSet(fs *pflag.FlagSet) Option {
	return func(r *Runner) {
		r.flags = fs
	}
}

// Runner executes scenarios one at a time and dispatches lifecycle events
// to registered plugins.
type Runner struct {
	dispatcher *Dispatcher
	flags      *pflag.FlagSet
	reruns     int
	out        io.Writer
	setupDone  bool
}

// New creates a runner.
func New(opts ...Option) *Runner {
	r := &Runner{
		dispatcher: NewDispatcher(),
		out:        os.Stdout,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.flags == nil {
		r.flags = pflag.NewFlagSet("pwrun", pflag.ContinueOnError)
	}
	return r
}

// Register subscribes a plugin.
func (r *Runner) Register(p Plugin) {
	r.dispatcher.Register(p)
}

// Dispatcher returns the runner's dispatcher.
func (r *Runner) Dispatcher() *Dispatcher {
	return r.dispatcher
}

// SetReruns changes how many times a failed scenario is rescheduled.
func (r *Runner) SetReruns(n int) {
	if n < 0 {
		n = 0
	}
	r.reruns = n
}

// Flags returns the flag set plugins register their flags on.
func (r *Runner) Flags() *pflag.FlagSet {
	return r.flags
}

// Setup lets plugins register their flags. Safe to call more than once.
func (r *Runner) Setup(ctx context.Context) error {
	if r.setupDone {
		return nil
	}
	r.setupDone = true
	return r.dispatcher.Fire(ctx, types.NewArgParseEvent(r.flags))
}

// Configure tells plugins the flags have been parsed. A returned error is a
// configuration error and the run must not start.
func (r *Runner) Configure(ctx context.Context) error {
	if err := r.dispatcher.Fire(ctx, types.NewArgParsedEvent(r.flags)); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// ParseArgs runs Setup, parses args and runs Configure.
func (r *Runner) ParseArgs(ctx context.Context, args []string) error {
	if err := r.Setup(ctx); err != nil {
		return err
	}
	if err := r.flags.Parse(args); err != nil {
		return fmt.Errorf("failed to parse arguments: %w", err)
	}
	return r.Configure(ctx)
}

// Run executes scenarios in order. A failed scenario is rescheduled with a
// fresh result up to the configured number of reruns; the last result counts
// and carries the earlier attempts.
func (r *Runner) Run(ctx context.Context, scenarios []*Scenario) (report *types.Report, err error) {
	report = &types.Report{RunID: uuid.New().String()}
	runScope := NewScope("run")
	defer func() {
		if closeErr := runScope.Close(); closeErr != nil {
			err = errors.Join(err, fmt.Errorf("run cleanup: %w", closeErr))
		}
	}()
	debugLog.Infof("run %s started with %d scenarios", report.RunID, len(scenarios))

	var errs []error
	for _, sc := range scenarios {
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}

		var (
			result   *types.ScenarioResult
			previous []*types.ScenarioResult
		)
		for attempt := 1; attempt <= r.reruns+1; attempt++ {
			if result != nil {
				previous = append(previous, result)
			}
			var runErr error
			result, runErr = r.runScenario(ctx, runScope, sc, attempt)
			if runErr != nil {
				debugLog.Errorf("scenario %s: %v", sc.ID, runErr)
				report.AddSummary(fmt.Sprintf("scenario %s: %v", sc.ID, runErr))
			}
			if result.Status != types.StatusFailed || ctx.Err() != nil {
				break
			}
		}
		result.PreviousAttempts = previous
		report.AddResult(result)
	}

	if fireErr := r.dispatcher.Fire(ctx, types.NewCleanupEvent(report)); fireErr != nil {
		errs = append(errs, fireErr)
	}
	debugLog.Infof("run %s finished: %d passed, %d failed", report.RunID, report.Passed, report.Failed)
	if r.out != nil {
		PrintSummary(r.out, report)
	}
	return report, errors.Join(errs...)
}

func (r *Runner) runScenario(ctx context.Context, runScope *Scope, sc *Scenario, attempt int) (*types.ScenarioResult, error) {
	result := types.NewScenarioResult(sc.ID, sc.Subject, attempt)
	result.StartedAt = time.Now()

	scope := runScope.Child(sc.ID)
	defer scope.Close()

	var errs []error
	if err := r.dispatcher.Fire(ctx, types.NewScenarioRunEvent(result)); err != nil {
		errs = append(errs, err)
	}

	status := types.StatusPassed
	for i, step := range sc.Steps {
		stepResult := &types.StepResult{Name: step.Name, Index: i, StartedAt: time.Now()}
		if err := runStep(ctx, step, scope); err != nil {
			stepResult.Status = types.StatusFailed
			stepResult.Err = err
			status = types.StatusFailed
		} else {
			stepResult.Status = types.StatusPassed
		}
		stepResult.EndedAt = time.Now()
		result.AddStepResult(stepResult)

		if err := r.dispatcher.Fire(ctx, types.NewStepEndEvent(result, stepResult)); err != nil {
			errs = append(errs, err)
		}
		if status == types.StatusFailed {
			break
		}
	}

	// Closing the scope flushes traces and videos before the outcome is reported
	if err := scope.Close(); err != nil {
		debugLog.Warnf("scenario %s cleanup: %v", sc.ID, err)
	}

	result.Status = status
	result.EndedAt = time.Now()
	if err := r.dispatcher.Fire(ctx, types.NewScenarioEndEvent(result)); err != nil {
		errs = append(errs, err)
	}
	return result, errors.Join(errs...)
}

func runStep(ctx context.Context, step Step, scope *Scope) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("step %q panicked: %v", step.Name, rec)
		}
	}()
	if step.Fn == nil {
		return nil
	}
	return step.Fn(ctx, scope)
}
