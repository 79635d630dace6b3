package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/entrhq/pwplugin/pkg/types"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// recorder is a plugin that records every event it sees
type recorder struct {
	events []string
	flag   *string
}

func (p *recorder) Subscribe(d *Dispatcher) {
	for _, t := range []types.EventType{
		types.EventTypeArgParse,
		types.EventTypeArgParsed,
		types.EventTypeScenarioRun,
		types.EventTypeStepPassed,
		types.EventTypeStepFailed,
		types.EventTypeScenarioPassed,
		types.EventTypeScenarioFailed,
		types.EventTypeCleanup,
	} {
		d.Listen(t, p.record)
	}
}

func (p *recorder) record(_ context.Context, e *types.Event) error {
	name := string(e.Type)
	switch {
	case e.Step != nil:
		name += ":" + e.Step.Name
	case e.Scenario != nil:
		name += fmt.Sprintf(":%s#%d", e.Scenario.ScenarioID, e.Scenario.Attempt)
	}
	if e.Type == types.EventTypeArgParse {
		p.flag = e.Flags.String("greeting", "hello", "test flag")
	}
	p.events = append(p.events, name)
	return nil
}

func newTestRunner(opts ...Option) (*Runner, *recorder) {
	r := New(append([]Option{WithOutput(&bytes.Buffer{})}, opts...)...)
	rec := &recorder{}
	r.Register(rec)
	return r, rec
}

func TestRunner_ParseArgs(t *testing.T) {
	r, rec := newTestRunner()

	require.NoError(t, r.ParseArgs(context.Background(), []string{"--greeting", "hi"}))
	assert.Equal(t, []string{"arg_parse", "arg_parsed"}, rec.events)
	require.NotNil(t, rec.flag)
	assert.Equal(t, "hi", *rec.flag)
}

func TestRunner_ConfigureError(t *testing.T) {
	r := New(WithOutput(&bytes.Buffer{}))
	r.Dispatcher().Listen(types.EventTypeArgParsed, func(context.Context, *types.Event) error {
		return errors.New("slowmo must be non-negative")
	})

	err := r.ParseArgs(context.Background(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")
	assert.Contains(t, err.Error(), "slowmo")
}

func TestRunner_EventOrder(t *testing.T) {
	r, rec := newTestRunner()

	var order []string
	scenario := &Scenario{
		ID:      "scenarios/login",
		Subject: "login",
		Steps: []Step{
			{Name: "open", Fn: func(_ context.Context, scope *Scope) error {
				scope.Defer(func() error {
					order = append(order, "close page")
					return nil
				})
				return nil
			}},
			{Name: "submit", Fn: func(context.Context, *Scope) error { return nil }},
		},
	}
	r.Dispatcher().Listen(types.EventTypeScenarioPassed, func(context.Context, *types.Event) error {
		order = append(order, "scenario passed")
		return nil
	})

	report, err := r.Run(context.Background(), []*Scenario{scenario})
	require.NoError(t, err)

	assert.Equal(t, []string{
		"scenario_run:scenarios/login#1",
		"step_passed:open",
		"step_passed:submit",
		"scenario_passed:scenarios/login#1",
		"cleanup",
	}, rec.events)
	// The scenario scope closes before the outcome is dispatched
	assert.Equal(t, []string{"close page", "scenario passed"}, order)
	assert.Equal(t, 1, report.Passed)
	assert.NotEmpty(t, report.RunID)
}

func TestRunner_StopsAtFirstFailedStep(t *testing.T) {
	r, rec := newTestRunner()

	scenario := &Scenario{
		ID: "scenarios/broken",
		Steps: []Step{
			{Name: "explode", Fn: func(context.Context, *Scope) error { panic("boom") }},
			{Name: "never", Fn: func(context.Context, *Scope) error { return nil }},
		},
	}

	report, err := r.Run(context.Background(), []*Scenario{scenario})
	require.NoError(t, err)

	assert.Equal(t, []string{
		"scenario_run:scenarios/broken#1",
		"step_failed:explode",
		"scenario_failed:scenarios/broken#1",
		"cleanup",
	}, rec.events)
	require.Len(t, report.Scenarios, 1)
	step := report.Scenarios[0].StepResults[0]
	assert.Equal(t, types.StatusFailed, step.Status)
	assert.Contains(t, step.Err.Error(), "panicked")
}

func TestRunner_Reruns(t *testing.T) {
	r, rec := newTestRunner(WithReruns(2))

	calls := 0
	scenario := &Scenario{
		ID: "scenarios/flaky",
		Steps: []Step{
			{Name: "flaky", Fn: func(context.Context, *Scope) error {
				calls++
				if calls < 2 {
					return errors.New("not yet")
				}
				return nil
			}},
		},
	}

	report, err := r.Run(context.Background(), []*Scenario{scenario})
	require.NoError(t, err)

	assert.Equal(t, 2, calls)
	assert.Equal(t, []string{
		"scenario_run:scenarios/flaky#1",
		"step_failed:flaky",
		"scenario_failed:scenarios/flaky#1",
		"scenario_run:scenarios/flaky#2",
		"step_passed:flaky",
		"scenario_passed:scenarios/flaky#2",
		"cleanup",
	}, rec.events)
	assert.Equal(t, 1, report.Passed)
	assert.Equal(t, 0, report.Failed)
	assert.Equal(t, 2, report.Scenarios[0].Attempt)
	require.Len(t, report.Scenarios, 1)

	prev := report.Scenarios[0].PreviousAttempts
	require.Len(t, prev, 1)
	assert.Equal(t, 1, prev[0].Attempt)
	assert.Equal(t, types.StatusFailed, prev[0].Status)
	assert.Empty(t, prev[0].PreviousAttempts)
}

func TestRunner_PassingScenarioHasNoPreviousAttempts(t *testing.T) {
	r, _ := newTestRunner(WithReruns(2))

	report, err := r.Run(context.Background(), []*Scenario{{ID: "steady"}})
	require.NoError(t, err)
	assert.Empty(t, report.Scenarios[0].PreviousAttempts)
}

func TestRunner_RunScopeClosesWhenHandlerPanics(t *testing.T) {
	r, _ := newTestRunner()

	closed := false
	r.Dispatcher().Listen(types.EventTypeCleanup, func(context.Context, *types.Event) error {
		panic("viewer crashed")
	})
	scenario := &Scenario{
		ID: "scenarios/shared",
		Steps: []Step{
			{Name: "share", Fn: func(_ context.Context, scope *Scope) error {
				scope.Root().Defer(func() error {
					closed = true
					return nil
				})
				return nil
			}},
		},
	}

	assert.Panics(t, func() {
		_, _ = r.Run(context.Background(), []*Scenario{scenario})
	})
	assert.True(t, closed)
}

func TestRunner_RunCleanupErrorIsReturned(t *testing.T) {
	r, _ := newTestRunner()

	scenario := &Scenario{
		ID: "scenarios/shared",
		Steps: []Step{
			{Name: "share", Fn: func(_ context.Context, scope *Scope) error {
				scope.Root().Defer(func() error { return errors.New("browser already gone") })
				return nil
			}},
		},
	}

	report, err := r.Run(context.Background(), []*Scenario{scenario})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "run cleanup")
	assert.Contains(t, err.Error(), "browser already gone")
	require.NotNil(t, report)
	assert.Equal(t, 1, report.Passed)
}

func TestRunner_RunScopeClosesAfterCleanup(t *testing.T) {
	r, _ := newTestRunner()

	var order []string
	r.Dispatcher().Listen(types.EventTypeCleanup, func(context.Context, *types.Event) error {
		order = append(order, "cleanup event")
		return nil
	})
	scenario := &Scenario{
		ID: "scenarios/shared",
		Steps: []Step{
			{Name: "share", Fn: func(_ context.Context, scope *Scope) error {
				scope.Root().Defer(func() error {
					order = append(order, "run scope")
					return nil
				})
				return nil
			}},
		},
	}

	_, err := r.Run(context.Background(), []*Scenario{scenario})
	require.NoError(t, err)
	assert.Equal(t, []string{"cleanup event", "run scope"}, order)
}

func TestRunner_PrintsSummary(t *testing.T) {
	var out bytes.Buffer
	r := New(WithOutput(&out))
	r.Dispatcher().Listen(types.EventTypeCleanup, func(_ context.Context, e *types.Event) error {
		e.Report.AddSummary("could not open trace viewer")
		return nil
	})

	_, err := r.Run(context.Background(), []*Scenario{{ID: "a", Subject: "first scenario"}})
	require.NoError(t, err)

	assert.Contains(t, out.String(), "first scenario")
	assert.Contains(t, out.String(), "1 passed")
	assert.Contains(t, out.String(), "could not open trace viewer")
}

func TestPrintSummary_IncludesEarlierAttemptArtifacts(t *testing.T) {
	first := types.NewScenarioResult("flaky", "flaky scenario", 1)
	first.Status = types.StatusFailed
	first.Attach(&types.FileArtifact{Name: "pw_trace_1.zip", MimeType: "application/zip", Path: "/tmp/pw_trace_1.zip"})

	final := types.NewScenarioResult("flaky", "flaky scenario", 2)
	final.Status = types.StatusPassed
	final.PreviousAttempts = []*types.ScenarioResult{first}

	report := &types.Report{}
	report.AddResult(final)

	var out bytes.Buffer
	PrintSummary(&out, report)

	assert.Contains(t, out.String(), "flaky scenario (attempt 2)")
	assert.Contains(t, out.String(), "artifact (attempt 1): pw_trace_1.zip")
}
