package types

import "github.com/spf13/pflag"

// EventType defines the type of event emitted by the runner.
type EventType string

const (
	EventTypeArgParse       EventType = "arg_parse"       // EventTypeArgParse asks plugins to register their flags.
	EventTypeArgParsed      EventType = "arg_parsed"      // EventTypeArgParsed indicates flags have been parsed.
	EventTypeScenarioRun    EventType = "scenario_run"    // EventTypeScenarioRun indicates a scenario (or a rerun of it) is starting.
	EventTypeStepPassed     EventType = "step_passed"     // EventTypeStepPassed indicates a step finished successfully.
	EventTypeStepFailed     EventType = "step_failed"     // EventTypeStepFailed indicates a step returned an error or panicked.
	EventTypeScenarioPassed EventType = "scenario_passed" // EventTypeScenarioPassed indicates every step of a scenario passed.
	EventTypeScenarioFailed EventType = "scenario_failed" // EventTypeScenarioFailed indicates a scenario had a failing step.
	EventTypeCleanup        EventType = "cleanup"         // EventTypeCleanup indicates the whole run has finished.
)

// Event represents a lifecycle event dispatched to plugins.
// Only the fields relevant to Type are populated.
type Event struct {
	// Type indicates the kind of event.
	Type EventType

	// Flags is the runner's flag set (arg parse events).
	Flags *pflag.FlagSet

	// Scenario is the result of the scenario in progress (scenario and step events).
	Scenario *ScenarioResult

	// Step is the result of the step that just finished (step events).
	Step *StepResult

	// Report is the run report (cleanup event).
	Report *Report
}

// NewArgParseEvent creates an arg parse event.
func NewArgParseEvent(flags *pflag.FlagSet) *Event {
	return &Event{Type: EventTypeArgParse, Flags: flags}
}

// NewArgParsedEvent creates an arg parsed event.
func NewArgParsedEvent(flags *pflag.FlagSet) *Event {
	return &Event{Type: EventTypeArgParsed, Flags: flags}
}

// NewScenarioRunEvent creates a scenario run event.
func NewScenarioRunEvent(scenario *ScenarioResult) *Event {
	return &Event{Type: EventTypeScenarioRun, Scenario: scenario}
}

// NewStepEndEvent creates a step passed or step failed event depending on the step status.
func NewStepEndEvent(scenario *ScenarioResult, step *StepResult) *Event {
	eventType := EventTypeStepPassed
	if step.Status == StatusFailed {
		eventType = EventTypeStepFailed
	}
	return &Event{Type: eventType, Scenario: scenario, Step: step}
}

// NewScenarioEndEvent creates a scenario passed or scenario failed event depending on the scenario status.
func NewScenarioEndEvent(scenario *ScenarioResult) *Event {
	eventType := EventTypeScenarioPassed
	if scenario.Status == StatusFailed {
		eventType = EventTypeScenarioFailed
	}
	return &Event{Type: eventType, Scenario: scenario}
}

// NewCleanupEvent creates a cleanup event.
func NewCleanupEvent(report *Report) *Event {
	return &Event{Type: EventTypeCleanup, Report: report}
}
