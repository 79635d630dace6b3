package types

import (
	"fmt"
	"time"
)

// Status is the outcome of a scenario or step.
type Status string

const (
	StatusPending Status = "pending"
	StatusPassed  Status = "passed"
	StatusFailed  Status = "failed"
)

// Artifact is a file attached to a scenario or step result for later inspection.
type Artifact interface {
	ArtifactName() string
}

// FileArtifact is an artifact backed by a file on disk.
type FileArtifact struct {
	Name     string `json:"name"`
	MimeType string `json:"mime_type"`
	Path     string `json:"path"`
}

// ArtifactName returns the display name of the artifact.
func (a *FileArtifact) ArtifactName() string {
	return a.Name
}

func (a *FileArtifact) String() string {
	return fmt.Sprintf("%s (%s) %s", a.Name, a.MimeType, a.Path)
}

// StepResult records the execution of a single step.
type StepResult struct {
	// Name is the step name as declared in the scenario.
	Name string

	// Index is the zero-based position of the step in its scenario.
	Index int

	Status    Status
	Err       error
	StartedAt time.Time
	EndedAt   time.Time

	// Artifacts attached to this step
	Artifacts []Artifact

	// Diagnostics are non-fatal notes, e.g. instrumentation failures.
	Diagnostics []string
}

// Attach adds an artifact to the step.
func (r *StepResult) Attach(a Artifact) {
	r.Artifacts = append(r.Artifacts, a)
}

// AddDiagnostic records a non-fatal note on the step.
func (r *StepResult) AddDiagnostic(format string, args ...interface{}) {
	r.Diagnostics = append(r.Diagnostics, fmt.Sprintf(format, args...))
}

// ScenarioResult records one execution of a scenario. A rescheduled scenario
// gets a fresh result carrying the same ScenarioID.
type ScenarioResult struct {
	// ScenarioID is the stable identity of the scenario across reruns.
	ScenarioID string

	// Subject is the human-readable scenario title.
	Subject string

	// Attempt is 1 for the first execution and increments on every rerun.
	Attempt int

	Status      Status
	StartedAt   time.Time
	EndedAt     time.Time
	StepResults []*StepResult
	Artifacts   []Artifact

	// PreviousAttempts holds the failed executions that led to this one,
	// oldest first. Artifacts retained for them are reported with this result.
	PreviousAttempts []*ScenarioResult
}

// NewScenarioResult creates a pending result for a scenario.
func NewScenarioResult(id, subject string, attempt int) *ScenarioResult {
	return &ScenarioResult{
		ScenarioID: id,
		Subject:    subject,
		Attempt:    attempt,
		Status:     StatusPending,
	}
}

// Attach adds an artifact to the scenario.
func (r *ScenarioResult) Attach(a Artifact) {
	r.Artifacts = append(r.Artifacts, a)
}

// AddStepResult appends a finished step.
func (r *ScenarioResult) AddStepResult(step *StepResult) {
	r.StepResults = append(r.StepResults, step)
}

// HasStepResult reports whether step belongs to this scenario result.
func (r *ScenarioResult) HasStepResult(step *StepResult) bool {
	for _, s := range r.StepResults {
		if s == step {
			return true
		}
	}
	return false
}

// AllArtifacts returns scenario artifacts followed by step artifacts in step order.
func (r *ScenarioResult) AllArtifacts() []Artifact {
	all := make([]Artifact, 0, len(r.Artifacts))
	all = append(all, r.Artifacts...)
	for _, step := range r.StepResults {
		all = append(all, step.Artifacts...)
	}
	return all
}

// Report summarises a whole run.
type Report struct {
	RunID     string
	Scenarios []*ScenarioResult
	Passed    int
	Failed    int

	// Summary holds run-level lines such as plugin warnings.
	Summary []string
}

// AddResult records a final scenario result.
func (r *Report) AddResult(result *ScenarioResult) {
	r.Scenarios = append(r.Scenarios, result)
	if result.Status == StatusFailed {
		r.Failed++
	} else {
		r.Passed++
	}
}

// AddSummary records a run-level summary line.
func (r *Report) AddSummary(line string) {
	r.Summary = append(r.Summary, line)
}
