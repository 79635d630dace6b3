package runner

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"github.com/entrhq/pwplugin/pkg/types"
)

// ReportWriter writes machine and human readable run reports to a directory.
type ReportWriter struct {
	fs        afero.Fs
	outputDir string
}

// NewReportWriter creates a writer for outputDir on fs. A nil fs means the
// OS filesystem.
func NewReportWriter(fs afero.Fs, outputDir string) *ReportWriter {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &ReportWriter{fs: fs, outputDir: outputDir}
}

type reportJSON struct {
	RunID     string         `json:"run_id"`
	Passed    int            `json:"passed"`
	Failed    int            `json:"failed"`
	Summary   []string       `json:"summary,omitempty"`
	Scenarios []scenarioJSON `json:"scenarios"`
}

type scenarioJSON struct {
	ID        string               `json:"id"`
	Subject   string               `json:"subject"`
	Attempt   int                  `json:"attempt"`
	Status    types.Status         `json:"status"`
	Duration  string               `json:"duration"`
	Steps     []stepJSON           `json:"steps"`
	Artifacts []types.FileArtifact `json:"artifacts,omitempty"`

	PreviousAttempts []scenarioJSON `json:"previous_attempts,omitempty"`
}

type stepJSON struct {
	Name        string               `json:"name"`
	Status      types.Status         `json:"status"`
	Error       string               `json:"error,omitempty"`
	Diagnostics []string             `json:"diagnostics,omitempty"`
	Artifacts   []types.FileArtifact `json:"artifacts,omitempty"`
}

// WriteAll writes report.json and summary.md.
func (w *ReportWriter) WriteAll(report *types.Report) error {
	if err := w.fs.MkdirAll(w.outputDir, 0o755); err != nil {
		return fmt.Errorf("failed to create report directory: %w", err)
	}
	if err := w.WriteReportJSON(report); err != nil {
		return err
	}
	return w.WriteSummaryMarkdown(report)
}

// WriteReportJSON writes the full report as JSON.
func (w *ReportWriter) WriteReportJSON(report *types.Report) error {
	out := reportJSON{
		RunID:     report.RunID,
		Passed:    report.Passed,
		Failed:    report.Failed,
		Summary:   report.Summary,
		Scenarios: make([]scenarioJSON, 0, len(report.Scenarios)),
	}
	for _, sc := range report.Scenarios {
		entry := newScenarioJSON(sc)
		for _, prev := range sc.PreviousAttempts {
			entry.PreviousAttempts = append(entry.PreviousAttempts, newScenarioJSON(prev))
		}
		out.Scenarios = append(out.Scenarios, entry)
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}
	path := filepath.Join(w.outputDir, "report.json")
	if err := afero.WriteFile(w.fs, path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write report JSON: %w", err)
	}
	return nil
}

// WriteSummaryMarkdown writes a markdown summary of the run.
func (w *ReportWriter) WriteSummaryMarkdown(report *types.Report) error {
	var md strings.Builder

	md.WriteString("# Run Summary\n\n")
	if report.RunID != "" {
		md.WriteString(fmt.Sprintf("**Run:** %s\n\n", report.RunID))
	}
	md.WriteString(fmt.Sprintf("**Scenarios:** %d passed, %d failed\n\n", report.Passed, report.Failed))

	md.WriteString("## Scenarios\n\n")
	for _, sc := range report.Scenarios {
		status := "✅"
		if sc.Status == types.StatusFailed {
			status = "❌"
		}
		md.WriteString(fmt.Sprintf("%s **%s**", status, sc.Subject))
		if sc.Attempt > 1 {
			md.WriteString(fmt.Sprintf(" (attempt %d)", sc.Attempt))
		}
		md.WriteString("\n")
		for _, step := range sc.StepResults {
			if step.Err != nil {
				md.WriteString(fmt.Sprintf("   - %s: %v\n", step.Name, step.Err))
			}
		}
		for _, prev := range sc.PreviousAttempts {
			for _, a := range prev.AllArtifacts() {
				md.WriteString(fmt.Sprintf("   - artifact `%s` (attempt %d)\n", a.ArtifactName(), prev.Attempt))
			}
		}
		for _, a := range sc.AllArtifacts() {
			md.WriteString(fmt.Sprintf("   - artifact `%s`\n", a.ArtifactName()))
		}
	}
	md.WriteString("\n")

	if len(report.Summary) > 0 {
		md.WriteString("## Notes\n\n")
		for _, line := range report.Summary {
			md.WriteString(fmt.Sprintf("- %s\n", line))
		}
	}

	path := filepath.Join(w.outputDir, "summary.md")
	if err := afero.WriteFile(w.fs, path, []byte(md.String()), 0o600); err != nil {
		return fmt.Errorf("failed to write summary markdown: %w", err)
	}
	return nil
}

func newScenarioJSON(sc *types.ScenarioResult) scenarioJSON {
	entry := scenarioJSON{
		ID:        sc.ScenarioID,
		Subject:   sc.Subject,
		Attempt:   sc.Attempt,
		Status:    sc.Status,
		Duration:  sc.EndedAt.Sub(sc.StartedAt).String(),
		Steps:     make([]stepJSON, 0, len(sc.StepResults)),
		Artifacts: fileArtifacts(sc.Artifacts),
	}
	for _, step := range sc.StepResults {
		s := stepJSON{
			Name:        step.Name,
			Status:      step.Status,
			Diagnostics: step.Diagnostics,
			Artifacts:   fileArtifacts(step.Artifacts),
		}
		if step.Err != nil {
			s.Error = step.Err.Error()
		}
		entry.Steps = append(entry.Steps, s)
	}
	return entry
}

func fileArtifacts(in []types.Artifact) []types.FileArtifact {
	var out []types.FileArtifact
	for _, a := range in {
		switch v := a.(type) {
		case *types.FileArtifact:
			out = append(out, *v)
		default:
			out = append(out, types.FileArtifact{Name: a.ArtifactName()})
		}
	}
	return out
}
