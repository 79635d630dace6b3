package runner

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/entrhq/pwplugin/pkg/types"
)

var (
	headerStyle   = lipgloss.NewStyle().Bold(true)
	passedStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10"))
	failedStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
	warningStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	artifactStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

// PrintSummary writes a human-readable summary of the run to w.
func PrintSummary(w io.Writer, report *types.Report) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, headerStyle.Render(strings.Repeat("=", 70)))

	for _, result := range report.Scenarios {
		mark := passedStyle.Render("✔")
		if result.Status == types.StatusFailed {
			mark = failedStyle.Render("✗")
		}
		line := fmt.Sprintf("%s %s", mark, result.Subject)
		if result.Attempt > 1 {
			line += fmt.Sprintf(" (attempt %d)", result.Attempt)
		}
		fmt.Fprintln(w, line)

		for _, step := range result.StepResults {
			if step.Status == types.StatusFailed && step.Err != nil {
				fmt.Fprintf(w, "    %s %s: %v\n", failedStyle.Render("✗"), step.Name, step.Err)
			}
			for _, note := range step.Diagnostics {
				fmt.Fprintf(w, "    %s\n", warningStyle.Render(fmt.Sprintf("%s: %s", step.Name, note)))
			}
		}
		for _, prev := range result.PreviousAttempts {
			for _, artifact := range prev.AllArtifacts() {
				fmt.Fprintf(w, "    %s\n", artifactStyle.Render(fmt.Sprintf("artifact (attempt %d): %v", prev.Attempt, artifact)))
			}
		}
		for _, artifact := range result.AllArtifacts() {
			fmt.Fprintf(w, "    %s\n", artifactStyle.Render(fmt.Sprintf("artifact: %v", artifact)))
		}
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "# %d scenarios, %s, %s\n",
		len(report.Scenarios),
		passedStyle.Render(fmt.Sprintf("%d passed", report.Passed)),
		failedStyle.Render(fmt.Sprintf("%d failed", report.Failed)))

	for _, line := range report.Summary {
		fmt.Fprintf(w, "# %s\n", warningStyle.Render(line))
	}
}
