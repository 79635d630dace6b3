package browser

import (
	"errors"
	"fmt"
	"os/exec"
)

// TraceViewer opens a recorded trace for inspection.
type TraceViewer interface {
	Show(path string) error
}

// CommandTraceViewer launches an external trace viewer and does not wait for it.
type CommandTraceViewer struct {
	// Command is the program and leading arguments; the trace path is appended
	Command []string
}

// NewCommandTraceViewer returns a viewer running "playwright show-trace".
func NewCommandTraceViewer() *CommandTraceViewer {
	return &CommandTraceViewer{Command: []string{"playwright", "show-trace"}}
}

// Show starts the viewer on path and detaches from it.
func (v *CommandTraceViewer) Show(path string) error {
	if len(v.Command) == 0 {
		return errors.New("no trace viewer command configured")
	}
	args := append(append([]string{}, v.Command[1:]...), path)
	cmd := exec.Command(v.Command[0], args...)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start trace viewer: %w", err)
	}
	debugLog.Infof("opened trace viewer (pid %d) for %s", cmd.Process.Pid, path)
	return cmd.Process.Release()
}
