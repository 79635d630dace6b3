package capture

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Mode controls when screenshots, video or traces are captured and kept.
type Mode string

const (
	// ModeAlways captures every scenario and keeps the result.
	ModeAlways Mode = "always"
	// ModeNever disables capturing.
	ModeNever Mode = "never"
	// ModeOnReschedule captures only scenarios that run again within the same run.
	ModeOnReschedule Mode = "on-reschedule"
	// ModeOnFailure captures every scenario but keeps the result only when it fails.
	ModeOnFailure Mode = "on-failure"
)

// Modes lists every valid mode in declaration order.
var Modes = []Mode{ModeAlways, ModeNever, ModeOnReschedule, ModeOnFailure}

// ParseMode converts a string into a Mode.
func ParseMode(s string) (Mode, error) {
	m := Mode(strings.ToLower(strings.TrimSpace(s)))
	if !m.Valid() {
		return "", fmt.Errorf("invalid capture mode %q (must be one of %s)", s, modeChoices())
	}
	return m, nil
}

// Valid reports whether m is one of the declared modes.
func (m Mode) Valid() bool {
	for _, known := range Modes {
		if m == known {
			return true
		}
	}
	return false
}

func (m Mode) String() string {
	return string(m)
}

// Set implements pflag.Value.
func (m *Mode) Set(s string) error {
	parsed, err := ParseMode(s)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// Type implements pflag.Value.
func (m *Mode) Type() string {
	return "mode"
}

// UnmarshalText implements encoding.TextUnmarshaler, used by JSON and envconfig.
func (m *Mode) UnmarshalText(text []byte) error {
	return m.Set(string(text))
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (m *Mode) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	return m.Set(s)
}

// ShouldStart reports whether capturing should begin for a scenario.
// ModeOnFailure starts unconditionally because the outcome is not known yet.
func ShouldStart(mode Mode, isRescheduled bool) bool {
	switch mode {
	case ModeAlways, ModeOnFailure:
		return true
	case ModeOnReschedule:
		return isRescheduled
	default:
		return false
	}
}

// ShouldRetain reports whether a finished capture is kept given the scenario outcome.
func ShouldRetain(mode Mode, isFailed bool) bool {
	switch mode {
	case ModeAlways, ModeOnReschedule:
		return true
	case ModeOnFailure:
		return isFailed
	default:
		return false
	}
}

func modeChoices() string {
	names := make([]string, len(Modes))
	for i, m := range Modes {
		names[i] = string(m)
	}
	return strings.Join(names, ", ")
}
