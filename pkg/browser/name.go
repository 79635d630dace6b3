package browser

import (
	"math/rand"
	"strings"

	"gopkg.in/yaml.v3"
)

// Name identifies a playwright browser type.
type Name string

const (
	Chromium Name = "chromium"
	Firefox  Name = "firefox"
	WebKit   Name = "webkit"
	// Random picks one of the concrete browsers each time a browser is launched.
	Random Name = "random"
)

// Names lists every accepted browser name.
var Names = []Name{Chromium, Firefox, WebKit, Random}

// ParseName converts a string into a Name.
func ParseName(s string) (Name, error) {
	n := Name(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Names {
		if n == known {
			return n, nil
		}
	}
	return "", &UnsupportedBrowserError{Browser: s}
}

// Resolve returns n, or a randomly chosen concrete browser when n is Random.
func (n Name) Resolve() Name {
	if n != Random {
		return n
	}
	concrete := []Name{Chromium, Firefox, WebKit}
	return concrete[rand.Intn(len(concrete))]
}

func (n Name) String() string {
	return string(n)
}

// Set implements pflag.Value.
func (n *Name) Set(s string) error {
	parsed, err := ParseName(s)
	if err != nil {
		return err
	}
	*n = parsed
	return nil
}

// Type implements pflag.Value.
func (n *Name) Type() string {
	return "browser"
}

// UnmarshalText implements encoding.TextUnmarshaler, used by JSON and envconfig.
func (n *Name) UnmarshalText(text []byte) error {
	return n.Set(string(text))
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (n *Name) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	return n.Set(s)
}

func nameChoices() string {
	names := make([]string, len(Names))
	for i, n := range Names {
		names[i] = string(n)
	}
	return strings.Join(names, ", ")
}
