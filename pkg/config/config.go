package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"github.com/entrhq/pwplugin/pkg/browser"
	"github.com/entrhq/pwplugin/pkg/capture"
)

// EnvPrefix is the prefix of environment variables that override the config
// file, e.g. PW_BROWSER or PW_CAPTURE_TRACE.
const EnvPrefix = "PW"

// Config is the static plugin configuration. Its values are the defaults of
// the plugin's command line flags; timeouts apply whenever they are set.
type Config struct {
	// Browser selection
	Browser browser.Name `yaml:"browser" json:"browser" split_words:"true"`
	Device  string       `yaml:"device" json:"device" split_words:"true"`
	Headed  bool         `yaml:"headed" json:"headed" split_words:"true"`
	Slowmo  int          `yaml:"slowmo" json:"slowmo" split_words:"true"`

	// Remote browser server
	Remote         bool   `yaml:"remote" json:"remote" split_words:"true"`
	RemoteEndpoint string `yaml:"remote_endpoint" json:"remote_endpoint" split_words:"true"`

	// Capture policies
	CaptureScreenshots capture.Mode `yaml:"capture_screenshots" json:"capture_screenshots" split_words:"true"`
	CaptureVideo       capture.Mode `yaml:"capture_video" json:"capture_video" split_words:"true"`
	CaptureTrace       capture.Mode `yaml:"capture_trace" json:"capture_trace" split_words:"true"`

	// Timeouts in milliseconds; nil leaves the playwright default
	Timeout           *float64 `yaml:"timeout" json:"timeout" split_words:"true"`
	NavigationTimeout *float64 `yaml:"navigation_timeout" json:"navigation_timeout" split_words:"true"`
	BrowserTimeout    *float64 `yaml:"browser_timeout" json:"browser_timeout" split_words:"true"`

	// InstallDriver installs the playwright driver and browsers before the first launch
	InstallDriver bool `yaml:"install_driver" json:"install_driver" split_words:"true"`
}

// DefaultConfig returns the configuration used when nothing is overridden.
func DefaultConfig() *Config {
	return &Config{
		Browser:            browser.Chromium,
		RemoteEndpoint:     browser.DefaultRemoteEndpoint,
		CaptureScreenshots: capture.ModeNever,
		CaptureVideo:       capture.ModeNever,
		CaptureTrace:       capture.ModeNever,
	}
}

// Validate checks the configuration. Every error wraps browser.ErrInvalidConfig.
func (c *Config) Validate() error {
	if _, err := browser.ParseName(string(c.Browser)); err != nil {
		return err
	}

	if c.Slowmo < 0 {
		return fmt.Errorf("%w: slowmo must be a non-negative integer, got %d", browser.ErrInvalidConfig, c.Slowmo)
	}

	if c.Remote && c.RemoteEndpoint == "" {
		return fmt.Errorf("%w: remote_endpoint is required when remote is enabled", browser.ErrInvalidConfig)
	}

	for _, m := range []struct {
		name string
		mode capture.Mode
	}{
		{"capture_screenshots", c.CaptureScreenshots},
		{"capture_video", c.CaptureVideo},
		{"capture_trace", c.CaptureTrace},
	} {
		if !m.mode.Valid() {
			return fmt.Errorf("%w: invalid %s: %q", browser.ErrInvalidConfig, m.name, m.mode)
		}
	}

	for _, t := range []struct {
		name  string
		value *float64
	}{
		{"timeout", c.Timeout},
		{"navigation_timeout", c.NavigationTimeout},
		{"browser_timeout", c.BrowserTimeout},
	} {
		if t.value != nil && *t.value < 0 {
			return fmt.Errorf("%w: %s cannot be negative", browser.ErrInvalidConfig, t.name)
		}
	}

	return nil
}

// LoadFile reads a YAML or JSON config file on top of the defaults. The format
// is chosen by extension; anything but .json is parsed as YAML.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()
	if strings.EqualFold(filepath.Ext(path), ".json") {
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	} else {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}
	return cfg, nil
}

// ApplyEnv overrides fields from environment variables named prefix_FIELD.
func (c *Config) ApplyEnv(prefix string) error {
	if err := envconfig.Process(prefix, c); err != nil {
		return fmt.Errorf("failed to read environment: %w", err)
	}
	return nil
}

// Load builds the effective configuration: defaults, then the file at path
// when path is not empty, then the environment. The result is validated.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		loaded, err := LoadFile(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if err := cfg.ApplyEnv(EnvPrefix); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
