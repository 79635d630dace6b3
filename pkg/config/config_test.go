package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/pwplugin/pkg/browser"
	"github.com/entrhq/pwplugin/pkg/capture"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, browser.Chromium, cfg.Browser)
	assert.Empty(t, cfg.Device)
	assert.False(t, cfg.Headed)
	assert.Equal(t, 0, cfg.Slowmo)
	assert.False(t, cfg.Remote)
	assert.Equal(t, "ws://localhost:3000", cfg.RemoteEndpoint)
	assert.Equal(t, capture.ModeNever, cfg.CaptureScreenshots)
	assert.Equal(t, capture.ModeNever, cfg.CaptureVideo)
	assert.Equal(t, capture.ModeNever, cfg.CaptureTrace)
	assert.Nil(t, cfg.Timeout)
	assert.Nil(t, cfg.NavigationTimeout)
	assert.Nil(t, cfg.BrowserTimeout)
	assert.NoError(t, cfg.Validate())
}

func TestConfig_Validate(t *testing.T) {
	negative := -1.0

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "valid config",
			mutate: func(*Config) {},
		},
		{
			name:    "unknown browser",
			mutate:  func(c *Config) { c.Browser = "lynx" },
			wantErr: "lynx",
		},
		{
			name:    "negative slowmo",
			mutate:  func(c *Config) { c.Slowmo = -5 },
			wantErr: "slowmo",
		},
		{
			name: "remote without endpoint",
			mutate: func(c *Config) {
				c.Remote = true
				c.RemoteEndpoint = ""
			},
			wantErr: "remote_endpoint",
		},
		{
			name:    "invalid capture mode",
			mutate:  func(c *Config) { c.CaptureVideo = "sometimes" },
			wantErr: "capture_video",
		},
		{
			name:    "empty capture mode",
			mutate:  func(c *Config) { c.CaptureTrace = "" },
			wantErr: "capture_trace",
		},
		{
			name:    "negative timeout",
			mutate:  func(c *Config) { c.NavigationTimeout = &negative },
			wantErr: "navigation_timeout",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
			assert.True(t, errors.Is(err, browser.ErrInvalidConfig))
		})
	}
}

func TestLoadFile_YAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pwplugin.yaml")
	content := `
browser: firefox
headed: true
slowmo: 120
capture_screenshots: on-failure
capture_trace: ALWAYS
timeout: 5000
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, browser.Firefox, cfg.Browser)
	assert.True(t, cfg.Headed)
	assert.Equal(t, 120, cfg.Slowmo)
	assert.Equal(t, capture.ModeOnFailure, cfg.CaptureScreenshots)
	assert.Equal(t, capture.ModeAlways, cfg.CaptureTrace)
	// Unset fields keep their defaults
	assert.Equal(t, capture.ModeNever, cfg.CaptureVideo)
	assert.Equal(t, "ws://localhost:3000", cfg.RemoteEndpoint)
	require.NotNil(t, cfg.Timeout)
	assert.Equal(t, 5000.0, *cfg.Timeout)
	assert.Nil(t, cfg.BrowserTimeout)
}

func TestLoadFile_JSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pwplugin.json")
	content := `{"browser": "webkit", "capture_video": "on-reschedule", "browser_timeout": 30000}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, browser.WebKit, cfg.Browser)
	assert.Equal(t, capture.ModeOnReschedule, cfg.CaptureVideo)
	require.NotNil(t, cfg.BrowserTimeout)
	assert.Equal(t, 30000.0, *cfg.BrowserTimeout)
}

func TestLoadFile_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadFile(filepath.Join(dir, "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")

	path := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("capture_trace: sometimes\n"), 0o644))
	_, err = LoadFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid capture mode")
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("PW_BROWSER", "firefox")
	t.Setenv("PW_SLOWMO", "40")
	t.Setenv("PW_CAPTURE_SCREENSHOTS", "always")
	t.Setenv("PW_NAVIGATION_TIMEOUT", "12000")

	cfg := DefaultConfig()
	require.NoError(t, cfg.ApplyEnv(EnvPrefix))

	assert.Equal(t, browser.Firefox, cfg.Browser)
	assert.Equal(t, 40, cfg.Slowmo)
	assert.Equal(t, capture.ModeAlways, cfg.CaptureScreenshots)
	require.NotNil(t, cfg.NavigationTimeout)
	assert.Equal(t, 12000.0, *cfg.NavigationTimeout)
	assert.Nil(t, cfg.Timeout)
	assert.Equal(t, capture.ModeNever, cfg.CaptureTrace)
}

func TestApplyEnv_InvalidValue(t *testing.T) {
	t.Setenv("PW_CAPTURE_VIDEO", "sometimes")

	cfg := DefaultConfig()
	err := cfg.ApplyEnv(EnvPrefix)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read environment")
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pwplugin.yaml")
	require.NoError(t, os.WriteFile(path, []byte("slowmo: 10\ncapture_video: always\n"), 0o644))
	t.Setenv("PW_SLOWMO", "25")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 25, cfg.Slowmo, "environment overrides the file")
	assert.Equal(t, capture.ModeAlways, cfg.CaptureVideo)

	t.Setenv("PW_SLOWMO", "-1")
	_, err = Load(path)
	assert.ErrorIs(t, err, browser.ErrInvalidConfig)

	cfg, err = Load("")
	require.Error(t, err, "environment still carries the negative slowmo")
	assert.Nil(t, cfg)
}
