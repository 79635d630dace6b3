package browser

import (
	"fmt"

	"github.com/playwright-community/playwright-go"
)

type launchSettings struct {
	browser   Name
	device    string
	autoClose bool
	pw        *playwright.Playwright
	endpoint  string
	launch    playwright.BrowserTypeLaunchOptions
	connect   playwright.BrowserTypeConnectOptions
}

// LaunchOption overrides a runtime config value for a single factory call.
type LaunchOption func(*launchSettings)

// WithBrowser launches name instead of the configured browser.
func WithBrowser(name Name) LaunchOption {
	return func(s *launchSettings) {
		s.browser = name
	}
}

// WithDevice emulates the named device instead of the configured one.
func WithDevice(name string) LaunchOption {
	return func(s *launchSettings) {
		s.device = name
	}
}

// WithoutAutoClose leaves the browser open when the scope closes.
func WithoutAutoClose() LaunchOption {
	return func(s *launchSettings) {
		s.autoClose = false
	}
}

// WithPlaywright uses an already running driver. The caller owns its lifetime.
func WithPlaywright(pw *playwright.Playwright) LaunchOption {
	return func(s *launchSettings) {
		s.pw = pw
	}
}

// WithEndpoint connects to endpoint instead of the configured remote endpoint.
func WithEndpoint(endpoint string) LaunchOption {
	return func(s *launchSettings) {
		s.endpoint = endpoint
	}
}

// WithLaunchOptions passes explicit launch options. Fields set here win over
// the runtime config.
func WithLaunchOptions(opts playwright.BrowserTypeLaunchOptions) LaunchOption {
	return func(s *launchSettings) {
		s.launch = opts
	}
}

// WithConnectOptions passes explicit connect options. Fields set here win over
// the runtime config.
func WithConnectOptions(opts playwright.BrowserTypeConnectOptions) LaunchOption {
	return func(s *launchSettings) {
		s.connect = opts
	}
}

func newLaunchSettings(rc *RuntimeConfig, opts []LaunchOption) *launchSettings {
	s := &launchSettings{
		browser:   rc.Browser(),
		device:    rc.Device(),
		autoClose: true,
		endpoint:  rc.RemoteEndpoint(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// browserType maps a browser name to the driver's browser type. Random picks
// one of the concrete browsers.
func browserType(pw *playwright.Playwright, name Name) (playwright.BrowserType, error) {
	var bt playwright.BrowserType
	switch name.Resolve() {
	case Chromium:
		bt = pw.Chromium
	case Firefox:
		bt = pw.Firefox
	case WebKit:
		bt = pw.WebKit
	default:
		return nil, &UnsupportedBrowserError{Browser: string(name)}
	}
	if bt == nil {
		return nil, fmt.Errorf("browser type %s is not available from the driver", name)
	}
	return bt, nil
}

// deviceDescriptor looks up a device by name. An empty name means no emulation.
func deviceDescriptor(pw *playwright.Playwright, name string) (*playwright.DeviceDescriptor, error) {
	if name == "" {
		return nil, nil
	}
	d, ok := pw.Devices[name]
	if !ok || d == nil {
		return nil, &UnsupportedDeviceError{Device: name}
	}
	return d, nil
}

func localLaunchOptions(rc *RuntimeConfig, opts playwright.BrowserTypeLaunchOptions) playwright.BrowserTypeLaunchOptions {
	if opts.Headless == nil {
		opts.Headless = playwright.Bool(!rc.Headed())
	}
	if opts.SlowMo == nil {
		opts.SlowMo = playwright.Float(float64(rc.Slowmo()))
	}
	if opts.Timeout == nil {
		opts.Timeout = rc.BrowserTimeout()
	}
	return opts
}

func remoteConnectOptions(rc *RuntimeConfig, opts playwright.BrowserTypeConnectOptions) playwright.BrowserTypeConnectOptions {
	if opts.SlowMo == nil {
		opts.SlowMo = playwright.Float(float64(rc.Slowmo()))
	}
	if opts.Timeout == nil {
		opts.Timeout = rc.BrowserTimeout()
	}
	return opts
}

// applyDevice fills context options from a device descriptor. Options the
// caller already set are kept.
func applyDevice(opts *playwright.BrowserNewContextOptions, d *playwright.DeviceDescriptor) {
	if d == nil {
		return
	}
	if opts.UserAgent == nil && d.UserAgent != "" {
		opts.UserAgent = playwright.String(d.UserAgent)
	}
	if opts.Viewport == nil && d.Viewport != nil {
		viewport := *d.Viewport
		opts.Viewport = &viewport
	}
	if opts.Screen == nil && d.Screen != nil {
		screen := *d.Screen
		opts.Screen = &screen
	}
	if opts.DeviceScaleFactor == nil && d.DeviceScaleFactor != 0 {
		opts.DeviceScaleFactor = playwright.Float(d.DeviceScaleFactor)
	}
	if opts.IsMobile == nil {
		opts.IsMobile = playwright.Bool(d.IsMobile)
	}
	if opts.HasTouch == nil {
		opts.HasTouch = playwright.Bool(d.HasTouch)
	}
}
