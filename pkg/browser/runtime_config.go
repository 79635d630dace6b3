package browser

import (
	"fmt"

	"github.com/playwright-community/playwright-go"
)

// DefaultRemoteEndpoint is the websocket endpoint used when none is configured.
const DefaultRemoteEndpoint = "ws://localhost:3000"

// TraceOptions configures tracing for contexts created while trace capture is on.
type TraceOptions struct {
	// Path is where the trace archive is written when the context closes
	Path        string
	Screenshots bool
	Snapshots   bool
	Sources     bool
}

// VideoOptions configures video recording for contexts created while video capture is on.
type VideoOptions struct {
	// Dir is the directory playwright records videos into
	Dir  string
	Size *playwright.Size
}

// RuntimeConfig is the configuration shared by the browser factories and the
// plugin for one run. The plugin fills it from flags at startup and toggles the
// capture fields at the start of every scenario; the factories read it when
// they launch browsers and create contexts.
//
// RuntimeConfig is not safe for concurrent use. The runner drives every
// factory and plugin handler from a single goroutine.
type RuntimeConfig struct {
	browser        Name
	device         string
	headed         bool
	slowmo         int
	remote         bool
	remoteEndpoint string
	debug          bool
	installDriver  bool

	timeout           *float64
	navigationTimeout *float64
	browserTimeout    *float64

	captureTrace       bool
	traceOptions       TraceOptions
	captureVideo       bool
	videoOptions       VideoOptions
	captureScreenshots bool

	// contexts holds open contexts in creation order; contextSet indexes them by identity
	contexts   []playwright.BrowserContext
	contextSet map[playwright.BrowserContext]struct{}
}

// NewRuntimeConfig creates a runtime config holding the defaults.
func NewRuntimeConfig() *RuntimeConfig {
	return &RuntimeConfig{
		browser:        Chromium,
		remoteEndpoint: DefaultRemoteEndpoint,
		contextSet:     make(map[playwright.BrowserContext]struct{}),
	}
}

// Browser returns the configured browser name.
func (c *RuntimeConfig) Browser() Name { return c.browser }

// SetBrowser sets the browser name.
func (c *RuntimeConfig) SetBrowser(name Name) { c.browser = name }

// Device returns the name of the emulated device, or "" for none.
func (c *RuntimeConfig) Device() string { return c.device }

// SetDevice sets the emulated device name.
func (c *RuntimeConfig) SetDevice(name string) { c.device = name }

// Headed reports whether browsers run with a visible window.
func (c *RuntimeConfig) Headed() bool { return c.headed }

// SetHeaded sets headed mode.
func (c *RuntimeConfig) SetHeaded(headed bool) { c.headed = headed }

// Slowmo returns the delay in milliseconds added to every playwright operation.
func (c *RuntimeConfig) Slowmo() int { return c.slowmo }

// SetSlowmo sets the slow motion delay. Negative values are rejected.
func (c *RuntimeConfig) SetSlowmo(ms int) error {
	if ms < 0 {
		return fmt.Errorf("%w: slowmo must be a non-negative integer, got %d", ErrInvalidConfig, ms)
	}
	c.slowmo = ms
	return nil
}

// Remote reports whether browsers are connected to instead of launched.
func (c *RuntimeConfig) Remote() bool { return c.remote }

// SetRemote sets remote mode.
func (c *RuntimeConfig) SetRemote(remote bool) { c.remote = remote }

// RemoteEndpoint returns the websocket endpoint of the remote browser.
func (c *RuntimeConfig) RemoteEndpoint() string { return c.remoteEndpoint }

// SetRemoteEndpoint sets the websocket endpoint of the remote browser.
func (c *RuntimeConfig) SetRemoteEndpoint(endpoint string) { c.remoteEndpoint = endpoint }

// Debug reports whether playwright debug mode was requested.
func (c *RuntimeConfig) Debug() bool { return c.debug }

// SetDebug sets debug mode.
func (c *RuntimeConfig) SetDebug(debug bool) { c.debug = debug }

// InstallDriver reports whether the playwright driver and browsers are
// installed before the driver is started.
func (c *RuntimeConfig) InstallDriver() bool { return c.installDriver }

// SetInstallDriver sets driver installation.
func (c *RuntimeConfig) SetInstallDriver(install bool) { c.installDriver = install }

// Timeout returns the default action timeout in milliseconds, or nil if unset.
func (c *RuntimeConfig) Timeout() *float64 { return copyFloat(c.timeout) }

// SetTimeout sets the default action timeout in milliseconds.
func (c *RuntimeConfig) SetTimeout(ms float64) { c.timeout = &ms }

// NavigationTimeout returns the default navigation timeout in milliseconds, or nil if unset.
func (c *RuntimeConfig) NavigationTimeout() *float64 { return copyFloat(c.navigationTimeout) }

// SetNavigationTimeout sets the default navigation timeout in milliseconds.
func (c *RuntimeConfig) SetNavigationTimeout(ms float64) { c.navigationTimeout = &ms }

// BrowserTimeout returns the browser launch timeout in milliseconds, or nil if unset.
func (c *RuntimeConfig) BrowserTimeout() *float64 { return copyFloat(c.browserTimeout) }

// SetBrowserTimeout sets the browser launch timeout in milliseconds.
func (c *RuntimeConfig) SetBrowserTimeout(ms float64) { c.browserTimeout = &ms }

// ShouldCaptureTrace reports whether new contexts record a trace.
func (c *RuntimeConfig) ShouldCaptureTrace() bool { return c.captureTrace }

// SetCaptureTrace turns trace capture on or off. Turning it off clears the options.
func (c *RuntimeConfig) SetCaptureTrace(capture bool) {
	c.captureTrace = capture
	if !capture {
		c.traceOptions = TraceOptions{}
	}
}

// TraceOptions returns the options used to start tracing.
func (c *RuntimeConfig) TraceOptions() TraceOptions { return c.traceOptions }

// SetTraceOptions sets the options used to start tracing.
func (c *RuntimeConfig) SetTraceOptions(opts TraceOptions) { c.traceOptions = opts }

// ShouldCaptureVideo reports whether new contexts record video.
func (c *RuntimeConfig) ShouldCaptureVideo() bool { return c.captureVideo }

// SetCaptureVideo turns video capture on or off. Turning it off clears the options.
func (c *RuntimeConfig) SetCaptureVideo(capture bool) {
	c.captureVideo = capture
	if !capture {
		c.videoOptions = VideoOptions{}
	}
}

// VideoOptions returns the options used to record video.
func (c *RuntimeConfig) VideoOptions() VideoOptions { return c.videoOptions }

// SetVideoOptions sets the options used to record video.
func (c *RuntimeConfig) SetVideoOptions(opts VideoOptions) { c.videoOptions = opts }

// ShouldCaptureScreenshots reports whether a screenshot is taken after every step.
func (c *RuntimeConfig) ShouldCaptureScreenshots() bool { return c.captureScreenshots }

// SetCaptureScreenshots turns screenshot capture on or off.
func (c *RuntimeConfig) SetCaptureScreenshots(capture bool) { c.captureScreenshots = capture }

// AddContext registers an open context. Adding the same context twice is a no-op.
func (c *RuntimeConfig) AddContext(ctx playwright.BrowserContext) {
	if ctx == nil {
		return
	}
	if _, ok := c.contextSet[ctx]; ok {
		return
	}
	c.contextSet[ctx] = struct{}{}
	c.contexts = append(c.contexts, ctx)
}

// RemoveContext unregisters a context. Removing an unknown context is a no-op.
func (c *RuntimeConfig) RemoveContext(ctx playwright.BrowserContext) {
	if _, ok := c.contextSet[ctx]; !ok {
		return
	}
	delete(c.contextSet, ctx)
	for i, known := range c.contexts {
		if known == ctx {
			c.contexts = append(c.contexts[:i], c.contexts[i+1:]...)
			break
		}
	}
}

// Contexts returns the open contexts in the order they were created.
func (c *RuntimeConfig) Contexts() []playwright.BrowserContext {
	out := make([]playwright.BrowserContext, len(c.contexts))
	copy(out, c.contexts)
	return out
}

func copyFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	out := *v
	return &out
}
