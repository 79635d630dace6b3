package browser

import (
	"fmt"

	"github.com/playwright-community/playwright-go"

	"github.com/entrhq/pwplugin/pkg/runner"
)

// ConfigurableBrowser wraps a playwright browser so that every context it
// creates follows the runtime config: device emulation, default timeouts and
// the trace and video capture switched on for the current scenario. Contexts
// are closed, and their traces written, when the browser's scope closes.
type ConfigurableBrowser struct {
	playwright.Browser

	rc     *RuntimeConfig
	scope  *runner.Scope
	device *playwright.DeviceDescriptor
	remote bool
}

func newConfigurableBrowser(b playwright.Browser, scope *runner.Scope, rc *RuntimeConfig, device *playwright.DeviceDescriptor, remote bool) *ConfigurableBrowser {
	return &ConfigurableBrowser{
		Browser: b,
		rc:      rc,
		scope:   scope,
		device:  device,
		remote:  remote,
	}
}

// Device returns the emulated device descriptor, or nil.
func (b *ConfigurableBrowser) Device() *playwright.DeviceDescriptor {
	return b.device
}

// IsRemote reports whether the browser was connected to rather than launched.
func (b *ConfigurableBrowser) IsRemote() bool {
	return b.remote
}

// NewContext creates a context instrumented according to the runtime config.
// Explicit options win over device defaults; the video directory always comes
// from the runtime config while video capture is on.
func (b *ConfigurableBrowser) NewContext(options ...playwright.BrowserNewContextOptions) (playwright.BrowserContext, error) {
	var opts playwright.BrowserNewContextOptions
	if len(options) > 0 {
		opts = options[0]
	}
	applyDevice(&opts, b.device)

	if b.rc.ShouldCaptureVideo() {
		if b.remote {
			debugLog.Warnf("video capture is enabled but videos are recorded on the remote host and may not be retrievable")
		}
		video := b.rc.VideoOptions()
		record := playwright.RecordVideo{Dir: video.Dir, Size: video.Size}
		if opts.RecordVideo != nil && opts.RecordVideo.Size != nil {
			record.Size = opts.RecordVideo.Size
		}
		opts.RecordVideo = &record
	}

	ctx, err := b.Browser.NewContext(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create context: %w", err)
	}

	// Cleanup runs in reverse: stop tracing, unregister, then close
	b.scope.Defer(func() error { return ctx.Close() })
	b.scope.Defer(func() error {
		b.rc.RemoveContext(ctx)
		return nil
	})

	if t := b.rc.Timeout(); t != nil {
		ctx.SetDefaultTimeout(*t)
	}
	if t := b.rc.NavigationTimeout(); t != nil {
		ctx.SetDefaultNavigationTimeout(*t)
	}

	if b.rc.ShouldCaptureTrace() {
		b.startTracing(ctx)
	}

	b.rc.AddContext(ctx)
	return ctx, nil
}

// startTracing starts tracing on ctx and writes the trace when the scope
// closes. A tracing failure leaves the context usable without a trace.
func (b *ConfigurableBrowser) startTracing(ctx playwright.BrowserContext) {
	trace := b.rc.TraceOptions()
	err := ctx.Tracing().Start(playwright.TracingStartOptions{
		Screenshots: playwright.Bool(trace.Screenshots),
		Snapshots:   playwright.Bool(trace.Snapshots),
		Sources:     playwright.Bool(trace.Sources),
	})
	if err != nil {
		debugLog.Warnf("failed to start tracing, continuing without a trace: %v", err)
		return
	}
	path := trace.Path
	b.scope.Defer(func() error {
		if err := ctx.Tracing().Stop(path); err != nil {
			return fmt.Errorf("failed to stop tracing: %w", err)
		}
		return nil
	})
}
