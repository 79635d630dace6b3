package plugin

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/playwright-community/playwright-go"
	"github.com/spf13/pflag"

	"github.com/entrhq/pwplugin/pkg/browser"
	"github.com/entrhq/pwplugin/pkg/capture"
	"github.com/entrhq/pwplugin/pkg/config"
	"github.com/entrhq/pwplugin/pkg/logging"
	"github.com/entrhq/pwplugin/pkg/runner"
	"github.com/entrhq/pwplugin/pkg/types"
)

var debugLog *logging.Logger

func init() {
	var err error
	debugLog, err = logging.NewLogger("plugin")
	if err != nil {
		// Logger fell back to stderr due to initialization failure
		debugLog.Warnf("Failed to initialize plugin logger, using stderr fallback: %v", err)
	}
}

// Command line flags registered by the plugin.
const (
	FlagBrowser        = "pw-browser"
	FlagHeaded         = "pw-headed"
	FlagHeadless       = "pw-headless"
	FlagSlowmo         = "pw-slowmo"
	FlagRemote         = "pw-remote"
	FlagRemoteEndpoint = "pw-remote-endpoint"
	FlagScreenshots    = "pw-screenshots"
	FlagVideo          = "pw-video"
	FlagTrace          = "pw-trace"
	FlagDevice         = "pw-device"
	FlagDebug          = "pw-debug"
	FlagOpenLastTrace  = "pw-open-last-trace"
)

// DebugEnv is set to "1" when --pw-debug is given; playwright reads it to
// enable its inspector.
const DebugEnv = "PWDEBUG"

// Option configures a Plugin.
type Option func(*Plugin)

// WithRuntimeConfig shares rc with the plugin instead of a fresh one.
func WithRuntimeConfig(rc *browser.RuntimeConfig) Option {
	return func(p *Plugin) {
		p.rc = rc
	}
}

// WithStager sets where captured artifacts are staged.
func WithStager(s *capture.Stager) Option {
	return func(p *Plugin) {
		p.stager = s
	}
}

// WithTraceViewer sets the viewer used by --pw-open-last-trace.
func WithTraceViewer(v browser.TraceViewer) Option {
	return func(p *Plugin) {
		p.viewer = v
	}
}

// WithLaunchOptions sets options passed to every browser the plugin's
// fixtures launch.
func WithLaunchOptions(opts ...browser.LaunchOption) Option {
	return func(p *Plugin) {
		p.launchOpts = append(p.launchOpts, opts...)
	}
}

// flagValues holds the parsed command line, seeded from the static config.
type flagValues struct {
	browser        browser.Name
	headed         bool
	headless       bool
	slowmo         int
	remote         bool
	remoteEndpoint string
	screenshots    capture.Mode
	video          capture.Mode
	trace          capture.Mode
	device         string
	debug          bool
	openLastTrace  bool
}

// Plugin integrates playwright into the runner. It registers the pw-* flags,
// fills the runtime config from them, and captures screenshots, video and
// traces for every scenario according to the configured capture modes.
type Plugin struct {
	cfg        config.Config
	rc         *browser.RuntimeConfig
	stager     *capture.Stager
	viewer     browser.TraceViewer
	launchOpts []browser.LaunchOption

	flags flagValues

	// Capture modes resolved from flags
	screenshotMode capture.Mode
	videoMode      capture.Mode
	traceMode      capture.Mode
	openLastTrace  bool

	// Identity of the previously started scenario, for reschedule detection
	prevScenarioID string
	hasPrev        bool

	// Staging for the current scenario
	tracePath     string
	videoDir      string
	screenshots   []*screenshotRecord
	screenshotSeq int

	// lastTrace is the trace retained for the most recent scenario
	lastTrace string

	// shared is the run-wide browser handed out by SharedBrowser
	shared *browser.ConfigurableBrowser

	// log carries the current scenario id
	log *logging.Logger
}

// New creates a plugin whose flag defaults come from cfg.
func New(cfg config.Config, opts ...Option) *Plugin {
	p := &Plugin{
		cfg:            cfg,
		screenshotMode: cfg.CaptureScreenshots,
		videoMode:      cfg.CaptureVideo,
		traceMode:      cfg.CaptureTrace,
		log:            debugLog,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.rc == nil {
		p.rc = browser.NewRuntimeConfig()
	}
	if p.stager == nil {
		p.stager = capture.NewOSStager()
	}
	if p.viewer == nil {
		p.viewer = browser.NewCommandTraceViewer()
	}
	return p
}

// RuntimeConfig returns the runtime config the plugin fills.
func (p *Plugin) RuntimeConfig() *browser.RuntimeConfig {
	return p.rc
}

// Subscribe implements runner.Plugin.
func (p *Plugin) Subscribe(d *runner.Dispatcher) {
	d.Listen(types.EventTypeArgParse, p.onArgParse).
		Listen(types.EventTypeArgParsed, p.onArgParsed).
		Listen(types.EventTypeScenarioRun, p.onScenarioRun).
		Listen(types.EventTypeStepPassed, p.onStepEnd).
		Listen(types.EventTypeStepFailed, p.onStepEnd).
		Listen(types.EventTypeScenarioPassed, p.onScenarioEnd).
		Listen(types.EventTypeScenarioFailed, p.onScenarioEnd).
		Listen(types.EventTypeCleanup, p.onCleanup)
}

// Browser launches a browser that closes with scope.
func (p *Plugin) Browser(scope *runner.Scope) (*browser.ConfigurableBrowser, error) {
	return browser.LaunchedBrowser(scope, p.rc, p.launchOpts...)
}

// Context creates a context, and a browser for it, that close with scope.
func (p *Plugin) Context(scope *runner.Scope, opts ...playwright.BrowserNewContextOptions) (playwright.BrowserContext, error) {
	b, err := p.Browser(scope)
	if err != nil {
		return nil, err
	}
	return browser.CreatedBrowserContext(scope, p.rc, b, opts...)
}

// SharedBrowser returns a browser launched once per run. It is bound to the
// run scope, while contexts created from it still close with the scenario.
func (p *Plugin) SharedBrowser(scope *runner.Scope) (*browser.ConfigurableBrowser, error) {
	if p.shared != nil {
		return p.shared, nil
	}
	root := scope.Root()
	b, err := browser.LaunchedBrowser(root, p.rc, p.launchOpts...)
	if err != nil {
		return nil, err
	}
	p.shared = b
	root.Defer(func() error {
		p.shared = nil
		return nil
	})
	return b, nil
}

// SharedPage opens a page in a fresh context of the shared browser. The
// context and page close with scope.
func (p *Plugin) SharedPage(scope *runner.Scope) (playwright.Page, error) {
	b, err := p.SharedBrowser(scope)
	if err != nil {
		return nil, err
	}
	ctx, err := browser.CreatedBrowserContext(scope, p.rc, b)
	if err != nil {
		return nil, err
	}
	return browser.OpenedBrowserPage(scope, p.rc, ctx)
}

// Page opens a page in a fresh context and browser bound to scope.
func (p *Plugin) Page(scope *runner.Scope) (playwright.Page, error) {
	ctx, err := p.Context(scope)
	if err != nil {
		return nil, err
	}
	return browser.OpenedBrowserPage(scope, p.rc, ctx)
}

func (p *Plugin) onArgParse(_ context.Context, e *types.Event) error {
	fs := e.Flags
	if fs == nil {
		return errors.New("no flag set to register on")
	}
	p.registerFlags(fs)
	return nil
}

func (p *Plugin) registerFlags(fs *pflag.FlagSet) {
	p.flags = flagValues{
		browser:        p.cfg.Browser,
		headed:         p.cfg.Headed,
		slowmo:         p.cfg.Slowmo,
		remote:         p.cfg.Remote,
		remoteEndpoint: p.cfg.RemoteEndpoint,
		screenshots:    p.cfg.CaptureScreenshots,
		video:          p.cfg.CaptureVideo,
		trace:          p.cfg.CaptureTrace,
		device:         p.cfg.Device,
	}
	if p.flags.browser == "" {
		p.flags.browser = browser.Chromium
	}
	if p.flags.remoteEndpoint == "" {
		p.flags.remoteEndpoint = browser.DefaultRemoteEndpoint
	}
	for _, m := range []*capture.Mode{&p.flags.screenshots, &p.flags.video, &p.flags.trace} {
		if *m == "" {
			*m = capture.ModeNever
		}
	}

	fs.Var(&p.flags.browser, FlagBrowser, "browser to run scenarios in (chromium, firefox, webkit, random)")
	fs.BoolVar(&p.flags.headed, FlagHeaded, p.flags.headed, "run the browser with a visible window")
	fs.BoolVar(&p.flags.headless, FlagHeadless, false, "run the browser without a window")
	fs.IntVar(&p.flags.slowmo, FlagSlowmo, p.flags.slowmo, "slow down every playwright operation by this many milliseconds")
	fs.BoolVar(&p.flags.remote, FlagRemote, p.flags.remote, "connect to a remote browser server instead of launching one")
	fs.StringVar(&p.flags.remoteEndpoint, FlagRemoteEndpoint, p.flags.remoteEndpoint, "websocket endpoint of the remote browser server")
	fs.Var(&p.flags.screenshots, FlagScreenshots, "when to capture a screenshot after each step (always, never, on-reschedule, on-failure)")
	fs.Var(&p.flags.video, FlagVideo, "when to record video (always, never, on-reschedule, on-failure)")
	fs.Var(&p.flags.trace, FlagTrace, "when to record a playwright trace (always, never, on-reschedule, on-failure)")
	fs.StringVar(&p.flags.device, FlagDevice, p.flags.device, "name of the device to emulate")
	fs.BoolVar(&p.flags.debug, FlagDebug, false, "run playwright in debug mode")
	fs.BoolVar(&p.flags.openLastTrace, FlagOpenLastTrace, false, "open the trace of the last scenario when the run ends")
}

func (p *Plugin) onArgParsed(_ context.Context, e *types.Event) error {
	fs := e.Flags
	if fs == nil {
		return errors.New("no parsed flags")
	}

	headedChanged := fs.Changed(FlagHeaded)
	headless := fs.Changed(FlagHeadless) && p.flags.headless
	if headless && headedChanged && p.flags.headed {
		return fmt.Errorf("%w: --%s and --%s are mutually exclusive", browser.ErrInvalidConfig, FlagHeaded, FlagHeadless)
	}

	if err := p.rc.SetSlowmo(p.flags.slowmo); err != nil {
		return err
	}

	p.rc.SetBrowser(p.flags.browser)
	p.rc.SetDevice(p.flags.device)
	p.rc.SetRemote(p.flags.remote)
	p.rc.SetRemoteEndpoint(p.flags.remoteEndpoint)
	p.rc.SetInstallDriver(p.cfg.InstallDriver)

	switch {
	case headless:
		p.rc.SetHeaded(false)
	case headedChanged:
		p.rc.SetHeaded(p.flags.headed)
	default:
		p.rc.SetHeaded(p.cfg.Headed)
	}

	// Static timeouts apply when set; there is no flag to unset them
	if p.cfg.Timeout != nil {
		p.rc.SetTimeout(*p.cfg.Timeout)
	}
	if p.cfg.NavigationTimeout != nil {
		p.rc.SetNavigationTimeout(*p.cfg.NavigationTimeout)
	}
	if p.cfg.BrowserTimeout != nil {
		p.rc.SetBrowserTimeout(*p.cfg.BrowserTimeout)
	}

	p.screenshotMode = p.flags.screenshots
	p.videoMode = p.flags.video
	p.traceMode = p.flags.trace
	p.openLastTrace = p.flags.openLastTrace

	if p.flags.debug {
		p.rc.SetDebug(true)
		if err := os.Setenv(DebugEnv, "1"); err != nil {
			return fmt.Errorf("failed to enable playwright debug mode: %w", err)
		}
	}

	debugLog.Infof("configured browser=%s headed=%t slowmo=%d remote=%t screenshots=%s video=%s trace=%s",
		p.rc.Browser(), p.rc.Headed(), p.rc.Slowmo(), p.rc.Remote(), p.screenshotMode, p.videoMode, p.traceMode)
	return nil
}
