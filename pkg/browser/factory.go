package browser

import (
	"fmt"
	"io"
	"os"

	"github.com/playwright-community/playwright-go"

	"github.com/entrhq/pwplugin/pkg/logging"
	"github.com/entrhq/pwplugin/pkg/runner"
)

var debugLog *logging.Logger

func init() {
	var err error
	debugLog, err = logging.NewLogger("browser")
	if err != nil {
		// Logger fell back to stderr due to initialization failure
		debugLog.Warnf("Failed to initialize browser logger, using stderr fallback: %v", err)
	}
}

// Driver entry points, replaced in tests.
var (
	installDriver = func(opts *playwright.RunOptions) error { return playwright.Install(opts) }
	runDriver     = func(opts *playwright.RunOptions) (*playwright.Playwright, error) { return playwright.Run(opts) }
	stopDriver    = func(pw *playwright.Playwright) error { return pw.Stop() }
)

// startDriver starts the playwright driver and stops it when scope closes.
func startDriver(scope *runner.Scope, rc *RuntimeConfig) (*playwright.Playwright, error) {
	// Keep driver output out of the runner's summary
	opts := &playwright.RunOptions{
		Verbose: false,
		Stdout:  io.Discard,
		Stderr:  io.Discard,
	}
	if rc.Debug() {
		opts.Stdout = os.Stdout
		opts.Stderr = os.Stderr
	}

	if rc.InstallDriver() {
		if err := installDriver(opts); err != nil {
			return nil, fmt.Errorf("failed to install playwright: %w", err)
		}
	}

	pw, err := runDriver(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to start playwright: %w", err)
	}
	scope.Defer(func() error { return stopDriver(pw) })
	return pw, nil
}

func (s *launchSettings) driver(scope *runner.Scope, rc *RuntimeConfig) (*playwright.Playwright, error) {
	if s.pw != nil {
		return s.pw, nil
	}
	return startDriver(scope, rc)
}

// LaunchedBrowser returns a browser bound to scope: a remote browser when the
// runtime config is remote, a locally launched one otherwise. Unless
// WithoutAutoClose is given, the browser closes when scope closes.
func LaunchedBrowser(scope *runner.Scope, rc *RuntimeConfig, opts ...LaunchOption) (*ConfigurableBrowser, error) {
	if rc.Remote() {
		return LaunchedRemoteBrowser(scope, rc, opts...)
	}
	return LaunchedLocalBrowser(scope, rc, opts...)
}

// LaunchedLocalBrowser launches a browser with the runtime config's headed,
// slowmo and timeout settings.
func LaunchedLocalBrowser(scope *runner.Scope, rc *RuntimeConfig, opts ...LaunchOption) (*ConfigurableBrowser, error) {
	s := newLaunchSettings(rc, opts)

	pw, err := s.driver(scope, rc)
	if err != nil {
		return nil, err
	}
	bt, err := browserType(pw, s.browser)
	if err != nil {
		return nil, err
	}
	device, err := deviceDescriptor(pw, s.device)
	if err != nil {
		return nil, err
	}

	b, err := bt.Launch(localLaunchOptions(rc, s.launch))
	if err != nil {
		return nil, fmt.Errorf("failed to launch %s: %w", bt.Name(), err)
	}
	debugLog.Infof("launched %s (headed=%t slowmo=%d)", bt.Name(), rc.Headed(), rc.Slowmo())
	if s.autoClose {
		scope.Defer(func() error { return b.Close() })
	}
	return newConfigurableBrowser(b, scope, rc, device, false), nil
}

// LaunchedRemoteBrowser connects to a browser server over websocket.
func LaunchedRemoteBrowser(scope *runner.Scope, rc *RuntimeConfig, opts ...LaunchOption) (*ConfigurableBrowser, error) {
	s := newLaunchSettings(rc, opts)

	pw, err := s.driver(scope, rc)
	if err != nil {
		return nil, err
	}
	bt, err := browserType(pw, s.browser)
	if err != nil {
		return nil, err
	}
	device, err := deviceDescriptor(pw, s.device)
	if err != nil {
		return nil, err
	}

	b, err := bt.Connect(s.endpoint, remoteConnectOptions(rc, s.connect))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s at %s: %w", bt.Name(), s.endpoint, err)
	}
	debugLog.Infof("connected to %s at %s", bt.Name(), s.endpoint)
	if s.autoClose {
		scope.Defer(func() error { return b.Close() })
	}
	return newConfigurableBrowser(b, scope, rc, device, true), nil
}

// CreatedBrowserContext creates a context that closes with scope. When b is
// nil a browser is launched on scope first. Any browser may be passed; the
// returned context is instrumented according to the runtime config either way.
func CreatedBrowserContext(scope *runner.Scope, rc *RuntimeConfig, b playwright.Browser, opts ...playwright.BrowserNewContextOptions) (playwright.BrowserContext, error) {
	var cb *ConfigurableBrowser
	switch v := b.(type) {
	case nil:
		launched, err := LaunchedBrowser(scope, rc)
		if err != nil {
			return nil, err
		}
		cb = launched
	case *ConfigurableBrowser:
		// Contexts belong to the caller's scope even when the browser is shared
		cb = newConfigurableBrowser(v.Browser, scope, rc, v.device, v.remote)
	default:
		cb = newConfigurableBrowser(b, scope, rc, nil, rc.Remote())
	}
	return cb.NewContext(opts...)
}

// OpenedBrowserPage opens a page in ctx. When ctx is nil a context, and a
// browser for it, are created on scope first.
func OpenedBrowserPage(scope *runner.Scope, rc *RuntimeConfig, ctx playwright.BrowserContext) (playwright.Page, error) {
	if ctx == nil {
		created, err := CreatedBrowserContext(scope, rc, nil)
		if err != nil {
			return nil, err
		}
		ctx = created
	}
	page, err := ctx.NewPage()
	if err != nil {
		return nil, fmt.Errorf("failed to create page: %w", err)
	}
	return page, nil
}
