// Package browser provides the browser factories scenarios use to obtain
// playwright browsers, contexts and pages.
//
// # Runtime configuration
//
// A RuntimeConfig carries the settings shared by the factories and the capture
// plugin for one run: browser name, device, headed mode, slow motion,
// timeouts, remote endpoint and the capture switches. The plugin fills it from
// flags and flips the capture switches at the start of every scenario.
//
// # Factories
//
// Every factory takes the runner.Scope the resource belongs to and registers
// its cleanup there:
//
//   - LaunchedBrowser launches or connects to a browser, depending on Remote
//   - CreatedBrowserContext creates a context on a new or existing browser
//   - OpenedBrowserPage opens a page on a new or existing context
//
// Per-call LaunchOptions override the runtime config, and explicit playwright
// options win over both.
//
// # Instrumentation
//
// Contexts are created through ConfigurableBrowser. While trace capture is on,
// tracing starts with the context and the trace is written to the configured
// path when the scope closes. While video capture is on, the context records
// into the configured directory. Every open context is registered on the
// runtime config so the plugin can screenshot its pages after each step.
//
// # Usage
//
//	rc := browser.NewRuntimeConfig()
//	page, err := browser.OpenedBrowserPage(scope, rc, nil)
//	if err != nil {
//		return err
//	}
//	_, err = page.Goto("https://example.com")
package browser
