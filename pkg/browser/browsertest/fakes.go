// Package browsertest provides in-memory playwright fakes for tests that
// exercise browser factories and capture without a real driver.
//
// Each fake embeds the playwright interface it stands in for, so calling a
// method the fake does not implement panics on the nil embedded value.
package browsertest

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/playwright-community/playwright-go"
)

var (
	_ playwright.BrowserType    = (*BrowserType)(nil)
	_ playwright.Browser        = (*Browser)(nil)
	_ playwright.BrowserContext = (*Context)(nil)
	_ playwright.Tracing        = (*Tracing)(nil)
	_ playwright.Page           = (*Page)(nil)
)

// Log records the calls made on a family of fakes, in order.
type Log struct {
	mu    sync.Mutex
	calls []string
}

// Add appends a call.
func (l *Log) Add(format string, args ...interface{}) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, fmt.Sprintf(format, args...))
}

// Calls returns a copy of the recorded calls.
func (l *Log) Calls() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.calls...)
}

// NewPlaywright returns a driver whose three browser types are fakes sharing log.
func NewPlaywright(log *Log, devices map[string]*playwright.DeviceDescriptor) *playwright.Playwright {
	return &playwright.Playwright{
		Chromium: &BrowserType{TypeName: "chromium", Log: log},
		Firefox:  &BrowserType{TypeName: "firefox", Log: log},
		WebKit:   &BrowserType{TypeName: "webkit", Log: log},
		Devices:  devices,
	}
}

// BrowserType is a fake playwright.BrowserType.
type BrowserType struct {
	playwright.BrowserType

	TypeName string
	Log      *Log

	LaunchErr  error
	ConnectErr error
	// BrowserSetup, if set, customizes every browser before it is returned
	BrowserSetup func(*Browser)

	Launches  []playwright.BrowserTypeLaunchOptions
	Connects  []playwright.BrowserTypeConnectOptions
	Endpoints []string
	Browsers  []*Browser
}

func (t *BrowserType) Name() string {
	return t.TypeName
}

func (t *BrowserType) Launch(options ...playwright.BrowserTypeLaunchOptions) (playwright.Browser, error) {
	t.Log.Add("%s.launch", t.TypeName)
	if t.LaunchErr != nil {
		return nil, t.LaunchErr
	}
	var opts playwright.BrowserTypeLaunchOptions
	if len(options) > 0 {
		opts = options[0]
	}
	t.Launches = append(t.Launches, opts)
	return t.newBrowser(), nil
}

func (t *BrowserType) newBrowser() *Browser {
	b := &Browser{Log: t.Log}
	if t.BrowserSetup != nil {
		t.BrowserSetup(b)
	}
	t.Browsers = append(t.Browsers, b)
	return b
}

func (t *BrowserType) Connect(wsEndpoint string, options ...playwright.BrowserTypeConnectOptions) (playwright.Browser, error) {
	t.Log.Add("%s.connect %s", t.TypeName, wsEndpoint)
	if t.ConnectErr != nil {
		return nil, t.ConnectErr
	}
	var opts playwright.BrowserTypeConnectOptions
	if len(options) > 0 {
		opts = options[0]
	}
	t.Connects = append(t.Connects, opts)
	t.Endpoints = append(t.Endpoints, wsEndpoint)
	return t.newBrowser(), nil
}

// Browser is a fake playwright.Browser.
type Browser struct {
	playwright.Browser

	Log *Log

	NewContextErr error
	// ContextSetup, if set, customizes every context before it is returned
	ContextSetup func(*Context)

	ContextOptions []playwright.BrowserNewContextOptions
	Created        []*Context
	Closed         bool
}

func (b *Browser) NewContext(options ...playwright.BrowserNewContextOptions) (playwright.BrowserContext, error) {
	b.Log.Add("browser.new_context")
	if b.NewContextErr != nil {
		return nil, b.NewContextErr
	}
	var opts playwright.BrowserNewContextOptions
	if len(options) > 0 {
		opts = options[0]
	}
	b.ContextOptions = append(b.ContextOptions, opts)

	c := &Context{Log: b.Log, Trace: &Tracing{Log: b.Log, Data: []byte("PK")}}
	if opts.RecordVideo != nil {
		c.VideoDir = opts.RecordVideo.Dir
	}
	if b.ContextSetup != nil {
		b.ContextSetup(c)
	}
	b.Created = append(b.Created, c)
	return c, nil
}

func (b *Browser) Close(options ...playwright.BrowserCloseOptions) error {
	b.Log.Add("browser.close")
	b.Closed = true
	return nil
}

// Context is a fake playwright.BrowserContext. When VideoDir is set, closing
// the context writes a video file there the way playwright does.
type Context struct {
	playwright.BrowserContext

	Log   *Log
	Trace *Tracing

	VideoDir string
	// PageSetup, if set, customizes every page before it is returned
	PageSetup func(*Page)

	Timeout           *float64
	NavigationTimeout *float64
	OpenPages         []*Page
	Closed            bool
}

func (c *Context) Tracing() playwright.Tracing {
	return c.Trace
}

func (c *Context) SetDefaultTimeout(timeout float64) {
	c.Timeout = &timeout
}

func (c *Context) SetDefaultNavigationTimeout(timeout float64) {
	c.NavigationTimeout = &timeout
}

func (c *Context) NewPage() (playwright.Page, error) {
	c.Log.Add("context.new_page")
	p := &Page{Log: c.Log, Data: []byte("png")}
	if c.PageSetup != nil {
		c.PageSetup(p)
	}
	c.OpenPages = append(c.OpenPages, p)
	return p, nil
}

func (c *Context) Pages() []playwright.Page {
	pages := make([]playwright.Page, len(c.OpenPages))
	for i, p := range c.OpenPages {
		pages[i] = p
	}
	return pages
}

func (c *Context) Close(options ...playwright.BrowserContextCloseOptions) error {
	c.Log.Add("context.close")
	if c.Closed {
		return nil
	}
	c.Closed = true
	if c.VideoDir != "" && len(c.OpenPages) > 0 {
		if err := os.WriteFile(filepath.Join(c.VideoDir, "page.webm"), []byte("webm"), 0o644); err != nil {
			return err
		}
	}
	return nil
}

// Tracing is a fake playwright.Tracing. Stop writes Data to the given path.
type Tracing struct {
	playwright.Tracing

	Log *Log

	StartErr error
	StopErr  error
	// Data is written to the stop path; empty data leaves an empty file as
	// playwright does when nothing was recorded
	Data []byte

	Started  *playwright.TracingStartOptions
	StopPath string
}

func (t *Tracing) Start(options ...playwright.TracingStartOptions) error {
	t.Log.Add("tracing.start")
	if t.StartErr != nil {
		return t.StartErr
	}
	var opts playwright.TracingStartOptions
	if len(options) > 0 {
		opts = options[0]
	}
	t.Started = &opts
	return nil
}

func (t *Tracing) Stop(path ...string) error {
	t.Log.Add("tracing.stop")
	if t.Started == nil {
		return errors.New("tracing was not started")
	}
	if t.StopErr != nil {
		return t.StopErr
	}
	if len(path) > 0 && path[0] != "" {
		t.StopPath = path[0]
		return os.WriteFile(path[0], t.Data, 0o644)
	}
	return nil
}

// Page is a fake playwright.Page.
type Page struct {
	playwright.Page

	Log *Log

	// Data is returned by Screenshot unless Err is set
	Data []byte
	Err  error

	Screenshots int
}

func (p *Page) Screenshot(options ...playwright.PageScreenshotOptions) ([]byte, error) {
	p.Log.Add("page.screenshot")
	if p.Err != nil {
		return nil, p.Err
	}
	p.Screenshots++
	return p.Data, nil
}
