package plugin

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/playwright-community/playwright-go"

	"github.com/entrhq/pwplugin/pkg/browser"
	"github.com/entrhq/pwplugin/pkg/capture"
	"github.com/entrhq/pwplugin/pkg/types"
)

// Mime types of attached artifacts.
const (
	MimeTypeTrace      = "application/zip"
	MimeTypeVideo      = "video/webm"
	MimeTypeScreenshot = "image/png"
)

// videoArtifactPrefix distinguishes videos of different scenarios that
// playwright gave the same generated name.
const videoArtifactPrefix = "pw_video_"

// screenshotRecord is the staged screenshot of one step.
type screenshotRecord struct {
	step *types.StepResult
	path string
}

func (p *Plugin) onScenarioRun(_ context.Context, e *types.Event) error {
	sc := e.Scenario
	rescheduled := p.hasPrev && p.prevScenarioID == sc.ScenarioID
	p.prevScenarioID = sc.ScenarioID
	p.hasPrev = true
	p.lastTrace = ""
	p.log = debugLog.WithField("scenario", sc.ScenarioID)

	if rescheduled {
		p.log.Debugf("rescheduled (attempt %d)", sc.Attempt)
	}

	p.startTrace(rescheduled)
	p.startVideo(rescheduled)
	p.startScreenshots(rescheduled)
	return nil
}

func (p *Plugin) startTrace(rescheduled bool) {
	p.tracePath = ""
	if !capture.ShouldStart(p.traceMode, rescheduled) {
		p.rc.SetCaptureTrace(false)
		return
	}

	path, err := p.stager.NewTraceFile()
	if err != nil {
		p.log.Warnf("trace capture disabled for this scenario: %v", err)
		p.rc.SetCaptureTrace(false)
		return
	}
	p.tracePath = path
	p.rc.SetCaptureTrace(true)
	p.rc.SetTraceOptions(browser.TraceOptions{
		Path:        path,
		Screenshots: true,
		Snapshots:   true,
	})
}

func (p *Plugin) startVideo(rescheduled bool) {
	p.videoDir = ""
	if !capture.ShouldStart(p.videoMode, rescheduled) {
		p.rc.SetCaptureVideo(false)
		return
	}

	dir, err := p.stager.NewVideoDir()
	if err != nil {
		p.log.Warnf("video capture disabled for this scenario: %v", err)
		p.rc.SetCaptureVideo(false)
		return
	}
	p.videoDir = dir
	p.rc.SetCaptureVideo(true)
	p.rc.SetVideoOptions(browser.VideoOptions{Dir: dir})
}

func (p *Plugin) startScreenshots(rescheduled bool) {
	p.screenshots = nil
	p.screenshotSeq = 0
	p.rc.SetCaptureScreenshots(capture.ShouldStart(p.screenshotMode, rescheduled))
}

// onStepEnd screenshots every open page. Only the last image of the step is
// kept. Failures are recorded on the step and never fail it.
func (p *Plugin) onStepEnd(_ context.Context, e *types.Event) error {
	if !p.rc.ShouldCaptureScreenshots() || e.Step == nil {
		return nil
	}
	step := e.Step

	var latest string
	for _, ctx := range p.rc.Contexts() {
		for _, page := range ctx.Pages() {
			data, err := screenshot(page)
			if err != nil {
				p.log.Warnf("step %q: %v", step.Name, err)
				step.AddDiagnostic("screenshot failed: %v", err)
				continue
			}
			path, err := p.stager.WriteScreenshot(p.screenshotSeq+1, step.Name, data)
			if err != nil {
				p.log.Warnf("step %q: %v", step.Name, err)
				step.AddDiagnostic("screenshot not saved: %v", err)
				continue
			}
			if latest != "" {
				p.removeStaged(latest)
			}
			latest = path
		}
	}
	if latest == "" {
		return nil
	}

	p.screenshotSeq++
	p.screenshots = append(p.screenshots, &screenshotRecord{step: step, path: latest})
	return nil
}

func screenshot(page playwright.Page) (data []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("screenshot panicked: %v", r)
		}
	}()
	data, err = page.Screenshot(playwright.PageScreenshotOptions{Type: playwright.ScreenshotTypePng})
	if err != nil {
		return nil, fmt.Errorf("failed to take screenshot: %w", err)
	}
	return data, nil
}

// onScenarioEnd retains or discards what was captured for the scenario. It
// runs after the scenario's contexts closed, so traces and videos are written.
func (p *Plugin) onScenarioEnd(_ context.Context, e *types.Event) error {
	sc := e.Scenario
	failed := sc.Status == types.StatusFailed

	p.finishTrace(sc, failed)
	p.finishVideo(sc, failed)
	p.finishScreenshots(sc, failed)

	p.rc.SetCaptureTrace(false)
	p.rc.SetCaptureVideo(false)
	p.rc.SetCaptureScreenshots(false)
	return nil
}

func (p *Plugin) finishTrace(sc *types.ScenarioResult, failed bool) {
	path := p.tracePath
	p.tracePath = ""
	if path == "" {
		return
	}

	if !p.stager.Captured(path) {
		p.log.Debugf("no trace was recorded")
		p.removeStaged(path)
		return
	}
	if !capture.ShouldRetain(p.traceMode, failed) {
		p.removeStaged(path)
		return
	}

	sc.Attach(&types.FileArtifact{
		Name:     filepath.Base(path),
		MimeType: MimeTypeTrace,
		Path:     path,
	})
	p.lastTrace = path
}

func (p *Plugin) finishVideo(sc *types.ScenarioResult, failed bool) {
	dir := p.videoDir
	p.videoDir = ""
	if dir == "" {
		return
	}

	file, ok := p.stager.FindFirstFile(dir)
	if !ok {
		p.log.Debugf("no video was recorded")
		p.removeStagedDir(dir)
		return
	}
	if !capture.ShouldRetain(p.videoMode, failed) {
		p.removeStagedDir(dir)
		return
	}

	sc.Attach(&types.FileArtifact{
		Name:     videoArtifactPrefix + filepath.Base(file),
		MimeType: MimeTypeVideo,
		Path:     file,
	})
}

func (p *Plugin) finishScreenshots(sc *types.ScenarioResult, failed bool) {
	records := p.screenshots
	p.screenshots = nil
	if len(records) == 0 {
		return
	}

	retain := capture.ShouldRetain(p.screenshotMode, failed)
	for _, r := range records {
		if !retain {
			p.removeStaged(r.path)
			continue
		}
		artifact := &types.FileArtifact{
			Name:     filepath.Base(r.path),
			MimeType: MimeTypeScreenshot,
			Path:     r.path,
		}
		if sc.HasStepResult(r.step) {
			r.step.Attach(artifact)
		} else {
			sc.Attach(artifact)
		}
	}
}

func (p *Plugin) onCleanup(_ context.Context, e *types.Event) error {
	if !p.openLastTrace || p.lastTrace == "" {
		return nil
	}
	if err := p.viewer.Show(p.lastTrace); err != nil {
		debugLog.Warnf("could not open trace viewer: %v", err)
		if e.Report != nil {
			e.Report.AddSummary(fmt.Sprintf("warning: could not open trace %s: %v", p.lastTrace, err))
		}
	}
	return nil
}

func (p *Plugin) removeStaged(path string) {
	if err := p.stager.Remove(path); err != nil {
		p.log.Warnf("failed to remove staged file: %v", err)
	}
}

func (p *Plugin) removeStagedDir(dir string) {
	if err := p.stager.RemoveAll(dir); err != nil {
		p.log.Warnf("failed to remove staged directory: %v", err)
	}
}
