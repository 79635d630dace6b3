package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/playwright-community/playwright-go"

	"github.com/entrhq/pwplugin/pkg/plugin"
	"github.com/entrhq/pwplugin/pkg/runner"
)

// smokeScenario opens url in a fresh page of the run's shared browser and
// checks that it has a title.
func smokeScenario(p *plugin.Plugin, url string, out io.Writer) *runner.Scenario {
	var page playwright.Page

	return &runner.Scenario{
		ID:      url,
		Subject: "open " + url,
		Steps: []runner.Step{
			{Name: "open page", Fn: func(_ context.Context, scope *runner.Scope) error {
				var err error
				page, err = p.SharedPage(scope)
				return err
			}},
			{Name: "navigate", Fn: func(context.Context, *runner.Scope) error {
				resp, err := page.Goto(url, playwright.PageGotoOptions{
					WaitUntil: playwright.WaitUntilStateLoad,
				})
				if err != nil {
					return fmt.Errorf("navigation failed: %w", err)
				}
				if resp != nil && !resp.Ok() {
					return fmt.Errorf("navigation returned status %d", resp.Status())
				}
				return nil
			}},
			{Name: "read title", Fn: func(context.Context, *runner.Scope) error {
				title, err := page.Title()
				if err != nil {
					return fmt.Errorf("failed to read title: %w", err)
				}
				if title == "" {
					return errors.New("page has no title")
				}
				fmt.Fprintf(out, "%s: %q\n", url, title)
				return nil
			}},
		},
	}
}
