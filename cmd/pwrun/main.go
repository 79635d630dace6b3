// Package main provides pwrun, a smoke test runner that opens each given URL
// in a playwright browser with screenshot, video and trace capture available
// through the pw-* flags.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/entrhq/pwplugin/pkg/config"
	"github.com/entrhq/pwplugin/pkg/plugin"
	"github.com/entrhq/pwplugin/pkg/runner"
)

const version = "0.1.0"

func main() {
	// Create context with signal handling
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cmd, err := newRootCommand(ctx, os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "pwrun: %v\n", err)
		os.Exit(2)
	}
	if err := cmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// configPathFromArgs finds --config before the full command line is parsed,
// since the config file supplies the defaults of the plugin flags.
func configPathFromArgs(args []string) string {
	fs := pflag.NewFlagSet("pre", pflag.ContinueOnError)
	fs.ParseErrorsWhitelist.UnknownFlags = true
	fs.SetOutput(io.Discard)
	path := fs.String("config", os.Getenv("PWRUN_CONFIG"), "")
	_ = fs.Parse(args)
	return *path
}

func newRootCommand(ctx context.Context, args []string) (*cobra.Command, error) {
	configPath := configPathFromArgs(args)
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	p := plugin.New(*cfg)
	var (
		reruns    int
		reportDir string
	)

	cmd := &cobra.Command{
		Use:     "pwrun [flags] URL...",
		Short:   "Open each URL in a playwright browser and report the outcome",
		Version: version,
		Args:    cobra.MinimumNArgs(1),
		Example: `  # Smoke test two pages, keeping traces of failures
  pwrun --pw-trace on-failure https://example.com https://example.org

  # Headed firefox with screenshots after every step
  pwrun --pw-browser firefox --pw-headed --pw-screenshots always https://example.com`,
		SilenceUsage: true,
	}
	cmd.Flags().String("config", configPath, "path to a YAML or JSON configuration file")
	cmd.Flags().IntVar(&reruns, "reruns", 0, "reschedule a failed scenario up to this many times")
	cmd.Flags().StringVar(&reportDir, "report-dir", "", "write report.json and summary.md to this directory")

	r := runner.New(runner.WithFlagSet(cmd.Flags()), runner.WithOutput(cmd.OutOrStdout()))
	r.Register(p)
	// Plugin flags must exist before cobra parses the command line
	if err := r.Setup(ctx); err != nil {
		return nil, err
	}

	cmd.RunE = func(cmd *cobra.Command, urls []string) error {
		if err := r.Configure(cmd.Context()); err != nil {
			return err
		}
		r.SetReruns(reruns)

		scenarios := make([]*runner.Scenario, 0, len(urls))
		for _, url := range urls {
			scenarios = append(scenarios, smokeScenario(p, url, cmd.OutOrStdout()))
		}

		report, err := r.Run(cmd.Context(), scenarios)
		if err != nil {
			return err
		}
		if reportDir != "" {
			if err := runner.NewReportWriter(nil, reportDir).WriteAll(report); err != nil {
				return err
			}
		}
		if report.Failed > 0 {
			return fmt.Errorf("%d of %d scenarios failed", report.Failed, len(report.Scenarios))
		}
		return nil
	}
	return cmd, nil
}
