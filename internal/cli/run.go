package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/roach88/bayesharness/internal/harness"
	"github.com/roach88/bayesharness/internal/metrics"
	"github.com/roach88/bayesharness/internal/trace"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Filter          string // scenario name glob
	Seed            uint64
	Backend         string
	TraceDir        string
	IncludeDisabled bool
	MetricsFile     string
}

// ScenarioResult is one line of the run report.
type ScenarioResult struct {
	Name       string   `json:"name"`
	Example    string   `json:"example"`
	Outcome    string   `json:"outcome"`
	Stage      string   `json:"stage"`
	SkipReason string   `json:"skip_reason,omitempty"`
	Draws      int      `json:"draws"`
	Digest     string   `json:"digest,omitempty"`
	Errors     []string `json:"errors,omitempty"`
}

// RunReport is the overall result of the run command.
type RunReport struct {
	Scenarios []ScenarioResult `json:"scenarios"`
	Passed    int              `json:"passed"`
	Failed    int              `json:"failed"`
	Skipped   int              `json:"skipped"`
	Total     int              `json:"total"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <scenarios-dir>",
		Short: "Run scenario files",
		Long: `Run every scenario in a directory: build the example model, run its
inference plan and check the assertions.

Exit codes:
  0 - All scenarios passed or were skipped
  1 - One or more scenarios failed
  2 - Command error (invalid paths, malformed scenarios, etc.)

Examples:
  bayesharness run ./scenarios
  bayesharness run ./scenarios --filter "disaster*"
  bayesharness run ./scenarios --backend sqlite --trace-dir ./traces
  bayesharness run ./scenarios --format json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenarios(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Filter, "filter", "", "only run scenarios whose name matches this glob")
	cmd.Flags().Uint64Var(&opts.Seed, "seed", 0, "seed for scenarios that set none (default from config)")
	cmd.Flags().StringVar(&opts.Backend, "backend", "", "trace store for scenarios that set none (default from config)")
	cmd.Flags().StringVar(&opts.TraceDir, "trace-dir", "", "keep file-backed traces in this directory")
	cmd.Flags().BoolVar(&opts.IncludeDisabled, "include-disabled", false, "run examples the catalog disables")
	cmd.Flags().StringVar(&opts.MetricsFile, "metrics-file", "", "write Prometheus metrics to this file")

	return cmd
}

func runScenarios(opts *RunOptions, dir string, cmd *cobra.Command) error {
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return NewExitError(ExitCommandError, fmt.Sprintf("scenarios directory not found: %s", dir))
	}
	scenarios, err := harness.LoadDir(dir)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load scenarios", err)
	}
	if opts.Filter != "" {
		if _, err := filepath.Match(opts.Filter, ""); err != nil {
			return WrapExitError(ExitCommandError, "invalid filter pattern", err)
		}
		kept := scenarios[:0]
		for _, s := range scenarios {
			if ok, _ := filepath.Match(opts.Filter, s.Name); ok {
				kept = append(kept, s)
			}
		}
		scenarios = kept
	}

	hopts, reg, err := opts.harnessOptions(cmd)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	h := harness.New(hopts)
	report := RunReport{Scenarios: make([]ScenarioResult, 0, len(scenarios)), Total: len(scenarios)}
	for _, s := range scenarios {
		result, err := h.Run(ctx, s)
		if err != nil {
			return WrapExitError(ExitCommandError, fmt.Sprintf("scenario %s", s.Name), err)
		}
		line := ScenarioResult{
			Name:       result.Scenario,
			Example:    result.Example,
			Outcome:    result.Outcome(),
			Stage:      result.Stage.String(),
			SkipReason: result.SkipReason,
			Draws:      result.Draws,
			Digest:     result.Digest,
			Errors:     result.Errors,
		}
		switch line.Outcome {
		case "pass":
			report.Passed++
		case "skip":
			report.Skipped++
		default:
			report.Failed++
		}
		report.Scenarios = append(report.Scenarios, line)
		if opts.Format != "json" {
			printScenario(cmd, line)
		}
	}

	if opts.MetricsFile != "" {
		if err := metrics.WriteFile(opts.MetricsFile, reg); err != nil {
			return WrapExitError(ExitCommandError, "failed to write metrics", err)
		}
	}
	return outputReport(cmd, opts.Format, report)
}

// harnessOptions resolves flags over configuration.
func (o *RunOptions) harnessOptions(cmd *cobra.Command) (harness.Options, *prometheus.Registry, error) {
	cfg := o.Config
	hopts := harness.Options{
		Seed:            cfg.Seed,
		Backend:         cfg.Backend,
		TraceDir:        o.TraceDir,
		IncludeDisabled: o.IncludeDisabled,
		Logger:          o.Logger,
	}
	if cmd.Flags().Changed("seed") {
		hopts.Seed = o.Seed
	}
	if o.Backend != "" {
		k, err := trace.ParseKind(o.Backend)
		if err != nil {
			return harness.Options{}, nil, WrapExitError(ExitCommandError, "invalid backend", err)
		}
		hopts.Backend = k
	}
	reg := prometheus.NewRegistry()
	hopts.Metrics = metrics.NewHarness(reg)
	hopts.Sampler = metrics.NewSampler(reg)
	return hopts, reg, nil
}

func printScenario(cmd *cobra.Command, r ScenarioResult) {
	w := cmd.OutOrStdout()
	switch r.Outcome {
	case "pass":
		fmt.Fprintf(w, "✓ %s (%d draws)\n", r.Name, r.Draws)
	case "skip":
		fmt.Fprintf(w, "- %s skipped: %s\n", r.Name, r.SkipReason)
	default:
		fmt.Fprintf(w, "✗ %s (stage %s)\n", r.Name, r.Stage)
		for _, e := range r.Errors {
			fmt.Fprintf(w, "  %s\n", e)
		}
	}
}

func outputReport(cmd *cobra.Command, format string, report RunReport) error {
	var failed *ExitError
	if report.Failed > 0 {
		failed = NewExitError(ExitFailure, fmt.Sprintf("%d scenario(s) failed", report.Failed))
	}

	if format == "json" {
		var fail *ResponseError
		if failed != nil {
			fail = &ResponseError{Code: CodeScenariosFailed, Message: failed.Message}
		}
		if err := writeJSON(cmd.OutOrStdout(), report, fail); err != nil {
			return err
		}
	} else {
		w := cmd.OutOrStdout()
		if report.Total == 0 {
			fmt.Fprintln(w, "No scenarios found.")
			return nil
		}
		fmt.Fprintln(w)
		fmt.Fprintf(w, "Summary: %d passed, %d failed, %d skipped, %d total\n",
			report.Passed, report.Failed, report.Skipped, report.Total)
	}

	if failed != nil {
		return failed
	}
	return nil
}

// commandContext returns the command's context, which is nil unless the
// caller used ExecuteContext.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
