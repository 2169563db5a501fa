package cli

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/bayesharness/internal/trace"
)

// SummaryOptions holds flags for the summary command.
type SummaryOptions struct {
	*RootOptions
	Backend string
	Burn    int
}

// SummaryReport is the posterior summary of a stored trace.
type SummaryReport struct {
	RunID   string       `json:"run_id"`
	Draws   int          `json:"draws"`
	Digest  string       `json:"digest"`
	Burn    int          `json:"burn"`
	Summary []trace.Stat `json:"summary"`
}

// NewSummaryCommand creates the summary command.
func NewSummaryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SummaryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "summary <trace-path>",
		Short: "Summarize a stored trace",
		Long: `Reopen a file-backed trace and print mean, standard deviation, Monte
Carlo error and quantiles of every recorded element.

A directory is read as a badger store and a file as sqlite unless
--backend says otherwise.

Examples:
  bayesharness summary ./traces/disaster.db
  bayesharness summary ./traces/arm5_4.badger --burn 10 --format json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSummary(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Backend, "backend", "", "store kind: sqlite, file or badger")
	cmd.Flags().IntVar(&opts.Burn, "burn", 0, "draws to discard before summarizing")

	return cmd
}

func runSummary(opts *SummaryOptions, path string, cmd *cobra.Command) error {
	info, err := os.Stat(path)
	if err != nil {
		return NewExitError(ExitCommandError, fmt.Sprintf("trace not found: %s", path))
	}
	kind := trace.KindSQLite
	if info.IsDir() {
		kind = trace.KindBadger
	}
	if opts.Backend != "" {
		if kind, err = trace.ParseKind(opts.Backend); err != nil {
			return WrapExitError(ExitCommandError, "invalid backend", err)
		}
		if kind == trace.KindMemory {
			return NewExitError(ExitCommandError, "memory traces cannot be reopened")
		}
	}

	store, err := trace.Open(kind, path, trace.WithLogger(opts.Logger))
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open trace", err)
	}
	defer store.Close()

	t, err := trace.Load(commandContext(cmd), store)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read trace", err)
	}
	stats, err := trace.Summary(t, opts.Burn)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to summarize trace", err)
	}

	if opts.Format == "json" {
		return writeJSON(cmd.OutOrStdout(), SummaryReport{
			RunID:   t.RunID,
			Draws:   t.Len(),
			Digest:  t.Digest(),
			Burn:    opts.Burn,
			Summary: stats,
		}, nil)
	}
	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "run %s: %d draws, burn %d\n\n", t.RunID, t.Len(), opts.Burn)
	printStats(w, t, stats)
	return nil
}

// printStats writes one aligned row per element.
func printStats(w io.Writer, t *trace.Trace, stats []trace.Stat) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "var\tmean\tsd\tmc_error\t2.5%\t50%\t97.5%\t")
	for _, s := range stats {
		v, _ := t.Var(s.Var)
		fmt.Fprintf(tw, "%s\t%.4g\t%.4g\t%.2g\t%.4g\t%.4g\t%.4g\t\n",
			s.Label(v.Size()), s.Mean, s.SD, s.MCError, s.Q025, s.Median, s.Q975)
	}
	tw.Flush()
}
