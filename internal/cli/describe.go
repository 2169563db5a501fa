package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/exp/rand"

	"github.com/roach88/bayesharness/internal/examples"
)

// NewDescribeCommand creates the describe command.
func NewDescribeCommand(rootOpts *RootOptions) *cobra.Command {
	var seed uint64
	cmd := &cobra.Command{
		Use:   "describe <example>",
		Short: "Print the variables and dependencies of an example model",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ex, err := examples.Lookup(args[0])
			if err != nil {
				return WrapExitError(ExitCommandError, "invalid example", err)
			}
			if !cmd.Flags().Changed("seed") {
				seed = rootOpts.Config.Seed
			}
			m, _, err := ex.Build(rand.NewSource(seed))
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to build model", err)
			}
			c, err := m.Compile()
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to compile model", err)
			}
			if rootOpts.Format == "json" {
				return writeJSON(cmd.OutOrStdout(), map[string]string{
					"example": ex.Name,
					"graph":   c.Describe(),
				}, nil)
			}
			fmt.Fprint(cmd.OutOrStdout(), c.Describe())
			return nil
		},
	}
	cmd.Flags().Uint64Var(&seed, "seed", 0, "seed for simulated data (default from config)")
	return cmd
}
