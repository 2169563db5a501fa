package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/bayesharness/internal/examples"
)

// ExampleInfo is one row of the list command.
type ExampleInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Disabled    string `json:"disabled,omitempty"`
}

// NewListCommand creates the list command.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the example models",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var rows []ExampleInfo
			for _, ex := range examples.All() {
				rows = append(rows, ExampleInfo{Name: ex.Name, Description: ex.Description, Disabled: ex.Disabled})
			}
			if rootOpts.Format == "json" {
				return writeJSON(cmd.OutOrStdout(), rows, nil)
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			for _, r := range rows {
				desc := r.Description
				if r.Disabled != "" {
					desc += " (disabled: " + r.Disabled + ")"
				}
				fmt.Fprintf(tw, "%s\t%s\n", r.Name, desc)
			}
			return tw.Flush()
		},
	}
}
