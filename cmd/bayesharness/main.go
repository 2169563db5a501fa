// Command bayesharness builds the example Bayesian models, runs their
// inference plans and checks scenario assertions against the traces.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/roach88/bayesharness/internal/cli"
)

func main() {
	err := cli.NewRootCommand().ExecuteContext(context.Background())
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	os.Exit(cli.ExitCode(err))
}
