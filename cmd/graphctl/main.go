// Command graphctl loads a single graph definition file and runs it
// from the command line, printing each event as a JSON line to stdout.
// It exercises the same Engine the HTTP façade runs, with no server,
// no persistence, and no observability wiring beyond stdout.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "graphctl",
		Short:         "Run a graph definition and stream its events",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newRunCmd())
	return root
}
