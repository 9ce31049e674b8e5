package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Version is the application version, set at build time with
// -ldflags "-X graphd/cmd.Version=1.2.3".
var Version = "dev"

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the graphd version",
		Args:  cobra.NoArgs,
		// Skip config and logging setup.
		PersistentPreRun: func(*cobra.Command, []string) {},
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), Version)
		},
	}
}
