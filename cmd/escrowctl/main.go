// Command escrowctl previews release schedules and manages escrow store
// schemas.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/xraph/escrow"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "escrowctl",
		Short:         "Inspect release schedules and manage escrow stores",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		newPreviewCmd(),
		newMigrateCmd(),
		newVersionCmd(),
	)
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the escrow version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "escrowctl", escrow.Version)
		},
	}
}
