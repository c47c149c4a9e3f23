package cli

import (
	"github.com/spf13/cobra"
)

// NewRootCmd assembles the dueler command tree.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "dueler",
		Short:         "Debate Dueler game service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newServeCmd())
	root.AddCommand(newMigrateCmd())
	return root
}
