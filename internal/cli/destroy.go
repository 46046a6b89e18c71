package cli

import (
	"github.com/spf13/cobra"

	"github.com/strata-io/strata/internal/ir"
)

var destroyCmd = &cobra.Command{
	Use:   "destroy [config]",
	Short: "Destroy all stacks in reverse dependency order",
	Long: `Walks the dependency graph in reverse so every stack is destroyed
before the stacks it depends on. With --persist, stacks recorded in the
stored graph are destroyed even if already removed from the configuration.`,
	Args:         cobra.MaximumNArgs(1),
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd.Context(), args, ir.ActionDestroy)
	},
}
