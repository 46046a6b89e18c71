package cli

import (
	"github.com/spf13/cobra"

	"github.com/strata-io/strata/internal/ir"
)

var planCmd = &cobra.Command{
	Use:   "plan [config]",
	Short: "Show what a deploy would change",
	Long: `Walks the dependency graph without mutating any stack and reports,
per stack, whether a deploy would create it, update it, or leave it alone.
Plan never locks or reconciles the persistent graph.`,
	Args:         cobra.MaximumNArgs(1),
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd.Context(), args, ir.ActionPlan)
	},
}
