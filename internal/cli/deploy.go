package cli

import (
	"github.com/spf13/cobra"

	"github.com/strata-io/strata/internal/ir"
)

var deployCmd = &cobra.Command{
	Use:   "deploy [config]",
	Short: "Deploy all stacks in dependency order",
	Long: `Builds the dependency graph from the configuration and deploys each
stack once all of its dependencies have completed. With --persist, stacks
present in the stored graph but absent from the configuration are destroyed
before their former dependencies are touched.`,
	Args:         cobra.MaximumNArgs(1),
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd.Context(), args, ir.ActionDeploy)
	},
}
