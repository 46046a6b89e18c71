package cli

import (
	"github.com/spf13/cobra"

	"github.com/strata-io/strata/internal/logging"
)

var (
	flagLogLevel    string
	flagNamespace   string
	flagRegion      string
	flagProfile     string
	flagProvider    string
	flagBucket      string
	flagPrefix      string
	flagGraphKey    string
	flagPersist     bool
	flagConcurrency int
	flagVars        map[string]string
)

var rootCmd = &cobra.Command{
	Use:   "strata",
	Short: "Dependency-ordered stack deployment",
	Long: `Strata deploys sets of infrastructure stacks in dependency order.

It builds a dependency graph from declared and inferred relationships,
walks the graph concurrently, resolves cross-stack lookups at execution
time, and can reconcile each run against a persisted graph in an object
store so stacks removed from the configuration are destroyed.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logging.Init(flagLogLevel)
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flagLogLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	pf.StringVar(&flagNamespace, "namespace", "", "Namespace prefixed to stack names (overrides the config file)")
	pf.StringVar(&flagRegion, "region", "", "Default region for provider calls")
	pf.StringVar(&flagProfile, "profile", "", "AWS shared config profile")
	pf.StringVar(&flagProvider, "provider", "cloudformation", "Stack provider to use")
	pf.StringVar(&flagBucket, "bucket", "", "Object store bucket for the persistent graph")
	pf.StringVar(&flagPrefix, "prefix", "", "Key prefix inside the bucket")
	pf.StringVar(&flagGraphKey, "graph-key", "", "Persistent graph key (defaults to the namespace)")
	pf.BoolVar(&flagPersist, "persist", false, "Reconcile against the persisted graph")
	pf.IntVar(&flagConcurrency, "concurrency", 0, "Maximum stacks executed in parallel (0 = default)")
	pf.StringToStringVarP(&flagVars, "var", "D", nil, "Set run variables (format: key=value)")

	rootCmd.AddCommand(planCmd)
	rootCmd.AddCommand(deployCmd)
	rootCmd.AddCommand(destroyCmd)
	rootCmd.AddCommand(graphCmd)
	rootCmd.AddCommand(unlockCmd)
	rootCmd.AddCommand(versionCmd)
}
