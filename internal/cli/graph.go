package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/strata-io/strata/internal/engine"
)

var graphFormat string

var graphCmd = &cobra.Command{
	Use:   "graph [config]",
	Short: "Output the stack dependency graph",
	Long: `Builds the dependency graph, including edges inferred from output
lookups, and prints it without executing anything. Pipe the DOT output to
'dot' to generate an image:

  strata graph | dot -Tpng > graph.png`,
	Args:         cobra.MaximumNArgs(1),
	SilenceUsage: true,
	RunE:         runGraph,
}

func init() {
	graphCmd.Flags().StringVar(&graphFormat, "format", "dot", "Output format (dot or json)")
}

func runGraph(cmd *cobra.Command, args []string) error {
	m, err := loadManifest(args)
	if err != nil {
		return err
	}
	for _, s := range m.Stacks {
		if s.Namespace == "" {
			s.Namespace = m.Namespace
		}
	}
	g, err := engine.Build(m.Stacks)
	if err != nil {
		return err
	}

	switch graphFormat {
	case "dot":
		fmt.Print(g.Dot(m.Namespace))
	case "json":
		data, err := json.MarshalIndent(g, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))
	default:
		return &engine.ConfigError{Msg: fmt.Sprintf("unknown graph format %q", graphFormat)}
	}
	return nil
}
