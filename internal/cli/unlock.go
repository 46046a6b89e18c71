package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var unlockCmd = &cobra.Command{
	Use:   "unlock [config]",
	Short: "Forcibly release the persistent graph lock",
	Long: `Removes the lock tag from the persistent graph object regardless of
which session holds it. Use this to recover from a run that crashed between
persisting the graph and releasing its lock. Make sure no other run is in
flight first.`,
	Args:         cobra.MaximumNArgs(1),
	SilenceUsage: true,
	RunE:         runUnlock,
}

func runUnlock(cmd *cobra.Command, args []string) error {
	flagPersist = true
	m, err := loadManifest(args)
	if err != nil {
		return err
	}
	mgr, err := buildPersist(cmd.Context(), m)
	if err != nil {
		return err
	}
	if err := mgr.ForceUnlock(cmd.Context()); err != nil {
		return err
	}
	fmt.Printf("Lock released on %s\n", mgr.ObjectKey())
	return nil
}
