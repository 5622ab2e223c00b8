package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/DanHalford/HIBP-Breach-Notifier/internal/storage/sqlite"
)

var resetYes bool

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Delete all stored breach records",
	Long: `Empties the local breach store. The next run will treat every breach as
new and notify users again, so this is an operational action for rebuilding
the store, not part of the normal workflow.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !resetYes {
			return fmt.Errorf("refusing to reset the store without --yes")
		}

		store, err := sqlite.New(cfg.DBPath)
		if err != nil {
			return err
		}
		defer store.Close()

		ctx := cmd.Context()
		if err := store.EnsureSchema(ctx); err != nil {
			return err
		}

		count, err := store.Count(ctx)
		if err != nil {
			return err
		}
		if err := store.Reset(ctx); err != nil {
			return err
		}

		fmt.Printf("Removed %d stored breach record(s) from %s\n", count, cfg.DBPath)
		return nil
	},
}

func init() {
	resetCmd.Flags().BoolVar(&resetYes, "yes", false, "confirm deletion of all stored records")
	rootCmd.AddCommand(resetCmd)
}
