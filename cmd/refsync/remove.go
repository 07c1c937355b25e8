package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hamref/refsync/pkg/feeds"
	"github.com/hamref/refsync/pkg/humanfmt"
)

var removeCmd = &cobra.Command{
	Use:   "remove <feed>",
	Short: "Delete a feed's data from the lookup store",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		feed, err := feeds.ByName(args[0])
		if err != nil {
			return err
		}

		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		deleted, err := store.DeleteCategory(cmd.Context(), feed.Name)
		if err != nil {
			return err
		}
		if err := store.DeleteSyncMeta(cmd.Context(), feed.Name); err != nil {
			return err
		}
		fmt.Printf("Removed %s references from %s\n", humanfmt.Number(deleted), feed.Name)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(removeCmd)
}
