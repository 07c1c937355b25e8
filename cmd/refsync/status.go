package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/hamref/refsync/pkg/feeds"
	"github.com/hamref/refsync/pkg/humanfmt"
	"github.com/hamref/refsync/pkg/lookupdb"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show stored record counts and freshness per feed",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		ctx := cmd.Context()
		for _, feed := range feeds.All() {
			total, active, err := store.CountCategory(ctx, feed.Name)
			if err != nil {
				return err
			}

			line := fmt.Sprintf("%-6s %10s records (%s active)",
				feed.Name, humanfmt.Number(total), humanfmt.Number(active))

			meta, err := store.GetSyncMeta(ctx, feed.Name)
			switch {
			case errors.Is(err, lookupdb.ErrNotFound):
				line += "  never synced"
			case err != nil:
				return err
			default:
				age := time.Since(meta.LastSync)
				line += fmt.Sprintf("  synced %s ago", age.Round(time.Minute))
				if age > feed.MaxAge {
					line += "  (stale, refresh recommended)"
				}
			}
			if !cfg.FeedEnabled(feed.Name) {
				line += "  [disabled]"
			}
			fmt.Println(line)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
