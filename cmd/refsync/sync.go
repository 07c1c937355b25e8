package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/hamref/refsync/pkg/feeds"
	"github.com/hamref/refsync/pkg/feedsync"
	"github.com/hamref/refsync/pkg/humanfmt"
	"github.com/hamref/refsync/pkg/lookupdb"
)

var flagForce bool

var syncCmd = &cobra.Command{
	Use:   "sync [feed...]",
	Short: "Refresh one or more feeds into the lookup store",
	Long: `Refresh the named feeds, or every enabled feed when none are named.

Each refresh sends the stored validator token, so an unchanged feed costs
one request and leaves the store untouched. Use --force to refetch
unconditionally.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		selected, err := selectFeeds(args)
		if err != nil {
			return err
		}

		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		syncer := &feedsync.Syncer{Store: store}
		ctx := cmd.Context()

		var failed []string
		for _, feed := range selected {
			if err := syncFeed(ctx, syncer, store, feed); err != nil {
				fmt.Fprintf(os.Stderr, "%s: %v\n", feed.Name, err)
				failed = append(failed, feed.Name)
			}
		}
		if len(failed) > 0 {
			return fmt.Errorf("sync failed for %s", strings.Join(failed, ", "))
		}
		return nil
	},
}

func init() {
	syncCmd.Flags().BoolVar(&flagForce, "force", false, "refetch even when the feed is unchanged")
	rootCmd.AddCommand(syncCmd)
}

func selectFeeds(names []string) ([]feeds.Feed, error) {
	if len(names) == 0 {
		var enabled []feeds.Feed
		for _, f := range feeds.All() {
			if cfg.FeedEnabled(f.Name) {
				enabled = append(enabled, f)
			}
		}
		if len(enabled) == 0 {
			return nil, errors.New("every feed is disabled in the config")
		}
		return enabled, nil
	}

	var selected []feeds.Feed
	for _, name := range names {
		f, err := feeds.ByName(name)
		if err != nil {
			return nil, err
		}
		selected = append(selected, f)
	}
	return selected, nil
}

func syncFeed(ctx context.Context, syncer *feedsync.Syncer, store *lookupdb.Store, feed feeds.Feed) error {
	desc := cfg.ApplyFeedOverrides(feed.Name, feed.Descriptor)

	var etag string
	meta, err := store.GetSyncMeta(ctx, feed.Name)
	if err == nil {
		etag = meta.ETag
	} else if !errors.Is(err, lookupdb.ErrNotFound) {
		return err
	}
	if flagForce {
		etag = ""
	}

	fmt.Printf("Syncing %s (%s)\n", feed.Name, feed.Description)
	res, err := syncer.Sync(ctx, desc, etag, printProgress)
	fmt.Println()
	if err != nil {
		return err
	}

	newMeta := lookupdb.SyncMeta{
		Category: feed.Name,
		ETag:     res.ETag,
		LastSync: time.Now(),
	}
	if res.Outcome == feedsync.OutcomeNotModified {
		fmt.Printf("%s is unchanged\n", feed.Name)
		if meta != nil {
			newMeta.Prefixes = meta.Prefixes
		}
	} else {
		fmt.Printf("%s: %s references (%s active), %s pruned in %s\n",
			feed.Name,
			humanfmt.Number(res.TotalRecords), humanfmt.Number(res.TotalActive),
			humanfmt.Number(res.Pruned), res.Elapsed.Round(time.Millisecond))
		newMeta.Prefixes = res.PrefixByRegion
	}
	return store.SaveSyncMeta(ctx, newMeta)
}

// printProgress redraws a single status line in place.
func printProgress(p feedsync.Progress) {
	fmt.Printf("\r%-70s", p.Text)
}
