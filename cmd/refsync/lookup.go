package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hamref/refsync/pkg/feeds"
	"github.com/hamref/refsync/pkg/lookupdb"
)

var lookupCmd = &cobra.Command{
	Use:   "lookup <feed> <reference>",
	Short: "Look up a single reference",
	Args:  cobra.ExactArgs(2),
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

		park, err := feeds.FindParkByReference(cmd.Context(), store, feed.Name, args[1])
		if errors.Is(err, lookupdb.ErrNotFound) {
			return fmt.Errorf("no %s reference %q (is the feed synced?)", feed.Name, args[1])
		}
		if err != nil {
			return err
		}

		printPark(*park)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(lookupCmd)
}

func printPark(p feeds.Park) {
	status := "active"
	if !p.Active {
		status = "inactive"
	}
	fmt.Printf("%s  %s (%s)\n", p.Reference, p.Name, status)
	fmt.Printf("  dxcc %d", p.DXCCCode)
	if p.Location != "" {
		fmt.Printf("  %s", p.Location)
	}
	fmt.Println()
	if p.Lat != 0 || p.Lon != 0 {
		fmt.Printf("  %.4f, %.4f", p.Lat, p.Lon)
		if p.Grid != "" {
			fmt.Printf("  %s", p.Grid)
		}
		fmt.Println()
	}
}
