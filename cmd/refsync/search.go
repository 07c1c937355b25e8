package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/hamref/refsync/pkg/feeds"
)

var searchCmd = &cobra.Command{
	Use:   "search <feed> <dxcc> <text>",
	Short: "Search active references by name or reference substring",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		feed, err := feeds.ByName(args[0])
		if err != nil {
			return err
		}
		dxcc, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("dxcc code must be numeric: %q", args[1])
		}

		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		parks, err := feeds.FindParksByName(cmd.Context(), store, feed.Name, dxcc, args[2])
		if err != nil {
			return err
		}
		if len(parks) == 0 {
			fmt.Println("No matches.")
			return nil
		}
		for _, p := range parks {
			fmt.Printf("%-12s %s\n", p.Reference, p.Name)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(searchCmd)
}
