package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/hamref/refsync/pkg/feeds"
)

var flagDelta float64

var nearbyCmd = &cobra.Command{
	Use:   "nearby <feed> <dxcc> <lat> <lon>",
	Short: "List active references near a point",
	Args:  cobra.ExactArgs(4),
	RunE: func(cmd *cobra.Command, args []string) error {
		feed, err := feeds.ByName(args[0])
		if err != nil {
			return err
		}
		dxcc, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("dxcc code must be numeric: %q", args[1])
		}
		lat, err := strconv.ParseFloat(args[2], 64)
		if err != nil {
			return fmt.Errorf("invalid latitude %q", args[2])
		}
		lon, err := strconv.ParseFloat(args[3], 64)
		if err != nil {
			return fmt.Errorf("invalid longitude %q", args[3])
		}

		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		parks, err := feeds.FindParksByLocation(cmd.Context(), store, feed.Name, dxcc, lat, lon, flagDelta)
		if err != nil {
			return err
		}
		if len(parks) == 0 {
			fmt.Println("No references nearby.")
			return nil
		}
		for _, p := range parks {
			fmt.Printf("%-12s %-40s %.4f, %.4f\n", p.Reference, p.Name, p.Lat, p.Lon)
		}
		return nil
	},
}

func init() {
	nearbyCmd.Flags().Float64Var(&flagDelta, "delta", 0, "bounding box half-width in degrees (default 1)")
	rootCmd.AddCommand(nearbyCmd)
}
