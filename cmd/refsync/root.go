package main

import (
	"github.com/spf13/cobra"

	"github.com/hamref/refsync/internal/config"
	"github.com/hamref/refsync/pkg/logging"
	"github.com/hamref/refsync/pkg/lookupdb"
)

var (
	flagConfig string
	flagDB     string
	flagDebug  bool
	flagHuman  bool

	cfg config.Config
)

var rootCmd = &cobra.Command{
	Use:   "refsync",
	Short: "Sync amateur radio reference directories into a local lookup store",
	Long: `refsync downloads reference directories (POTA parks, WWFF areas) and
keeps them in a local SQLite database for offline lookup.

Syncs are incremental-safe: existing data stays queryable while a refresh
runs, and an interrupted refresh heals on the next run.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(flagConfig)
		if err != nil {
			return err
		}
		if flagDB != "" {
			cfg.DBPath = flagDB
		}
		if flagDebug {
			cfg.Log.Debug = true
		}
		if flagHuman {
			cfg.Log.Human = true
		}
		logging.Init(logging.Options{
			Debug:          cfg.Log.Debug,
			Human:          cfg.Log.Human,
			File:           cfg.Log.File,
			FileMaxSizeMB:  cfg.Log.MaxSizeMB,
			FileMaxBackups: cfg.Log.MaxBackups,
		})
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "config file (default refsync.yaml)")
	rootCmd.PersistentFlags().StringVar(&flagDB, "db", "", "lookup database path (default from config)")
	rootCmd.PersistentFlags().BoolVar(&flagDebug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&flagHuman, "human", false, "human-readable console logging")
}

func openStore() (*lookupdb.Store, error) {
	return lookupdb.Open(lookupdb.DefaultConfig(cfg.DBPath))
}
