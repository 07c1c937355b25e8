// Package config loads refsync configuration from a file and the
// environment.
//
// Settings resolve in the usual precedence order: explicit flags beat
// environment variables (REFSYNC_ prefix, dots becoming underscores), which
// beat the config file, which beats built-in defaults. The config file is
// optional; a named file that cannot be read is an error, a missing default
// file is not.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/hamref/refsync/pkg/feedsync"
)

// Config is the resolved application configuration.
type Config struct {
	// DBPath locates the SQLite lookup store.
	DBPath string `mapstructure:"db_path"`
	Log    Log    `mapstructure:"log"`
	// Feeds holds per-feed overrides keyed by feed name.
	Feeds map[string]FeedOverride `mapstructure:"feeds"`
}

// Log configures logging output.
type Log struct {
	Debug bool `mapstructure:"debug"`
	// Human switches to console-formatted output instead of JSON.
	Human bool `mapstructure:"human"`
	// File, when set, mirrors log output to a rotated file.
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
}

// FeedOverride adjusts one registered feed. Zero values leave the feed's
// built-in setting in place.
type FeedOverride struct {
	// Disabled removes the feed from "sync all" runs.
	Disabled        bool   `mapstructure:"disabled"`
	URL             string `mapstructure:"url"`
	ChunkSize       int    `mapstructure:"chunk_size"`
	BatchSize       int    `mapstructure:"batch_size"`
	ExpectedRecords int64  `mapstructure:"expected_records"`
	FetchWeight     int    `mapstructure:"fetch_weight"`
	StoreWeight     int    `mapstructure:"store_weight"`
	// Sequential forces the drain-everything-first apply mode.
	Sequential bool `mapstructure:"sequential"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		DBPath: "refsync.db",
		Log: Log{
			MaxSizeMB:  50,
			MaxBackups: 3,
		},
	}
}

// Load reads configuration from path, falling back to a refsync.yaml in the
// working directory or ~/.config/refsync when path is empty.
func Load(path string) (Config, error) {
	v := viper.New()

	def := Default()
	v.SetDefault("db_path", def.DBPath)
	v.SetDefault("log.max_size_mb", def.Log.MaxSizeMB)
	v.SetDefault("log.max_backups", def.Log.MaxBackups)

	v.SetEnvPrefix("REFSYNC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("refsync")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/refsync")
		var notFound viper.ConfigFileNotFoundError
		if err := v.ReadInConfig(); err != nil && !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// FeedEnabled reports whether the named feed should take part in
// unqualified sync runs.
func (c Config) FeedEnabled(name string) bool {
	return !c.Feeds[name].Disabled
}

// ApplyFeedOverrides returns the descriptor with any configured overrides
// for the feed applied.
func (c Config) ApplyFeedOverrides(name string, desc feedsync.Descriptor) feedsync.Descriptor {
	o, ok := c.Feeds[name]
	if !ok {
		return desc
	}
	if o.URL != "" {
		desc.URL = o.URL
	}
	if o.ChunkSize > 0 {
		desc.ChunkSize = o.ChunkSize
	}
	if o.BatchSize > 0 {
		desc.BatchSize = o.BatchSize
	}
	if o.ExpectedRecords > 0 {
		desc.ExpectedRecords = o.ExpectedRecords
	}
	if o.FetchWeight > 0 {
		desc.FetchWeight = o.FetchWeight
	}
	if o.StoreWeight > 0 {
		desc.StoreWeight = o.StoreWeight
	}
	if o.Sequential {
		desc.SequentialApply = true
	}
	return desc
}
