// Package cmd implements the ccproj CLI commands.
package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/theirongolddev/ccproj/internal/config"
	"github.com/theirongolddev/ccproj/internal/logging"
	"github.com/theirongolddev/ccproj/internal/store"

	"github.com/spf13/cobra"
)

var (
	flagDataDir  string
	flagDB       string
	flagQuiet    bool
	flagNoSync   bool
	flagLogLevel string
)

// Set by PersistentPreRunE.
var (
	appConfig config.Config
	logger    = logging.Discard()
	logCloser io.Closer
)

var rootCmd = &cobra.Command{
	Use:   "ccproj",
	Short: "Claude Code project and session cache",
	Long: "Keep a local cache of Claude Code projects and sessions, organize them\n" +
		"(hide, group, merge, pick a default) and review monthly activity.",
	SilenceUsage:       true,
	PersistentPreRunE:  initRuntime,
	PersistentPostRunE: teardown,
	RunE:               runProjects,
}

// Execute is the main entry point called from main.go.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&flagDataDir, "data-dir", "d", "", "Claude data directory (default ~/.claude)")
	rootCmd.PersistentFlags().StringVar(&flagDB, "db", "", "Cache database path")
	rootCmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "Suppress progress output")
	rootCmd.PersistentFlags().BoolVar(&flagNoSync, "no-sync", false, "Skip the sync before reading the cache")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "Log level: debug, info, warn, error")
}

func initRuntime(_ *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	appConfig = cfg

	level := cfg.Log.Level
	if flagLogLevel != "" {
		level = flagLogLevel
	}
	l, closer, err := logging.New(logging.Options{
		Level:      logging.ParseLevel(level),
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		Stderr:     os.Stderr,
	})
	if err != nil {
		return err
	}
	logger, logCloser = l, closer
	slog.SetDefault(logger)
	return nil
}

func teardown(_ *cobra.Command, _ []string) error {
	if logCloser != nil {
		return logCloser.Close()
	}
	return nil
}

func claudeDir() string {
	if flagDataDir != "" {
		return flagDataDir
	}
	return config.ClaudeDir(appConfig)
}

func projectsDir() string {
	return config.ProjectsDir(claudeDir())
}

func dbPath() string {
	if flagDB != "" {
		return flagDB
	}
	return config.StorePath(appConfig)
}

func openCache() (*store.Cache, error) {
	cache, err := store.OpenConfig(store.Config{
		Path:             dbPath(),
		CostPerMinuteUSD: appConfig.Pricing.USDPerMinute,
		Logger:           logger,
	})
	if err != nil {
		return nil, fmt.Errorf("opening cache %s: %w", dbPath(), err)
	}
	return cache, nil
}

// loadCache opens the cache for a read command and refreshes it first when
// the sync_on_startup setting allows it.
func loadCache() (*store.Cache, error) {
	cache, err := openCache()
	if err != nil {
		return nil, err
	}
	if flagNoSync {
		return cache, nil
	}
	enabled, err := cache.BoolSetting(store.SettingSyncOnStartup)
	if err != nil {
		_ = cache.Close()
		return nil, err
	}
	if enabled {
		if _, err := syncCache(cache, false); err != nil {
			_ = cache.Close()
			return nil, err
		}
	}
	return cache, nil
}
