package cmd

import (
	"fmt"

	"github.com/theirongolddev/ccproj/internal/cli"
	"github.com/theirongolddev/ccproj/internal/config"

	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show current configuration",
	Args:  cobra.NoArgs,
	RunE:  runConfig,
}

func init() {
	rootCmd.AddCommand(configCmd)
}

func runConfig(_ *cobra.Command, _ []string) error {
	cfg := appConfig

	fmt.Printf("  Config file: %s\n", config.Path())
	if config.Exists() {
		fmt.Println("  Status: loaded")
	} else {
		fmt.Println("  Status: using defaults (no config file)")
	}
	fmt.Println()

	fmt.Println("  [General]")
	fmt.Printf("    Claude directory:  %s\n", claudeDir())
	fmt.Printf("    Projects root:     %s\n", projectsDir())
	fmt.Println()

	fmt.Println("  [Store]")
	fmt.Printf("    Cache database:    %s\n", dbPath())
	fmt.Println()

	fmt.Println("  [Pricing]")
	fmt.Printf("    Per session minute: %s\n", cli.FormatCost(cfg.Pricing.USDPerMinute))
	fmt.Println()

	fmt.Println("  [Log]")
	fmt.Printf("    Level: %s\n", cfg.Log.Level)
	if cfg.Log.File != "" {
		fmt.Printf("    File:  %s (%d MB x %d)\n", cfg.Log.File, cfg.Log.MaxSizeMB, cfg.Log.MaxBackups)
	}
	fmt.Println()

	fmt.Println("  [Daemon]")
	fmt.Printf("    Address:  %s\n", cfg.Daemon.Addr)
	fmt.Printf("    Interval: %s\n", cfg.Daemon.Interval.Duration)
	fmt.Printf("    Prune:    %v\n", cfg.Daemon.Prune)
	fmt.Println()

	fmt.Println("  Run `ccproj setup` to reconfigure.")
	return nil
}
