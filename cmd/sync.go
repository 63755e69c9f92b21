package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/theirongolddev/ccproj/internal/cli"
	"github.com/theirongolddev/ccproj/internal/pipeline"
	"github.com/theirongolddev/ccproj/internal/store"

	"github.com/spf13/cobra"
)

var flagSyncPrune bool

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Refresh the cache from the Claude projects directory",
	RunE:  runSync,
}

func init() {
	syncCmd.Flags().BoolVar(&flagSyncPrune, "prune", false, "Delete cached projects whose directory no longer exists")
	rootCmd.AddCommand(syncCmd)
}

func runSync(_ *cobra.Command, _ []string) error {
	cache, err := openCache()
	if err != nil {
		return err
	}
	defer func() { _ = cache.Close() }()

	res, err := syncCache(cache, flagSyncPrune)
	if err != nil {
		return err
	}

	if !res.RootFound {
		fmt.Printf("\n  No projects directory at %s\n\n", res.Root)
		return nil
	}
	fmt.Println()
	fmt.Printf("  Synced %s projects, %s sessions in %s\n",
		cli.FormatCount(res.Projects),
		cli.FormatCount(res.Sessions),
		res.Duration.Round(time.Millisecond))
	if n := len(res.Diagnostics); n > 0 {
		fmt.Println(cli.RenderWarning(fmt.Sprintf("  %d entries skipped:", n)))
		for _, d := range res.Diagnostics {
			fmt.Println(cli.RenderMuted("    " + d))
		}
	}
	fmt.Println()
	return nil
}

// syncCache runs one sync pass, optionally deleting projects whose directory
// is gone. Pruning is skipped when the projects directory is missing or
// could not be listed.
func syncCache(cache *store.Cache, prune bool) (*pipeline.SyncResult, error) {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	syncer := &pipeline.Syncer{
		Root:   projectsDir(),
		Store:  cache,
		Logger: logger,
		Progress: func(current, total int) {
			if flagQuiet {
				return
			}
			if current%25 == 0 || current == total {
				fmt.Fprintf(os.Stderr, "\r  Syncing %s", cli.RenderProgressBar(current, total, 20))
			}
			if current == total {
				fmt.Fprintln(os.Stderr)
			}
		},
	}
	res, err := syncer.Sync(ctx)
	if err != nil {
		return nil, fmt.Errorf("sync: %w", err)
	}

	if keep, ok := res.PruneKeep(); prune && ok {
		n, err := cache.DeleteOrphaned(keep)
		if err != nil {
			return nil, err
		}
		if n > 0 && !flagQuiet {
			fmt.Fprintf(os.Stderr, "  Pruned %d stale projects\n", n)
		}
	} else if prune && res.RootFound && !flagQuiet {
		fmt.Fprintln(os.Stderr, cli.RenderWarning("  Skipped prune: projects directory not fully listed"))
	}
	return res, nil
}
