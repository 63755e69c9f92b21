package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/theirongolddev/ccproj/internal/cli"
	"github.com/theirongolddev/ccproj/internal/store"

	"github.com/spf13/cobra"
)

var mergeCmd = &cobra.Command{
	Use:   "merge <target> <source>...",
	Short: "Merge projects into a target project",
	Long: "Merge one or more source projects into a target. Sessions of merged\n" +
		"projects are shown with the target and count toward it in monthly summaries.",
	Args: cobra.MinimumNArgs(2),
	RunE: runMerge,
}

var unmergeCmd = &cobra.Command{
	Use:   "unmerge <project>",
	Short: "Detach a project from its merge target",
	Args:  cobra.ExactArgs(1),
	RunE:  runUnmerge,
}

var mergedCmd = &cobra.Command{
	Use:   "merged <project>",
	Short: "List projects merged into a project",
	Args:  cobra.ExactArgs(1),
	RunE:  runMerged,
}

func init() {
	rootCmd.AddCommand(mergeCmd, unmergeCmd, mergedCmd)
}

func runMerge(_ *cobra.Command, args []string) error {
	cache, err := openCache()
	if err != nil {
		return err
	}
	defer func() { _ = cache.Close() }()

	target, err := resolveProject(cache, args[0])
	if err != nil {
		return err
	}
	sources := make([]string, 0, len(args)-1)
	for _, a := range args[1:] {
		p, err := resolveProject(cache, a)
		if err != nil {
			return err
		}
		sources = append(sources, p.Path)
	}

	if err := cache.Merge(sources, target.Path); err != nil {
		if errors.Is(err, store.ErrMergeTargetIsMerged) && target.MergedInto != nil {
			return fmt.Errorf("%s is itself merged into %s; merge into that project instead",
				target.Path, *target.MergedInto)
		}
		return err
	}
	fmt.Printf("  Merged %d projects into %s\n", len(sources), target.Path)
	return nil
}

func runUnmerge(_ *cobra.Command, args []string) error {
	cache, err := openCache()
	if err != nil {
		return err
	}
	defer func() { _ = cache.Close() }()

	p, err := resolveProject(cache, args[0])
	if err != nil {
		return err
	}
	if err := cache.Unmerge(p.Path); err != nil {
		return err
	}
	fmt.Printf("  Unmerged %s\n", p.Path)
	return nil
}

func runMerged(_ *cobra.Command, args []string) error {
	cache, err := loadCache()
	if err != nil {
		return err
	}
	defer func() { _ = cache.Close() }()

	p, err := resolveProject(cache, args[0])
	if err != nil {
		return err
	}
	merged, err := cache.ListMerged(p.Path)
	if err != nil {
		return err
	}
	if len(merged) == 0 {
		fmt.Printf("\n  Nothing is merged into %s\n", p.Path)
		return nil
	}

	now := time.Now()
	rows := make([][]string, 0, len(merged))
	for _, m := range merged {
		rows = append(rows, []string{
			m.Path,
			cli.FormatCount(m.SessionCount),
			cli.FormatRelative(m.LastActivity, now),
		})
	}
	fmt.Println()
	fmt.Print(cli.RenderTable(cli.Table{
		Title:   "Merged into " + p.Path,
		Headers: []string{"Path", "Sessions", "Last active"},
		Rows:    rows,
	}))
	return nil
}
