package cmd

import (
	"fmt"
	"strings"

	"github.com/theirongolddev/ccproj/internal/cli"

	"github.com/spf13/cobra"
)

var (
	flagSessionsLimit    int
	flagSessionsNoMerged bool
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions [project]",
	Short: "List sessions of a project (default project when omitted)",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runSessions,
}

func init() {
	sessionsCmd.Flags().IntVarP(&flagSessionsLimit, "limit", "l", 20, "Max sessions to show (0 for all)")
	sessionsCmd.Flags().BoolVar(&flagSessionsNoMerged, "no-merged", false, "Exclude sessions of projects merged into this one")
	rootCmd.AddCommand(sessionsCmd)
}

func runSessions(_ *cobra.Command, args []string) error {
	cache, err := loadCache()
	if err != nil {
		return err
	}
	defer func() { _ = cache.Close() }()

	var path string
	if len(args) == 1 {
		p, err := resolveProject(cache, args[0])
		if err != nil {
			return err
		}
		path = p.Path
	} else {
		p, err := cache.DefaultProject()
		if err != nil {
			return err
		}
		if p == nil {
			return fmt.Errorf("no default project; name one or run `ccproj project default <project>`")
		}
		path = p.Path
	}

	paths := []string{path}
	if !flagSessionsNoMerged {
		merged, err := cache.ListMerged(path)
		if err != nil {
			return err
		}
		for _, m := range merged {
			paths = append(paths, m.Path)
		}
	}

	sessions, err := cache.ListSessions(paths...)
	if err != nil {
		return err
	}
	if len(sessions) == 0 {
		fmt.Println("\n  No sessions found.")
		return nil
	}
	total := len(sessions)
	if flagSessionsLimit > 0 && total > flagSessionsLimit {
		sessions = sessions[:flagSessionsLimit]
	}

	fmt.Println()
	fmt.Println(cli.RenderTitle(fmt.Sprintf("SESSIONS  %s", cli.Truncate(path, 40))))
	fmt.Println()

	rows := make([][]string, 0, len(sessions))
	for _, s := range sessions {
		title := ""
		switch {
		case s.Summary != nil:
			title = *s.Summary
		case s.FirstPrompt != nil:
			title = *s.FirstPrompt
		}
		branch := ""
		if s.GitBranch != nil {
			branch = *s.GitBranch
		}
		rows = append(rows, []string{
			s.Modified.Local().Format("2006-01-02 15:04"),
			cli.Truncate(strings.Join(strings.Fields(title), " "), 48),
			cli.Truncate(branch, 16),
			cli.FormatCount(s.MessageCount),
			cli.FormatDurationMs(s.DurationMs),
		})
	}
	fmt.Print(cli.RenderTable(cli.Table{
		Headers:  []string{"Modified", "Summary", "Branch", "Msgs", "Duration"},
		Rows:     rows,
		TextCols: 3,
	}))
	if len(sessions) < total {
		fmt.Println(cli.RenderMuted(fmt.Sprintf("  Showing %d of %d sessions (--limit 0 for all)", len(sessions), total)))
	}
	return nil
}
