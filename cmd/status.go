package cmd

import (
	"fmt"

	"github.com/theirongolddev/ccproj/internal/cli"
	"github.com/theirongolddev/ccproj/internal/source"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show cache contents and the default project",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(_ *cobra.Command, _ []string) error {
	cache, err := openCache()
	if err != nil {
		return err
	}
	defer func() { _ = cache.Close() }()

	stats, err := cache.Stats()
	if err != nil {
		return err
	}
	def, err := cache.DefaultProject()
	if err != nil {
		return err
	}

	fmt.Println()
	fmt.Println(cli.RenderTitle("CACHE STATUS"))
	fmt.Println()
	fmt.Printf("  Database:       %s\n", dbPath())
	root := projectsDir()
	if source.RootExists(root) {
		fmt.Printf("  Projects root:  %s\n", root)
	} else {
		fmt.Printf("  Projects root:  %s %s\n", root, cli.RenderWarning("(missing)"))
	}
	fmt.Println()

	fmt.Print(cli.RenderTable(cli.Table{
		Headers: []string{"Rows", "Count"},
		Rows: [][]string{
			{"Projects", cli.FormatCount(stats.Projects)},
			{"  hidden", cli.FormatCount(stats.HiddenProjects)},
			{"  merged", cli.FormatCount(stats.MergedProjects)},
			{"Sessions", cli.FormatCount(stats.Sessions)},
			{"Groups", cli.FormatCount(stats.Groups)},
		},
	}))
	if def != nil {
		fmt.Printf("  Default project: %s\n", def.Path)
	} else {
		fmt.Println(cli.RenderMuted("  No default project"))
	}
	fmt.Println()
	return nil
}
