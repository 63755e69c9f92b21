package cmd

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/theirongolddev/ccproj/internal/cli"
	"github.com/theirongolddev/ccproj/internal/model"
	"github.com/theirongolddev/ccproj/internal/store"

	"github.com/spf13/cobra"
)

var (
	flagProjectsAll bool
	flagGroupNone   bool
)

var projectsCmd = &cobra.Command{
	Use:   "projects",
	Short: "List cached projects, most recently active first",
	Args:  cobra.NoArgs,
	RunE:  runProjects,
}

var projectCmd = &cobra.Command{
	Use:   "project",
	Short: "Inspect or annotate a single project",
}

var projectShowCmd = &cobra.Command{
	Use:   "show <project>",
	Short: "Show project details",
	Args:  cobra.ExactArgs(1),
	RunE:  runProjectShow,
}

var projectHideCmd = &cobra.Command{
	Use:   "hide <project>",
	Short: "Hide a project from listings",
	Args:  cobra.ExactArgs(1),
	RunE:  func(_ *cobra.Command, args []string) error { return setHidden(args[0], true) },
}

var projectUnhideCmd = &cobra.Command{
	Use:   "unhide <project>",
	Short: "Show a hidden project again",
	Args:  cobra.ExactArgs(1),
	RunE:  func(_ *cobra.Command, args []string) error { return setHidden(args[0], false) },
}

var projectDefaultCmd = &cobra.Command{
	Use:   "default <project>",
	Short: "Make a project the default",
	Args:  cobra.ExactArgs(1),
	RunE:  runProjectDefault,
}

var projectUndefaultCmd = &cobra.Command{
	Use:   "undefault",
	Short: "Clear the default project",
	Args:  cobra.NoArgs,
	RunE:  runProjectUndefault,
}

var projectGroupCmd = &cobra.Command{
	Use:   "group <project> [group]",
	Short: "Assign a project to a group (by ID or name)",
	Args:  cobra.RangeArgs(1, 2),
	RunE:  runProjectGroup,
}

func init() {
	projectsCmd.Flags().BoolVarP(&flagProjectsAll, "all", "a", false, "Include hidden projects")
	projectGroupCmd.Flags().BoolVar(&flagGroupNone, "none", false, "Remove the project from its group")

	projectCmd.AddCommand(projectShowCmd, projectHideCmd, projectUnhideCmd,
		projectDefaultCmd, projectUndefaultCmd, projectGroupCmd)
	rootCmd.AddCommand(projectsCmd, projectCmd)
}

func runProjects(_ *cobra.Command, _ []string) error {
	cache, err := loadCache()
	if err != nil {
		return err
	}
	defer func() { _ = cache.Close() }()

	includeHidden := flagProjectsAll
	if !includeHidden {
		if v, err := cache.BoolSetting(store.SettingShowHiddenProjects); err == nil {
			includeHidden = v
		}
	}
	projects, err := cache.ListProjects(includeHidden)
	if err != nil {
		return err
	}
	if len(projects) == 0 {
		fmt.Println("\n  No projects cached. Run `ccproj sync` first.")
		return nil
	}
	groups, err := groupNames(cache)
	if err != nil {
		return err
	}

	fmt.Println()
	fmt.Println(cli.RenderTitle("PROJECTS"))
	fmt.Println()

	now := time.Now()
	rows := make([][]string, 0, len(projects))
	for _, p := range projects {
		rows = append(rows, []string{
			projectLabel(p),
			cli.Truncate(p.Path, 40),
			groupLabel(groups, p.GroupID),
			cli.FormatCount(p.SessionCount),
			cli.FormatDurationMs(p.TotalDurationMs),
			cli.FormatRelative(p.LastActivity, now),
		})
	}
	fmt.Print(cli.RenderTable(cli.Table{
		Headers:  []string{"Project", "Path", "Group", "Sessions", "Time", "Last active"},
		Rows:     rows,
		TextCols: 3,
	}))
	fmt.Println(cli.RenderMuted("  * default   (h) hidden   -> merged into another project"))
	return nil
}

func projectLabel(p model.Project) string {
	label := cli.Truncate(p.Name, 24)
	if p.IsDefault {
		label = "* " + label
	}
	if p.Hidden {
		label += " (h)"
	}
	if p.IsMerged() {
		label += " ->"
	}
	return label
}

func groupLabel(names map[string]string, id *string) string {
	if id == nil {
		return ""
	}
	if name, ok := names[*id]; ok {
		return name
	}
	return "?"
}

func runProjectShow(_ *cobra.Command, args []string) error {
	cache, err := loadCache()
	if err != nil {
		return err
	}
	defer func() { _ = cache.Close() }()

	p, err := resolveProject(cache, args[0])
	if err != nil {
		return err
	}
	groups, err := groupNames(cache)
	if err != nil {
		return err
	}
	merged, err := cache.ListMerged(p.Path)
	if err != nil {
		return err
	}

	now := time.Now()
	fmt.Println()
	fmt.Println(cli.RenderTitle(strings.ToUpper(p.Name)))
	fmt.Println()
	fmt.Printf("  Path:          %s\n", p.Path)
	fmt.Printf("  Sessions:      %s (%s messages)\n", cli.FormatCount(p.SessionCount), cli.FormatCount(p.MessageCount))
	fmt.Printf("  Total time:    %s\n", cli.FormatDurationMs(p.TotalDurationMs))
	fmt.Printf("  First active:  %s\n", cli.FormatDate(p.FirstActivity))
	fmt.Printf("  Last active:   %s (%s)\n", cli.FormatDate(p.LastActivity), cli.FormatRelative(p.LastActivity, now))
	if g := groupLabel(groups, p.GroupID); g != "" {
		fmt.Printf("  Group:         %s\n", g)
	}
	fmt.Printf("  Hidden:        %v\n", p.Hidden)
	fmt.Printf("  Default:       %v\n", p.IsDefault)
	if p.MergedInto != nil {
		fmt.Printf("  Merged into:   %s\n", *p.MergedInto)
	}
	if len(merged) > 0 {
		fmt.Println("  Merged here:")
		for _, m := range merged {
			fmt.Printf("    %s\n", m.Path)
		}
	}
	fmt.Println()
	return nil
}

func setHidden(arg string, hidden bool) error {
	cache, err := openCache()
	if err != nil {
		return err
	}
	defer func() { _ = cache.Close() }()

	p, err := resolveProject(cache, arg)
	if err != nil {
		return err
	}
	if err := cache.SetHidden(p.Path, hidden); err != nil {
		return err
	}
	verb := "Hid"
	if !hidden {
		verb = "Unhid"
	}
	fmt.Printf("  %s %s\n", verb, p.Path)
	return nil
}

func runProjectDefault(_ *cobra.Command, args []string) error {
	cache, err := openCache()
	if err != nil {
		return err
	}
	defer func() { _ = cache.Close() }()

	p, err := resolveProject(cache, args[0])
	if err != nil {
		return err
	}
	if err := cache.SetDefault(p.Path); err != nil {
		return err
	}
	fmt.Printf("  Default project: %s\n", p.Path)
	return nil
}

func runProjectUndefault(_ *cobra.Command, _ []string) error {
	cache, err := openCache()
	if err != nil {
		return err
	}
	defer func() { _ = cache.Close() }()

	if err := cache.ClearDefault(); err != nil {
		return err
	}
	fmt.Println("  Default project cleared")
	return nil
}

func runProjectGroup(_ *cobra.Command, args []string) error {
	if len(args) == 1 && !flagGroupNone {
		return errors.New("name a group or pass --none")
	}
	cache, err := openCache()
	if err != nil {
		return err
	}
	defer func() { _ = cache.Close() }()

	p, err := resolveProject(cache, args[0])
	if err != nil {
		return err
	}
	if flagGroupNone {
		if err := cache.SetGroup(p.Path, nil); err != nil {
			return err
		}
		fmt.Printf("  Removed %s from its group\n", p.Path)
		return nil
	}

	g, err := resolveGroup(cache, args[1])
	if err != nil {
		return err
	}
	if err := cache.SetGroup(p.Path, &g.ID); err != nil {
		return err
	}
	fmt.Printf("  Added %s to %s\n", p.Path, g.Name)
	return nil
}
