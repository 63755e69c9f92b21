package cmd

import (
	"errors"
	"fmt"

	"github.com/theirongolddev/ccproj/internal/cli"
	"github.com/theirongolddev/ccproj/internal/model"

	"github.com/spf13/cobra"
)

var (
	flagGroupColor string
	flagGroupName  string
)

var groupsCmd = &cobra.Command{
	Use:   "groups",
	Short: "Manage project groups",
	RunE:  runGroupsList,
}

var groupsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List groups in display order",
	Args:  cobra.NoArgs,
	RunE:  runGroupsList,
}

var groupsCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a group",
	Args:  cobra.ExactArgs(1),
	RunE:  runGroupsCreate,
}

var groupsUpdateCmd = &cobra.Command{
	Use:   "update <group>",
	Short: "Rename or recolor a group",
	Args:  cobra.ExactArgs(1),
	RunE:  runGroupsUpdate,
}

var groupsDeleteCmd = &cobra.Command{
	Use:   "delete <group>",
	Short: "Delete a group; its projects become ungrouped",
	Args:  cobra.ExactArgs(1),
	RunE:  runGroupsDelete,
}

var groupsReorderCmd = &cobra.Command{
	Use:   "reorder <group>...",
	Short: "Set the display order of groups",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runGroupsReorder,
}

func init() {
	groupsCreateCmd.Flags().StringVar(&flagGroupColor, "color", "", "Group color, e.g. #3AA99F")
	groupsUpdateCmd.Flags().StringVar(&flagGroupName, "name", "", "New name")
	groupsUpdateCmd.Flags().StringVar(&flagGroupColor, "color", "", "New color (\"none\" clears it)")

	groupsCmd.AddCommand(groupsListCmd, groupsCreateCmd, groupsUpdateCmd, groupsDeleteCmd, groupsReorderCmd)
	rootCmd.AddCommand(groupsCmd)
}

func runGroupsList(_ *cobra.Command, _ []string) error {
	cache, err := openCache()
	if err != nil {
		return err
	}
	defer func() { _ = cache.Close() }()

	groups, err := cache.ListGroups()
	if err != nil {
		return err
	}
	if len(groups) == 0 {
		fmt.Println("\n  No groups. Create one with `ccproj groups create <name>`.")
		return nil
	}

	rows := make([][]string, 0, len(groups))
	for _, g := range groups {
		members, err := cache.GroupMembers(g.ID)
		if err != nil {
			return err
		}
		color := ""
		if g.Color != nil {
			color = *g.Color
		}
		rows = append(rows, []string{g.Name, color, g.ID, cli.FormatCount(len(members))})
	}

	fmt.Println()
	fmt.Print(cli.RenderTable(cli.Table{
		Title:    "Groups",
		Headers:  []string{"Name", "Color", "ID", "Projects"},
		Rows:     rows,
		TextCols: 3,
	}))
	return nil
}

func runGroupsCreate(_ *cobra.Command, args []string) error {
	cache, err := openCache()
	if err != nil {
		return err
	}
	defer func() { _ = cache.Close() }()

	var color *string
	if flagGroupColor != "" {
		color = &flagGroupColor
	}
	g, err := cache.CreateGroup(args[0], color)
	if err != nil {
		return err
	}
	fmt.Printf("  Created group %s (%s)\n", g.Name, g.ID)
	return nil
}

func runGroupsUpdate(cmd *cobra.Command, args []string) error {
	var patch model.GroupUpdate
	if cmd.Flags().Changed("name") {
		patch.Name = &flagGroupName
	}
	if cmd.Flags().Changed("color") {
		color := flagGroupColor
		if color == "none" {
			color = ""
		}
		patch.Color = &color
	}
	if patch.IsZero() {
		return errors.New("nothing to update; pass --name or --color")
	}

	cache, err := openCache()
	if err != nil {
		return err
	}
	defer func() { _ = cache.Close() }()

	g, err := resolveGroup(cache, args[0])
	if err != nil {
		return err
	}
	updated, err := cache.UpdateGroup(g.ID, patch)
	if err != nil {
		return err
	}
	if updated == nil {
		return fmt.Errorf("group %s disappeared during update", g.ID)
	}
	fmt.Printf("  Updated group %s\n", updated.Name)
	return nil
}

func runGroupsDelete(_ *cobra.Command, args []string) error {
	cache, err := openCache()
	if err != nil {
		return err
	}
	defer func() { _ = cache.Close() }()

	g, err := resolveGroup(cache, args[0])
	if err != nil {
		return err
	}
	if err := cache.DeleteGroup(g.ID); err != nil {
		return err
	}
	fmt.Printf("  Deleted group %s\n", g.Name)
	return nil
}

func runGroupsReorder(_ *cobra.Command, args []string) error {
	cache, err := openCache()
	if err != nil {
		return err
	}
	defer func() { _ = cache.Close() }()

	ids := make([]string, 0, len(args))
	for _, a := range args {
		g, err := resolveGroup(cache, a)
		if err != nil {
			return err
		}
		ids = append(ids, g.ID)
	}
	if err := cache.ReorderGroups(ids); err != nil {
		return err
	}
	fmt.Printf("  Reordered %d groups\n", len(ids))
	return nil
}
