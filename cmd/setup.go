package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/theirongolddev/ccproj/internal/config"
	"github.com/theirongolddev/ccproj/internal/source"
	"github.com/theirongolddev/ccproj/internal/store"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "First-time setup wizard",
	Args:  cobra.NoArgs,
	RunE:  runSetup,
}

func init() {
	rootCmd.AddCommand(setupCmd)
}

type setupValues struct {
	claudeDir   string
	editor      string
	syncOnStart bool
	showHidden  bool
	costPerMin  string
	daemonPrune bool
}

var editorOptions = []string{"vscode", "cursor", "zed", "idea", "vim", "emacs"}

func newSetupForm(projectCount int, vals *setupValues) *huh.Form {
	note := "No project directories found yet."
	if projectCount > 0 {
		note = fmt.Sprintf("Found %d project directories.", projectCount)
	}

	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Claude data directory").
				Description(note).
				Value(&vals.claudeDir),
			huh.NewSelect[string]().
				Title("Preferred editor").
				Options(huh.NewOptions(editorOptions...)...).
				Value(&vals.editor),
		),
		huh.NewGroup(
			huh.NewConfirm().
				Title("Sync before every listing?").
				Value(&vals.syncOnStart),
			huh.NewConfirm().
				Title("Show hidden projects in listings?").
				Value(&vals.showHidden),
			huh.NewConfirm().
				Title("Let the daemon delete projects that disappear?").
				Value(&vals.daemonPrune),
			huh.NewInput().
				Title("Estimated cost per session minute (USD)").
				Value(&vals.costPerMin).
				Validate(validateCost),
		),
	)
}

func validateCost(s string) error {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || v < 0 {
		return fmt.Errorf("enter a non-negative number")
	}
	return nil
}

func runSetup(_ *cobra.Command, _ []string) error {
	cfg := appConfig

	cache, err := openCache()
	if err != nil {
		return err
	}
	defer func() { _ = cache.Close() }()

	editor, _ := cache.Setting(store.SettingPreferredEditor)
	syncOnStart, _ := cache.BoolSetting(store.SettingSyncOnStartup)
	showHidden, _ := cache.BoolSetting(store.SettingShowHiddenProjects)

	vals := setupValues{
		claudeDir:   claudeDir(),
		editor:      fmt.Sprint(editor),
		syncOnStart: syncOnStart,
		showHidden:  showHidden,
		costPerMin:  strconv.FormatFloat(cfg.Pricing.USDPerMinute, 'f', -1, 64),
		daemonPrune: cfg.Daemon.Prune,
	}
	tokens, _ := source.ScanProjectDirs(projectsDir())

	fmt.Println()
	fmt.Println("  Welcome to ccproj!")
	fmt.Println()
	if err := newSetupForm(len(tokens), &vals).Run(); err != nil {
		return fmt.Errorf("setup: %w", err)
	}

	cfg.General.ClaudeDir = strings.TrimSpace(vals.claudeDir)
	cfg.Pricing.USDPerMinute, _ = strconv.ParseFloat(strings.TrimSpace(vals.costPerMin), 64)
	cfg.Daemon.Prune = vals.daemonPrune
	if err := config.Save(cfg); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}

	for key, value := range map[string]any{
		store.SettingPreferredEditor:    vals.editor,
		store.SettingSyncOnStartup:      vals.syncOnStart,
		store.SettingShowHiddenProjects: vals.showHidden,
	} {
		if err := cache.SetSetting(key, value); err != nil {
			return err
		}
	}

	fmt.Println()
	fmt.Printf("  Saved to %s\n", config.Path())
	fmt.Println("  Run `ccproj setup` anytime to reconfigure.")
	fmt.Println()
	return nil
}
