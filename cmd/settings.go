package cmd

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/theirongolddev/ccproj/internal/store"

	"github.com/spf13/cobra"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Show or change cached settings",
	Args:  cobra.NoArgs,
	RunE:  runSettingsList,
}

var settingsGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Print one setting",
	Args:  cobra.ExactArgs(1),
	RunE:  runSettingsGet,
}

var settingsSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Store a setting (JSON values such as true or 5 are decoded)",
	Args:  cobra.ExactArgs(2),
	RunE:  runSettingsSet,
}

var settingsResetCmd = &cobra.Command{
	Use:   "reset <key>",
	Short: "Restore a setting to its default",
	Args:  cobra.ExactArgs(1),
	RunE:  runSettingsReset,
}

func init() {
	settingsCmd.AddCommand(settingsGetCmd, settingsSetCmd, settingsResetCmd)
	rootCmd.AddCommand(settingsCmd)
}

// parseSettingValue decodes JSON scalars and falls back to the raw string.
func parseSettingValue(raw string) any {
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return raw
	}
	return v
}

func runSettingsList(_ *cobra.Command, _ []string) error {
	cache, err := openCache()
	if err != nil {
		return err
	}
	defer func() { _ = cache.Close() }()

	all, err := cache.Settings()
	if err != nil {
		return err
	}
	keys := make([]string, 0, len(all))
	for k := range all {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	fmt.Printf("  Settings (version %d)\n", store.SettingsVersion)
	for _, k := range keys {
		marker := ""
		if def, ok := store.DefaultSettings[k]; ok && fmt.Sprint(def) == fmt.Sprint(all[k]) {
			marker = "  (default)"
		}
		fmt.Printf("    %-22s %v%s\n", k, all[k], marker)
	}
	return nil
}

func runSettingsGet(_ *cobra.Command, args []string) error {
	cache, err := openCache()
	if err != nil {
		return err
	}
	defer func() { _ = cache.Close() }()

	v, err := cache.Setting(args[0])
	if err != nil {
		return err
	}
	if v == nil {
		return fmt.Errorf("setting %q is not set and has no default", args[0])
	}
	fmt.Println(v)
	return nil
}

func runSettingsSet(_ *cobra.Command, args []string) error {
	cache, err := openCache()
	if err != nil {
		return err
	}
	defer func() { _ = cache.Close() }()

	value := parseSettingValue(args[1])
	if def, ok := store.DefaultSettings[args[0]]; ok {
		if _, isBool := def.(bool); isBool {
			if _, ok := value.(bool); !ok {
				return fmt.Errorf("%s expects true or false", args[0])
			}
		}
	}
	if err := cache.SetSetting(args[0], value); err != nil {
		return err
	}
	fmt.Printf("  %s = %v\n", args[0], value)
	return nil
}

func runSettingsReset(_ *cobra.Command, args []string) error {
	cache, err := openCache()
	if err != nil {
		return err
	}
	defer func() { _ = cache.Close() }()

	if err := cache.ResetSetting(args[0]); err != nil {
		return err
	}
	fmt.Printf("  %s reset\n", args[0])
	return nil
}
