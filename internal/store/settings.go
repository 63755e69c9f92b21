package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
)

// SettingsVersion identifies the DefaultSettings key set.
const SettingsVersion = 1

// Setting keys.
const (
	SettingPreferredEditor    = "preferred_editor"
	SettingShowHiddenProjects = "show_hidden_projects"
	SettingSyncOnStartup      = "sync_on_startup"
)

// DefaultSettings are returned for keys that have never been set.
var DefaultSettings = map[string]any{
	SettingPreferredEditor:    "vscode",
	SettingShowHiddenProjects: false,
	SettingSyncOnStartup:      true,
}

// decodeSetting returns the JSON value of raw, or raw itself when it was
// written before values were JSON-encoded.
func decodeSetting(raw string) any {
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return raw
	}
	return v
}

// Setting returns the stored value for key, its default, or nil for an
// unknown unset key.
func (c *Cache) Setting(key string) (any, error) {
	var raw string
	err := c.db.QueryRow(`SELECT value FROM settings WHERE key = ?`, key).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return DefaultSettings[key], nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading setting %s: %w", key, err)
	}
	return decodeSetting(raw), nil
}

// BoolSetting is Setting for boolean keys. Non-boolean stored values fall
// back to the default.
func (c *Cache) BoolSetting(key string) (bool, error) {
	v, err := c.Setting(key)
	if err != nil {
		return false, err
	}
	if b, ok := v.(bool); ok {
		return b, nil
	}
	b, _ := DefaultSettings[key].(bool)
	return b, nil
}

// SetSetting stores value JSON-encoded under key.
func (c *Cache) SetSetting(key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encoding setting %s: %w", key, err)
	}
	_, err = c.db.Exec(`INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, string(data))
	if err != nil {
		return fmt.Errorf("writing setting %s: %w", key, err)
	}
	return nil
}

// ResetSetting removes the stored value so the default applies again.
func (c *Cache) ResetSetting(key string) error {
	if _, err := c.db.Exec(`DELETE FROM settings WHERE key = ?`, key); err != nil {
		return fmt.Errorf("resetting setting %s: %w", key, err)
	}
	return nil
}

// Settings returns the defaults overlaid with every stored value.
func (c *Cache) Settings() (map[string]any, error) {
	out := maps.Clone(DefaultSettings)

	rows, err := c.db.Query(`SELECT key, value FROM settings`)
	if err != nil {
		return nil, fmt.Errorf("reading settings: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var key, raw string
		if err := rows.Scan(&key, &raw); err != nil {
			return nil, err
		}
		out[key] = decodeSetting(raw)
	}
	return out, rows.Err()
}
