// Package config loads and saves the ccproj TOML configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// DefaultCostPerMinuteUSD is the rate used to estimate monetary cost from
// session duration when no override is configured.
const DefaultCostPerMinuteUSD = 0.10

// Config holds all ccproj configuration.
type Config struct {
	General GeneralConfig `toml:"general"`
	Store   StoreConfig   `toml:"store"`
	Pricing PricingConfig `toml:"pricing"`
	Log     LogConfig     `toml:"log"`
	Daemon  DaemonConfig  `toml:"daemon"`
}

// GeneralConfig holds general preferences.
type GeneralConfig struct {
	ClaudeDir string `toml:"claude_dir,omitempty"`
}

// StoreConfig locates the cache database.
type StoreConfig struct {
	Path string `toml:"path,omitempty"`
}

// PricingConfig controls cost estimation in monthly summaries.
type PricingConfig struct {
	USDPerMinute float64 `toml:"usd_per_minute"`
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level      string `toml:"level"`
	File       string `toml:"file,omitempty"`
	MaxSizeMB  int    `toml:"max_size_mb"`
	MaxBackups int    `toml:"max_backups"`
}

// DaemonConfig holds daemon defaults.
type DaemonConfig struct {
	Addr     string   `toml:"addr"`
	Interval Duration `toml:"interval"`
	Prune    bool     `toml:"prune"`
}

// Duration is a time.Duration that round-trips through TOML as "30s".
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		Pricing: PricingConfig{
			USDPerMinute: DefaultCostPerMinuteUSD,
		},
		Log: LogConfig{
			Level:      "warn",
			MaxSizeMB:  10,
			MaxBackups: 3,
		},
		Daemon: DaemonConfig{
			Addr:     "127.0.0.1:8788",
			Interval: Duration{30 * time.Second},
		},
	}
}

// Dir returns the XDG-compliant config directory.
func Dir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "ccproj")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "ccproj")
}

// Path returns the full path to the config file.
func Path() string {
	return filepath.Join(Dir(), "config.toml")
}

// CacheDir returns the XDG-compliant cache directory.
func CacheDir() string {
	if xdg := os.Getenv("XDG_CACHE_HOME"); xdg != "" {
		return filepath.Join(xdg, "ccproj")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".cache", "ccproj")
}

// Load reads the config file, returning defaults if it doesn't exist.
func Load() (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(Path())
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config: %w", err)
	}

	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config: %w", err)
	}

	return cfg, nil
}

// Save writes the config to disk.
func Save(cfg Config) error {
	if err := os.MkdirAll(Dir(), 0o755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}

	f, err := os.OpenFile(Path(), os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("creating config file: %w", err)
	}
	defer func() { _ = f.Close() }()

	return toml.NewEncoder(f).Encode(cfg)
}

// Exists returns true if a config file exists on disk.
func Exists() bool {
	_, err := os.Stat(Path())
	return err == nil
}

// ClaudeDir returns the Claude data directory: CCPROJ_CLAUDE_DIR, then the
// configured value, then ~/.claude.
func ClaudeDir(cfg Config) string {
	if dir := os.Getenv("CCPROJ_CLAUDE_DIR"); dir != "" {
		return dir
	}
	if cfg.General.ClaudeDir != "" {
		return cfg.General.ClaudeDir
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".claude")
}

// ProjectsDir returns the directory holding the encoded project directories.
func ProjectsDir(claudeDir string) string {
	return filepath.Join(claudeDir, "projects")
}

// StorePath returns the cache database path.
func StorePath(cfg Config) string {
	if cfg.Store.Path != "" {
		return cfg.Store.Path
	}
	return filepath.Join(CacheDir(), "projects.db")
}
