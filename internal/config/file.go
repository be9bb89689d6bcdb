package config

import (
	"os"
	"path/filepath"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

const configTOMLFileName = "config.toml"

// FileConfig is the subset of settings that may be overridden from the
// on-disk config.toml. Zero values mean "keep the env/default value".
type FileConfig struct {
	WebhookURL            string `toml:"webhook_url,omitempty"`
	TerminalWSURL         string `toml:"terminal_ws_url,omitempty"`
	LogLevel              string `toml:"log_level,omitempty"`
	DBPath                string `toml:"db_path,omitempty"`
	StuckThresholdSeconds int    `toml:"stuck_threshold_seconds,omitempty"`
	ActionCapacity        int    `toml:"action_capacity,omitempty"`
	MaxLinesPerTerminal   int    `toml:"max_lines_per_terminal,omitempty"`
}

func ConfigDir() string {
	if dir := os.Getenv("DEVBRIDGE_CONFIG_DIR"); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return "."
	}
	return filepath.Join(home, ".devbridge")
}

func applyFileOverrides(cfg Config) Config {
	fc, err := loadFileConfig(filepath.Join(ConfigDir(), configTOMLFileName))
	if err != nil {
		return cfg
	}
	return Merge(cfg, fc)
}

func loadFileConfig(path string) (FileConfig, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return FileConfig{}, err
	}
	var fc FileConfig
	if err := toml.Unmarshal(b, &fc); err != nil {
		return FileConfig{}, err
	}
	return fc, nil
}

func Merge(cfg Config, fc FileConfig) Config {
	if fc.WebhookURL != "" {
		cfg.WebhookURL = fc.WebhookURL
	}
	if fc.TerminalWSURL != "" {
		cfg.TerminalWSURL = fc.TerminalWSURL
	}
	if fc.LogLevel != "" {
		cfg.LogLevel = fc.LogLevel
	}
	if fc.DBPath != "" {
		cfg.DBPath = fc.DBPath
	}
	if fc.StuckThresholdSeconds > 0 {
		cfg.StuckThreshold = time.Duration(fc.StuckThresholdSeconds) * time.Second
	}
	if fc.ActionCapacity > 0 {
		cfg.ActionCapacity = fc.ActionCapacity
	}
	if fc.MaxLinesPerTerminal > 0 {
		cfg.MaxLinesPerTerminal = fc.MaxLinesPerTerminal
	}
	return cfg
}

// SaveFileConfig writes config.toml atomically under dir.
func SaveFileConfig(dir string, fc FileConfig) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	b, err := toml.Marshal(fc)
	if err != nil {
		return err
	}
	path := filepath.Join(dir, configTOMLFileName)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
