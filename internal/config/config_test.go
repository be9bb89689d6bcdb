package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("DEVBRIDGE_CONFIG_DIR", t.TempDir())
	cfg := LoadConfig()

	if cfg.WebhookURL != "http://localhost:9090/webhook" {
		t.Fatalf("unexpected webhook url: %s", cfg.WebhookURL)
	}
	if cfg.TerminalWSURL != "ws://localhost:9091" {
		t.Fatalf("unexpected ws url: %s", cfg.TerminalWSURL)
	}
	if cfg.StuckThreshold != 60*time.Second {
		t.Fatalf("unexpected stuck threshold: %v", cfg.StuckThreshold)
	}
	if cfg.ActionCapacity != 50 {
		t.Fatalf("unexpected action capacity: %d", cfg.ActionCapacity)
	}
	if cfg.BusyWaitAttempts != 15 || cfg.BusyWaitInterval != time.Second {
		t.Fatalf("unexpected busy wait settings: %d %v", cfg.BusyWaitAttempts, cfg.BusyWaitInterval)
	}
	if cfg.PollAttempts != 30 || cfg.PollInterval != 2*time.Second {
		t.Fatalf("unexpected poll settings: %d %v", cfg.PollAttempts, cfg.PollInterval)
	}
	if !cfg.AutoReconnect || cfg.MaxReconnectAttempts != 5 || cfg.ReconnectBaseDelay != 3*time.Second {
		t.Fatalf("unexpected reconnect settings: %+v", cfg)
	}
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("DEVBRIDGE_CONFIG_DIR", t.TempDir())
	t.Setenv("DEVBRIDGE_WEBHOOK_URL", "http://127.0.0.1:7777/webhook")
	t.Setenv("DEVBRIDGE_STUCK_THRESHOLD_SECONDS", "90")
	t.Setenv("DEVBRIDGE_AUTO_RECONNECT", "0")

	cfg := LoadConfig()
	if cfg.WebhookURL != "http://127.0.0.1:7777/webhook" {
		t.Fatalf("env override not applied: %s", cfg.WebhookURL)
	}
	if cfg.StuckThreshold != 90*time.Second {
		t.Fatalf("stuck threshold override not applied: %v", cfg.StuckThreshold)
	}
	if cfg.AutoReconnect {
		t.Fatal("auto reconnect should be disabled")
	}
}

func TestLoadConfig_FileOverrides(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("DEVBRIDGE_CONFIG_DIR", dir)
	content := []byte("webhook_url = \"http://localhost:4545/webhook\"\nstuck_threshold_seconds = 120\nmax_lines_per_terminal = 200\n")
	if err := os.WriteFile(filepath.Join(dir, "config.toml"), content, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg := LoadConfig()
	if cfg.WebhookURL != "http://localhost:4545/webhook" {
		t.Fatalf("file override not applied: %s", cfg.WebhookURL)
	}
	if cfg.StuckThreshold != 120*time.Second {
		t.Fatalf("file stuck threshold not applied: %v", cfg.StuckThreshold)
	}
	if cfg.MaxLinesPerTerminal != 200 {
		t.Fatalf("file max lines not applied: %d", cfg.MaxLinesPerTerminal)
	}
}

func TestSaveFileConfig_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	if err := SaveFileConfig(dir, FileConfig{WebhookURL: "http://localhost:9191/webhook", ActionCapacity: 25}); err != nil {
		t.Fatalf("save: %v", err)
	}
	fc, err := loadFileConfig(filepath.Join(dir, "config.toml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if fc.WebhookURL != "http://localhost:9191/webhook" || fc.ActionCapacity != 25 {
		t.Fatalf("round trip mismatch: %+v", fc)
	}
}

func TestAtoiOrDefault(t *testing.T) {
	if got := atoiOrDefault("42", 7); got != 42 {
		t.Fatalf("got %d", got)
	}
	if got := atoiOrDefault("4x2", 7); got != 7 {
		t.Fatalf("got %d", got)
	}
	if got := atoiOrDefault("", 7); got != 7 {
		t.Fatalf("got %d", got)
	}
	if got := atoiOrDefault("0", 7); got != 7 {
		t.Fatalf("zero should fall back: got %d", got)
	}
}
