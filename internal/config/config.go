package config

import (
	"os"
	"path/filepath"
	"sync"
	"time"
)

type Config struct {
	WebhookURL    string
	TerminalWSURL string
	LogLevel      string
	LogFormat     string
	DBPath        string

	RequestTimeout time.Duration
	HealthTimeout  time.Duration
	StuckThreshold time.Duration

	ActionCapacity      int
	MaxLinesPerTerminal int

	BusyWaitAttempts int
	BusyWaitInterval time.Duration
	PollAttempts     int
	PollInterval     time.Duration

	AutoReconnect        bool
	ReconnectBaseDelay   time.Duration
	MaxReconnectAttempts int
}

var (
	cacheTTL   = 10 * time.Second
	nowFunc    = time.Now
	cacheMu    sync.RWMutex
	cachedCfg  Config
	cachedAt   time.Time
	cacheValid bool
)

func LoadConfig() Config {
	cfg := loadFromEnv()
	cacheMu.Lock()
	cachedCfg = cfg
	cachedAt = nowFunc()
	cacheValid = true
	cacheMu.Unlock()
	return cfg
}

func GetConfig() *Config {
	now := nowFunc()
	cacheMu.RLock()
	valid := cacheValid && now.Sub(cachedAt) < cacheTTL
	if valid {
		out := cachedCfg
		cacheMu.RUnlock()
		return &out
	}
	cacheMu.RUnlock()

	cfg := loadFromEnv()
	cacheMu.Lock()
	cachedCfg = cfg
	cachedAt = now
	cacheValid = true
	cacheMu.Unlock()

	out := cfg
	return &out
}

func loadFromEnv() Config {
	webhookURL := os.Getenv("DEVBRIDGE_WEBHOOK_URL")
	if webhookURL == "" {
		webhookURL = "http://localhost:9090/webhook"
	}

	wsURL := os.Getenv("DEVBRIDGE_TERMINAL_WS_URL")
	if wsURL == "" {
		wsURL = "ws://localhost:9091"
	}

	level := os.Getenv("DEVBRIDGE_LOG_LEVEL")
	if level == "" {
		level = "info"
	}
	format := os.Getenv("DEVBRIDGE_LOG_FORMAT")
	if format == "" {
		format = "json"
	}

	dbPath := os.Getenv("DEVBRIDGE_DB_PATH")
	if dbPath == "" {
		dbPath = defaultDBPath()
	}

	cfg := Config{
		WebhookURL:    webhookURL,
		TerminalWSURL: wsURL,
		LogLevel:      level,
		LogFormat:     format,
		DBPath:        dbPath,

		RequestTimeout: secondsOrDefault(os.Getenv("DEVBRIDGE_REQUEST_TIMEOUT_SECONDS"), 10),
		HealthTimeout:  secondsOrDefault(os.Getenv("DEVBRIDGE_HEALTH_TIMEOUT_SECONDS"), 3),
		StuckThreshold: secondsOrDefault(os.Getenv("DEVBRIDGE_STUCK_THRESHOLD_SECONDS"), 60),

		ActionCapacity:      atoiOrDefault(os.Getenv("DEVBRIDGE_ACTION_CAPACITY"), 50),
		MaxLinesPerTerminal: atoiOrDefault(os.Getenv("DEVBRIDGE_MAX_LINES_PER_TERMINAL"), 1000),

		BusyWaitAttempts: atoiOrDefault(os.Getenv("DEVBRIDGE_BUSY_WAIT_ATTEMPTS"), 15),
		BusyWaitInterval: secondsOrDefault(os.Getenv("DEVBRIDGE_BUSY_WAIT_INTERVAL_SECONDS"), 1),
		PollAttempts:     atoiOrDefault(os.Getenv("DEVBRIDGE_POLL_ATTEMPTS"), 30),
		PollInterval:     secondsOrDefault(os.Getenv("DEVBRIDGE_POLL_INTERVAL_SECONDS"), 2),

		AutoReconnect:        os.Getenv("DEVBRIDGE_AUTO_RECONNECT") != "0",
		ReconnectBaseDelay:   3 * time.Second,
		MaxReconnectAttempts: atoiOrDefault(os.Getenv("DEVBRIDGE_MAX_RECONNECT_ATTEMPTS"), 5),
	}
	return applyFileOverrides(cfg)
}

func defaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return filepath.Clean("devbridge.db")
	}
	return filepath.Join(home, ".devbridge", "state.db")
}

func atoiOrDefault(v string, fallback int) int {
	n := 0
	for i := 0; i < len(v); i++ {
		if v[i] < '0' || v[i] > '9' {
			return fallback
		}
		n = n*10 + int(v[i]-'0')
	}
	if n == 0 {
		return fallback
	}
	return n
}

func secondsOrDefault(v string, fallbackSeconds int) time.Duration {
	return time.Duration(atoiOrDefault(v, fallbackSeconds)) * time.Second
}
