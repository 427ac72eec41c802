package config

import (
	"log/slog"
	"os"
	"strings"
	"time"
)

const (
	defaultServerPort    = "8080"
	defaultHoldTTL       = 5 * time.Second
	defaultSweepInterval = 1 * time.Second
)

type Config struct {
	ServerPort    string
	HoldTTL       time.Duration
	SweepInterval time.Duration
	LogLevel      slog.Level
}

// Load reads configuration from the environment, falling back to defaults.
// The hold TTL defaults to a window comparable to a client's request timeout
// so that abandoned authorizations free their funds shortly after the client
// has given up.
func Load() *Config {
	return &Config{
		ServerPort:    envString("SERVER_PORT", defaultServerPort),
		HoldTTL:       envDuration("HOLD_TTL", defaultHoldTTL),
		SweepInterval: envDuration("SWEEP_INTERVAL", defaultSweepInterval),
		LogLevel:      envLevel("LOG_LEVEL", slog.LevelInfo),
	}
}

func envString(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func envLevel(key string, fallback slog.Level) slog.Level {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(v)); err != nil {
		return fallback
	}
	return level
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
