// Package config provides application configuration.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Port        string
	FrontendURL string
	DBPath      string // empty = in-memory store, nothing persisted
	Assistant   AssistantConfig
}

// AssistantConfig controls the local assistant provider.
type AssistantConfig struct {
	Enabled    bool
	ThinkPause time.Duration
	JitterMax  time.Duration
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		FrontendURL: getEnv("FRONTEND_URL", ""),
		DBPath:      getEnv("DB_PATH", "./data/chatpad.db"),
		Assistant: AssistantConfig{
			Enabled:    getEnvBool("ASSISTANT_ENABLED", true),
			ThinkPause: time.Duration(getEnvInt("ASSISTANT_THINK_PAUSE_MS", 800)) * time.Millisecond,
			JitterMax:  time.Duration(getEnvInt("ASSISTANT_JITTER_MAX_MS", 400)) * time.Millisecond,
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	if c.Assistant.ThinkPause < 0 || c.Assistant.JitterMax < 0 {
		return fmt.Errorf("assistant delays must not be negative")
	}
	return nil
}

// Ephemeral returns true when no database path is configured and data
// lives in memory only.
func (c *Config) Ephemeral() bool {
	return c.DBPath == ""
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.FrontendURL == "" ||
		strings.Contains(c.FrontendURL, "localhost") ||
		strings.Contains(c.FrontendURL, "127.0.0.1")
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}
