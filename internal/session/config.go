package session

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config bounds the number and lifetime of browsing sessions.
type Config struct {
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	MaxSessions     int           `yaml:"max_sessions"`
	JanitorInterval time.Duration `yaml:"janitor_interval"`
}

func DefaultConfig() Config {
	return Config{
		IdleTimeout:     15 * time.Minute,
		MaxSessions:     1000,
		JanitorInterval: time.Minute,
	}
}

// ApplyDefaults fills in zero values with defaults.
func (c *Config) ApplyDefaults() {
	defaults := DefaultConfig()
	if c.IdleTimeout == 0 {
		c.IdleTimeout = defaults.IdleTimeout
	}
	if c.MaxSessions == 0 {
		c.MaxSessions = defaults.MaxSessions
	}
	if c.JanitorInterval == 0 {
		c.JanitorInterval = defaults.JanitorInterval
	}
}

// ApplyEnvOverrides applies environment variable overrides.
func (c *Config) ApplyEnvOverrides() {
	if val := os.Getenv("TFE_CATALOG_MAX_SESSIONS"); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			c.MaxSessions = n
		}
	}
}

// ResolvePaths is a no-op, the session config has no paths.
func (c *Config) ResolvePaths(_ string) { _ = c }

// Validate returns an error if the configuration is invalid.
func (c *Config) Validate() error {
	if c.IdleTimeout <= 0 {
		return fmt.Errorf("session.idle_timeout must be positive")
	}
	if c.MaxSessions < 1 {
		return fmt.Errorf("session.max_sessions must be at least 1, got %d", c.MaxSessions)
	}
	if c.JanitorInterval <= 0 {
		return fmt.Errorf("session.janitor_interval must be positive")
	}
	return nil
}
