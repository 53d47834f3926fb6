package cache

import (
	"fmt"
	"os"
	"time"
)

// Config controls the response cache in front of the TFE client.
type Config struct {
	Enabled bool `yaml:"enabled"`
	// Backend is "memory" or "redis".
	Backend       string        `yaml:"backend"`
	RedisURL      string        `yaml:"redis_url"`
	RedisPassword string        `yaml:"redis_password"`
	TTL           time.Duration `yaml:"ttl"`
	KeyPrefix     string        `yaml:"key_prefix"`
}

func DefaultConfig() Config {
	return Config{
		Enabled:   false,
		Backend:   "memory",
		RedisURL:  "redis://localhost:6379/0",
		TTL:       30 * time.Second,
		KeyPrefix: "tfecatalog:",
	}
}

// ApplyDefaults fills in zero values with defaults.
func (c *Config) ApplyDefaults() {
	d := DefaultConfig()
	if c.Backend == "" {
		c.Backend = d.Backend
	}
	if c.RedisURL == "" {
		c.RedisURL = d.RedisURL
	}
	if c.TTL == 0 {
		c.TTL = d.TTL
	}
	if c.KeyPrefix == "" {
		c.KeyPrefix = d.KeyPrefix
	}
}

// ApplyEnvOverrides applies environment variable overrides.
func (c *Config) ApplyEnvOverrides() {
	if val := os.Getenv("REDIS_URL"); val != "" {
		c.RedisURL = val
	}
	if val := os.Getenv("REDIS_PASSWORD"); val != "" {
		c.RedisPassword = val
	}
}

// ResolvePaths is a no-op, the cache config has no paths.
func (c *Config) ResolvePaths(_ string) { _ = c }

// Validate returns an error if the configuration is invalid.
func (c *Config) Validate() error {
	if c.Backend != "memory" && c.Backend != "redis" {
		return fmt.Errorf("cache.backend must be memory or redis, got %q", c.Backend)
	}
	if c.TTL < 0 {
		return fmt.Errorf("cache.ttl must not be negative")
	}
	return nil
}
