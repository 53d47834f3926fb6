// Package config assembles the per-package config sections into one
// document loaded from config.yml and config.local.yml.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/tfecatalog/tfe-catalog/internal/cache"
	"github.com/tfecatalog/tfe-catalog/internal/catalog"
	gateway "github.com/tfecatalog/tfe-catalog/internal/gateway/config"
	"github.com/tfecatalog/tfe-catalog/internal/mock"
	"github.com/tfecatalog/tfe-catalog/internal/pubsub"
	"github.com/tfecatalog/tfe-catalog/internal/server"
	"github.com/tfecatalog/tfe-catalog/internal/session"
	"github.com/tfecatalog/tfe-catalog/internal/tfe"
)

// DefaultConfigDir is where the binaries look for config files.
const DefaultConfigDir = "config"

// Config holds the application configuration
type Config struct {
	Server  server.Config         `yaml:"server"`
	Logging LoggingConfig         `yaml:"logging"`
	Gateway gateway.GatewayConfig `yaml:"gateway"`

	// Browsing
	TFE     tfe.Config     `yaml:"tfe"`
	Catalog catalog.Config `yaml:"catalog"`
	Session session.Config `yaml:"session"`

	// Components
	Cache  cache.Config  `yaml:"cache"`
	PubSub pubsub.Config `yaml:"pubsub"`

	// Mock is only read by tfe-mock.
	Mock mock.Config `yaml:"mock"`
}

// Default returns every section at its defaults.
func Default() *Config {
	return &Config{
		Server:  server.DefaultConfig(),
		Logging: DefaultLoggingConfig(),
		Gateway: gateway.DefaultGatewayConfig(),
		TFE:     tfe.DefaultConfig(),
		Catalog: catalog.DefaultConfig(),
		Session: session.DefaultConfig(),
		Cache:   cache.DefaultConfig(),
		PubSub:  pubsub.DefaultConfig(),
		Mock:    mock.DefaultConfig(),
	}
}

// LoadConfig loads configuration from configDir.
// Order: defaults -> config.yml -> config.local.yml -> ApplyDefaults ->
// ApplyEnvOverrides -> ResolvePaths -> Validate.
// Missing files are skipped; unreadable or malformed files are errors.
func LoadConfig(configDir string) (*Config, error) {
	// Start from defaults so YAML can override them, including bool fields.
	cfg := Default()

	for _, name := range []string{"config.yml", "config.local.yml"} {
		if err := loadFile(filepath.Join(configDir, name), cfg); err != nil {
			return nil, err
		}
	}

	if err := ApplyServiceConfigs(configDir, cfg.Sections()...); err != nil {
		return nil, fmt.Errorf("configuration error: %w", err)
	}
	return cfg, nil
}

// Sections lists the sections in lifecycle order.
func (c *Config) Sections() []ServiceConfig {
	return []ServiceConfig{
		&c.Server,
		&c.Logging,
		&c.Gateway,
		&c.TFE,
		&c.Catalog,
		&c.Session,
		&c.Cache,
		&c.PubSub,
		&c.Mock,
	}
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return nil
}
