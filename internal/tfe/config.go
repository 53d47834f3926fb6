package tfe

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"
)

// Config holds the TFE API connection settings.
type Config struct {
	BaseURL      string        `yaml:"base_url"`
	Token        string        `yaml:"token"`
	Organization string        `yaml:"organization"`
	Timeout      time.Duration `yaml:"timeout"`
	// SearchPageSize bounds the workspace list returned for one query.
	SearchPageSize int `yaml:"search_page_size"`
}

func DefaultConfig() Config {
	return Config{
		BaseURL:        "http://localhost:8000/api/v2",
		Organization:   "example-org",
		Timeout:        10 * time.Second,
		SearchPageSize: 100,
	}
}

// ApplyDefaults fills in zero values with defaults.
func (c *Config) ApplyDefaults() {
	defaults := DefaultConfig()
	if c.BaseURL == "" {
		c.BaseURL = defaults.BaseURL
	}
	if c.Organization == "" {
		c.Organization = defaults.Organization
	}
	if c.Timeout == 0 {
		c.Timeout = defaults.Timeout
	}
	if c.SearchPageSize == 0 {
		c.SearchPageSize = defaults.SearchPageSize
	}
}

// ApplyEnvOverrides applies environment variable overrides.
func (c *Config) ApplyEnvOverrides() {
	if val := os.Getenv("TFE_BASE_URL"); val != "" {
		c.BaseURL = val
	}
	if val := os.Getenv("TFE_TOKEN"); val != "" {
		c.Token = val
	}
	if val := os.Getenv("TFE_ORGANIZATION"); val != "" {
		c.Organization = val
	}
}

// ResolvePaths is a no-op, the TFE config has no paths.
func (c *Config) ResolvePaths(_ string) { _ = c }

// Validate returns an error if the configuration is invalid.
func (c *Config) Validate() error {
	u, err := url.Parse(c.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("tfe.base_url must be an absolute URL, got %q", c.BaseURL)
	}
	if strings.TrimSpace(c.Organization) == "" {
		return fmt.Errorf("tfe.organization is required")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("tfe.timeout must be positive")
	}
	if c.SearchPageSize < 1 || c.SearchPageSize > 100 {
		return fmt.Errorf("tfe.search_page_size must be between 1 and 100, got %d", c.SearchPageSize)
	}
	return nil
}
