package catalog

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// DefaultFilterKeys is the facet vocabulary of the catalog UI.
var DefaultFilterKeys = []string{"name", "provider-type", "created-at", "updated-at", "module", "provider"}

// Config holds the fixed view-model settings. They are read once when a View is built.
type Config struct {
	FilterKeys     []string      `yaml:"filter_keys"`
	PageSize       int           `yaml:"page_size"`
	SearchDebounce time.Duration `yaml:"search_debounce"`
}

func DefaultConfig() Config {
	return Config{
		FilterKeys:     append([]string(nil), DefaultFilterKeys...),
		PageSize:       20,
		SearchDebounce: 400 * time.Millisecond,
	}
}

// ApplyDefaults fills in zero values with defaults.
func (c *Config) ApplyDefaults() {
	defaults := DefaultConfig()
	if len(c.FilterKeys) == 0 {
		c.FilterKeys = defaults.FilterKeys
	}
	if c.PageSize == 0 {
		c.PageSize = defaults.PageSize
	}
	if c.SearchDebounce == 0 {
		c.SearchDebounce = defaults.SearchDebounce
	}
}

// ApplyEnvOverrides applies environment variable overrides.
func (c *Config) ApplyEnvOverrides() {
	if val := os.Getenv("CATALOG_PAGE_SIZE"); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			c.PageSize = n
		}
	}
	if val := os.Getenv("CATALOG_FILTER_KEYS"); val != "" {
		var keys []string
		for _, k := range strings.Split(val, ",") {
			if k = strings.TrimSpace(k); k != "" {
				keys = append(keys, k)
			}
		}
		if len(keys) > 0 {
			c.FilterKeys = keys
		}
	}
}

// ResolvePaths is a no-op, the catalog config has no paths.
func (c *Config) ResolvePaths(_ string) { _ = c }

// Validate returns an error if the configuration is invalid.
func (c *Config) Validate() error {
	if c.PageSize < 1 || c.PageSize > 100 {
		return fmt.Errorf("catalog.page_size must be between 1 and 100, got %d", c.PageSize)
	}
	if c.SearchDebounce < 0 {
		return fmt.Errorf("catalog.search_debounce must not be negative")
	}
	seen := make(map[string]struct{}, len(c.FilterKeys))
	for _, k := range c.FilterKeys {
		if k == "" {
			return fmt.Errorf("catalog.filter_keys must not contain empty keys")
		}
		if _, dup := seen[k]; dup {
			return fmt.Errorf("catalog.filter_keys contains duplicate key %q", k)
		}
		seen[k] = struct{}{}
	}
	return nil
}
