package server

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "localhost", cfg.Host)
	assert.Equal(t, 8080, cfg.HTTPPort)
	assert.Equal(t, 45*time.Second, cfg.HTTPWriteTimeout)
	assert.False(t, cfg.RateLimit.Enabled)
	assert.Equal(t, 600, cfg.RateLimit.Requests)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
}

func TestConfig_ApplyDefaults(t *testing.T) {
	cfg := Config{HTTPPort: 9090, AllowedMethods: []string{"GET"}}
	cfg.ApplyDefaults()

	assert.Equal(t, 9090, cfg.HTTPPort)
	assert.Equal(t, []string{"GET"}, cfg.AllowedMethods)
	assert.Equal(t, "localhost", cfg.Host)
	assert.Equal(t, 10*time.Second, cfg.HTTPReadTimeout)
	assert.Equal(t, 3600, cfg.CORSMaxAge)
	assert.Equal(t, time.Minute, cfg.RateLimit.Window)
}

func TestConfig_ApplyEnvOverrides(t *testing.T) {
	cfg := DefaultConfig()
	t.Setenv("TFE_CATALOG_HTTP_PORT", "9191")
	cfg.ApplyEnvOverrides()
	assert.Equal(t, 9191, cfg.HTTPPort)

	t.Setenv("TFE_CATALOG_HTTP_PORT", "not-a-port")
	cfg.ApplyEnvOverrides()
	assert.Equal(t, 9191, cfg.HTTPPort)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults", func(*Config) {}, ""},
		{"ephemeral port", func(c *Config) { c.HTTPPort = 0 }, ""},
		{"port too large", func(c *Config) { c.HTTPPort = 70000 }, "server.http_port"},
		{"negative port", func(c *Config) { c.HTTPPort = -1 }, "server.http_port"},
		{"rate limit without requests", func(c *Config) {
			c.RateLimit = RateLimitConfig{Enabled: true, Requests: 0, Window: time.Minute}
		}, "server.rate_limit"},
		{"disabled rate limit ignores values", func(c *Config) {
			c.RateLimit = RateLimitConfig{Enabled: false}
		}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				assert.ErrorContains(t, err, tt.wantErr)
			}
		})
	}
}

func TestConfig_ResolvePaths(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ResolvePaths("/etc/tfe-catalog")
	assert.Equal(t, DefaultConfig(), cfg)
}
