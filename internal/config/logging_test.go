package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"gopkg.in/yaml.v3"
)

func TestLoggingConfig_YAML(t *testing.T) {
	data := `
level: debug
format: json
dir: /var/log/tfe-catalog
rotation:
  max_size: 50
  compress: false
console:
  enabled: false
dedup:
  window: 5s
`
	cfg := DefaultLoggingConfig()
	assert.NoError(t, yaml.Unmarshal([]byte(data), &cfg))

	assert.Equal(t, "debug", cfg.Level)
	assert.Equal(t, "/var/log/tfe-catalog", cfg.Dir)
	assert.Equal(t, 50, cfg.Rotation.MaxSize)
	assert.Equal(t, 10, cfg.Rotation.MaxBackups)
	assert.False(t, cfg.Rotation.Compress)
	assert.False(t, cfg.Console.Enabled)
	assert.True(t, cfg.Dedup.Enabled)
	assert.Equal(t, 5*time.Second, cfg.Dedup.Window)
}

func TestLoggingConfig_ApplyDefaultsInheritsTopLevel(t *testing.T) {
	cfg := LoggingConfig{Level: "warn", Format: "json", File: OutputConfig{Enabled: true, Level: "error"}}
	cfg.ApplyDefaults()

	assert.Equal(t, "warn", cfg.Console.Level)
	assert.Equal(t, "json", cfg.Console.Format)
	assert.Equal(t, "error", cfg.File.Level)
	assert.Equal(t, "json", cfg.File.Format)
	assert.Equal(t, "logs", cfg.Dir)
	assert.Equal(t, 100, cfg.Rotation.MaxSize)
	assert.Equal(t, time.Second, cfg.Dedup.Window)
	assert.False(t, cfg.Console.Enabled)
}

func TestLoggingConfig_ResolvePaths(t *testing.T) {
	tests := []struct {
		dir  string
		want string
	}{
		{"logs", filepath.Join("/app", "logs")},
		{"../shared/logs", filepath.Join("/app", "shared", "logs")},
		{"/var/log/tfe", "/var/log/tfe"},
	}
	for _, tt := range tests {
		cfg := LoggingConfig{Dir: tt.dir}
		cfg.ResolvePaths(filepath.Join("/app", "config"))
		assert.Equal(t, tt.want, cfg.Dir, tt.dir)
	}
}

func TestLoggingConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*LoggingConfig)
		wantErr string
	}{
		{"defaults", func(*LoggingConfig) {}, ""},
		{"bad level", func(c *LoggingConfig) { c.Level = "trace" }, "invalid log level"},
		{"bad format", func(c *LoggingConfig) { c.Format = "xml" }, "invalid log format"},
		{"empty dir", func(c *LoggingConfig) { c.Dir = "" }, "log directory"},
		{"bad console level", func(c *LoggingConfig) { c.Console.Level = "loud" }, "invalid console log level"},
		{"disabled file ignored", func(c *LoggingConfig) { c.File = OutputConfig{Enabled: false, Format: "xml"} }, ""},
		{"negative dedup window", func(c *LoggingConfig) { c.Dedup.Window = -time.Second }, "dedup.window"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultLoggingConfig()
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

func TestLoggingConfig_EnvOverride(t *testing.T) {
	t.Setenv("TFE_CATALOG_LOG_LEVEL", "Error")
	cfg := DefaultLoggingConfig()
	cfg.ApplyEnvOverrides()
	assert.Equal(t, "error", cfg.Level)
	assert.Equal(t, "error", cfg.File.Level)
}
