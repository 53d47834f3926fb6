package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, dir, name, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
}

func TestLoadConfig_Defaults(t *testing.T) {
	dir := t.TempDir()

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.HTTPPort)
	assert.Equal(t, 20, cfg.Catalog.PageSize)
	assert.Equal(t, 400*time.Millisecond, cfg.Catalog.SearchDebounce)
	assert.Equal(t, "http://localhost:8000/api/v2", cfg.TFE.BaseURL)
	assert.False(t, cfg.Cache.Enabled)
	assert.Equal(t, "memory", cfg.PubSub.Backend)
	assert.Equal(t, 1000, cfg.Session.MaxSessions)
	assert.True(t, cfg.Gateway.SessionRateLimit.Enabled)
	assert.Equal(t, filepath.Join(filepath.Dir(dir), "logs"), cfg.Logging.Dir)
	assert.Equal(t, filepath.Join(dir, "data.json"), cfg.Mock.DataFile)
}

func TestLoadConfig_LocalOverridesMain(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "config.yml", `
server:
  http_port: 9000
catalog:
  page_size: 50
  filter_keys: [provider-type, module]
tfe:
  organization: acme
cache:
  enabled: true
  backend: redis
logging:
  console:
    enabled: false
`)
	writeConfig(t, dir, "config.local.yml", `
server:
  http_port: 9100
`)

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)

	assert.Equal(t, 9100, cfg.Server.HTTPPort)
	assert.Equal(t, 50, cfg.Catalog.PageSize)
	assert.Equal(t, []string{"provider-type", "module"}, cfg.Catalog.FilterKeys)
	assert.Equal(t, "acme", cfg.TFE.Organization)
	assert.True(t, cfg.Cache.Enabled)
	assert.Equal(t, "redis", cfg.Cache.Backend)
	assert.False(t, cfg.Logging.Console.Enabled)
	assert.True(t, cfg.Logging.File.Enabled, "sections not named in the file keep their defaults")
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("TFE_BASE_URL", "https://tfe.example.com/api/v2")
	t.Setenv("TFE_TOKEN", "secret")
	t.Setenv("CATALOG_PAGE_SIZE", "10")
	t.Setenv("CATALOG_FILTER_KEYS", "name, provider")
	t.Setenv("REDIS_URL", "redis://cache:6379/1")
	t.Setenv("NATS_URL", "nats://bus:4222")
	t.Setenv("TFE_CATALOG_HTTP_PORT", "8181")
	t.Setenv("TFE_CATALOG_LOG_LEVEL", "DEBUG")

	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "https://tfe.example.com/api/v2", cfg.TFE.BaseURL)
	assert.Equal(t, "secret", cfg.TFE.Token)
	assert.Equal(t, 10, cfg.Catalog.PageSize)
	assert.Equal(t, []string{"name", "provider"}, cfg.Catalog.FilterKeys)
	assert.Equal(t, "redis://cache:6379/1", cfg.Cache.RedisURL)
	assert.Equal(t, "nats://bus:4222", cfg.PubSub.NATSURL)
	assert.Equal(t, 8181, cfg.Server.HTTPPort)
	assert.Equal(t, "debug", cfg.Logging.Console.Level)
}

func TestLoadConfig_Errors(t *testing.T) {
	t.Run("malformed yaml", func(t *testing.T) {
		dir := t.TempDir()
		writeConfig(t, dir, "config.yml", "server: [unclosed")
		_, err := LoadConfig(dir)
		assert.ErrorContains(t, err, "failed to parse")
	})

	t.Run("invalid section", func(t *testing.T) {
		dir := t.TempDir()
		writeConfig(t, dir, "config.yml", "catalog:\n  page_size: 500\n")
		_, err := LoadConfig(dir)
		assert.ErrorContains(t, err, "catalog.page_size")
	})

	t.Run("unreadable file", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.Mkdir(filepath.Join(dir, "config.yml"), 0o755))
		_, err := LoadConfig(dir)
		assert.ErrorContains(t, err, "failed to read")
	})
}

type recordingSection struct {
	calls []string
	err   error
}

func (r *recordingSection) ApplyDefaults()      { r.calls = append(r.calls, "defaults") }
func (r *recordingSection) ApplyEnvOverrides()  { r.calls = append(r.calls, "env") }
func (r *recordingSection) ResolvePaths(string) { r.calls = append(r.calls, "paths") }
func (r *recordingSection) Validate() error {
	r.calls = append(r.calls, "validate")
	return r.err
}

func TestApplyServiceConfigs_OrderAndStop(t *testing.T) {
	first := &recordingSection{err: assert.AnError}
	second := &recordingSection{}

	err := ApplyServiceConfigs("config", first, second)
	assert.ErrorIs(t, err, assert.AnError)
	assert.Equal(t, []string{"defaults", "env", "paths", "validate"}, first.calls)
	assert.Empty(t, second.calls)
}
