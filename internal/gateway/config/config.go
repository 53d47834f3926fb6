package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/tfecatalog/tfe-catalog/internal/server/ratelimit"
)

type GatewayConfig struct {
	RequestTimeout time.Duration  `yaml:"request_timeout"`
	Realtime       RealtimeConfig `yaml:"realtime"`

	// SessionRateLimit bounds session creation per client IP.
	SessionRateLimit ratelimit.Config `yaml:"session_rate_limit"`
}

type RealtimeConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
	AllowDevOrigin bool     `yaml:"allow_dev_origin"`
	// SendBuffer is the per-connection outbound queue length.
	SendBuffer int `yaml:"send_buffer"`
}

func DefaultGatewayConfig() GatewayConfig {
	return GatewayConfig{
		RequestTimeout: 30 * time.Second,
		Realtime: RealtimeConfig{
			AllowedOrigins: []string{"http://localhost:8080", "http://localhost:3000", "http://localhost:5173"},
			AllowDevOrigin: true,
			SendBuffer:     256,
		},
		SessionRateLimit: ratelimit.SessionConfig(),
	}
}

// ApplyDefaults fills in zero values with defaults.
func (g *GatewayConfig) ApplyDefaults() {
	defaults := DefaultGatewayConfig()
	if g.RequestTimeout == 0 {
		g.RequestTimeout = defaults.RequestTimeout
	}
	if len(g.Realtime.AllowedOrigins) == 0 {
		g.Realtime.AllowedOrigins = defaults.Realtime.AllowedOrigins
	}
	if g.Realtime.SendBuffer == 0 {
		g.Realtime.SendBuffer = defaults.Realtime.SendBuffer
	}
	if g.SessionRateLimit.Requests == 0 {
		g.SessionRateLimit.Requests = defaults.SessionRateLimit.Requests
	}
	if g.SessionRateLimit.Window == 0 {
		g.SessionRateLimit.Window = defaults.SessionRateLimit.Window
	}
}

// ApplyEnvOverrides applies environment variable overrides.
func (g *GatewayConfig) ApplyEnvOverrides() {
	if val := os.Getenv("GATEWAY_ALLOWED_ORIGINS"); val != "" {
		var origins []string
		for _, o := range strings.Split(val, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
		g.Realtime.AllowedOrigins = origins
	}
}

// ResolvePaths resolves relative paths using the given directory.
// No paths to resolve in gateway config.
func (g *GatewayConfig) ResolvePaths(_ string) { _ = g }

// Validate returns an error if the configuration is invalid.
func (g *GatewayConfig) Validate() error {
	if g.RequestTimeout <= 0 {
		return fmt.Errorf("gateway.request_timeout must be positive")
	}
	if g.Realtime.SendBuffer < 1 {
		return fmt.Errorf("gateway.realtime.send_buffer must be at least 1, got %d", g.Realtime.SendBuffer)
	}
	if g.SessionRateLimit.Enabled && (g.SessionRateLimit.Requests < 1 || g.SessionRateLimit.Window <= 0) {
		return fmt.Errorf("gateway.session_rate_limit requires positive requests and window")
	}
	return nil
}
