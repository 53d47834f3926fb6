// Package ratelimit limits requests per client key with a token bucket.
package ratelimit

import (
	"time"
)

// Limiter decides whether a request for key may proceed.
type Limiter interface {
	// Allow consumes one token for key and reports whether one was available.
	Allow(key string) bool

	// Reset forgets key's bucket.
	Reset(key string)
}

// Stoppable extends Limiter with a Stop method for cleanup.
type Stoppable interface {
	Limiter
	Stop()
}

// Config holds the configuration for rate limiting.
type Config struct {
	// Enabled controls whether rate limiting is active.
	Enabled bool `yaml:"enabled"`

	// Requests is the bucket capacity, refilled evenly over Window.
	Requests int `yaml:"requests"`

	// Window is the duration of the rate limiting window.
	Window time.Duration `yaml:"window"`
}

// DefaultConfig returns the limit applied to all API requests.
func DefaultConfig() Config {
	return Config{
		Enabled:  true,
		Requests: 600,
		Window:   time.Minute,
	}
}

// SessionConfig returns the stricter limit for opening browsing sessions,
// each of which owns a live view and its goroutines.
func SessionConfig() Config {
	return Config{
		Enabled:  true,
		Requests: 20,
		Window:   time.Minute,
	}
}
