// Package pubsub publishes view transitions to a message bus.
package pubsub

import (
	"context"
	"fmt"
	"os"
	"time"
)

// Publisher publishes messages to a subject.
type Publisher interface {
	// Publish sends a message to the specified subject.
	Publish(ctx context.Context, subject string, data []byte) error

	// Close releases resources.
	Close() error
}

// Message is a delivered message.
type Message struct {
	Subject   string
	Data      []byte
	Timestamp time.Time
}

// PublisherOptions configures publisher behavior.
type PublisherOptions struct {
	// SubjectPrefix is prepended to all subjects.
	SubjectPrefix string

	// StreamName, when set, makes the NATS publisher use a JetStream stream
	// instead of core NATS.
	StreamName string

	// RetryAttempts is the number of retry attempts for JetStream publishing.
	RetryAttempts int

	// OnPublish is called after each publish attempt (for metrics).
	OnPublish func(subject string, err error, latency time.Duration)
}

// FullSubject joins prefix and subject with a dot.
func (o PublisherOptions) FullSubject(subject string) string {
	if o.SubjectPrefix == "" {
		return subject
	}
	return o.SubjectPrefix + "." + subject
}

// Config selects and configures the event bus.
type Config struct {
	// Backend is "memory", "nats" or "none".
	Backend       string `yaml:"backend"`
	NATSURL       string `yaml:"nats_url"`
	SubjectPrefix string `yaml:"subject_prefix"`
	StreamName    string `yaml:"stream_name"`
	RetryAttempts int    `yaml:"retry_attempts"`
	BufferSize    int    `yaml:"buffer_size"`
}

func DefaultConfig() Config {
	return Config{
		Backend:       "memory",
		NATSURL:       "nats://localhost:4222",
		SubjectPrefix: "tfecatalog.views",
		BufferSize:    256,
	}
}

// ApplyDefaults fills in zero values with defaults.
func (c *Config) ApplyDefaults() {
	d := DefaultConfig()
	if c.Backend == "" {
		c.Backend = d.Backend
	}
	if c.NATSURL == "" {
		c.NATSURL = d.NATSURL
	}
	if c.SubjectPrefix == "" {
		c.SubjectPrefix = d.SubjectPrefix
	}
	if c.BufferSize == 0 {
		c.BufferSize = d.BufferSize
	}
}

// ApplyEnvOverrides applies environment variable overrides.
func (c *Config) ApplyEnvOverrides() {
	if val := os.Getenv("NATS_URL"); val != "" {
		c.NATSURL = val
	}
}

// ResolvePaths is a no-op, the pubsub config has no paths.
func (c *Config) ResolvePaths(_ string) { _ = c }

// Validate returns an error if the configuration is invalid.
func (c *Config) Validate() error {
	switch c.Backend {
	case "memory", "nats", "none":
	default:
		return fmt.Errorf("pubsub.backend must be memory, nats or none, got %q", c.Backend)
	}
	if c.BufferSize < 1 {
		return fmt.Errorf("pubsub.buffer_size must be positive")
	}
	if c.RetryAttempts < 0 {
		return fmt.Errorf("pubsub.retry_attempts must not be negative")
	}
	return nil
}

// Options derives publisher options from the config.
func (c Config) Options() PublisherOptions {
	return PublisherOptions{
		SubjectPrefix: c.SubjectPrefix,
		StreamName:    c.StreamName,
		RetryAttempts: c.RetryAttempts,
	}
}
