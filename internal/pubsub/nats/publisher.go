// Package nats publishes messages over NATS, optionally through JetStream.
package nats

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/tfecatalog/tfe-catalog/internal/pubsub"
)

// Conn is the subset of *nats.Conn the publisher uses.
type Conn interface {
	Publish(subject string, data []byte) error
	Drain() error
	Close()
}

// JetStream is the subset of jetstream.JetStream the publisher uses.
type JetStream interface {
	CreateOrUpdateStream(ctx context.Context, cfg jetstream.StreamConfig) (jetstream.Stream, error)
	Publish(ctx context.Context, subject string, data []byte, opts ...jetstream.PublishOpt) (*jetstream.PubAck, error)
}

// natsConnect is swapped in tests.
var natsConnect = func(url string) (*nats.Conn, error) {
	return nats.Connect(url, nats.Name("tfe-catalog"), nats.MaxReconnects(-1))
}

// jetStreamNew is swapped in tests.
var jetStreamNew = func(nc *nats.Conn) (JetStream, error) {
	return jetstream.New(nc)
}

// Publisher implements pubsub.Publisher on core NATS, or on JetStream when a
// stream name is configured.
type Publisher struct {
	conn Conn
	js   JetStream
	opts pubsub.PublisherOptions
}

// Connect dials url and builds a publisher for opts.
func Connect(ctx context.Context, url string, opts pubsub.PublisherOptions) (*Publisher, error) {
	nc, err := natsConnect(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS at %s: %w", url, err)
	}
	var js JetStream
	if opts.StreamName != "" {
		js, err = jetStreamNew(nc)
		if err != nil {
			nc.Close()
			return nil, fmt.Errorf("failed to create JetStream: %w", err)
		}
	}
	p, err := NewPublisher(ctx, nc, js, opts)
	if err != nil {
		nc.Close()
		return nil, err
	}
	slog.Info("Connected to NATS", "url", url, "jetstream", js != nil)
	return p, nil
}

// NewPublisher wraps an established connection. js may be nil for core NATS.
func NewPublisher(ctx context.Context, conn Conn, js JetStream, opts pubsub.PublisherOptions) (*Publisher, error) {
	if conn == nil {
		return nil, fmt.Errorf("nats connection cannot be nil")
	}
	if js != nil && opts.StreamName != "" {
		subjects := []string{opts.StreamName + ".>"}
		if opts.SubjectPrefix != "" && opts.SubjectPrefix != opts.StreamName {
			subjects = []string{opts.SubjectPrefix + ".>"}
		}
		_, err := js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
			Name:     opts.StreamName,
			Subjects: subjects,
			Storage:  jetstream.MemoryStorage,
			MaxAge:   time.Hour,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to ensure stream: %w", err)
		}
	}
	return &Publisher{conn: conn, js: js, opts: opts}, nil
}

// Publish sends a message to the specified subject.
func (p *Publisher) Publish(ctx context.Context, subject string, data []byte) error {
	start := time.Now()
	full := p.opts.FullSubject(subject)

	var err error
	if p.js != nil {
		var publishOpts []jetstream.PublishOpt
		if p.opts.RetryAttempts > 0 {
			publishOpts = append(publishOpts, jetstream.WithRetryAttempts(p.opts.RetryAttempts))
		}
		_, err = p.js.Publish(ctx, full, data, publishOpts...)
	} else {
		err = p.conn.Publish(full, data)
	}

	if p.opts.OnPublish != nil {
		p.opts.OnPublish(full, err, time.Since(start))
	}
	if err != nil {
		return fmt.Errorf("failed to publish to %s: %w", full, err)
	}
	return nil
}

// Close drains the connection.
func (p *Publisher) Close() error {
	if err := p.conn.Drain(); err != nil {
		p.conn.Close()
		return err
	}
	return nil
}

var _ pubsub.Publisher = (*Publisher)(nil)
