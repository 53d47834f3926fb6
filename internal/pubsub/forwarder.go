package pubsub

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/tfecatalog/tfe-catalog/internal/catalog"
)

// publishTimeout bounds a single publish of the forwarder worker.
const publishTimeout = 5 * time.Second

// Notification is the payload published for every view event.
type Notification struct {
	SessionID string            `json:"session_id"`
	Kind      catalog.EventKind `json:"kind"`
	Snapshot  catalog.Snapshot  `json:"snapshot"`
}

type envelope struct {
	subject string
	data    []byte
}

// Forwarder turns view events into messages. Listeners only enqueue; a single
// worker publishes, so a slow bus never blocks a view loop. Events that do
// not fit in the queue are dropped.
type Forwarder struct {
	pub    Publisher
	queue  chan envelope
	done   chan struct{}
	wg     sync.WaitGroup
	once   sync.Once
	logger *slog.Logger
}

func NewForwarder(pub Publisher, bufSize int) *Forwarder {
	if bufSize <= 0 {
		bufSize = DefaultConfig().BufferSize
	}
	f := &Forwarder{
		pub:    pub,
		queue:  make(chan envelope, bufSize),
		done:   make(chan struct{}),
		logger: slog.Default().With("component", "event-forwarder"),
	}
	f.wg.Add(1)
	go f.run()
	return f
}

// Listener returns a view listener publishing under <prefix>.<sessionID>.<kind>.
func (f *Forwarder) Listener(sessionID string) catalog.Listener {
	return func(ev catalog.Event) {
		data, err := json.Marshal(Notification{SessionID: sessionID, Kind: ev.Kind, Snapshot: ev.Snapshot})
		if err != nil {
			f.logger.Warn("Failed to encode view event", "session", sessionID, "error", err)
			return
		}
		select {
		case f.queue <- envelope{subject: sessionID + "." + string(ev.Kind), data: data}:
		case <-f.done:
		default:
			f.logger.Warn("Event queue full, dropping view event", "session", sessionID, "kind", ev.Kind)
		}
	}
}

func (f *Forwarder) run() {
	defer f.wg.Done()
	for {
		select {
		case env := <-f.queue:
			f.publish(env)
		case <-f.done:
			// flush what is already queued
			for {
				select {
				case env := <-f.queue:
					f.publish(env)
				default:
					return
				}
			}
		}
	}
}

func (f *Forwarder) publish(env envelope) {
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	if err := f.pub.Publish(ctx, env.subject, env.data); err != nil {
		f.logger.Warn("Failed to publish view event", "subject", env.subject, "error", err)
	}
}

// Close stops the worker after flushing queued events. It does not close the publisher.
func (f *Forwarder) Close() error {
	f.once.Do(func() {
		close(f.done)
	})
	f.wg.Wait()
	return nil
}
