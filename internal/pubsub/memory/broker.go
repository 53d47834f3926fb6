// Package memory provides an in-process pubsub implementation.
package memory

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tfecatalog/tfe-catalog/internal/pubsub"
)

var (
	// ErrBrokerClosed is returned when operating on a closed broker.
	ErrBrokerClosed = errors.New("broker is closed")
)

type subscription struct {
	pattern string
	ch      chan pubsub.Message
	ctx     context.Context
	cancel  context.CancelFunc
}

// Broker routes published messages to local subscribers. It implements
// pubsub.Publisher.
type Broker struct {
	opts   pubsub.PublisherOptions
	root   context.Context
	stop   context.CancelFunc
	mu     sync.RWMutex
	subs   map[uint64]*subscription
	nextID uint64
	closed atomic.Bool
}

func NewBroker(opts pubsub.PublisherOptions) *Broker {
	root, stop := context.WithCancel(context.Background())
	return &Broker{opts: opts, root: root, stop: stop, subs: make(map[uint64]*subscription)}
}

// Publish delivers data to every subscription whose pattern matches. It blocks
// while a matching subscriber's buffer is full, until ctx is done.
func (b *Broker) Publish(ctx context.Context, subject string, data []byte) error {
	if b.closed.Load() {
		return ErrBrokerClosed
	}
	start := time.Now()
	full := b.opts.FullSubject(subject)

	err := b.deliver(ctx, full, data)
	if b.opts.OnPublish != nil {
		b.opts.OnPublish(full, err, time.Since(start))
	}
	return err
}

func (b *Broker) deliver(ctx context.Context, subject string, data []byte) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	msg := pubsub.Message{Subject: subject, Data: data, Timestamp: time.Now()}
	for _, sub := range b.subs {
		if !MatchSubject(sub.pattern, subject) {
			continue
		}
		select {
		case sub.ch <- msg:
		case <-sub.ctx.Done():
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// Subscribe returns a channel of messages matching pattern and a function that
// ends the subscription. The channel is closed when the subscription ends,
// ctx is canceled or the broker is closed.
func (b *Broker) Subscribe(ctx context.Context, pattern string, bufSize int) (<-chan pubsub.Message, func(), error) {
	if b.closed.Load() {
		return nil, nil, ErrBrokerClosed
	}
	if bufSize <= 0 {
		bufSize = 16
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	id := b.nextID
	subCtx, cancel := context.WithCancel(ctx)
	sub := &subscription{pattern: pattern, ch: make(chan pubsub.Message, bufSize), ctx: subCtx, cancel: cancel}
	b.subs[id] = sub
	context.AfterFunc(b.root, cancel)

	// cancel first: a Publish blocked on this subscriber holds the read lock
	unsubscribe := func() {
		cancel()
		b.remove(id)
	}
	go func() {
		<-subCtx.Done()
		b.remove(id)
	}()
	return sub.ch, unsubscribe, nil
}

func (b *Broker) remove(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	sub, ok := b.subs[id]
	if !ok {
		return
	}
	delete(b.subs, id)
	sub.cancel()
	close(sub.ch)
}

// Close ends all subscriptions. Their channels close asynchronously.
func (b *Broker) Close() error {
	if b.closed.Swap(true) {
		return nil
	}
	b.stop()
	return nil
}

// MatchSubject reports whether subject matches a NATS-style pattern, where
// "*" matches one token and a trailing ">" matches one or more.
func MatchSubject(pattern, subject string) bool {
	if pattern == "" || subject == "" {
		return false
	}
	want := strings.Split(pattern, ".")
	got := strings.Split(subject, ".")
	for i, tok := range want {
		if tok == ">" {
			return i < len(got)
		}
		if i >= len(got) || (tok != "*" && tok != got[i]) {
			return false
		}
	}
	return len(want) == len(got)
}

var _ pubsub.Publisher = (*Broker)(nil)
