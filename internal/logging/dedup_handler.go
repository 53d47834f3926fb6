package logging

import (
	"context"
	"encoding/binary"
	"log/slog"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
)

// DefaultDedupWindow is used when NewDedupHandler gets a non-positive window.
const DefaultDedupWindow = time.Second

// DedupHandler collapses identical records logged within one window. The
// first occurrence is written at once; repeats are counted and written as a
// single record carrying repeated_count when the window closes.
type DedupHandler struct {
	next  slog.Handler
	scope uint64
	state *dedupState
}

type dedupState struct {
	mu     sync.Mutex
	window time.Duration
	now    func() time.Time
	open   map[uint64]*burst

	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

type burst struct {
	record  slog.Record
	handler slog.Handler
	opened  time.Time
	repeats int
}

// NewDedupHandler wraps next and starts the goroutine that closes expired
// windows. Close stops it.
func NewDedupHandler(next slog.Handler, window time.Duration) *DedupHandler {
	return newDedupHandler(next, window, time.Now, true)
}

func newDedupHandler(next slog.Handler, window time.Duration, now func() time.Time, run bool) *DedupHandler {
	if window <= 0 {
		window = DefaultDedupWindow
	}
	st := &dedupState{
		window: window,
		now:    now,
		open:   make(map[uint64]*burst),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	if run {
		go st.loop()
	} else {
		close(st.done)
	}
	return &DedupHandler{next: next, state: st}
}

func (h *DedupHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *DedupHandler) Handle(ctx context.Context, r slog.Record) error {
	key := h.key(r)
	st := h.state
	now := st.now()

	st.mu.Lock()
	b, ok := st.open[key]
	if ok && now.Sub(b.opened) < st.window {
		b.repeats++
		st.mu.Unlock()
		return nil
	}
	var expired *burst
	if ok && b.repeats > 0 {
		expired = b
	}
	st.open[key] = &burst{record: r.Clone(), handler: h.next, opened: now}
	st.mu.Unlock()

	if expired != nil {
		expired.flush()
	}
	return h.next.Handle(ctx, r)
}

func (h *DedupHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	d := xxhash.New()
	writeUint(d, h.scope)
	for _, a := range attrs {
		d.WriteString(a.String())
		d.WriteString("|")
	}
	return &DedupHandler{next: h.next.WithAttrs(attrs), scope: d.Sum64(), state: h.state}
}

func (h *DedupHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	d := xxhash.New()
	writeUint(d, h.scope)
	d.WriteString("group:" + name)
	return &DedupHandler{next: h.next.WithGroup(name), scope: d.Sum64(), state: h.state}
}

// Close stops the expiry goroutine and writes every pending repeat summary.
func (h *DedupHandler) Close() error {
	st := h.state
	st.stopOnce.Do(func() { close(st.stop) })
	<-st.done
	st.expire(time.Time{}, true)
	return nil
}

// key hashes everything except the timestamp.
func (h *DedupHandler) key(r slog.Record) uint64 {
	d := xxhash.New()
	writeUint(d, h.scope)
	d.WriteString(r.Level.String())
	d.WriteString("|")
	d.WriteString(r.Message)
	r.Attrs(func(a slog.Attr) bool {
		d.WriteString("|")
		d.WriteString(a.String())
		return true
	})
	return d.Sum64()
}

func (st *dedupState) loop() {
	defer close(st.done)
	ticker := time.NewTicker(st.window)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			st.expire(st.now(), false)
		case <-st.stop:
			return
		}
	}
}

// expire removes windows that closed before now, or all of them when all is
// set, and writes their summaries outside the lock.
func (st *dedupState) expire(now time.Time, all bool) {
	var due []*burst
	st.mu.Lock()
	for key, b := range st.open {
		if !all && now.Sub(b.opened) < st.window {
			continue
		}
		delete(st.open, key)
		if b.repeats > 0 {
			due = append(due, b)
		}
	}
	st.mu.Unlock()

	for _, b := range due {
		b.flush()
	}
}

func (b *burst) flush() {
	r := b.record.Clone()
	r.AddAttrs(slog.Int("repeated_count", b.repeats))
	_ = b.handler.Handle(context.Background(), r)
}

func writeUint(d *xxhash.Digest, v uint64) {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	d.Write(buf[:])
}
