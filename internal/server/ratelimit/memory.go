package ratelimit

import (
	"sync"
	"time"
)

// memoryLimiter is an in-process token bucket limiter. Each key holds a
// bucket of Requests tokens refilled at Requests/Window per second.
type memoryLimiter struct {
	mu      sync.Mutex
	buckets map[string]*tokenBucket
	config  Config
	now     func() time.Time

	stopCh   chan struct{}
	stopOnce sync.Once
}

type tokenBucket struct {
	tokens     float64
	lastUpdate time.Time
}

// Option configures a memory limiter.
type Option func(*memoryLimiter)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(l *memoryLimiter) {
		if now != nil {
			l.now = now
		}
	}
}

// NewMemoryLimiter creates an in-memory limiter. Buckets idle for two
// windows are dropped by a background sweep until Stop is called.
func NewMemoryLimiter(cfg Config, opts ...Option) Stoppable {
	l := &memoryLimiter{
		buckets: make(map[string]*tokenBucket),
		config:  cfg,
		now:     time.Now,
		stopCh:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(l)
	}
	if cfg.Enabled && cfg.Window > 0 {
		go l.sweep(cfg.Window * 2)
	}
	return l
}

func (l *memoryLimiter) Allow(key string) bool {
	if !l.config.Enabled {
		return true
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	capacity := float64(l.config.Requests)

	b, ok := l.buckets[key]
	if !ok {
		l.buckets[key] = &tokenBucket{tokens: capacity - 1, lastUpdate: now}
		return capacity >= 1
	}

	rate := capacity / l.config.Window.Seconds()
	b.tokens = min(capacity, b.tokens+now.Sub(b.lastUpdate).Seconds()*rate)
	b.lastUpdate = now

	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}

func (l *memoryLimiter) Reset(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.buckets, key)
}

func (l *memoryLimiter) sweep(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			l.removeStale(every)
		case <-l.stopCh:
			return
		}
	}
}

// removeStale drops buckets not touched within idle; they would be full again anyway.
func (l *memoryLimiter) removeStale(idle time.Duration) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	removed := 0
	for key, b := range l.buckets {
		if now.Sub(b.lastUpdate) > idle {
			delete(l.buckets, key)
			removed++
		}
	}
	return removed
}

func (l *memoryLimiter) Stop() {
	l.stopOnce.Do(func() { close(l.stopCh) })
}
