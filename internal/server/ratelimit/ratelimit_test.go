package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type manualClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newLimiter(t *testing.T, cfg Config) (*memoryLimiter, *manualClock) {
	t.Helper()
	clock := &manualClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	l := NewMemoryLimiter(cfg, WithClock(clock.Now)).(*memoryLimiter)
	t.Cleanup(l.Stop)
	return l, clock
}

func TestMemoryLimiter_Allow(t *testing.T) {
	l, _ := newLimiter(t, Config{Enabled: true, Requests: 3, Window: time.Minute})

	for i := 0; i < 3; i++ {
		assert.True(t, l.Allow("10.0.0.1"), "request %d", i+1)
	}
	assert.False(t, l.Allow("10.0.0.1"))
	assert.True(t, l.Allow("10.0.0.2"), "keys are independent")
}

func TestMemoryLimiter_Refill(t *testing.T) {
	l, clock := newLimiter(t, Config{Enabled: true, Requests: 6, Window: time.Minute})

	for i := 0; i < 6; i++ {
		require.True(t, l.Allow("k"))
	}
	require.False(t, l.Allow("k"))

	// One token every 10s.
	clock.Advance(5 * time.Second)
	assert.False(t, l.Allow("k"))
	clock.Advance(5 * time.Second)
	assert.True(t, l.Allow("k"))
	assert.False(t, l.Allow("k"))

	// Refill is capped at capacity.
	clock.Advance(time.Hour)
	for i := 0; i < 6; i++ {
		assert.True(t, l.Allow("k"))
	}
	assert.False(t, l.Allow("k"))
}

func TestMemoryLimiter_DisabledAndReset(t *testing.T) {
	disabled, _ := newLimiter(t, Config{Enabled: false, Requests: 1, Window: time.Minute})
	for i := 0; i < 10; i++ {
		assert.True(t, disabled.Allow("k"))
	}

	l, _ := newLimiter(t, Config{Enabled: true, Requests: 1, Window: time.Minute})
	assert.True(t, l.Allow("k"))
	assert.False(t, l.Allow("k"))
	l.Reset("k")
	assert.True(t, l.Allow("k"))
}

func TestMemoryLimiter_RemoveStale(t *testing.T) {
	l, clock := newLimiter(t, Config{Enabled: true, Requests: 5, Window: time.Minute})
	l.Allow("old")
	clock.Advance(90 * time.Second)
	l.Allow("fresh")
	clock.Advance(45 * time.Second)

	assert.Equal(t, 1, l.removeStale(2*time.Minute))
	l.mu.Lock()
	_, hasOld := l.buckets["old"]
	_, hasFresh := l.buckets["fresh"]
	l.mu.Unlock()
	assert.False(t, hasOld)
	assert.True(t, hasFresh)
}

func TestMemoryLimiter_Concurrent(t *testing.T) {
	l, _ := newLimiter(t, Config{Enabled: true, Requests: 50, Window: time.Hour})

	var allowed atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if l.Allow("shared") {
				allowed.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int64(50), allowed.Load())
}

func TestMemoryLimiter_StopIsIdempotent(t *testing.T) {
	l := NewMemoryLimiter(DefaultConfig())
	l.Stop()
	assert.NotPanics(t, l.Stop)
}

func TestConfigs(t *testing.T) {
	assert.Equal(t, Config{Enabled: true, Requests: 600, Window: time.Minute}, DefaultConfig())
	assert.Less(t, SessionConfig().Requests, DefaultConfig().Requests)
}

func TestMiddleware(t *testing.T) {
	l, _ := newLimiter(t, Config{Enabled: true, Requests: 1, Window: time.Minute})
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	})
	handler := Middleware(l, 60, nil)(next)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/sessions", nil)
	req.RemoteAddr = "192.168.1.7:5555"

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusCreated, rr.Code)

	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.Equal(t, "60", rr.Header().Get("Retry-After"))

	custom := Middleware(l, 5, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})(next)
	rr = httptest.NewRecorder()
	custom.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	assert.Equal(t, "5", rr.Header().Get("Retry-After"))
}

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		headers    map[string]string
		want       string
	}{
		{"remote addr", "203.0.113.5:443", nil, "203.0.113.5"},
		{"remote addr without port", "203.0.113.5", nil, "203.0.113.5"},
		{"x-real-ip", "10.0.0.1:80", map[string]string{"X-Real-IP": " 198.51.100.2 "}, "198.51.100.2"},
		{"forwarded chain", "10.0.0.1:80", map[string]string{"X-Forwarded-For": "198.51.100.9, 10.0.0.3"}, "198.51.100.9"},
		{"forwarded wins", "10.0.0.1:80", map[string]string{"X-Forwarded-For": "198.51.100.9", "X-Real-IP": "198.51.100.2"}, "198.51.100.9"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, GetClientIP(req))
		})
	}
}
