// Package session keeps one catalog view per browser session.
package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tfecatalog/tfe-catalog/internal/catalog"
	"github.com/tfecatalog/tfe-catalog/internal/metrics"
)

var (
	// ErrSessionNotFound is returned for unknown or evicted session ids.
	ErrSessionNotFound = errors.New("session not found")
	// ErrTooManySessions is returned by Create when max_sessions is reached.
	ErrTooManySessions = errors.New("too many sessions")
	// ErrManagerClosed is returned by Create after Close.
	ErrManagerClosed = errors.New("session manager closed")
)

// Session is a live view owned by the manager.
type Session struct {
	ID      string
	View    *catalog.View
	Created time.Time

	now func() time.Time

	mu       sync.Mutex
	lastSeen time.Time
	conns    int
}

// Touch marks the session as used at now.
func (s *Session) Touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

// MarkActive touches the session with the manager's clock.
func (s *Session) MarkActive() {
	s.Touch(s.clock())
}

// Attach records an open connection. A session with open connections is
// never idle.
func (s *Session) Attach() {
	now := s.clock()
	s.mu.Lock()
	s.conns++
	s.lastSeen = now
	s.mu.Unlock()
}

// Detach records a closed connection; the idle timeout restarts from now.
func (s *Session) Detach() {
	now := s.clock()
	s.mu.Lock()
	if s.conns > 0 {
		s.conns--
	}
	s.lastSeen = now
	s.mu.Unlock()
}

// Connections returns the number of attached connections.
func (s *Session) Connections() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conns
}

func (s *Session) clock() time.Time {
	if s.now == nil {
		return time.Now()
	}
	return s.now()
}

func (s *Session) idleSince(cutoff time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conns == 0 && s.lastSeen.Before(cutoff)
}

// LastSeen returns the time of the last Touch.
func (s *Session) LastSeen() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

// Option configures a Manager.
type Option func(*Manager)

// WithEventListener attaches a listener, built per session, to every new view.
func WithEventListener(factory func(sessionID string) catalog.Listener) Option {
	return func(m *Manager) {
		m.listeners = append(m.listeners, factory)
	}
}

// WithViewOptions passes extra options to every new view.
func WithViewOptions(opts ...catalog.Option) Option {
	return func(m *Manager) {
		m.viewOpts = append(m.viewOpts, opts...)
	}
}

// WithNow replaces the time source used for idle tracking.
func WithNow(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// Manager creates, looks up and evicts sessions.
type Manager struct {
	cfg        Config
	catalogCfg catalog.Config
	client     catalog.Client
	listeners  []func(string) catalog.Listener
	viewOpts   []catalog.Option
	now        func() time.Time
	logger     *slog.Logger

	mu       sync.RWMutex
	sessions map[string]*Session
	closed   bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewManager(cfg Config, catalogCfg catalog.Config, client catalog.Client, opts ...Option) *Manager {
	cfg.ApplyDefaults()
	ctx, cancel := context.WithCancel(context.Background())
	m := &Manager{
		cfg:        cfg,
		catalogCfg: catalogCfg,
		client:     client,
		now:        time.Now,
		logger:     slog.Default().With("component", "session-manager"),
		sessions:   make(map[string]*Session),
		ctx:        ctx,
		cancel:     cancel,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Create starts a new view and registers it under a fresh id.
func (m *Manager) Create() (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, ErrManagerClosed
	}
	if len(m.sessions) >= m.cfg.MaxSessions {
		return nil, ErrTooManySessions
	}

	id := uuid.NewString()
	opts := append([]catalog.Option{}, m.viewOpts...)
	opts = append(opts, catalog.WithLogger(m.logger.With("session", id)))
	for _, factory := range m.listeners {
		opts = append(opts, catalog.WithListener(factory(id)))
	}
	view := catalog.NewView(m.catalogCfg, m.client, opts...)
	if err := view.Start(m.ctx); err != nil {
		return nil, err
	}

	now := m.now()
	s := &Session{ID: id, View: view, Created: now, now: m.now, lastSeen: now}
	m.sessions[id] = s
	metrics.ActiveSessions.Inc()
	m.logger.Debug("Session created", "session", id)
	return s, nil
}

// Get returns the session and marks it as used.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	s.Touch(m.now())
	return s, nil
}

// Delete closes the session's view and forgets it.
func (m *Manager) Delete(id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	if ok {
		delete(m.sessions, id)
	}
	m.mu.Unlock()
	if !ok {
		return ErrSessionNotFound
	}
	metrics.ActiveSessions.Dec()
	m.logger.Debug("Session deleted", "session", id)
	return s.View.Close()
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Start runs the idle janitor until ctx is canceled or Close is called.
func (m *Manager) Start(ctx context.Context) {
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		ticker := time.NewTicker(m.cfg.JanitorInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-m.ctx.Done():
				return
			case <-ticker.C:
				if n := m.EvictIdle(); n > 0 {
					m.logger.Info("Evicted idle sessions", "count", n)
				}
			}
		}
	}()
}

// EvictIdle closes sessions without connections that were not used within the
// idle timeout and returns how many were removed.
func (m *Manager) EvictIdle() int {
	cutoff := m.now().Add(-m.cfg.IdleTimeout)
	var idle []*Session
	m.mu.Lock()
	for id, s := range m.sessions {
		if s.idleSince(cutoff) {
			idle = append(idle, s)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()

	for _, s := range idle {
		metrics.ActiveSessions.Dec()
		_ = s.View.Close()
	}
	return len(idle)
}

// Close stops the janitor and closes every view.
func (m *Manager) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	sessions := m.sessions
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	m.cancel()
	m.wg.Wait()
	for _, s := range sessions {
		metrics.ActiveSessions.Dec()
		_ = s.View.Close()
	}
}
