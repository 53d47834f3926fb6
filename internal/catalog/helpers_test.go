package catalog

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tfecatalog/tfe-catalog/pkg/model"
)

// fakeClock fires timers only when advanced.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Duration
	timers []*fakeTimer
}

type fakeTimer struct {
	clock   *fakeClock
	at      time.Duration
	f       func()
	stopped bool
	fired   bool
}

func newFakeClock() *fakeClock { return &fakeClock{} }

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{clock: c, at: c.now + d, f: f}
	c.timers = append(c.timers, t)
	return t
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

// Advance moves time forward and runs every timer that became due.
func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now += d
	var due []*fakeTimer
	for _, t := range c.timers {
		if !t.stopped && !t.fired && t.at <= c.now {
			t.fired = true
			due = append(due, t)
		}
	}
	c.mu.Unlock()

	for _, t := range due {
		t.f()
	}
}

// Active counts timers that have neither fired nor been stopped.
func (c *fakeClock) Active() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, t := range c.timers {
		if !t.stopped && !t.fired {
			n++
		}
	}
	return n
}

// fakeClient serves canned workspaces and pages. Calls can be held on a gate
// until the test releases them.
type fakeClient struct {
	mu         sync.Mutex
	workspaces []model.Workspace
	pages      map[string][]model.ResourcePage
	searchErr  error
	listErr    error

	searches []string
	lists    []FetchRequest

	searchGates map[string]chan struct{}
	listGates   map[FetchRequest]chan struct{}
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		pages:       make(map[string][]model.ResourcePage),
		searchGates: make(map[string]chan struct{}),
		listGates:   make(map[FetchRequest]chan struct{}),
	}
}

func (c *fakeClient) SearchWorkspaces(ctx context.Context, query string) ([]model.Workspace, error) {
	c.mu.Lock()
	c.searches = append(c.searches, query)
	gate := c.searchGates[query]
	err := c.searchErr
	all := c.workspaces
	c.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	out := []model.Workspace{}
	for _, ws := range all {
		if strings.Contains(ws.Name, query) {
			out = append(out, ws)
		}
	}
	return out, nil
}

func (c *fakeClient) ListResources(ctx context.Context, workspaceID string, page, pageSize int) (model.ResourcePage, error) {
	req := FetchRequest{WorkspaceID: workspaceID, Page: page}
	c.mu.Lock()
	c.lists = append(c.lists, req)
	gate := c.listGates[req]
	err := c.listErr
	pages := c.pages[workspaceID]
	c.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return model.ResourcePage{}, ctx.Err()
		}
	}
	if err != nil {
		return model.ResourcePage{}, err
	}
	if pages == nil {
		return model.ResourcePage{}, model.ErrNotFound
	}
	if page < 1 || page > len(pages) {
		return model.ResourcePage{}, fmt.Errorf("page %d: %w", page, model.ErrInvalidArgument)
	}
	return pages[page-1], nil
}

func (c *fakeClient) holdSearch(query string) chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	gate := make(chan struct{})
	c.searchGates[query] = gate
	return gate
}

func (c *fakeClient) holdList(req FetchRequest) chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	gate := make(chan struct{})
	c.listGates[req] = gate
	return gate
}

func (c *fakeClient) setSearchErr(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.searchErr = err
}

func (c *fakeClient) setListErr(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listErr = err
}

func (c *fakeClient) searchCalls() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.searches...)
}

func (c *fakeClient) listCalls() []FetchRequest {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]FetchRequest(nil), c.lists...)
}

// addWorkspace registers a workspace whose resources are split into pages of pageSize.
func (c *fakeClient) addWorkspace(id, name string, pageSize int, resources ...model.Resource) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.workspaces = append(c.workspaces, model.Workspace{ID: id, Name: name})

	total := (len(resources) + pageSize - 1) / pageSize
	if total == 0 {
		total = 1
	}
	pages := make([]model.ResourcePage, 0, total)
	for p := 0; p < total; p++ {
		lo, hi := p*pageSize, (p+1)*pageSize
		if hi > len(resources) {
			hi = len(resources)
		}
		items := []model.Resource{}
		if lo < hi {
			items = append(items, resources[lo:hi]...)
		}
		pages = append(pages, model.ResourcePage{
			Items:       items,
			CurrentPage: p + 1,
			TotalPages:  total,
			TotalCount:  len(resources),
			PageSize:    pageSize,
		})
	}
	c.pages[id] = pages
}

func res(id string, attrs map[string]interface{}) model.Resource {
	return model.Resource{ID: id, Type: "resources", Attributes: attrs}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestView(t *testing.T, client *fakeClient, opts ...Option) (*View, *fakeClock) {
	t.Helper()
	clock := newFakeClock()
	opts = append([]Option{WithClock(clock), WithLogger(discardLogger())}, opts...)
	v := NewView(DefaultConfig(), client, opts...)
	require.NoError(t, v.Start(context.Background()))
	t.Cleanup(func() { _ = v.Close() })

	waitFor(t, v, func(s Snapshot) bool { return !s.Searching })
	return v, clock
}

func waitFor(t *testing.T, v *View, pred func(Snapshot) bool) Snapshot {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	snap, err := v.WaitFor(ctx, pred)
	require.NoError(t, err)
	return snap
}
