package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/tfecatalog/tfe-catalog/internal/metrics"
	"github.com/tfecatalog/tfe-catalog/pkg/model"
)

// DefaultCommandBufferSize is the capacity of the view's command queue.
const DefaultCommandBufferSize = 64

// View is the faceted browsing coordinator. A single goroutine owns all state;
// public methods enqueue work on it and wait for the result, and remote
// completions are delivered back onto it, so transitions never interleave.
type View struct {
	cfg    Config
	client Client
	logger *slog.Logger
	clock  Clock

	ctx       context.Context
	cancel    context.CancelFunc
	cmds      chan func()
	stopped   chan struct{}
	running   atomic.Bool
	closeOnce sync.Once

	debouncer *Debouncer
	search    *SearchSource
	fetcher   *PageFetcher
	selector  Selector
	filters   *FilterEngine

	// owned by the coordinator
	facets     FacetOptionSet
	pagination Pagination
	requested  int
	state      State
	revision   uint64

	listenerMu   sync.Mutex
	listeners    map[uint64]Listener
	nextListener uint64
}

// Option configures a View.
type Option func(*View)

// WithLogger sets the logger. The view adds its own component attribute.
func WithLogger(logger *slog.Logger) Option {
	return func(v *View) {
		if logger != nil {
			v.logger = logger
		}
	}
}

// WithClock replaces the clock used for search debouncing.
func WithClock(clock Clock) Option {
	return func(v *View) {
		if clock != nil {
			v.clock = clock
		}
	}
}

// WithListener registers a listener before the loop starts, so no event is missed.
func WithListener(l Listener) Option {
	return func(v *View) {
		v.addListener(l)
	}
}

// NewView builds a view over client. cfg is expected to be validated already;
// zero values are filled with defaults.
func NewView(cfg Config, client Client, opts ...Option) *View {
	cfg.ApplyDefaults()
	ctx, cancel := context.WithCancel(context.Background())
	v := &View{
		cfg:        cfg,
		client:     client,
		logger:     slog.Default(),
		clock:      RealClock(),
		ctx:        ctx,
		cancel:     cancel,
		cmds:       make(chan func(), DefaultCommandBufferSize),
		stopped:    make(chan struct{}),
		filters:    NewFilterEngine(),
		facets:     ExtractFacets(nil, cfg.FilterKeys),
		pagination: FirstPage(),
		state:      StateIdle,
		listeners:  make(map[uint64]Listener),
	}
	for _, opt := range opts {
		opt(v)
	}
	v.logger = v.logger.With("component", "catalog-view")

	v.debouncer = NewDebouncer(v.clock, cfg.SearchDebounce)
	v.search = newSearchSource(ctx, client, v.debouncer, v.post, v.logger)
	v.search.onResolve = v.onSearchResolved
	v.fetcher = newPageFetcher(ctx, client, cfg.PageSize, v.post, v.logger)
	v.fetcher.onResolve = v.onPageResolved
	return v
}

// Start runs the loop and issues the initial empty-query workspace lookup.
// The view stops when ctx is canceled or Close is called.
func (v *View) Start(ctx context.Context) error {
	if v.ctx.Err() != nil {
		return ErrClosed
	}
	if !v.running.CompareAndSwap(false, true) {
		if v.ctx.Err() != nil {
			return ErrClosed
		}
		return ErrAlreadyStarted
	}
	context.AfterFunc(ctx, v.cancel)
	go v.loop()
	return nil
}

// Close stops the loop and waits for it to exit. In-flight remote calls are
// canceled and their results dropped. Closing a view that was never
// started closes Done immediately.
func (v *View) Close() error {
	v.closeOnce.Do(func() {
		v.cancel()
		v.debouncer.Stop()
		if v.running.CompareAndSwap(false, true) {
			close(v.stopped)
		}
	})
	<-v.stopped
	return nil
}

// Done is closed once the loop has exited.
func (v *View) Done() <-chan struct{} { return v.stopped }

func (v *View) loop() {
	defer close(v.stopped)
	v.logger.Debug("View loop started")

	v.search.SearchNow("")
	for {
		select {
		case f := <-v.cmds:
			f()
		case <-v.ctx.Done():
			v.logger.Debug("View loop stopped")
			return
		}
	}
}

// post hands f to the loop. It must not be called from the loop itself.
func (v *View) post(f func()) bool {
	select {
	case v.cmds <- f:
		return true
	case <-v.ctx.Done():
		return false
	}
}

// do runs f on the loop and waits for it.
func (v *View) do(f func()) error {
	if !v.running.Load() {
		return ErrNotStarted
	}
	done := make(chan struct{})
	if !v.post(func() {
		defer close(done)
		f()
	}) {
		return ErrClosed
	}
	select {
	case <-done:
		return nil
	case <-v.stopped:
		select {
		case <-done:
			return nil
		default:
			return ErrClosed
		}
	}
}

// Search records a keystroke. The remote lookup runs once typing has been
// quiet for the configured debounce.
func (v *View) Search(query string) error {
	return v.do(func() {
		v.search.SetQuery(query)
		v.emit(EventQueryChanged)
	})
}

// SearchNow skips the debounce and looks query up immediately.
func (v *View) SearchNow(query string) error {
	return v.do(func() {
		v.search.SearchNow(query)
		v.emit(EventQueryChanged)
	})
}

// SelectWorkspace changes the selected workspace. Selecting the current one
// is a no-op. A change resets pagination and filters and loads page 1; an
// empty id returns the view to idle.
func (v *View) SelectWorkspace(id string) error {
	return v.do(func() {
		if !v.selector.Select(id) {
			return
		}
		v.filters.Clear()
		v.pagination = FirstPage()

		if id == "" {
			v.fetcher.Reset()
			v.facets = ExtractFacets(nil, v.cfg.FilterKeys)
			v.requested = 0
			v.state = StateIdle
			v.logger.Debug("Workspace deselected")
			v.emit(EventWorkspaceSelected)
			return
		}

		v.logger.Debug("Workspace selected", "workspace", id)
		v.issue(FetchRequest{WorkspaceID: id, Page: 1})
		v.emit(EventWorkspaceSelected)
	})
}

// GoToPage loads another page of the selected workspace. Pages outside the
// last known range are rejected without a remote call.
func (v *View) GoToPage(page int) error {
	var err error
	doErr := v.do(func() {
		err = v.goToPage(page)
	})
	if doErr != nil {
		return doErr
	}
	return err
}

// NextPage moves one page forward.
func (v *View) NextPage() error {
	var err error
	doErr := v.do(func() {
		err = v.goToPage(v.pagination.CurrentPage + 1)
	})
	if doErr != nil {
		return doErr
	}
	return err
}

// PrevPage moves one page back.
func (v *View) PrevPage() error {
	var err error
	doErr := v.do(func() {
		err = v.goToPage(v.pagination.CurrentPage - 1)
	})
	if doErr != nil {
		return doErr
	}
	return err
}

func (v *View) goToPage(page int) error {
	id := v.selector.ID()
	if id == "" {
		return ErrNoWorkspace
	}
	switch {
	case v.state == StateReady && page == v.pagination.CurrentPage:
		return nil
	case v.state == StateLoading && page == v.requested:
		return nil
	}
	if err := v.pagination.Check(page); err != nil {
		metrics.RejectedPages.Inc()
		v.logger.Debug("Rejected page request", "workspace", id, "page", page, "total_pages", v.pagination.TotalPages)
		return err
	}

	v.filters.Clear()
	v.issue(FetchRequest{WorkspaceID: id, Page: page})
	v.emit(EventPageRequested)
	return nil
}

// Retry re-issues the failed request. It does nothing unless the view is in
// the error state.
func (v *View) Retry() error {
	return v.do(func() {
		if v.state != StateError {
			return
		}
		req := v.fetcher.Current()
		v.logger.Debug("Retrying resource page", "workspace", req.WorkspaceID, "page", req.Page)
		v.issue(req)
		v.emit(EventPageRequested)
	})
}

func (v *View) issue(req FetchRequest) {
	v.requested = req.Page
	v.state = StateLoading
	v.fetcher.Fetch(req)
}

// SetFilter replaces the selected values of key. Values must be options of
// the current facets; an empty slice removes the constraint.
func (v *View) SetFilter(key string, values []string) error {
	var err error
	doErr := v.do(func() {
		if err = v.checkKey(key); err != nil {
			return
		}
		for _, value := range values {
			if !v.facets.Has(key, value) {
				err = fmt.Errorf("%w: %s=%q", ErrUnknownFilterValue, key, value)
				return
			}
		}
		v.filters.SetSelection(key, values)
		v.emit(EventFiltersChanged)
	})
	if doErr != nil {
		return doErr
	}
	return err
}

// ToggleFilterValue adds value to the selection of key, or removes it when
// already selected.
func (v *View) ToggleFilterValue(key, value string) error {
	var err error
	doErr := v.do(func() {
		if err = v.checkKey(key); err != nil {
			return
		}
		current := v.filters.Selection().Values(key)
		next := make([]string, 0, len(current)+1)
		removed := false
		for _, existing := range current {
			if existing == value {
				removed = true
				continue
			}
			next = append(next, existing)
		}
		if !removed {
			if !v.facets.Has(key, value) {
				err = fmt.Errorf("%w: %s=%q", ErrUnknownFilterValue, key, value)
				return
			}
			next = append(next, value)
		}
		v.filters.SetSelection(key, next)
		v.emit(EventFiltersChanged)
	})
	if doErr != nil {
		return doErr
	}
	return err
}

// ClearFilters drops every filter selection.
func (v *View) ClearFilters() error {
	return v.do(func() {
		v.filters.Clear()
		v.emit(EventFiltersChanged)
	})
}

func (v *View) checkKey(key string) error {
	for _, k := range v.cfg.FilterKeys {
		if k == key {
			return nil
		}
	}
	return fmt.Errorf("%w: %q", ErrUnknownFilterKey, key)
}

func (v *View) onSearchResolved(err error) {
	if err != nil {
		v.emit(EventSearchFailed)
		return
	}
	v.emit(EventSearchResults)
}

func (v *View) onPageResolved(out FetchOutcome) {
	if out.Err != nil {
		v.state = StateError
		v.emit(EventPageFailed)
		return
	}
	v.pagination = Pagination{CurrentPage: out.Page.CurrentPage, TotalPages: out.Page.TotalPages}
	v.facets = ExtractFacets(out.Page.Items, v.cfg.FilterKeys)
	v.filters.Clear()
	v.state = StateReady
	v.emit(EventPageLoaded)
}

// Snapshot returns a consistent copy of the view state.
func (v *View) Snapshot() (Snapshot, error) {
	var snap Snapshot
	err := v.do(func() {
		snap = v.snapshot()
	})
	return snap, err
}

func (v *View) snapshot() Snapshot {
	page := v.fetcher.Page()
	snap := Snapshot{
		Revision:      v.revision,
		State:         v.state,
		Query:         v.search.Query(),
		Workspaces:    append([]model.Workspace{}, v.search.Results()...),
		Searching:     v.search.Pending(),
		WorkspaceID:   v.selector.ID(),
		RequestedPage: v.requested,
		Pagination:    v.pagination,
		TotalCount:    v.fetcher.Meta().TotalCount,
		Facets:        v.facets.Groups(v.cfg.FilterKeys),
		Filters:       v.filters.Selection().Map(),
		Resources:     v.filters.Apply(page),
		LoadedCount:   len(page),
	}
	if err := v.search.Err(); err != nil {
		snap.SearchError = err.Error()
	}
	if v.state == StateError {
		if err := v.fetcher.Err(); err != nil {
			snap.Error = err.Error()
		}
	}
	return snap
}

func (v *View) emit(kind EventKind) {
	v.revision++
	v.listenerMu.Lock()
	if len(v.listeners) == 0 {
		v.listenerMu.Unlock()
		return
	}
	listeners := make([]Listener, 0, len(v.listeners))
	for _, l := range v.listeners {
		listeners = append(listeners, l)
	}
	v.listenerMu.Unlock()

	ev := Event{Kind: kind, Snapshot: v.snapshot()}
	for _, l := range listeners {
		l(ev)
	}
}

func (v *View) addListener(l Listener) func() {
	v.listenerMu.Lock()
	defer v.listenerMu.Unlock()
	v.nextListener++
	id := v.nextListener
	v.listeners[id] = l
	return func() {
		v.listenerMu.Lock()
		defer v.listenerMu.Unlock()
		delete(v.listeners, id)
	}
}

// Subscribe registers l for every subsequent event and returns a function that
// removes it. l runs on the loop and must not block.
func (v *View) Subscribe(l Listener) (unsubscribe func()) {
	return v.addListener(l)
}

// WaitFor blocks until pred holds for the current state or for the snapshot of
// a later event, and returns that snapshot.
func (v *View) WaitFor(ctx context.Context, pred func(Snapshot) bool) (Snapshot, error) {
	found := make(chan Snapshot, 1)
	var unsubscribe func()
	err := v.do(func() {
		if snap := v.snapshot(); pred(snap) {
			found <- snap
			return
		}
		var once sync.Once
		unsubscribe = v.addListener(func(ev Event) {
			if pred(ev.Snapshot) {
				once.Do(func() { found <- ev.Snapshot })
			}
		})
	})
	if err != nil {
		return Snapshot{}, err
	}
	if unsubscribe != nil {
		defer unsubscribe()
	}

	select {
	case snap := <-found:
		return snap, nil
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	case <-v.stopped:
		return Snapshot{}, ErrClosed
	}
}
