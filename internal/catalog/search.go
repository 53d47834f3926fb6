package catalog

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/tfecatalog/tfe-catalog/internal/metrics"
	"github.com/tfecatalog/tfe-catalog/pkg/model"
)

// SearchSource debounces workspace queries and keeps the latest accepted result set.
// All methods except the debounce timer callback run on the owning view's loop.
type SearchSource struct {
	ctx       context.Context
	searcher  WorkspaceSearcher
	debouncer *Debouncer
	post      func(func()) bool
	logger    *slog.Logger
	onResolve func(err error)

	query   string
	typed   uint64 // bumped on every keystroke
	issued  uint64 // sequence token of the latest dispatch
	pending bool
	waiting bool // debounce scheduled, not yet dispatched

	results  []model.Workspace
	resolved string
	err      error
}

func newSearchSource(ctx context.Context, searcher WorkspaceSearcher, debouncer *Debouncer, post func(func()) bool, logger *slog.Logger) *SearchSource {
	return &SearchSource{
		ctx:       ctx,
		searcher:  searcher,
		debouncer: debouncer,
		post:      post,
		logger:    logger,
		results:   []model.Workspace{},
	}
}

// SetQuery records a keystroke and (re)schedules the remote lookup.
func (s *SearchSource) SetQuery(query string) {
	s.query = query
	s.typed++
	s.waiting = true
	typed := s.typed
	s.debouncer.Trigger(func() {
		s.post(func() {
			if typed != s.typed {
				return
			}
			s.waiting = false
			s.dispatch(query)
		})
	})
}

// SearchNow cancels any pending lookup and dispatches query immediately.
func (s *SearchSource) SearchNow(query string) {
	s.debouncer.Stop()
	s.query = query
	s.typed++
	s.waiting = false
	s.dispatch(query)
}

func (s *SearchSource) dispatch(query string) {
	s.issued++
	seq := s.issued
	s.pending = true
	s.logger.Debug("Dispatching workspace search", "query", query, "seq", seq)

	go func() {
		items, err := s.searcher.SearchWorkspaces(s.ctx, query)
		s.post(func() {
			s.resolve(seq, query, items, err)
		})
	}()
}

func (s *SearchSource) resolve(seq uint64, query string, items []model.Workspace, err error) {
	if seq != s.issued {
		metrics.Searches.WithLabelValues(metrics.OutcomeStale).Inc()
		s.logger.Debug("Discarding workspace search result", "query", query, "seq", seq, "latest", s.issued, "reason", ErrStaleResult)
		return
	}
	s.pending = false

	if err != nil {
		metrics.Searches.WithLabelValues(metrics.OutcomeError).Inc()
		s.err = fmt.Errorf("%w: %w", ErrSearchFailed, model.WrapError(err))
		s.logger.Warn("Workspace search failed", "query", query, "error", err)
	} else {
		metrics.Searches.WithLabelValues(metrics.OutcomeOK).Inc()
		if items == nil {
			items = []model.Workspace{}
		}
		s.results = items
		s.resolved = query
		s.err = nil
	}

	if s.onResolve != nil {
		s.onResolve(s.err)
	}
}

// Query is the latest typed text.
func (s *SearchSource) Query() string { return s.query }

// Results is the last accepted result set.
func (s *SearchSource) Results() []model.Workspace { return s.results }

// Pending reports whether a lookup is scheduled or in flight.
func (s *SearchSource) Pending() bool { return s.pending || s.waiting }

// Err is the error of the latest lookup, nil after a success.
func (s *SearchSource) Err() error { return s.err }
