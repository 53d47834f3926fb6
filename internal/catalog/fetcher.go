package catalog

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/tfecatalog/tfe-catalog/internal/metrics"
	"github.com/tfecatalog/tfe-catalog/pkg/model"
)

// FetchRequest identifies one page of one workspace.
type FetchRequest struct {
	WorkspaceID string `json:"workspace_id"`
	Page        int    `json:"page"`
}

// FetchOutcome is reported to the view for every accepted (non-stale) completion.
type FetchOutcome struct {
	Request FetchRequest
	Page    model.ResourcePage
	Err     error
}

// PageFetcher loads resource pages and owns the held page and its loading/error flags.
// Every call is tagged with a sequence number; only the latest issued call may
// change state when it resolves.
type PageFetcher struct {
	ctx       context.Context
	lister    ResourceLister
	pageSize  int
	post      func(func()) bool
	logger    *slog.Logger
	onResolve func(FetchOutcome)

	issued  uint64
	current FetchRequest
	loading bool
	page    []model.Resource
	meta    model.ResourcePage
	err     error
}

func newPageFetcher(ctx context.Context, lister ResourceLister, pageSize int, post func(func()) bool, logger *slog.Logger) *PageFetcher {
	return &PageFetcher{
		ctx:      ctx,
		lister:   lister,
		pageSize: pageSize,
		post:     post,
		logger:   logger,
		page:     []model.Resource{},
	}
}

// Fetch issues req and returns its sequence number. Any earlier call still in
// flight is superseded.
func (f *PageFetcher) Fetch(req FetchRequest) uint64 {
	f.issued++
	seq := f.issued
	f.current = req
	f.loading = true
	f.logger.Debug("Fetching resource page", "workspace", req.WorkspaceID, "page", req.Page, "seq", seq)

	go func() {
		page, err := f.lister.ListResources(f.ctx, req.WorkspaceID, req.Page, f.pageSize)
		f.post(func() {
			f.resolve(seq, req, page, err)
		})
	}()
	return seq
}

// Reset supersedes any in-flight call and drops the held page.
func (f *PageFetcher) Reset() {
	f.issued++
	f.current = FetchRequest{}
	f.loading = false
	f.page = []model.Resource{}
	f.meta = model.ResourcePage{}
	f.err = nil
}

func (f *PageFetcher) resolve(seq uint64, req FetchRequest, page model.ResourcePage, err error) {
	if seq != f.issued {
		metrics.Fetches.WithLabelValues(metrics.OutcomeStale).Inc()
		f.logger.Debug("Discarding resource page",
			"workspace", req.WorkspaceID,
			"page", req.Page,
			"seq", seq,
			"latest", f.issued,
			"reason", ErrStaleResult,
		)
		return
	}
	f.loading = false

	if err == nil {
		err = NormalizePage(req, &page)
	}
	if err != nil {
		metrics.Fetches.WithLabelValues(metrics.OutcomeError).Inc()
		f.err = fmt.Errorf("%w: %w", ErrFetchFailed, model.WrapError(err))
		f.logger.Warn("Resource page load failed", "workspace", req.WorkspaceID, "page", req.Page, "error", err)
		f.onResolve(FetchOutcome{Request: req, Err: f.err})
		return
	}

	metrics.Fetches.WithLabelValues(metrics.OutcomeOK).Inc()
	f.err = nil
	f.page = page.Items
	f.meta = page
	f.meta.Items = nil
	f.onResolve(FetchOutcome{Request: req, Page: page})
}

// NormalizePage fills in omitted pagination meta and rejects meta that
// contradicts itself or the request with ErrInconsistentPage. Every consumer of
// a fetched page goes through it.
func NormalizePage(req FetchRequest, page *model.ResourcePage) error {
	if page.Items == nil {
		page.Items = []model.Resource{}
	}
	if page.CurrentPage == 0 {
		page.CurrentPage = req.Page
	}
	if page.TotalPages == 0 && len(page.Items) == 0 && page.CurrentPage == 1 {
		// an empty workspace still has one (empty) page
		page.TotalPages = 1
	}
	switch {
	case page.TotalPages < 1:
		return fmt.Errorf("%w: total pages %d", ErrInconsistentPage, page.TotalPages)
	case page.CurrentPage != req.Page:
		return fmt.Errorf("%w: asked for page %d, got page %d", ErrInconsistentPage, req.Page, page.CurrentPage)
	case page.CurrentPage > page.TotalPages:
		return fmt.Errorf("%w: page %d of %d", ErrInconsistentPage, page.CurrentPage, page.TotalPages)
	}
	return nil
}

// Page is the held page of resources.
func (f *PageFetcher) Page() []model.Resource { return f.page }

// Meta is the pagination meta of the held page.
func (f *PageFetcher) Meta() model.ResourcePage { return f.meta }

// Current is the most recently issued request.
func (f *PageFetcher) Current() FetchRequest { return f.current }

func (f *PageFetcher) Loading() bool { return f.loading }

func (f *PageFetcher) Err() error { return f.err }
