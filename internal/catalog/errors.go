package catalog

import "errors"

var (
	// ErrSearchFailed marks a failed workspace lookup. The previous result set stays visible.
	ErrSearchFailed = errors.New("search unavailable")
	// ErrFetchFailed marks a failed resource page load. The previous page stays visible.
	ErrFetchFailed = errors.New("load failed")
	// ErrStaleResult is used internally when a response arrives for a superseded request.
	ErrStaleResult = errors.New("stale result discarded")
	// ErrPageOutOfRange is returned when a page outside [1, totalPages] is requested.
	ErrPageOutOfRange = errors.New("page out of range")
	// ErrNoWorkspace is returned for page operations while no workspace is selected.
	ErrNoWorkspace = errors.New("no workspace selected")
	// ErrUnknownFilterKey is returned when a filter key is not part of the facet vocabulary.
	ErrUnknownFilterKey = errors.New("unknown filter key")
	// ErrUnknownFilterValue is returned when a filter value is not among the current facet options.
	ErrUnknownFilterValue = errors.New("unknown filter value")
	// ErrInconsistentPage is returned when the API reports pagination that contradicts itself.
	ErrInconsistentPage = errors.New("inconsistent pagination reported by server")
	// ErrClosed is returned by operations on a view that has been closed.
	ErrClosed = errors.New("view closed")
)

var (
	// ErrNotStarted is returned by operations on a view whose loop has not been started.
	ErrNotStarted = errors.New("view not started")
	// ErrAlreadyStarted is returned by a second Start.
	ErrAlreadyStarted = errors.New("view already started")
)
