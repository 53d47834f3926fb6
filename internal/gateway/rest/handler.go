// Package rest exposes browsing sessions and a stateless resource browse
// endpoint over JSON/HTTP.
package rest

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/schema"

	"github.com/tfecatalog/tfe-catalog/internal/catalog"
	"github.com/tfecatalog/tfe-catalog/internal/server"
	"github.com/tfecatalog/tfe-catalog/internal/server/ratelimit"
	"github.com/tfecatalog/tfe-catalog/internal/session"
	"github.com/tfecatalog/tfe-catalog/internal/tfe"
	"github.com/tfecatalog/tfe-catalog/pkg/model"
)

// SessionStore is the subset of the session manager the handlers use.
type SessionStore interface {
	Create() (*session.Session, error)
	Get(id string) (*session.Session, error)
	Delete(id string) error
}

type Handler struct {
	sessions   SessionStore
	client     catalog.Client
	catalogCfg catalog.Config
	timeout    time.Duration
	decoder    *schema.Decoder

	sessionLimiter ratelimit.Limiter
	limiterWindow  time.Duration
}

// HandlerOption configures a Handler.
type HandlerOption func(*Handler)

// WithRequestTimeout overrides DefaultRequestTimeout.
func WithRequestTimeout(d time.Duration) HandlerOption {
	return func(h *Handler) {
		if d > 0 {
			h.timeout = d
		}
	}
}

// WithSessionRateLimiter limits how often one client may open sessions.
// window is reported back in Retry-After.
func WithSessionRateLimiter(limiter ratelimit.Limiter, window time.Duration) HandlerOption {
	return func(h *Handler) {
		h.sessionLimiter = limiter
		h.limiterWindow = window
	}
}

func NewHandler(sessions SessionStore, client catalog.Client, catalogCfg catalog.Config, opts ...HandlerOption) (*Handler, error) {
	if sessions == nil {
		return nil, errors.New("session store cannot be nil")
	}
	if client == nil {
		return nil, errors.New("catalog client cannot be nil")
	}
	catalogCfg.ApplyDefaults()
	decoder := schema.NewDecoder()
	decoder.IgnoreUnknownKeys(true)
	h := &Handler{
		sessions:   sessions,
		client:     client,
		catalogCfg: catalogCfg,
		timeout:    DefaultRequestTimeout,
		decoder:    decoder,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h, nil
}

// Default body size limit
const DefaultMaxBodySize = 64 << 10

// Default request timeout
const DefaultRequestTimeout = 30 * time.Second

// APIError represents a structured error response
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error codes
const (
	ErrCodeBadRequest      = "BAD_REQUEST"
	ErrCodeNotFound        = "NOT_FOUND"
	ErrCodeConflict        = "CONFLICT"
	ErrCodeGone            = "GONE"
	ErrCodeOutOfRange      = "PAGE_OUT_OF_RANGE"
	ErrCodeUnknownFilter   = "UNKNOWN_FILTER"
	ErrCodeTooManySessions = "TOO_MANY_SESSIONS"
	ErrCodeRateLimited     = "RATE_LIMITED"
	ErrCodeUpstream        = "UPSTREAM_ERROR"
	ErrCodeRequestTooLarge = "REQUEST_TOO_LARGE"
	ErrCodeInternalError   = "INTERNAL_ERROR"
)

// writeError writes a structured JSON error response
func writeError(w http.ResponseWriter, status int, code string, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(APIError{Code: code, Message: message}); err != nil {
		slog.Warn("Failed to encode error response", "error", err)
	}
}

// writeInternalError writes an internal error response. A caller that went
// away gets a bare 499; an upstream that ran out of time gets a 504.
func writeInternalError(w http.ResponseWriter, err error, message string) {
	if model.IsTimeout(err) {
		slog.Warn(message, "error", err)
		writeError(w, http.StatusGatewayTimeout, ErrCodeUpstream, "TFE API request timed out")
		return
	}
	if model.IsCanceled(err) {
		w.WriteHeader(server.StatusClientClosedRequest)
		return
	}
	slog.Error(message, "error", err)
	writeError(w, http.StatusInternalServerError, ErrCodeInternalError, message)
}

// writeViewError maps session and view errors to responses.
func writeViewError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, session.ErrSessionNotFound):
		writeError(w, http.StatusNotFound, ErrCodeNotFound, "Session not found")
	case errors.Is(err, session.ErrTooManySessions), errors.Is(err, session.ErrManagerClosed):
		writeError(w, http.StatusServiceUnavailable, ErrCodeTooManySessions, err.Error())
	case errors.Is(err, catalog.ErrClosed), errors.Is(err, catalog.ErrNotStarted):
		writeError(w, http.StatusGone, ErrCodeGone, "Session closed")
	case errors.Is(err, catalog.ErrPageOutOfRange):
		writeError(w, http.StatusBadRequest, ErrCodeOutOfRange, err.Error())
	case errors.Is(err, catalog.ErrNoWorkspace):
		writeError(w, http.StatusConflict, ErrCodeConflict, err.Error())
	case errors.Is(err, catalog.ErrUnknownFilterKey), errors.Is(err, catalog.ErrUnknownFilterValue):
		writeError(w, http.StatusBadRequest, ErrCodeUnknownFilter, err.Error())
	default:
		slog.Warn("Session command failed", "error", err, "request_id", server.GetRequestID(r.Context()))
		writeInternalError(w, err, "Session command failed")
	}
}

// writeUpstreamError maps TFE client errors to responses.
func writeUpstreamError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, model.ErrNotFound):
		writeError(w, http.StatusNotFound, ErrCodeNotFound, "Workspace not found")
	case errors.Is(err, model.ErrInvalidArgument):
		writeError(w, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
	case model.IsTimeout(err), model.IsCanceled(err):
		writeInternalError(w, err, "Upstream request did not complete")
	case errors.Is(err, model.ErrUnauthorized), tfe.IsAPIError(err):
		slog.Warn("Upstream request failed", "error", err)
		writeError(w, http.StatusBadGateway, ErrCodeUpstream, "TFE API request failed")
	default:
		writeInternalError(w, err, "Upstream request failed")
	}
}

// writeJSON writes a JSON response with proper error handling
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Warn("Failed to encode JSON response", "error", err)
	}
}

// decodeBody decodes a JSON request body into v, writing the error response on failure.
func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, http.StatusRequestEntityTooLarge, ErrCodeRequestTooLarge, "Request body too large")
			return false
		}
		writeError(w, http.StatusBadRequest, ErrCodeBadRequest, "Invalid request body")
		return false
	}
	return true
}

// maxBodySize wraps a handler with request body size limiting
func maxBodySize(next http.HandlerFunc, maxBytes int64) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Body != nil {
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
		}
		next(w, r)
	}
}

// withTimeout wraps a handler with a context timeout
func withTimeout(next http.HandlerFunc, timeout time.Duration) http.HandlerFunc {
	return server.TimeoutMiddleware(timeout)(next).ServeHTTP
}

func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	// Sessions
	mux.HandleFunc("POST /api/v1/sessions", h.limitSessions(withTimeout(h.handleCreateSession, h.timeout)))
	mux.HandleFunc("GET /api/v1/sessions/{id}", withTimeout(h.handleGetSession, h.timeout))
	mux.HandleFunc("DELETE /api/v1/sessions/{id}", withTimeout(h.handleDeleteSession, h.timeout))

	// Session commands
	mux.HandleFunc("POST /api/v1/sessions/{id}/search", withTimeout(maxBodySize(h.handleSearch, DefaultMaxBodySize), h.timeout))
	mux.HandleFunc("POST /api/v1/sessions/{id}/workspace", withTimeout(maxBodySize(h.handleSelectWorkspace, DefaultMaxBodySize), h.timeout))
	mux.HandleFunc("POST /api/v1/sessions/{id}/page", withTimeout(maxBodySize(h.handleGoToPage, DefaultMaxBodySize), h.timeout))
	mux.HandleFunc("POST /api/v1/sessions/{id}/next", withTimeout(h.handleNextPage, h.timeout))
	mux.HandleFunc("POST /api/v1/sessions/{id}/prev", withTimeout(h.handlePrevPage, h.timeout))
	mux.HandleFunc("PUT /api/v1/sessions/{id}/filters", withTimeout(maxBodySize(h.handleSetFilter, DefaultMaxBodySize), h.timeout))
	mux.HandleFunc("POST /api/v1/sessions/{id}/filters/toggle", withTimeout(maxBodySize(h.handleToggleFilter, DefaultMaxBodySize), h.timeout))
	mux.HandleFunc("DELETE /api/v1/sessions/{id}/filters", withTimeout(h.handleClearFilters, h.timeout))
	mux.HandleFunc("POST /api/v1/sessions/{id}/retry", withTimeout(h.handleRetry, h.timeout))

	// Stateless browsing
	mux.HandleFunc("GET /api/v1/workspaces", withTimeout(h.handleSearchWorkspaces, h.timeout))
	mux.HandleFunc("GET /api/v1/workspaces/{id}/resources", withTimeout(h.handleBrowseResources, h.timeout))

	// Health Check
	mux.HandleFunc("GET /health", withTimeout(h.handleHealth, 5*time.Second))
}

func (h *Handler) limitSessions(next http.HandlerFunc) http.HandlerFunc {
	if h.sessionLimiter == nil {
		return next
	}
	mw := ratelimit.Middleware(h.sessionLimiter, int(h.limiterWindow.Seconds()), func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusTooManyRequests, ErrCodeRateLimited, "Too many sessions opened, try again later")
	})
	return mw(next).ServeHTTP
}
