package mock

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/gorilla/schema"

	"github.com/tfecatalog/tfe-catalog/internal/tfe"
)

// MaxPageSize is the largest page[size] the API accepts.
const MaxPageSize = 100

type listQuery struct {
	Number int    `schema:"page[number]"`
	Size   int    `schema:"page[size]"`
	Search string `schema:"search[name]"`
}

// Handler serves the TFE v2 workspace and resource list endpoints.
type Handler struct {
	store           Store
	token           string
	organization    string
	defaultPageSize int
	decoder         *schema.Decoder
	logger          *slog.Logger
}

func NewHandler(store Store, cfg Config) *Handler {
	cfg.ApplyDefaults()
	decoder := schema.NewDecoder()
	decoder.IgnoreUnknownKeys(true)
	return &Handler{
		store:           store,
		token:           cfg.Token,
		organization:    cfg.Organization,
		defaultPageSize: cfg.DefaultPageSize,
		decoder:         decoder,
		logger:          slog.Default().With("component", "tfe-mock"),
	}
}

func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v2/organizations/{org}/workspaces", h.authorized(h.handleWorkspaces))
	mux.HandleFunc("GET /api/v2/workspaces/{id}/resources", h.authorized(h.handleResources))
}

func (h *Handler) authorized(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+h.token {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next(w, r)
	}
}

func (h *Handler) parseQuery(w http.ResponseWriter, r *http.Request) (listQuery, bool) {
	q := listQuery{Number: 1, Size: h.defaultPageSize}
	if err := h.decoder.Decode(&q, r.URL.Query()); err != nil {
		writeError(w, http.StatusBadRequest, "invalid query parameters")
		return q, false
	}
	if q.Number < 1 {
		writeError(w, http.StatusBadRequest, "page[number] must be positive")
		return q, false
	}
	if q.Size < 1 || q.Size > MaxPageSize {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("page[size] must be between 1 and %d", MaxPageSize))
		return q, false
	}
	return q, true
}

func (h *Handler) handleWorkspaces(w http.ResponseWriter, r *http.Request) {
	if org := r.PathValue("org"); org != h.organization {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	q, ok := h.parseQuery(w, r)
	if !ok {
		return
	}

	all, err := h.store.Workspaces(r.Context())
	if err != nil {
		h.logger.Error("Failed to load workspaces", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	matched := make([]tfe.ResourceObject, 0, len(all))
	needle := strings.ToLower(q.Search)
	for _, ws := range all {
		name, _ := ws.Attributes["name"].(string)
		if needle == "" || strings.Contains(strings.ToLower(name), needle) {
			matched = append(matched, ws)
		}
	}

	writeDocument(w, paginate(matched, q, r.URL))
}

func (h *Handler) handleResources(w http.ResponseWriter, r *http.Request) {
	q, ok := h.parseQuery(w, r)
	if !ok {
		return
	}
	items, found, err := h.store.Resources(r.Context(), r.PathValue("id"))
	if err != nil {
		h.logger.Error("Failed to load resources", "workspace", r.PathValue("id"), "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if !found {
		h.logger.Debug("Unknown workspace, serving an empty collection", "workspace", r.PathValue("id"))
	}
	writeDocument(w, paginate(items, q, r.URL))
}

// paginate slices items to the requested page. A page past the end yields an
// empty data array with meta still describing the collection.
func paginate(items []tfe.ResourceObject, q listQuery, u *url.URL) tfe.Document {
	total := len(items)
	totalPages := (total + q.Size - 1) / q.Size
	if totalPages == 0 {
		totalPages = 1
	}
	lo, hi := total, total
	if q.Number <= totalPages {
		lo = (q.Number - 1) * q.Size
		hi = min(lo+q.Size, total)
	}
	data := make([]tfe.ResourceObject, 0, hi-lo)
	data = append(data, items[lo:hi]...)

	meta := &tfe.PaginationMeta{
		CurrentPage: q.Number,
		PageSize:    q.Size,
		TotalCount:  total,
		TotalPages:  totalPages,
	}
	link := func(page int) string { return pageLink(u, page, q.Size) }
	links := tfe.Links{Self: link(q.Number), First: link(1), Last: link(totalPages)}
	if q.Number > 1 && q.Number <= totalPages+1 {
		prev := q.Number - 1
		meta.PrevPage = &prev
		s := link(prev)
		links.Prev = &s
	}
	if q.Number < totalPages {
		next := q.Number + 1
		meta.NextPage = &next
		s := link(next)
		links.Next = &s
	}
	return tfe.Document{Data: data, Links: links, Meta: &tfe.Meta{Pagination: meta}}
}

func pageLink(u *url.URL, page, size int) string {
	params := url.Values{}
	for k, v := range u.Query() {
		params[k] = v
	}
	params.Set("page[number]", strconv.Itoa(page))
	params.Set("page[size]", strconv.Itoa(size))
	return u.Path + "?" + params.Encode()
}

func writeDocument(w http.ResponseWriter, doc tfe.Document) {
	w.Header().Set("Content-Type", tfe.MediaType)
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(doc); err != nil {
		slog.Warn("Failed to encode mock response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, title string) {
	w.Header().Set("Content-Type", tfe.MediaType)
	w.WriteHeader(status)
	doc := tfe.ErrorDocument{Errors: []tfe.ErrorObject{{Status: strconv.Itoa(status), Title: title}}}
	if err := json.NewEncoder(w).Encode(doc); err != nil {
		slog.Warn("Failed to encode mock error", "error", err)
	}
}
