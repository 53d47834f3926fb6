package rest

import (
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"net/http"
	"slices"
	"strings"

	"github.com/tfecatalog/tfe-catalog/internal/catalog"
)

func (h *Handler) handleSearchWorkspaces(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("search")
	workspaces, err := h.client.SearchWorkspaces(r.Context(), query)
	if err != nil {
		writeUpstreamError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, WorkspacesResponse{Query: query, Workspaces: workspaces})
}

// handleBrowseResources serves one page of a workspace without a session:
// facets are computed from the page and filters are applied to it.
func (h *Handler) handleBrowseResources(w http.ResponseWriter, r *http.Request) {
	var q browseQuery
	if err := h.decoder.Decode(&q, r.URL.Query()); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeBadRequest, "Invalid query parameters")
		return
	}
	if q.Page == 0 {
		q.Page = 1
	}
	if q.Page < 1 {
		writeError(w, http.StatusBadRequest, ErrCodeOutOfRange, "page must be at least 1")
		return
	}
	sel, err := h.parseFilters(q.Filters)
	if err != nil {
		code := ErrCodeBadRequest
		if errors.Is(err, catalog.ErrUnknownFilterKey) {
			code = ErrCodeUnknownFilter
		}
		writeError(w, http.StatusBadRequest, code, err.Error())
		return
	}

	workspaceID := r.PathValue("id")
	page, err := h.client.ListResources(r.Context(), workspaceID, q.Page, h.catalogCfg.PageSize)
	if err != nil {
		writeUpstreamError(w, err)
		return
	}
	if total := max(page.TotalPages, 1); q.Page > total {
		writeError(w, http.StatusBadRequest, ErrCodeOutOfRange,
			fmt.Sprintf("page %d is outside [1, %d]", q.Page, total))
		return
	}
	if err := catalog.NormalizePage(catalog.FetchRequest{WorkspaceID: workspaceID, Page: q.Page}, &page); err != nil {
		slog.Warn("Upstream returned inconsistent pagination", "workspace", workspaceID, "page", q.Page, "error", err)
		writeError(w, http.StatusBadGateway, ErrCodeUpstream, err.Error())
		return
	}

	facets := catalog.ExtractFacets(page.Items, h.catalogCfg.FilterKeys)
	for _, key := range slices.Sorted(maps.Keys(sel)) {
		for _, value := range sel.Values(key) {
			if !facets.Has(key, value) {
				writeError(w, http.StatusBadRequest, ErrCodeUnknownFilter,
					fmt.Sprintf("%v: %s=%q", catalog.ErrUnknownFilterValue, key, value))
				return
			}
		}
	}

	writeJSON(w, http.StatusOK, BrowseResponse{
		WorkspaceID: workspaceID,
		Pagination:  catalog.Pagination{CurrentPage: page.CurrentPage, TotalPages: page.TotalPages},
		TotalCount:  page.TotalCount,
		Facets:      facets.Groups(h.catalogCfg.FilterKeys),
		Filters:     sel.Map(),
		Resources:   catalog.ApplyFilters(page.Items, sel),
		LoadedCount: len(page.Items),
	})
}

// parseFilters turns key:value pairs into a selection. Keys must be part of
// the configured facet vocabulary.
func (h *Handler) parseFilters(raw []string) (catalog.Selection, error) {
	known := make(map[string]bool, len(h.catalogCfg.FilterKeys))
	for _, k := range h.catalogCfg.FilterKeys {
		known[k] = true
	}
	sel := make(catalog.Selection)
	for _, f := range raw {
		key, value, ok := strings.Cut(f, ":")
		if !ok || key == "" || value == "" {
			return nil, fmt.Errorf("filter %q must have the form key:value", f)
		}
		if !known[key] {
			return nil, fmt.Errorf("%w: %s", catalog.ErrUnknownFilterKey, key)
		}
		if sel[key] == nil {
			sel[key] = make(map[string]struct{})
		}
		sel[key][value] = struct{}{}
	}
	return sel, nil
}
