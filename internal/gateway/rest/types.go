package rest

import (
	"github.com/tfecatalog/tfe-catalog/internal/catalog"
	"github.com/tfecatalog/tfe-catalog/pkg/model"
)

// SessionResponse is returned by session endpoints.
type SessionResponse struct {
	ID       string           `json:"id"`
	Snapshot catalog.Snapshot `json:"snapshot"`
}

type SearchRequest struct {
	Query string `json:"query"`
	// Immediate skips the debounce.
	Immediate bool `json:"immediate,omitempty"`
}

type SelectWorkspaceRequest struct {
	WorkspaceID string `json:"workspace_id"`
}

type GoToPageRequest struct {
	Page int `json:"page"`
}

type SetFilterRequest struct {
	Key    string   `json:"key"`
	Values []string `json:"values"`
}

type ToggleFilterRequest struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// sessionQuery is decoded from the query string of GET /api/v1/sessions/{id}.
type sessionQuery struct {
	// Settled waits until no search or page load is in flight.
	Settled bool `schema:"settled"`
}

// WorkspacesResponse is returned by the stateless workspace search.
type WorkspacesResponse struct {
	Query      string            `json:"query"`
	Workspaces []model.Workspace `json:"workspaces"`
}

// browseQuery is decoded from the query string of the stateless browse endpoint.
// Filters use key:value form and may repeat.
type browseQuery struct {
	Page    int      `schema:"page"`
	Filters []string `schema:"filter"`
}

// BrowseResponse is one page of a workspace with facets and filters applied.
type BrowseResponse struct {
	WorkspaceID string               `json:"workspace_id"`
	Pagination  catalog.Pagination   `json:"pagination"`
	TotalCount  int                  `json:"total_count"`
	Facets      []catalog.FacetGroup `json:"facets"`
	Filters     map[string][]string  `json:"filters"`
	Resources   []model.Resource     `json:"resources"`
	LoadedCount int                  `json:"loaded_count"`
}
