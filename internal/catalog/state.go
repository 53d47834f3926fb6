package catalog

import (
	"fmt"

	"github.com/tfecatalog/tfe-catalog/pkg/model"
)

// State is the coordinator state.
type State int

const (
	StateIdle State = iota
	StateLoading
	StateReady
	StateError
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateError:
		return "error"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *State) UnmarshalText(text []byte) error {
	switch string(text) {
	case "idle":
		*s = StateIdle
	case "loading":
		*s = StateLoading
	case "ready":
		*s = StateReady
	case "error":
		*s = StateError
	default:
		return fmt.Errorf("unknown state %q", text)
	}
	return nil
}

// Snapshot is a consistent read of the whole view. Resources is the displayed
// (filtered) set, LoadedCount the size of the unfiltered page.
type Snapshot struct {
	Revision uint64 `json:"revision"`
	State    State  `json:"state"`

	Query       string            `json:"query"`
	Workspaces  []model.Workspace `json:"workspaces"`
	Searching   bool              `json:"searching"`
	SearchError string            `json:"search_error,omitempty"`

	WorkspaceID   string     `json:"workspace_id,omitempty"`
	RequestedPage int        `json:"requested_page,omitempty"`
	Pagination    Pagination `json:"pagination"`
	TotalCount    int        `json:"total_count"`

	Facets      []FacetGroup        `json:"facets"`
	Filters     map[string][]string `json:"filters"`
	Resources   []model.Resource    `json:"resources"`
	LoadedCount int                 `json:"loaded_count"`
	Error       string              `json:"error,omitempty"`
}

// EventKind names a transition of the view.
type EventKind string

const (
	EventQueryChanged      EventKind = "query_changed"
	EventSearchResults     EventKind = "search_results"
	EventSearchFailed      EventKind = "search_failed"
	EventWorkspaceSelected EventKind = "workspace_selected"
	EventPageRequested     EventKind = "page_requested"
	EventPageLoaded        EventKind = "page_loaded"
	EventPageFailed        EventKind = "page_failed"
	EventFiltersChanged    EventKind = "filters_changed"
)

// Event is emitted after every transition, carrying the resulting snapshot.
type Event struct {
	Kind     EventKind `json:"kind"`
	Snapshot Snapshot  `json:"snapshot"`
}

// Listener receives events on the view's loop. It must not block and must not
// call back into the view synchronously.
type Listener func(Event)
