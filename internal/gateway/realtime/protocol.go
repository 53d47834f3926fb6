package realtime

import (
	"encoding/json"

	"github.com/tfecatalog/tfe-catalog/internal/catalog"
)

// Message types
const (
	// Client -> Server
	TypeSearch          = "search"
	TypeSelectWorkspace = "select_workspace"
	TypeGoToPage        = "go_to_page"
	TypeNextPage        = "next_page"
	TypePrevPage        = "prev_page"
	TypeSetFilter       = "set_filter"
	TypeToggleFilter    = "toggle_filter"
	TypeClearFilters    = "clear_filters"
	TypeRetry           = "retry"

	// Server -> Client
	TypeSnapshot = "snapshot"
	TypeAck      = "ack"
	TypeError    = "error"
)

// Error codes
const (
	ErrCodeBadRequest    = "BAD_REQUEST"
	ErrCodeUnknownType   = "UNKNOWN_TYPE"
	ErrCodeOutOfRange    = "PAGE_OUT_OF_RANGE"
	ErrCodeNoWorkspace   = "NO_WORKSPACE"
	ErrCodeUnknownFilter = "UNKNOWN_FILTER"
	ErrCodeSessionClosed = "SESSION_CLOSED"
	ErrCodeInternal      = "INTERNAL_ERROR"
)

// BaseMessage is the envelope for all messages
type BaseMessage struct {
	ID      string          `json:"id,omitempty"`
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type SearchPayload struct {
	Query string `json:"query"`
	// Immediate skips the debounce, as when the user presses enter.
	Immediate bool `json:"immediate,omitempty"`
}

type SelectWorkspacePayload struct {
	WorkspaceID string `json:"workspace_id"`
}

type GoToPagePayload struct {
	Page int `json:"page"`
}

type SetFilterPayload struct {
	Key    string   `json:"key"`
	Values []string `json:"values"`
}

type ToggleFilterPayload struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// SnapshotPayload (Server -> Client). Kind is empty for the snapshot sent on connect.
type SnapshotPayload struct {
	Kind     catalog.EventKind `json:"kind,omitempty"`
	Snapshot catalog.Snapshot  `json:"snapshot"`
}

// ErrorPayload
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
