package rest

import (
	"net/http"

	"github.com/tfecatalog/tfe-catalog/internal/catalog"
	"github.com/tfecatalog/tfe-catalog/internal/session"
)

func (h *Handler) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	sess, err := h.sessions.Create()
	if err != nil {
		writeViewError(w, r, err)
		return
	}
	snap, err := sess.View.Snapshot()
	if err != nil {
		writeViewError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, SessionResponse{ID: sess.ID, Snapshot: snap})
}

func (h *Handler) handleGetSession(w http.ResponseWriter, r *http.Request) {
	var q sessionQuery
	if err := h.decoder.Decode(&q, r.URL.Query()); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeBadRequest, "Invalid query parameters")
		return
	}
	sess, ok := h.session(w, r)
	if !ok {
		return
	}

	var snap catalog.Snapshot
	var err error
	if q.Settled {
		snap, err = sess.View.WaitFor(r.Context(), func(s catalog.Snapshot) bool {
			return !s.Searching && s.State != catalog.StateLoading
		})
	} else {
		snap, err = sess.View.Snapshot()
	}
	if err != nil {
		writeViewError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, SessionResponse{ID: sess.ID, Snapshot: snap})
}

func (h *Handler) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Delete(r.PathValue("id")); err != nil {
		writeViewError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if !decodeBody(w, r, &req) {
		return
	}
	h.command(w, r, func(v *catalog.View) error {
		if req.Immediate {
			return v.SearchNow(req.Query)
		}
		return v.Search(req.Query)
	})
}

func (h *Handler) handleSelectWorkspace(w http.ResponseWriter, r *http.Request) {
	var req SelectWorkspaceRequest
	if !decodeBody(w, r, &req) {
		return
	}
	h.command(w, r, func(v *catalog.View) error {
		return v.SelectWorkspace(req.WorkspaceID)
	})
}

func (h *Handler) handleGoToPage(w http.ResponseWriter, r *http.Request) {
	var req GoToPageRequest
	if !decodeBody(w, r, &req) {
		return
	}
	h.command(w, r, func(v *catalog.View) error {
		return v.GoToPage(req.Page)
	})
}

func (h *Handler) handleNextPage(w http.ResponseWriter, r *http.Request) {
	h.command(w, r, (*catalog.View).NextPage)
}

func (h *Handler) handlePrevPage(w http.ResponseWriter, r *http.Request) {
	h.command(w, r, (*catalog.View).PrevPage)
}

func (h *Handler) handleSetFilter(w http.ResponseWriter, r *http.Request) {
	var req SetFilterRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Key == "" {
		writeError(w, http.StatusBadRequest, ErrCodeBadRequest, "key is required")
		return
	}
	h.command(w, r, func(v *catalog.View) error {
		return v.SetFilter(req.Key, req.Values)
	})
}

func (h *Handler) handleToggleFilter(w http.ResponseWriter, r *http.Request) {
	var req ToggleFilterRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Key == "" || req.Value == "" {
		writeError(w, http.StatusBadRequest, ErrCodeBadRequest, "key and value are required")
		return
	}
	h.command(w, r, func(v *catalog.View) error {
		return v.ToggleFilterValue(req.Key, req.Value)
	})
}

func (h *Handler) handleClearFilters(w http.ResponseWriter, r *http.Request) {
	h.command(w, r, (*catalog.View).ClearFilters)
}

func (h *Handler) handleRetry(w http.ResponseWriter, r *http.Request) {
	h.command(w, r, (*catalog.View).Retry)
}

func (h *Handler) session(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	sess, err := h.sessions.Get(r.PathValue("id"))
	if err != nil {
		writeViewError(w, r, err)
		return nil, false
	}
	return sess, true
}

// command runs fn against the session's view and responds with the resulting snapshot.
func (h *Handler) command(w http.ResponseWriter, r *http.Request, fn func(*catalog.View) error) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	if err := fn(sess.View); err != nil {
		writeViewError(w, r, err)
		return
	}
	snap, err := sess.View.Snapshot()
	if err != nil {
		writeViewError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, SessionResponse{ID: sess.ID, Snapshot: snap})
}
