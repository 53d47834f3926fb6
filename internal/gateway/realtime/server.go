// Package realtime pushes live view snapshots over websockets and accepts
// browsing commands on the same connection.
package realtime

import (
	"context"
	"errors"
	"net/http"

	"github.com/tfecatalog/tfe-catalog/internal/catalog"
	"github.com/tfecatalog/tfe-catalog/internal/gateway/config"
	"github.com/tfecatalog/tfe-catalog/internal/session"
)

// SessionLookup resolves a session id to a live session.
type SessionLookup interface {
	Get(id string) (*session.Session, error)
}

type Server struct {
	hub      *Hub
	sessions SessionLookup
	cfg      config.RealtimeConfig
}

func NewServer(sessions SessionLookup, cfg config.RealtimeConfig) *Server {
	return &Server{
		hub:      NewHub(),
		sessions: sessions,
		cfg:      cfg,
	}
}

// Run runs the hub until ctx is canceled; all connections are closed then.
func (s *Server) Run(ctx context.Context) {
	s.hub.Run(ctx)
}

// Listener is the per-session view listener feeding the hub.
func (s *Server) Listener(sessionID string) catalog.Listener {
	return s.hub.Listener(sessionID)
}

// Hub returns the server's hub.
func (s *Server) Hub() *Hub { return s.hub }

// HandleWS serves GET /api/v1/sessions/{id}/ws.
func (s *Server) HandleWS(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessions.Get(r.PathValue("id"))
	if err != nil {
		if errors.Is(err, session.ErrSessionNotFound) {
			http.Error(w, "Session not found", http.StatusNotFound)
			return
		}
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}
	ServeWs(s.hub, sess, s.cfg, w, r)
}
