package realtime

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/tfecatalog/tfe-catalog/internal/catalog"
)

// DefaultBroadcastBuffer is the capacity of the hub's inbound queue.
const DefaultBroadcastBuffer = 1024

// delivery is a message routed by the hub. A nil client means every client
// attached to session.
type delivery struct {
	session  string
	client   *Client
	revision uint64
	msg      BaseMessage
}

// Hub maintains the set of active clients, grouped by session, and routes
// view snapshots to them. Only the Run goroutine writes to or closes a
// client's send channel.
type Hub struct {
	// Registered clients per session.
	sessions map[string]map[*Client]bool

	// Inbound messages for the clients.
	broadcast chan delivery

	// Register requests from the clients.
	register chan *Client

	// Unregister requests from clients.
	unregister chan *Client

	mu     sync.RWMutex
	logger *slog.Logger

	runCtx   context.Context
	runCtxMu sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{
		sessions:   make(map[string]map[*Client]bool),
		broadcast:  make(chan delivery, DefaultBroadcastBuffer),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		logger:     slog.Default().With("component", "realtime-hub"),
	}
}

func (h *Hub) Run(ctx context.Context) {
	h.setRunCtx(ctx)

	for {
		select {
		case <-ctx.Done():
			h.shutdownClients()
			return
		case client := <-h.register:
			h.mu.Lock()
			clients, ok := h.sessions[client.session]
			if !ok {
				clients = make(map[*Client]bool)
				h.sessions[client.session] = clients
			}
			clients[client] = true
			h.mu.Unlock()
		case client := <-h.unregister:
			h.mu.Lock()
			if clients, ok := h.sessions[client.session]; ok && clients[client] {
				delete(clients, client)
				if len(clients) == 0 {
					delete(h.sessions, client.session)
				}
				close(client.send)
			}
			h.mu.Unlock()
		case d := <-h.broadcast:
			h.mu.RLock()
			clients := h.sessions[d.session]
			if d.client != nil {
				if clients[d.client] {
					h.deliver(d.client, d)
				}
			} else {
				for client := range clients {
					h.deliver(client, d)
				}
			}
			h.mu.RUnlock()
		}
	}
}

// deliver sends to one client. Snapshots older than what the client has
// already seen are dropped so revisions never go backwards on a connection.
func (h *Hub) deliver(client *Client, d delivery) {
	if d.revision > 0 {
		if d.revision <= client.revision {
			return
		}
		client.revision = d.revision
	}
	select {
	case client.send <- d.msg:
	default:
		select {
		case client.send <- d.msg:
		case <-time.After(50 * time.Millisecond):
			h.logger.Warn("Dropping message for slow client", "session", d.session, "type", d.msg.Type)
		}
	}
}

// Listener returns a view listener that pushes every event of sessionID to
// the session's connections. It never blocks the view loop; events that do
// not fit in the queue are dropped.
func (h *Hub) Listener(sessionID string) catalog.Listener {
	return func(ev catalog.Event) {
		d := delivery{
			session:  sessionID,
			revision: ev.Snapshot.Revision,
			msg: BaseMessage{
				Type:    TypeSnapshot,
				Payload: mustMarshal(SnapshotPayload{Kind: ev.Kind, Snapshot: ev.Snapshot}),
			},
		}
		select {
		case h.broadcast <- d:
		default:
			h.logger.Warn("Realtime queue full, dropping view event", "session", sessionID, "kind", ev.Kind)
		}
	}
}

// send queues msg for a single client.
func (h *Hub) send(client *Client, revision uint64, msg BaseMessage) {
	select {
	case h.broadcast <- delivery{session: client.session, client: client, revision: revision, msg: msg}:
	case <-h.Done():
	}
}

func (h *Hub) Register(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.Done():
		return false
	}
}

func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.Done():
	}
}

// ClientCount returns the number of connections attached to sessionID.
func (h *Hub) ClientCount(sessionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions[sessionID])
}

func mustMarshal(v interface{}) []byte {
	b, _ := json.Marshal(v) // Should not fail for internal types
	return b
}

func (h *Hub) setRunCtx(ctx context.Context) {
	h.runCtxMu.Lock()
	h.runCtx = ctx
	h.runCtxMu.Unlock()
}

func (h *Hub) Done() <-chan struct{} {
	h.runCtxMu.RLock()
	defer h.runCtxMu.RUnlock()
	if h.runCtx == nil {
		return nil
	}
	return h.runCtx.Done()
}

func (h *Hub) shutdownClients() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for session, clients := range h.sessions {
		for client := range clients {
			close(client.send)
		}
		delete(h.sessions, session)
	}
}
