package realtime

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tfecatalog/tfe-catalog/internal/catalog"
	"github.com/tfecatalog/tfe-catalog/internal/gateway/config"
	"github.com/tfecatalog/tfe-catalog/internal/session"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Maximum message size allowed from peer.
	maxMessageSize = 64 * 1024
)

// Send pings to peer with this period. Must be less than pongWait.
var pingPeriod = (pongWait * 9) / 10

// Client is a middleman between the websocket connection and the hub. It
// drives one session's view.
type Client struct {
	hub     *Hub
	session string
	sess    *session.Session
	view    *catalog.View

	// The websocket connection.
	conn *websocket.Conn

	// Buffered channel of outbound messages.
	send chan BaseMessage

	// Last snapshot revision delivered; owned by the hub goroutine.
	revision uint64

	logger *slog.Logger
}

// readPump pumps commands from the websocket connection to the view.
//
// The application runs readPump in a per-connection goroutine. The application
// ensures that there is at most one reader on a connection by executing all
// reads from this goroutine.
func (c *Client) readPump() {
	c.sess.Attach()
	defer func() {
		c.sess.Detach()
		c.hub.Unregister(c)
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error { c.conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })
	c.logger.Info("WebSocket connection established")

	c.sendSnapshot()

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Warn("WebSocket connection closed", "error", err)
			} else {
				c.logger.Info("WebSocket connection closed")
			}
			break
		}

		var msg BaseMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			c.logger.Warn("Unmarshalling message failed", "error", err)
			c.sendError("", ErrCodeBadRequest, "invalid message")
			continue
		}

		c.handleMessage(msg)
	}
}

func (c *Client) handleMessage(msg BaseMessage) {
	c.logger.Debug("Received message", "type", msg.Type, "id", msg.ID)
	c.sess.MarkActive()

	var err error
	switch msg.Type {
	case TypeSearch:
		var p SearchPayload
		if err = decodePayload(msg, &p); err == nil {
			if p.Immediate {
				err = c.view.SearchNow(p.Query)
			} else {
				err = c.view.Search(p.Query)
			}
		}
	case TypeSelectWorkspace:
		var p SelectWorkspacePayload
		if err = decodePayload(msg, &p); err == nil {
			err = c.view.SelectWorkspace(p.WorkspaceID)
		}
	case TypeGoToPage:
		var p GoToPagePayload
		if err = decodePayload(msg, &p); err == nil {
			err = c.view.GoToPage(p.Page)
		}
	case TypeNextPage:
		err = c.view.NextPage()
	case TypePrevPage:
		err = c.view.PrevPage()
	case TypeSetFilter:
		var p SetFilterPayload
		if err = decodePayload(msg, &p); err == nil {
			err = c.view.SetFilter(p.Key, p.Values)
		}
	case TypeToggleFilter:
		var p ToggleFilterPayload
		if err = decodePayload(msg, &p); err == nil {
			err = c.view.ToggleFilterValue(p.Key, p.Value)
		}
	case TypeClearFilters:
		err = c.view.ClearFilters()
	case TypeRetry:
		err = c.view.Retry()
	default:
		c.sendError(msg.ID, ErrCodeUnknownType, "unknown message type: "+msg.Type)
		return
	}

	if err != nil {
		code, message := errorCode(err)
		c.sendError(msg.ID, code, message)
		return
	}
	c.hub.send(c, 0, BaseMessage{ID: msg.ID, Type: TypeAck})
}

var errBadPayload = errors.New("invalid payload")

func decodePayload(msg BaseMessage, v interface{}) error {
	if len(msg.Payload) == 0 {
		return errBadPayload
	}
	if err := json.Unmarshal(msg.Payload, v); err != nil {
		return errBadPayload
	}
	return nil
}

func errorCode(err error) (string, string) {
	switch {
	case errors.Is(err, errBadPayload):
		return ErrCodeBadRequest, err.Error()
	case errors.Is(err, catalog.ErrPageOutOfRange):
		return ErrCodeOutOfRange, err.Error()
	case errors.Is(err, catalog.ErrNoWorkspace):
		return ErrCodeNoWorkspace, err.Error()
	case errors.Is(err, catalog.ErrUnknownFilterKey), errors.Is(err, catalog.ErrUnknownFilterValue):
		return ErrCodeUnknownFilter, err.Error()
	case errors.Is(err, catalog.ErrClosed), errors.Is(err, catalog.ErrNotStarted):
		return ErrCodeSessionClosed, "session closed"
	default:
		return ErrCodeInternal, "internal error"
	}
}

// sendSnapshot queues the current view state. A newer event delivered first
// makes the hub drop it.
func (c *Client) sendSnapshot() {
	snap, err := c.view.Snapshot()
	if err != nil {
		c.sendError("", ErrCodeSessionClosed, "session closed")
		return
	}
	c.hub.send(c, snap.Revision, BaseMessage{
		Type:    TypeSnapshot,
		Payload: mustMarshal(SnapshotPayload{Snapshot: snap}),
	})
}

func (c *Client) sendError(id, code, message string) {
	c.hub.send(c, 0, BaseMessage{
		ID:      id,
		Type:    TypeError,
		Payload: mustMarshal(ErrorPayload{Code: code, Message: message}),
	})
}

// writePump pumps messages from the hub to the websocket connection.
//
// A goroutine running writePump is started for each connection. The
// application ensures that there is at most one writer to a connection by
// executing all writes from this goroutine.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel.
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteJSON(message); err != nil {
				return
			}

		case <-c.view.Done():
			// The session was deleted or evicted.
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session closed"))
			return

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// checkAllowedOrigin accepts empty origins (non-browser clients), the
// request's own host, localhost when dev origins are allowed, and the
// configured allow list.
func checkAllowedOrigin(origin string, reqHost string, cfg config.RealtimeConfig) error {
	if origin == "" {
		return nil
	}

	parsed, err := url.Parse(origin)
	if err != nil {
		return errors.New("origin not allowed")
	}

	originHost := strings.Split(parsed.Host, ":")[0]
	reqHostPart := strings.Split(reqHost, ":")[0]
	if strings.EqualFold(originHost, reqHostPart) {
		return nil
	}

	if cfg.AllowDevOrigin {
		if originHost == "localhost" || originHost == "127.0.0.1" {
			return nil
		}
	}

	trimmedOrigin := strings.TrimRight(origin, "/")
	for _, allowed := range cfg.AllowedOrigins {
		if allowed == "" {
			continue
		}
		if strings.EqualFold(strings.TrimRight(allowed, "/"), trimmedOrigin) {
			return nil
		}
	}

	return errors.New("origin not allowed")
}

// ServeWs upgrades the request and attaches the connection to sess.
func ServeWs(hub *Hub, sess *session.Session, cfg config.RealtimeConfig, w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			return checkAllowedOrigin(r.Header.Get("Origin"), r.Host, cfg) == nil
		},
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("WebSocket upgrade failed", "session", sess.ID, "error", err)
		return
	}

	sendBuffer := cfg.SendBuffer
	if sendBuffer <= 0 {
		sendBuffer = config.DefaultGatewayConfig().Realtime.SendBuffer
	}
	client := &Client{
		hub:     hub,
		session: sess.ID,
		sess:    sess,
		view:    sess.View,
		conn:    conn,
		send:    make(chan BaseMessage, sendBuffer),
		logger:  hub.logger.With("session", sess.ID),
	}

	if !client.hub.Register(client) {
		conn.Close()
		return
	}

	// Allow collection of memory referenced by the caller by doing all work in
	// new goroutines.
	go client.writePump()
	go client.readPump()
}
