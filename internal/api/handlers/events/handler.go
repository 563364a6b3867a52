// Package events pushes post list and notice changes to browsers over a
// websocket, so a view can re-render without polling.
package events

import (
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"Memories/internal/core/posts"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second
)

// Source is the subset of *posts.Controller the stream needs.
type Source interface {
	Snapshot() posts.Snapshot
	Subscribe() (<-chan struct{}, func())
}

// Handler handles GET /api/events
type Handler struct {
	source   Source
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

// NewHandler creates a stream handler. Browser connections are accepted only
// from allowedOrigins; requests without an Origin header are always accepted.
func NewHandler(source Source, allowedOrigins []string, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[strings.TrimSuffix(strings.ToLower(o), "/")] = struct{}{}
	}

	h := &Handler{source: source, logger: logger}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}
			if _, ok := allowed["*"]; ok {
				return true
			}
			u, err := url.Parse(origin)
			if err != nil {
				return false
			}
			_, ok := allowed[strings.ToLower(u.Scheme+"://"+u.Host)]
			return ok
		},
	}
	return h
}

// HandleStream upgrades the connection and writes a snapshot on connect and
// after every change until the client goes away.
func (h *Handler) HandleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error
		h.logger.Warn("[EVENTS] websocket upgrade failed", "error", err)
		return
	}
	defer func() { _ = conn.Close() }()

	changes, cancel := h.source.Subscribe()
	defer cancel()

	closed := make(chan struct{})
	go h.readLoop(conn, closed)

	if err := h.send(conn); err != nil {
		return
	}

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-closed:
			return
		case <-r.Context().Done():
			return
		case <-changes:
			if err := h.send(conn); err != nil {
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(writeWait)); err != nil {
				h.logger.Debug("[EVENTS] ping failed", "error", err)
				return
			}
		}
	}
}

// readLoop discards client messages and closes done when the peer goes away.
func (h *Handler) readLoop(conn *websocket.Conn, done chan<- struct{}) {
	defer close(done)

	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.logger.Debug("[EVENTS] connection closed", "error", err)
			}
			return
		}
	}
}

func (h *Handler) send(conn *websocket.Conn) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(h.source.Snapshot()); err != nil {
		h.logger.Debug("[EVENTS] write failed", "error", err)
		return err
	}
	return nil
}
