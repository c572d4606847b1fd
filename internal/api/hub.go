package api

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"adforge/internal/studio"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = 50 * time.Second
	wsSendBuffer = 32
)

// wsMessage is what subscribers receive: a hello on connect, then one
// message per state transition of their session.
type wsMessage struct {
	Type    string        `json:"type"`
	Session string        `json:"session"`
	Client  string        `json:"client,omitempty"`
	Event   *studio.Event `json:"event,omitempty"`
}

type wsClient struct {
	id      string
	session string
	conn    *websocket.Conn
	send    chan []byte
}

type HubOptions struct {
	AllowedOrigins []string
	Logger         *slog.Logger
}

// Hub fans studio events out to websocket subscribers of the same session.
type Hub struct {
	mu       sync.RWMutex
	clients  map[string]*wsClient
	upgrader websocket.Upgrader
	logger   *slog.Logger
	closed   bool
}

func NewHub(opts HubOptions) *Hub {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	origins := opts.AllowedOrigins

	return &Hub{
		clients: make(map[string]*wsClient),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || slices.Contains(origins, "*") || slices.Contains(origins, origin)
			},
		},
		logger: logger,
	}
}

// Publish implements studio's observer hook. Slow subscribers are
// dropped rather than blocking the generation cycle.
func (h *Hub) Publish(ev studio.Event) {
	msg, err := json.Marshal(wsMessage{Type: "state", Session: ev.SessionID, Event: &ev})
	if err != nil {
		h.logger.Error("encode ws event failed", "err", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	for id, c := range h.clients {
		if c.session != ev.SessionID {
			continue
		}
		select {
		case c.send <- msg:
		default:
			h.logger.Warn("ws subscriber too slow, dropping", "client", id, "session", c.session)
			close(c.send)
			delete(h.clients, id)
		}
	}
}

func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ServeWS upgrades the request and subscribes it to sessionID.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, sessionID string) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("ws upgrade failed", "err", err)
		return
	}

	c := &wsClient{
		id:      uuid.NewString(),
		session: sessionID,
		conn:    conn,
		send:    make(chan []byte, wsSendBuffer),
	}

	hello, _ := json.Marshal(wsMessage{Type: "hello", Session: sessionID, Client: c.id})
	c.send <- hello

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		conn.Close()
		return
	}
	h.clients[c.id] = c
	h.mu.Unlock()

	h.logger.Debug("ws subscribed", "client", c.id, "session", sessionID)

	go h.writePump(c)
	go h.readPump(c)
}

// Close disconnects every subscriber.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.closed = true
	for id, c := range h.clients {
		close(c.send)
		delete(h.clients, id)
	}
}

func (h *Hub) remove(c *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if cur, ok := h.clients[c.id]; ok && cur == c {
		close(c.send)
		delete(h.clients, c.id)
	}
}

func (h *Hub) readPump(c *wsClient) {
	defer func() {
		h.remove(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logger.Warn("ws read failed", "client", c.id, "err", err)
			}
			return
		}
	}
}

func (h *Hub) writePump(c *wsClient) {
	ticker := time.NewTicker(wsPingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				h.logger.Debug("ws write failed", "client", c.id, "err", err)
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
