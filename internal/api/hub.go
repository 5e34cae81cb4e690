package api

import (
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 50 * time.Second
	sendBuffer = 16
)

var upgrader = websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}

// wsMsg is one message pushed to a view
type wsMsg struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

type wsClient struct {
	conn *websocket.Conn
	send chan wsMsg
}

// Hub fans session updates out to connected views
type Hub struct {
	mu      sync.Mutex
	clients map[string]map[*wsClient]struct{}
}

// NewHub creates an empty hub
func NewHub() *Hub {
	return &Hub{clients: make(map[string]map[*wsClient]struct{})}
}

// Publish queues msg for every view of a session. It never blocks; a view
// that cannot keep up is disconnected.
func (h *Hub) Publish(sessionID string, msg wsMsg) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients[sessionID] {
		select {
		case c.send <- msg:
		default:
			log.Printf("ws: dropping slow client of session %s", sessionID)
			h.removeLocked(sessionID, c)
		}
	}
}

// Count returns the number of views attached to a session
func (h *Hub) Count(sessionID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients[sessionID])
}

// Serve attaches conn to a session and blocks until it disconnects
func (h *Hub) Serve(sessionID string, conn *websocket.Conn, initial wsMsg) {
	c := &wsClient{conn: conn, send: make(chan wsMsg, sendBuffer)}
	c.send <- initial

	h.mu.Lock()
	if h.clients[sessionID] == nil {
		h.clients[sessionID] = make(map[*wsClient]struct{})
	}
	h.clients[sessionID][c] = struct{}{}
	h.mu.Unlock()

	go c.writer()
	c.reader()

	h.mu.Lock()
	h.removeLocked(sessionID, c)
	h.mu.Unlock()
}

func (h *Hub) removeLocked(sessionID string, c *wsClient) {
	set, ok := h.clients[sessionID]
	if !ok {
		return
	}
	if _, ok := set[c]; !ok {
		return
	}
	delete(set, c)
	close(c.send)
	if len(set) == 0 {
		delete(h.clients, sessionID)
	}
}

// reader drains client frames; views are push-only
func (c *wsClient) reader() {
	c.conn.SetReadLimit(4096)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("ws: read error: %v", err)
			}
			return
		}
	}
}

func (c *wsClient) writer() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(msg); err != nil {
				log.Printf("ws: write error: %v", err)
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
