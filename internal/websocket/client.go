package websocket

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

const (
	pongWait     = 60 * time.Second
	pingInterval = 50 * time.Second
	writeWait    = 10 * time.Second
	maxFrameSize = 512
)

// Client is one websocket subscription for a user. A user may hold several
// (multiple tabs); the hub fans out to all of them.
type Client struct {
	userID string
	conn   *websocket.Conn
	send   chan []byte
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

func ServeWS(w http.ResponseWriter, r *http.Request, hub *Hub, userID string) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		http.Error(w, "websocket upgrade failed", http.StatusBadRequest)
		return
	}
	client := &Client{
		userID: userID,
		conn:   conn,
		send:   make(chan []byte, 16),
	}
	hub.Register(userID, client)
	go client.writeLoop(hub)
	client.readLoop(hub)
}

// readLoop drains inbound frames until the peer goes away. The server never
// acts on inbound data; reading keeps pong handling alive.
func (c *Client) readLoop(hub *Hub) {
	defer func() {
		hub.Unregister(c.userID, c)
		_ = c.conn.Close()
	}()
	c.conn.SetReadLimit(maxFrameSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *Client) writeLoop(hub *Hub) {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		hub.Unregister(c.userID, c)
		_ = c.conn.Close()
	}()
	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
