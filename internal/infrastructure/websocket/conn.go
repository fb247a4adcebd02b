package websocket

import (
	"sync"

	"github.com/gorilla/websocket"
)

// Conn wraps a gorilla websocket connection behind the LiveConnection
// interface. Gorilla connections allow a single concurrent writer, so
// Send serializes writes with a mutex.
type Conn struct {
	mu sync.Mutex
	ws *websocket.Conn
}

func NewConn(ws *websocket.Conn) *Conn {
	return &Conn{ws: ws}
}

func (c *Conn) Send(payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ws.WriteMessage(websocket.TextMessage, payload)
}

func (c *Conn) Close() error {
	return c.ws.Close()
}
