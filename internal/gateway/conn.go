package gateway

import (
	"sync"

	"github.com/gorilla/websocket"

	"tgranger/pkg/logger"
)

// reply is one outbound JSON envelope. Every reply carries a status field.
type reply map[string]interface{}

// conn wraps a websocket connection with a write lock so the reader
// goroutine and scrape-run goroutines never interleave frames, plus the
// phone key established by the last successful login_phone.
type conn struct {
	ws *websocket.Conn

	writeMu sync.Mutex
	closed  bool

	mu    sync.Mutex
	phone string
}

func newConn(ws *websocket.Conn) *conn {
	return &conn{ws: ws}
}

// send writes one JSON envelope. Errors after close are dropped; a failed
// write marks the connection closed so event streams stop logging noise.
func (c *conn) send(r reply) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if c.closed {
		return
	}
	if err := c.ws.WriteJSON(r); err != nil {
		c.closed = true
		logger.GetLogger().WithError(err).Debug("websocket write failed")
	}
}

// sendStatus is the common status+message reply shape.
func (c *conn) sendStatus(status, message string) {
	c.send(reply{"status": status, "message": message})
}

// sendError reports a failure envelope.
func (c *conn) sendError(message string) {
	c.sendStatus("error", message)
}

// close shuts the underlying socket.
func (c *conn) close() {
	c.writeMu.Lock()
	c.closed = true
	c.writeMu.Unlock()
	_ = c.ws.Close()
}

// setPhoneKey records the authenticated phone for this connection.
func (c *conn) setPhoneKey(phone string) {
	c.mu.Lock()
	c.phone = phone
	c.mu.Unlock()
}

// phoneKey returns the established phone, or "" when none.
func (c *conn) phoneKey() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phone
}
