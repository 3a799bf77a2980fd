package collab

import (
	"time"

	"github.com/gorilla/websocket"

	"github.com/sheetsync/sheetsync/backend/go-services/pkg/logger"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 1 << 20 // 1 MiB; deltas and full sheets stay well below this
	sendBuffer     = 256
)

// client wraps one websocket connection. Outbound messages go through a
// buffered channel so the relay never blocks on a slow peer; the write pump
// is the only goroutine touching conn writes.
type client struct {
	conn   *websocket.Conn
	send   chan []byte
	connID string
	userID string
}

func newClient(conn *websocket.Conn, connID, userID string) *client {
	return &client{
		conn:   conn,
		send:   make(chan []byte, sendBuffer),
		connID: connID,
		userID: userID,
	}
}

// Send queues msg for delivery. Reports false when the peer's buffer is
// full; the message is dropped rather than stalling the whole room.
func (c *client) Send(msg []byte) bool {
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

// readPump reads inbound frames and hands them to onMessage. It returns on
// any read error (including normal close); the caller runs cleanup.
func (c *client) readPump(onMessage func([]byte)) {
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		_, buf, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Debugf("websocket read (%s): %v", c.connID, err)
			}
			return
		}
		onMessage(buf)
	}
}

// writePump drains the send channel onto the connection and keeps the peer
// alive with pings. Exits when the send channel is closed.
func (c *client) writePump() {
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
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
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
