package websocket

import (
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

const (
	writeWait   = 10 * time.Second
	idleTimeout = 60 * time.Second
	pingEvery   = idleTimeout * 9 / 10
	// Clients only send pongs and close frames.
	maxInbound = 512
	sendBuffer = 64
)

// Client is one live connection of a user. The hub owns Send and closes it on unregister.
type Client struct {
	Hub    *Hub
	Conn   *websocket.Conn
	UserID uuid.UUID
	Send   chan []byte
}

// ServeWs registers the connection and blocks until the peer goes away.
func ServeWs(hub *Hub, conn *websocket.Conn, userID uuid.UUID) {
	c := &Client{Hub: hub, Conn: conn, UserID: userID, Send: make(chan []byte, sendBuffer)}
	if !hub.join(c) {
		_ = conn.Close()
		return
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		c.writeLoop()
	}()
	c.readLoop()
	hub.leave(c)
	_ = conn.Close()
	select {
	case <-done:
	case <-hub.stopped:
	}
}

func (c *Client) extendDeadline() error {
	return c.Conn.SetReadDeadline(time.Now().Add(idleTimeout))
}

func (c *Client) readLoop() {
	c.Conn.SetReadLimit(maxInbound)
	_ = c.extendDeadline()
	c.Conn.SetPongHandler(func(string) error { return c.extendDeadline() })

	for {
		_, _, err := c.Conn.ReadMessage()
		if err == nil {
			continue
		}
		if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
			c.Hub.logger.Warn("WS", "Connection closed unexpectedly", map[string]interface{}{
				"user_id": c.UserID.String(),
				"error":   err.Error(),
			})
		}
		return
	}
}

// writeLoop exits when the hub closes Send or a write fails. A failed write closes the socket so readLoop returns too.
func (c *Client) writeLoop() {
	ping := time.NewTicker(pingEvery)
	defer ping.Stop()
	defer c.Conn.Close()

	for {
		select {
		case msg, open := <-c.Send:
			deadline := time.Now().Add(writeWait)
			if !open {
				_ = c.Conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
				return
			}
			_ = c.Conn.SetWriteDeadline(deadline)
			if err := c.Conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ping.C:
			if err := c.Conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}
