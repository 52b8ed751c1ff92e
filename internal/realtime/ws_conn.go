package realtime

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// wsConn adapts a gorilla connection to Conn. It keeps the connection alive
// with pings and treats a missing pong within pongTimeout as a dead peer.
type wsConn struct {
	conn         *websocket.Conn
	writeTimeout time.Duration
	pongTimeout  time.Duration

	done      chan struct{}
	closeOnce sync.Once
	closeErr  error
}

func newWSConn(
	conn *websocket.Conn,
	maxFrameBytes int64,
	writeTimeout, pongTimeout, pingInterval time.Duration,
) *wsConn {
	c := &wsConn{
		conn:         conn,
		writeTimeout: writeTimeout,
		pongTimeout:  pongTimeout,
		done:         make(chan struct{}),
	}

	conn.SetReadLimit(maxFrameBytes)
	_ = conn.SetReadDeadline(time.Now().Add(pongTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(c.pongTimeout))
	})

	go c.ping(pingInterval)
	return c
}

func (c *wsConn) ping(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			deadline := time.Now().Add(c.writeTimeout)
			if err := c.conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				return
			}
		}
	}
}

// ReadMessage implements Conn.
func (c *wsConn) ReadMessage() ([]byte, error) {
	_, data, err := c.conn.ReadMessage()
	return data, err
}

// WriteMessage implements Transport. Callers serialize writes.
func (c *wsConn) WriteMessage(data []byte, deadline time.Time) error {
	if err := c.conn.SetWriteDeadline(deadline); err != nil {
		return err
	}
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// Close implements Transport.
func (c *wsConn) Close(code int, reason string) error {
	c.closeOnce.Do(func() {
		close(c.done)
		msg := websocket.FormatCloseMessage(code, reason)
		_ = c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(c.writeTimeout))
		c.closeErr = c.conn.Close()
	})
	return c.closeErr
}
