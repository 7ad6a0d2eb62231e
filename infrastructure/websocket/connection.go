// Package websocket carries chat frames over gorilla websocket connections.
package websocket

import (
	"log/slog"
	"sync"
	"time"

	"listing-chat/errors"

	"github.com/gorilla/websocket"
)

const writeWait = 10 * time.Second

// Connection wraps a websocket and coordinates outbound writes via a buffered channel.
// It is safe for concurrent use. The send channel is never closed: the write
// loop exits on done, so a late Send cannot panic.
type Connection struct {
	ws         *websocket.Conn
	log        *slog.Logger
	send       chan []byte
	pingPeriod time.Duration
	once       sync.Once
	done       chan struct{}
}

func NewConnection(ws *websocket.Conn, log *slog.Logger, bufferSize int, pingPeriod time.Duration) *Connection {
	return &Connection{
		ws:         ws,
		log:        log,
		send:       make(chan []byte, bufferSize),
		pingPeriod: pingPeriod,
		done:       make(chan struct{}),
	}
}

// Start launches the write loop. It must be called exactly once per connection.
func (c *Connection) Start() {
	go c.writeLoop()
}

// Send enqueues payload for delivery. If the client is slow and the buffer is full,
// the connection is closed to keep backpressure bounded.
func (c *Connection) Send(payload []byte) error {
	select {
	case <-c.done:
		return errors.ErrConnectionClosed
	default:
	}
	select {
	case c.send <- payload:
		return nil
	default:
		c.Close("send buffer full")
		return errors.ErrSendBufferFull
	}
}

// Close marks the connection done right away, then sends a close frame with
// reason and releases the socket in the background so that a caller
// broadcasting to a slow client is never blocked. Only the first call has an effect.
func (c *Connection) Close(reason string) {
	c.once.Do(func() {
		close(c.done)
		go func() {
			msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, reason)
			_ = c.ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
			_ = c.ws.Close()
		}()
	})
}

func (c *Connection) Done() <-chan struct{} {
	return c.done
}

func (c *Connection) writeLoop() {
	ticker := time.NewTicker(c.pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case msg := <-c.send:
			if err := c.write(websocket.TextMessage, msg); err != nil {
				c.log.Debug("Write failed, closing connection", "error", err)
				c.Close("write failed")
				return
			}
		case <-ticker.C:
			if err := c.write(websocket.PingMessage, nil); err != nil {
				c.Close("ping failed")
				return
			}
		}
	}
}

func (c *Connection) write(messageType int, payload []byte) error {
	if err := c.ws.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.ws.WriteMessage(messageType, payload)
}
