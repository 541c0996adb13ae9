package ws

import (
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/mmuslimabdulj/pet-lobby/internal/domain"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	// Time allowed to write a message to the peer
	writeWait = domain.WriteWait

	// Time allowed to read the next pong message from the peer
	pongWait = domain.PongWait

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10
)

// Client represents a single websocket connection
type Client struct {
	ID      string
	hub     *Hub
	conn    *websocket.Conn
	send    chan []byte
	limiter *rate.Limiter
	logger  *zap.Logger

	// Owned by the hub loop
	room   string
	userID int
	bound  bool
	closed bool
}

// NewClient creates a new Client. limiter may be nil to disable inbound rate
// limiting.
func NewClient(hub *Hub, conn *websocket.Conn, limiter *rate.Limiter) *Client {
	id := uuid.NewString()
	return &Client{
		ID:      id,
		hub:     hub,
		conn:    conn,
		send:    make(chan []byte, hub.sendBuffer),
		limiter: limiter,
		logger:  hub.logger.With(zap.String("conn_id", id)),
		room:    hub.serverID,
	}
}

// UserID returns the bound identity. Only meaningful on the hub loop.
func (c *Client) UserID() (int, bool) {
	return c.userID, c.bound
}

// ReadPump pumps frames from the websocket connection to the hub
func (c *Client) ReadPump() {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(c.hub.maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Warn("websocket read failed", zap.Error(err))
			}
			break
		}

		if c.limiter != nil && !c.limiter.Allow() {
			c.logger.Debug("inbound rate limit exceeded, dropping frame")
			continue
		}

		if !c.hub.Inbound(c, message) {
			break
		}
	}
}

// WritePump pumps messages from the hub to the websocket connection. Each
// queued message is written as its own text frame.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.logger.Debug("websocket write failed", zap.Error(err))
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

// enqueue adds a message to the client's send queue without blocking. It
// reports false when the message was dropped. Must run on the hub loop.
func (c *Client) enqueue(msg []byte) bool {
	if c.closed {
		return false
	}
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

// close ends the outbound queue, which makes WritePump close the socket.
// Must run on the hub loop.
func (c *Client) close() {
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}
