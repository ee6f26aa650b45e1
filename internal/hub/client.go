package hub

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/Felag1n/AudioBridge/internal/event"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var (
	// tuning parameters
	writeWait      = 10 * time.Second    // time allowed to write a message to the peer
	pongWait       = 20 * time.Second    // time allowed to read the next pong message from the peer
	pingInterval   = (pongWait * 9) / 10 // send pings to peer with this period
	maxMessageSize = 64 * 1024           // max inbound message size (64KB)
	sendBufSize    = 256                 // per-connection outbound buffer size
	sendTimeout    = 2 * time.Second     // timeout for enqueuing outbound messages
)

// Client is one live websocket connection for one authenticated user.
type Client struct {
	ID     string
	UserID string

	conn *websocket.Conn
	hub  *Hub

	egress chan event.Envelope

	ctx    context.Context
	cancel context.CancelFunc
	once   sync.Once

	closedMu sync.RWMutex
	closed   bool
}

// RegisterClient wires a new client into the hub, starts its pumps and
// pushes the roster snapshot.
func RegisterClient(userID string, conn *websocket.Conn, h *Hub) *Client {
	ctx, cancel := context.WithCancel(context.Background())

	client := &Client{
		ID:     uuid.New().String(),
		UserID: userID,
		conn:   conn,
		hub:    h,
		egress: make(chan event.Envelope, sendBufSize),
		ctx:    ctx,
		cancel: cancel,
	}

	h.register(client)

	go client.readPump()
	go client.writePump()

	h.pushRoster(client)
	return client
}

// readPump reads inbound events and dispatches them inline. Handling events
// on this goroutine keeps one sender's events strictly ordered.
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister(c)
	}()

	c.conn.SetReadLimit(int64(maxMessageSize))
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(c.pongHandler)

	for {
		select {
		case <-c.ctx.Done():
			return
		default:
			var ev event.Envelope

			if err := c.conn.ReadJSON(&ev); err != nil {
				if websocket.IsCloseError(err,
					websocket.CloseNormalClosure,
					websocket.CloseGoingAway,
					websocket.CloseAbnormalClosure,
				) {
					c.hub.logger.Debug("client disconnected", zap.String("client_id", c.ID))
					return
				}

				if ne, ok := err.(net.Error); ok && ne.Timeout() {
					c.hub.logger.Debug("client timed out", zap.String("client_id", c.ID))
					return
				}

				c.hub.logger.Warn("read error",
					zap.String("client_id", c.ID),
					zap.Error(err),
				)
				return
			}

			c.hub.handleEvent(ev, c)
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingInterval)

	defer func() {
		ticker.Stop()
		c.Close()
		_ = c.conn.Close()
	}()

	for {
		select {
		case <-c.ctx.Done():
			return
		case ev := <-c.egress:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(ev); err != nil {
				c.hub.logger.Warn("write error",
					zap.String("client_id", c.ID),
					zap.Error(err),
				)
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}

func (c *Client) pongHandler(string) error {
	return c.conn.SetReadDeadline(time.Now().Add(pongWait))
}

// Send enqueues ev for delivery, waiting up to sendTimeout. A connection
// that cannot drain its egress within the timeout is cut loose.
func (c *Client) Send(ev event.Envelope) {
	if c.IsClosed() {
		return
	}

	select {
	case c.egress <- ev:
	case <-c.ctx.Done():
	case <-time.After(sendTimeout):
		c.hub.logger.Warn("egress full, disconnecting client", zap.String("client_id", c.ID))
		c.hub.unregister(c)
	}
}

// trySend enqueues without blocking. Used for fanout under the registry
// lock, where waiting on a slow consumer is not an option.
func (c *Client) trySend(ev event.Envelope) bool {
	if c.IsClosed() {
		return false
	}

	select {
	case c.egress <- ev:
		return true
	default:
		return false
	}
}

func (c *Client) Close() {
	c.once.Do(func() {
		c.closedMu.Lock()
		c.closed = true
		c.closedMu.Unlock()

		// The egress channel stays open; cancelling the context stops both
		// pumps and the write pump closes the underlying connection.
		c.cancel()
	})
}

// IsClosed returns true if the client has been closed
func (c *Client) IsClosed() bool {
	c.closedMu.RLock()
	defer c.closedMu.RUnlock()
	return c.closed
}
