package hub

import (
	"errors"
	"sync"
	"time"

	"github.com/hubline/relay/src/wire"
)

// Client wraps one accepted connection and manages its message flow. The
// transport handle is owned here; the registry only references it.
type Client struct {
	ID          string
	conn        wire.Conn
	hub         *Hub
	send        chan wire.Message
	connectedAt time.Time

	mu     sync.Mutex
	closed bool
	done   chan struct{}
}

// NewClient creates a connection wrapper. The ID is assigned at accept
// time, before a nickname exists, and identifies the connection in logs.
func NewClient(id string, conn wire.Conn, h *Hub) *Client {
	return &Client{
		ID:          id,
		conn:        conn,
		hub:         h,
		send:        make(chan wire.Message, h.sendBuffer),
		connectedAt: time.Now(),
		done:        make(chan struct{}),
	}
}

// ReadPump drives the connection through its lifecycle: the one-shot
// registration gate, then the active loop decoding frames and handing
// them to the router until the stream ends. Any exit path deregisters
// the connection and releases the transport; a failure here never
// reaches another connection's handler.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.Disconnect(c)
		c.conn.Close()
	}()

	first, err := c.conn.ReadMessage()
	if err != nil || first.Type != wire.TypeRegister {
		c.hub.logger.Debug().Str("client_id", c.ID).Msg("connection closed before registering")
		return
	}
	if !c.hub.Register(c, first.Text()) {
		return
	}

	go c.WritePump()

	for {
		msg, err := c.conn.ReadMessage()
		if err != nil {
			// A malformed line leaves the stream aligned on the next
			// delimiter; only transport errors end the session.
			if errors.Is(err, wire.ErrMalformedFrame) {
				c.hub.logger.Debug().Str("client_id", c.ID).Err(err).Msg("discarding malformed frame")
				continue
			}
			return
		}
		c.hub.Route(c, msg)
	}
}

// WritePump drains the send queue to the transport. When the client is
// closed it flushes frames already queued, so a shutdown notice enqueued
// just before Close still reaches the peer.
func (c *Client) WritePump() {
	defer c.conn.Close()

	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				return
			}
			if err := c.conn.WriteMessage(msg); err != nil {
				c.hub.Disconnect(c)
				return
			}
		case <-c.done:
			for {
				select {
				case msg, ok := <-c.send:
					if !ok {
						return
					}
					if c.conn.WriteMessage(msg) != nil {
						return
					}
				default:
					return
				}
			}
		}
	}
}

// enqueue hands a frame to the write pump without blocking the router.
// A full buffer drops the frame; a stalled peer must not stall routing.
func (c *Client) enqueue(msg wire.Message) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	select {
	case c.send <- msg:
	default:
		c.hub.logger.Warn().Str("client_id", c.ID).Msg("send buffer full, dropping frame")
	}
}

// Close stops the pumps. Safe to call more than once.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	close(c.done)
	close(c.send)
}
