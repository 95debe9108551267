// Package hub is the relay core: the connection/channel registry, the
// message router, and the per-connection lifecycle. One hub serves one
// process; state lives only as long as the process and its connections.
package hub

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/hubline/relay/src/wire"
	"github.com/rs/zerolog"
)

// Hub owns the registry and routes every decoded inbound frame to the
// state change and fan-out its type prescribes.
type Hub struct {
	registry   *Registry
	logger     zerolog.Logger
	sendBuffer int
	draining   atomic.Bool
}

// New creates a hub with the default channel already present.
func New(logger zerolog.Logger, sendBuffer int) *Hub {
	return &Hub{
		registry:   NewRegistry(),
		logger:     logger.With().Str("component", "hub").Logger(),
		sendBuffer: sendBuffer,
	}
}

// Registry exposes the registry for diagnostics and tests.
func (h *Hub) Registry() *Registry {
	return h.registry
}

// Register runs the one-shot registration gate for c and reports whether
// the connection may proceed to the active loop. On success the new
// client gets a welcome and the current channel list, and everyone else
// learns about the arrival. On a nickname collision the error frame is
// written directly — the write pump is not running yet — and the
// connection is rejected.
func (h *Hub) Register(c *Client, nickname string) bool {
	if err := h.registry.Register(c, nickname); err != nil {
		h.logger.Warn().Str("client_id", c.ID).Str("nickname", nickname).Msg("nickname collision")
		c.conn.WriteMessage(wire.ServerError(nickname,
			"Nickname already in use. Please choose another one."))
		return false
	}

	h.logger.Info().Str("client_id", c.ID).Str("nickname", nickname).Msg("client registered")

	c.enqueue(wire.ServerInfo(nickname,
		fmt.Sprintf("Welcome %s! You are in the '%s' channel.", nickname, DefaultChannel)))
	c.enqueue(wire.ChannelsList(nickname, h.registry.ChannelNames()))
	h.broadcast(wire.ServerInfo(wire.BroadcastRecipient,
		fmt.Sprintf("%s has joined the chat.", nickname)), c)
	return true
}

// Disconnect removes c from the registry and notifies the remaining
// clients. Calling it for an already-removed connection is a no-op, so
// the read pump, the write pump, and shutdown may all race to it safely.
func (h *Hub) Disconnect(c *Client) {
	nickname, channel, err := h.registry.Deregister(c)
	c.Close()
	if err != nil {
		return
	}

	h.logger.Info().
		Str("client_id", c.ID).
		Str("nickname", nickname).
		Str("channel", channel).
		Dur("session", time.Since(c.connectedAt)).
		Msg("client disconnected")

	// During drain the shutdown notice replaces individual departures.
	if h.draining.Load() {
		return
	}
	h.broadcast(wire.ServerInfo(wire.BroadcastRecipient,
		fmt.Sprintf("%s has left the chat.", nickname)), nil)
}

// Shutdown sends every client the shutdown notice and force-closes the
// connections, bypassing per-connection departure broadcasts.
func (h *Hub) Shutdown() {
	h.draining.Store(true)

	clients := h.registry.Clients()
	h.logger.Info().Int("clients", len(clients)).Msg("shutting down, notifying clients")

	notice := wire.ShutdownNotice()
	for _, c := range clients {
		c.enqueue(notice)
		c.Close()
	}
}

// broadcast fans a frame out to every registered client except skip. The
// recipient list is snapshotted under the registry lock and delivery
// happens after release, so one stalled peer cannot block routing.
func (h *Hub) broadcast(msg wire.Message, skip *Client) {
	for _, c := range h.registry.Clients() {
		if c == skip {
			continue
		}
		c.enqueue(msg)
	}
}
