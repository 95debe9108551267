package hub

import (
	"fmt"
	"time"

	"github.com/hubline/relay/src/wire"
)

// Route dispatches one decoded inbound frame from an active connection.
// Registry mutations are atomic per frame; fan-out always works on a
// member snapshot taken under the lock, never on the live maps.
// Unrecognized types are ignored with a diagnostic log and no reply.
func (h *Hub) Route(c *Client, msg wire.Message) {
	switch msg.Type {
	case wire.TypeChat:
		h.routeChat(c, msg)
	case wire.TypePrivate:
		h.routePrivate(c, msg)
	case wire.TypeJoinChannel:
		h.routeJoin(c, msg)
	case wire.TypeCreateChannel:
		h.routeCreate(c, msg)
	case wire.TypeListUsers:
		h.routeListUsers(c, msg)
	default:
		h.logger.Debug().Str("client_id", c.ID).Str("type", msg.Type).Msg("unrecognized frame type")
	}
}

// routeChat forwards the frame to every member of the sender's current
// channel. The sender is part of the fan-out only when it asked for an
// echo.
func (h *Hub) routeChat(c *Client, msg wire.Message) {
	nickname, channel, members, ok := h.registry.ChannelPeers(c)
	if !ok {
		return
	}
	out := wire.Message{
		Type:      wire.TypeChat,
		Sender:    nickname,
		Recipient: channel,
		Content:   msg.Text(),
		Timestamp: wire.Stamp(time.Now()),
	}
	for _, m := range members {
		if m == c && !msg.Echo {
			continue
		}
		m.enqueue(out)
	}
}

// routePrivate delivers to the resolved nickname only; an unresolvable
// recipient produces an error reply to the sender and nothing else.
func (h *Hub) routePrivate(c *Client, msg wire.Message) {
	nickname, ok := h.registry.Nickname(c)
	if !ok {
		return
	}
	target, found := h.registry.LookupNickname(msg.Recipient)
	if !found {
		c.enqueue(wire.ServerError(nickname, fmt.Sprintf("User '%s' not found.", msg.Recipient)))
		return
	}
	out := wire.Message{
		Type:      wire.TypePrivate,
		Sender:    nickname,
		Recipient: msg.Recipient,
		Content:   msg.Text(),
		Timestamp: wire.Stamp(time.Now()),
	}
	target.enqueue(out)
	if msg.Echo {
		c.enqueue(out)
	}
}

// routeJoin moves the sender into the named channel, creating it on
// first use, and announces the arrival to the channel's other members.
func (h *Hub) routeJoin(c *Client, msg wire.Message) {
	name := msg.Text()
	if _, err := h.registry.MoveChannel(c, name); err != nil {
		return
	}
	nickname, _ := h.registry.Nickname(c)

	h.logger.Debug().Str("nickname", nickname).Str("channel", name).Msg("joined channel")

	c.enqueue(wire.ServerInfo(nickname, fmt.Sprintf("You joined channel '%s'", name)))

	members, err := h.registry.Members(name)
	if err != nil {
		return
	}
	announce := wire.ServerInfo(name, fmt.Sprintf("%s has joined this channel.", nickname))
	for _, m := range members {
		if m == c {
			continue
		}
		m.enqueue(announce)
	}
}

// routeCreate inserts an empty channel and broadcasts the refreshed
// channel list to everyone. A name collision is reported to the sender
// only, with no broadcast.
func (h *Hub) routeCreate(c *Client, msg wire.Message) {
	nickname, ok := h.registry.Nickname(c)
	if !ok {
		return
	}
	name := msg.Text()
	if err := h.registry.CreateChannel(name); err != nil {
		c.enqueue(wire.ServerError(nickname, fmt.Sprintf("Channel '%s' already exists.", name)))
		return
	}

	h.logger.Info().Str("nickname", nickname).Str("channel", name).Msg("channel created")

	c.enqueue(wire.ServerInfo(nickname, fmt.Sprintf("Channel '%s' created.", name)))
	h.broadcast(wire.ChannelsList(wire.BroadcastRecipient, h.registry.ChannelNames()), nil)
}

// routeListUsers replies with the member nicknames of the named channel,
// defaulting to the sender's current one.
func (h *Hub) routeListUsers(c *Client, msg wire.Message) {
	nickname, ok := h.registry.Nickname(c)
	if !ok {
		return
	}
	name := msg.Text()
	if name == "" {
		name, _ = h.registry.Channel(c)
	}
	users, err := h.registry.MemberNicknames(name)
	if err != nil {
		c.enqueue(wire.ServerError(nickname, fmt.Sprintf("Channel '%s' does not exist.", name)))
		return
	}
	c.enqueue(wire.UsersList(nickname, users))
}
