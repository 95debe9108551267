package hub

import (
	"errors"
	"sort"
	"sync"
)

// DefaultChannel is created at startup and never removed.
const DefaultChannel = "general"

var (
	ErrNicknameTaken = errors.New("nickname already in use")
	ErrNotRegistered = errors.New("connection not registered")
	ErrChannelExists = errors.New("channel already exists")
	ErrNoSuchChannel = errors.New("no such channel")
)

type membership struct {
	nickname string
	channel  string
}

// Registry tracks every registered connection and every channel. Both
// tables live behind one mutex so that cross-table invariants are never
// observable in a half-updated state: a registered client's channel
// always exists and contains it, and a client belongs to exactly one
// channel's member set. Channels are created on demand and never deleted.
type Registry struct {
	mu        sync.Mutex
	clients   map[*Client]*membership
	nicknames map[string]*Client
	channels  map[string]map[*Client]struct{}
}

func NewRegistry() *Registry {
	return &Registry{
		clients:   make(map[*Client]*membership),
		nicknames: make(map[string]*Client),
		channels:  map[string]map[*Client]struct{}{DefaultChannel: {}},
	}
}

// Register binds c to nickname and places it in the default channel.
// Nickname comparison is case-sensitive. On ErrNicknameTaken nothing is
// mutated.
func (r *Registry) Register(c *Client, nickname string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, taken := r.nicknames[nickname]; taken {
		return ErrNicknameTaken
	}
	r.clients[c] = &membership{nickname: nickname, channel: DefaultChannel}
	r.nicknames[nickname] = c
	r.channels[DefaultChannel][c] = struct{}{}
	return nil
}

// Deregister removes c from its channel's member set and from the
// connection table, returning the vacated identity so callers can notify
// peers. Deregistering an unknown client is a no-op reporting
// ErrNotRegistered, so the disconnect path stays idempotent.
func (r *Registry) Deregister(c *Client) (nickname, channel string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.clients[c]
	if !ok {
		return "", "", ErrNotRegistered
	}
	delete(r.channels[m.channel], c)
	delete(r.nicknames, m.nickname)
	delete(r.clients, c)
	return m.nickname, m.channel, nil
}

// MoveChannel relocates c into target, creating the channel if it does
// not exist yet. Joining is unconditional for registered clients.
func (r *Registry) MoveChannel(c *Client, target string) (previous string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.clients[c]
	if !ok {
		return "", ErrNotRegistered
	}
	if r.channels[target] == nil {
		r.channels[target] = make(map[*Client]struct{})
	}
	previous = m.channel
	delete(r.channels[previous], c)
	r.channels[target][c] = struct{}{}
	m.channel = target
	return previous, nil
}

// CreateChannel inserts an empty channel only if the name is unused.
func (r *Registry) CreateChannel(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.channels[name]; exists {
		return ErrChannelExists
	}
	r.channels[name] = make(map[*Client]struct{})
	return nil
}

// LookupNickname resolves a nickname to its live connection.
func (r *Registry) LookupNickname(nickname string) (*Client, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.nicknames[nickname]
	return c, ok
}

// Nickname returns c's registered nickname.
func (r *Registry) Nickname(c *Client) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.clients[c]
	if !ok {
		return "", false
	}
	return m.nickname, true
}

// Channel returns the channel c currently belongs to.
func (r *Registry) Channel(c *Client) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.clients[c]
	if !ok {
		return "", false
	}
	return m.channel, true
}

// ChannelPeers returns c's identity together with a snapshot of its
// current channel's members, all in one critical section, so a chat
// fan-out cannot observe a membership mid-move.
func (r *Registry) ChannelPeers(c *Client) (nickname, channel string, members []*Client, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, registered := r.clients[c]
	if !registered {
		return "", "", nil, false
	}
	set := r.channels[m.channel]
	members = make([]*Client, 0, len(set))
	for peer := range set {
		members = append(members, peer)
	}
	return m.nickname, m.channel, members, true
}

// Members returns a snapshot of the channel's member connections.
func (r *Registry) Members(channel string) ([]*Client, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	set, ok := r.channels[channel]
	if !ok {
		return nil, ErrNoSuchChannel
	}
	members := make([]*Client, 0, len(set))
	for c := range set {
		members = append(members, c)
	}
	return members, nil
}

// MemberNicknames returns the sorted nicknames of the channel's members.
func (r *Registry) MemberNicknames(channel string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	set, ok := r.channels[channel]
	if !ok {
		return nil, ErrNoSuchChannel
	}
	nicknames := make([]string, 0, len(set))
	for c := range set {
		nicknames = append(nicknames, r.clients[c].nickname)
	}
	sort.Strings(nicknames)
	return nicknames, nil
}

// Clients returns a snapshot of every registered connection, for
// relay-wide fan-out after the lock is released.
func (r *Registry) Clients() []*Client {
	r.mu.Lock()
	defer r.mu.Unlock()

	clients := make([]*Client, 0, len(r.clients))
	for c := range r.clients {
		clients = append(clients, c)
	}
	return clients
}

// ChannelNames returns the sorted names of every known channel.
func (r *Registry) ChannelNames() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	names := make([]string, 0, len(r.channels))
	for name := range r.channels {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Snapshot returns the connection count and per-channel member counts.
// Read-only; used by the health reporter.
func (r *Registry) Snapshot() (int, map[string]int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	counts := make(map[string]int, len(r.channels))
	for name, set := range r.channels {
		counts[name] = len(set)
	}
	return len(r.clients), counts
}
