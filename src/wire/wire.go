// Package wire defines the relay's message frame and its newline-delimited
// JSON encoding on a byte stream.
package wire

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"
)

// ServerName is the sender identity on server-originated frames.
const ServerName = "SERVER"

// BroadcastRecipient marks a frame addressed to every connected client.
const BroadcastRecipient = "all"

// Inbound frame types.
const (
	TypeRegister      = "register"
	TypeChat          = "chat"
	TypePrivate       = "private"
	TypeJoinChannel   = "join_channel"
	TypeCreateChannel = "create_channel"
	TypeListUsers     = "list_users"
)

// Outbound-only frame types. Chat and private frames are forwarded under
// their inbound names.
const (
	TypeInfo           = "info"
	TypeError          = "error"
	TypeChannelsList   = "channels_list"
	TypeUsersList      = "users_list"
	TypeServerShutdown = "server_shutdown"
)

// Message is one protocol frame. Content carries a string for chat,
// private, info and error frames and a list of strings for channels_list
// and users_list frames. Echo is meaningful only on inbound chat and
// private frames and asks the server to deliver the sender's own copy.
type Message struct {
	Type      string `json:"type"`
	Sender    string `json:"sender,omitempty"`
	Recipient string `json:"recipient,omitempty"`
	Content   any    `json:"content,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
	Echo      bool   `json:"echo,omitempty"`
}

// Text returns the content as a string, or "" when the frame carries a
// list or no content.
func (m Message) Text() string {
	s, _ := m.Content.(string)
	return s
}

// List returns the content as a string slice. Decoded JSON arrays arrive
// as []any; non-string elements are skipped.
func (m Message) List() []string {
	switch v := m.Content.(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// Stamp formats t the way timestamps appear on the wire.
func Stamp(t time.Time) string {
	return t.Format("15:04:05")
}

func serverMessage(typ, recipient string, content any) Message {
	return Message{
		Type:      typ,
		Sender:    ServerName,
		Recipient: recipient,
		Content:   content,
		Timestamp: Stamp(time.Now()),
	}
}

// ServerInfo builds a server-stamped info frame for recipient.
func ServerInfo(recipient, text string) Message {
	return serverMessage(TypeInfo, recipient, text)
}

// ServerError builds a server-stamped error frame for recipient.
func ServerError(recipient, text string) Message {
	return serverMessage(TypeError, recipient, text)
}

// ChannelsList builds a channels_list frame carrying the given names.
func ChannelsList(recipient string, names []string) Message {
	return serverMessage(TypeChannelsList, recipient, names)
}

// UsersList builds a users_list frame carrying the given nicknames.
func UsersList(recipient string, nicknames []string) Message {
	return serverMessage(TypeUsersList, recipient, nicknames)
}

// ShutdownNotice builds the frame broadcast while the server drains.
func ShutdownNotice() Message {
	return serverMessage(TypeServerShutdown, BroadcastRecipient, "Server is shutting down.")
}

// ErrEmbeddedNewline reports a frame whose serialized form would break the
// line framing. JSON string escaping makes this unreachable for ordinary
// content; the encoder still refuses rather than corrupt the stream.
var ErrEmbeddedNewline = errors.New("wire: frame contains embedded newline")

// ErrMalformedFrame reports a complete line that did not decode. The
// delimiter keeps the stream aligned, so the reader may log it and read
// the next frame; transport errors are returned unwrapped.
var ErrMalformedFrame = errors.New("wire: malformed frame")

// Encode serializes one frame, newline terminator included.
func Encode(m Message) ([]byte, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	if bytes.IndexByte(data, '\n') >= 0 {
		return nil, ErrEmbeddedNewline
	}
	return append(data, '\n'), nil
}

// Conn abstracts a framed connection so the hub can be exercised against
// an in-memory transport in tests.
type Conn interface {
	ReadMessage() (Message, error)
	WriteMessage(Message) error
	Close() error
}

type streamConn struct {
	rwc io.ReadWriteCloser
	r   *bufio.Reader
}

// Wrap frames messages over a byte stream, one JSON object per line.
// Partial reads are buffered until a full line is available, and several
// frames arriving in one read are handed out one at a time.
func Wrap(rwc io.ReadWriteCloser) Conn {
	return &streamConn{rwc: rwc, r: bufio.NewReader(rwc)}
}

func (c *streamConn) ReadMessage() (Message, error) {
	line, err := c.r.ReadBytes('\n')
	if err != nil {
		return Message{}, err
	}
	var m Message
	if err := json.Unmarshal(line, &m); err != nil {
		return Message{}, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}
	return m, nil
}

func (c *streamConn) WriteMessage(m Message) error {
	data, err := Encode(m)
	if err != nil {
		return err
	}
	_, err = c.rwc.Write(data)
	return err
}

func (c *streamConn) Close() error {
	return c.rwc.Close()
}
