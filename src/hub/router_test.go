package hub_test

import (
	"testing"

	"github.com/hubline/relay/src/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func joinChannel(conn *mockConn, name string) {
	conn.push(wire.Message{Type: wire.TypeJoinChannel, Content: name})
}

func TestChatReachesChannelWithoutEcho(t *testing.T) {
	h := newTestHub()
	_, aliceConn := connect(t, h, "alice")
	_, bobConn := connect(t, h, "bob")
	joinChannel(aliceConn, "dev")
	joinChannel(bobConn, "dev")
	settle()

	aliceConn.push(wire.Message{Type: wire.TypeChat, Content: "hello dev", Echo: false})
	settle()

	received := bobConn.framesOf(wire.TypeChat)
	require.Len(t, received, 1)
	assert.Equal(t, "alice", received[0].Sender)
	assert.Equal(t, "dev", received[0].Recipient)
	assert.Equal(t, "hello dev", received[0].Text())
	assert.NotEmpty(t, received[0].Timestamp)

	assert.Empty(t, aliceConn.framesOf(wire.TypeChat), "sender did not ask for an echo")
}

func TestChatEchoIncludesSender(t *testing.T) {
	h := newTestHub()
	_, aliceConn := connect(t, h, "alice")
	settle()

	aliceConn.push(wire.Message{Type: wire.TypeChat, Content: "talking to myself", Echo: true})
	settle()

	received := aliceConn.framesOf(wire.TypeChat)
	require.Len(t, received, 1)
	assert.Equal(t, "talking to myself", received[0].Text())
}

func TestChatScopedToCurrentChannel(t *testing.T) {
	h := newTestHub()
	_, aliceConn := connect(t, h, "alice")
	_, carolConn := connect(t, h, "carol")
	joinChannel(aliceConn, "dev")
	settle()

	aliceConn.push(wire.Message{Type: wire.TypeChat, Content: "dev only"})
	settle()

	assert.Empty(t, carolConn.framesOf(wire.TypeChat), "carol is still in general")
}

func TestPrivateDeliveryAndEcho(t *testing.T) {
	h := newTestHub()
	_, aliceConn := connect(t, h, "alice")
	_, bobConn := connect(t, h, "bob")
	_, carolConn := connect(t, h, "carol")
	settle()

	aliceConn.push(wire.Message{Type: wire.TypePrivate, Recipient: "bob", Content: "psst", Echo: true})
	settle()

	received := bobConn.framesOf(wire.TypePrivate)
	require.Len(t, received, 1)
	assert.Equal(t, "alice", received[0].Sender)
	assert.Equal(t, "bob", received[0].Recipient)
	assert.Equal(t, "psst", received[0].Text())

	echoed := aliceConn.framesOf(wire.TypePrivate)
	require.Len(t, echoed, 1)
	assert.Equal(t, "psst", echoed[0].Text())

	assert.Empty(t, carolConn.framesOf(wire.TypePrivate), "third parties see nothing")
}

func TestPrivateWithoutEcho(t *testing.T) {
	h := newTestHub()
	_, aliceConn := connect(t, h, "alice")
	_, bobConn := connect(t, h, "bob")
	settle()

	aliceConn.push(wire.Message{Type: wire.TypePrivate, Recipient: "bob", Content: "quiet"})
	settle()

	assert.Len(t, bobConn.framesOf(wire.TypePrivate), 1)
	assert.Empty(t, aliceConn.framesOf(wire.TypePrivate))
}

func TestPrivateToUnknownRecipient(t *testing.T) {
	h := newTestHub()
	_, aliceConn := connect(t, h, "alice")
	_, carolConn := connect(t, h, "carol")
	settle()

	aliceConn.push(wire.Message{Type: wire.TypePrivate, Recipient: "bob", Content: "anyone there?"})
	settle()

	errs := aliceConn.framesOf(wire.TypeError)
	require.Len(t, errs, 1)
	assert.Equal(t, "User 'bob' not found.", errs[0].Text())

	assert.Empty(t, carolConn.framesOf(wire.TypeError), "no other connection is affected")
	assert.Empty(t, carolConn.framesOf(wire.TypePrivate))
}

func TestJoinChannelNotifiesBothSides(t *testing.T) {
	h := newTestHub()
	_, aliceConn := connect(t, h, "alice")
	joinChannel(aliceConn, "dev")
	settle()

	_, bobConn := connect(t, h, "bob")
	joinChannel(bobConn, "dev")
	settle()

	var joined bool
	for _, f := range bobConn.framesOf(wire.TypeInfo) {
		if f.Text() == "You joined channel 'dev'" {
			joined = true
		}
	}
	assert.True(t, joined, "bob should get the join confirmation")

	var announced bool
	for _, f := range aliceConn.framesOf(wire.TypeInfo) {
		if f.Text() == "bob has joined this channel." {
			announced = true
			assert.Equal(t, "dev", f.Recipient)
		}
	}
	assert.True(t, announced, "alice should see bob arrive in dev")
}

func TestCreateChannelBroadcastsList(t *testing.T) {
	h := newTestHub()
	_, aliceConn := connect(t, h, "alice")
	_, bobConn := connect(t, h, "bob")
	settle()

	aliceConn.push(wire.Message{Type: wire.TypeCreateChannel, Content: "ops"})
	settle()

	var created bool
	for _, f := range aliceConn.framesOf(wire.TypeInfo) {
		if f.Text() == "Channel 'ops' created." {
			created = true
		}
	}
	assert.True(t, created)

	// Everyone gets the refreshed list, the one from registration plus
	// this broadcast.
	lists := bobConn.framesOf(wire.TypeChannelsList)
	require.Len(t, lists, 2)
	assert.Equal(t, []string{"general", "ops"}, lists[1].List())
}

func TestCreateExistingChannelErrorsWithoutBroadcast(t *testing.T) {
	h := newTestHub()
	_, aliceConn := connect(t, h, "alice")
	_, bobConn := connect(t, h, "bob")
	settle()

	require.NoError(t, h.Registry().CreateChannel("ops"))
	before := len(bobConn.framesOf(wire.TypeChannelsList))

	aliceConn.push(wire.Message{Type: wire.TypeCreateChannel, Content: "ops"})
	settle()

	errs := aliceConn.framesOf(wire.TypeError)
	require.Len(t, errs, 1)
	assert.Equal(t, "Channel 'ops' already exists.", errs[0].Text())

	assert.Len(t, bobConn.framesOf(wire.TypeChannelsList), before,
		"a rejected create must not broadcast a channel list")
}

func TestListUsersDefaultsToCurrentChannel(t *testing.T) {
	h := newTestHub()
	_, aliceConn := connect(t, h, "alice")
	_, bobConn := connect(t, h, "bob")
	joinChannel(aliceConn, "dev")
	joinChannel(bobConn, "dev")
	settle()

	aliceConn.push(wire.Message{Type: wire.TypeListUsers})
	settle()

	lists := aliceConn.framesOf(wire.TypeUsersList)
	require.Len(t, lists, 1)
	assert.Equal(t, []string{"alice", "bob"}, lists[0].List())
}

func TestListUsersExplicitChannel(t *testing.T) {
	h := newTestHub()
	_, aliceConn := connect(t, h, "alice")
	_, bobConn := connect(t, h, "bob")
	joinChannel(bobConn, "dev")
	settle()

	aliceConn.push(wire.Message{Type: wire.TypeListUsers, Content: "dev"})
	settle()

	lists := aliceConn.framesOf(wire.TypeUsersList)
	require.Len(t, lists, 1)
	assert.Equal(t, []string{"bob"}, lists[0].List())
}

func TestListUsersUnknownChannel(t *testing.T) {
	h := newTestHub()
	_, aliceConn := connect(t, h, "alice")
	settle()

	aliceConn.push(wire.Message{Type: wire.TypeListUsers, Content: "nowhere"})
	settle()

	errs := aliceConn.framesOf(wire.TypeError)
	require.Len(t, errs, 1)
	assert.Equal(t, "Channel 'nowhere' does not exist.", errs[0].Text())
}

func TestUnrecognizedTypeIsIgnored(t *testing.T) {
	h := newTestHub()
	_, aliceConn := connect(t, h, "alice")
	settle()
	before := len(aliceConn.frames())

	aliceConn.push(wire.Message{Type: "dance", Content: "macarena"})
	settle()

	assert.Len(t, aliceConn.frames(), before, "no reply for an unknown type")

	// The connection keeps working afterwards.
	aliceConn.push(wire.Message{Type: wire.TypeChat, Content: "still here", Echo: true})
	settle()
	require.Len(t, aliceConn.framesOf(wire.TypeChat), 1)
	assert.False(t, aliceConn.isClosed())
}
