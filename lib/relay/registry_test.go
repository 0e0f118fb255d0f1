package relay

import (
	"testing"

	"github.com/nodecrypt/nodecrypt/lib/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// joinedSession runs a full handshake and join against a fresh session.
func joinedSession(t *testing.T, user string) (*ClientSession, *testPeer) {
	t.Helper()
	sess, peer, serverT := newSessionPair(t)
	peer.sendKeyExchange()
	_, err := pump(t, sess, serverT)
	require.NoError(t, err)
	peer.finishHandshake()

	peer.sendInner(&protocol.Envelope{
		Action:   protocol.ActionJoin,
		UserName: user,
		Channel:  "#test",
	})
	_, err = pump(t, sess, serverT)
	require.NoError(t, err)
	return sess, peer
}

func TestChannelJoinSendsWarmupLists(t *testing.T) {
	ch := NewChannel("#test")

	alice, alicePeer := joinedSession(t, "alice")
	ch.Join(alice)

	// The joiner gets its individual list first, then the broadcast: the
	// two-frame warmup.
	first := alicePeer.readInner()
	require.Equal(t, protocol.ActionList, first.Action)
	require.Len(t, first.Clients, 1)
	assert.Equal(t, alice.ID, first.Clients[0].ClientID)

	second := alicePeer.readInner()
	assert.Equal(t, protocol.ActionList, second.Action)

	bob, bobPeer := joinedSession(t, "bob")
	ch.Join(bob)

	// Existing members learn about the join.
	updated := alicePeer.readInner()
	require.Equal(t, protocol.ActionList, updated.Action)
	assert.Len(t, updated.Clients, 2)

	// Rejoining must not duplicate membership.
	ch.Join(bob)
	assert.Len(t, ch.Members(), 2)

	_ = bobPeer.readInner()
	_ = bobPeer.readInner()
}

func TestChannelForwardBroadcast(t *testing.T) {
	ch := NewChannel("#test")
	alice, alicePeer := joinedSession(t, "alice")
	bob, bobPeer := joinedSession(t, "bob")
	ch.Join(alice)
	ch.Join(bob)
	drainLists(t, alicePeer, 3)
	drainLists(t, bobPeer, 2)

	// A broadcast with no entry for a recipient skips it; the next one with
	// an entry arrives, proving the skipped frame was never sent.
	ch.ForwardBroadcast(alice, &protocol.Envelope{
		Action:      protocol.ActionChannel,
		Ciphertexts: map[string][]byte{"someone-else": []byte("x")},
	})
	ch.ForwardBroadcast(alice, &protocol.Envelope{
		Action:      protocol.ActionChannel,
		Ciphertexts: map[string][]byte{bob.ID: []byte("for bob")},
	})

	got := bobPeer.readInner()
	require.Equal(t, protocol.ActionChannel, got.Action)
	assert.Equal(t, []byte("for bob"), got.Data)
	assert.Equal(t, alice.ID, got.ClientID, "relay fills sender identity")
	assert.Equal(t, "alice", got.UserName)
	assert.Empty(t, got.Ciphertexts, "the per-recipient map is never forwarded")

	// The sender is never echoed: alice's next frame is the leave list, not
	// her own broadcast.
	ch.Leave(bob)
	next := alicePeer.readInner()
	assert.Equal(t, protocol.ActionList, next.Action)
	assert.Len(t, next.Clients, 1)
}

func TestChannelForwardUnicast(t *testing.T) {
	ch := NewChannel("#test")
	alice, _ := joinedSession(t, "alice")
	bob, bobPeer := joinedSession(t, "bob")
	ch.Join(alice)
	ch.Join(bob)
	drainLists(t, bobPeer, 2)

	// Unknown target: silent drop. The following valid unicast is the next
	// frame bob sees.
	ch.ForwardUnicast(alice, &protocol.Envelope{
		Action: protocol.ActionClient,
		Target: "nobody-home",
		Data:   []byte("lost"),
	})
	ch.ForwardUnicast(alice, &protocol.Envelope{
		Action: protocol.ActionClient,
		Target: bob.ID,
		Data:   []byte("direct"),
	})

	got := bobPeer.readInner()
	require.Equal(t, protocol.ActionClient, got.Action)
	assert.Equal(t, []byte("direct"), got.Data)
	assert.Equal(t, alice.ID, got.ClientID)
}

func TestChannelLifecycle(t *testing.T) {
	ch := NewChannel("#test")
	assert.True(t, ch.Empty())

	alice, _ := joinedSession(t, "alice")
	ch.Join(alice)
	assert.False(t, ch.Empty())

	// Leaving an unknown session is a no-op.
	bob, _ := joinedSession(t, "bob")
	ch.Leave(bob)
	assert.Len(t, ch.Members(), 1)

	ch.Leave(alice)
	assert.True(t, ch.Empty())
}

func drainLists(t *testing.T, peer *testPeer, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		inner := peer.readInner()
		require.Equal(t, protocol.ActionList, inner.Action)
	}
}
