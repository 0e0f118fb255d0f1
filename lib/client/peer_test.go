package client

import (
	"testing"

	"github.com/nodecrypt/nodecrypt/lib/crypto/chacha20"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPeerSessionStateMachine(t *testing.T) {
	p := NewPeerSession("c2", "bob")
	assert.Equal(t, PeerAnnounced, p.State())

	p.MarkKeySent()
	assert.Equal(t, PeerAwaitingKey, p.State())

	key, err := chacha20.GenerateKey()
	require.NoError(t, err)
	buffered, err := p.Establish(key)
	require.NoError(t, err)
	assert.Empty(t, buffered)
	assert.Equal(t, PeerEstablished, p.State())

	// MarkKeySent after establishment must not regress the state.
	p.MarkKeySent()
	assert.Equal(t, PeerEstablished, p.State())
}

func TestPeerSessionRefusesTrafficBeforeEstablished(t *testing.T) {
	p := NewPeerSession("c2", "bob")

	_, err := p.Encrypt([]byte("plaintext"))
	assert.Error(t, err)
	_, err = p.Decrypt([]byte("ciphertext"))
	assert.Error(t, err)
}

func TestPeerSessionRoundTrip(t *testing.T) {
	p := NewPeerSession("c2", "bob")
	key, err := chacha20.GenerateKey()
	require.NoError(t, err)
	_, err = p.Establish(key)
	require.NoError(t, err)

	ct, err := p.Encrypt([]byte("hello"))
	require.NoError(t, err)
	pt, err := p.Decrypt(ct)
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), pt)
}

func TestPeerSessionBuffersUntilEstablished(t *testing.T) {
	p := NewPeerSession("c2", "bob")

	p.Buffer([]byte("early-1"))
	p.Buffer([]byte("early-2"))

	key, err := chacha20.GenerateKey()
	require.NoError(t, err)
	buffered, err := p.Establish(key)
	require.NoError(t, err)
	require.Len(t, buffered, 2)
	assert.Equal(t, []byte("early-1"), buffered[0])
	assert.Equal(t, []byte("early-2"), buffered[1])
}

func TestPeerSessionBufferBounded(t *testing.T) {
	p := NewPeerSession("c2", "bob")
	for i := 0; i < maxPendingCiphertexts+10; i++ {
		p.Buffer([]byte{byte(i)})
	}

	key, err := chacha20.GenerateKey()
	require.NoError(t, err)
	buffered, err := p.Establish(key)
	require.NoError(t, err)
	require.Len(t, buffered, maxPendingCiphertexts)
	// The oldest frames were discarded.
	assert.Equal(t, []byte{10}, buffered[0])
}
