package curve25519

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeriveChatKeySymmetric(t *testing.T) {
	alice, err := GenerateKeyPair()
	require.NoError(t, err)
	bob, err := GenerateKeyPair()
	require.NoError(t, err)

	aliceKey, err := alice.DeriveChatKey(bob.PublicBytes(), "hunter2")
	require.NoError(t, err)
	bobKey, err := bob.DeriveChatKey(alice.PublicBytes(), "hunter2")
	require.NoError(t, err)

	assert.Equal(t, aliceKey.Bytes(), bobKey.Bytes(),
		"matching passwords must derive the same chat key")
}

func TestDeriveChatKeyPasswordSeparation(t *testing.T) {
	alice, err := GenerateKeyPair()
	require.NoError(t, err)
	carol, err := GenerateKeyPair()
	require.NoError(t, err)

	aliceKey, err := alice.DeriveChatKey(carol.PublicBytes(), "p")
	require.NoError(t, err)
	carolKey, err := carol.DeriveChatKey(alice.PublicBytes(), "q")
	require.NoError(t, err)

	assert.NotEqual(t, aliceKey.Bytes(), carolKey.Bytes(),
		"different passwords must derive different chat keys")
}

func TestDeriveChatKeyRejectsBadPeerKey(t *testing.T) {
	kp, err := GenerateKeyPair()
	require.NoError(t, err)

	_, err = kp.DeriveChatKey([]byte("short"), "p")
	assert.ErrorIs(t, err, ErrInvalidPeerKey)

	// The all-zero point is the low-order identity; X25519 rejects it.
	_, err = kp.DeriveChatKey(make([]byte, KeySize), "p")
	assert.ErrorIs(t, err, ErrInvalidPeerKey)
}

func TestGenerateKeyPairClamps(t *testing.T) {
	kp, err := GenerateKeyPair()
	require.NoError(t, err)

	assert.EqualValues(t, 0, kp.priv[0]&7, "low bits must be cleared")
	assert.EqualValues(t, 64, kp.priv[31]&64, "high bit 254 must be set")
	assert.EqualValues(t, 0, kp.priv[31]&128, "top bit must be cleared")
	assert.Len(t, kp.PublicBytes(), KeySize)
}
