package ecdh

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeriveOuterKeyAgreement(t *testing.T) {
	client, err := GenerateKeyPair()
	require.NoError(t, err)
	server, err := GenerateKeyPair()
	require.NoError(t, err)

	clientKey, err := client.DeriveOuterKey(server.PublicBytes())
	require.NoError(t, err)
	serverKey, err := server.DeriveOuterKey(client.PublicBytes())
	require.NoError(t, err)

	assert.Equal(t, clientKey, serverKey, "both sides must derive the same outer key")
	assert.Len(t, clientKey, OuterKeySize)
}

func TestDeriveOuterKeyRejectsBadPoint(t *testing.T) {
	kp, err := GenerateKeyPair()
	require.NoError(t, err)

	_, err = kp.DeriveOuterKey([]byte("not a point"))
	assert.ErrorIs(t, err, ErrInvalidPublicPoint)

	_, err = kp.DeriveOuterKey(nil)
	assert.ErrorIs(t, err, ErrInvalidPublicPoint)
}

// Session keys for concurrent clients must be pairwise independent.
func TestOuterKeyUniqueness(t *testing.T) {
	server, err := GenerateKeyPair()
	require.NoError(t, err)

	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		client, err := GenerateKeyPair()
		require.NoError(t, err)
		key, err := server.DeriveOuterKey(client.PublicBytes())
		require.NoError(t, err)
		require.False(t, seen[string(key)], "duplicate session key at %d", i)
		seen[string(key)] = true
	}
}

func TestPublicBytesLength(t *testing.T) {
	kp, err := GenerateKeyPair()
	require.NoError(t, err)
	assert.Len(t, kp.PublicBytes(), PointSize)
}
