package chacha20

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChaCha20RoundTrip(t *testing.T) {
	key, err := GenerateKey()
	require.NoError(t, err)

	enc, err := key.NewEncrypter()
	require.NoError(t, err)
	dec, err := key.NewDecrypter()
	require.NoError(t, err)

	for _, plaintext := range [][]byte{
		[]byte(""),
		[]byte("hi"),
		bytes.Repeat([]byte("chunk"), 4096),
	} {
		ct, err := enc.Encrypt(plaintext)
		require.NoError(t, err)
		assert.Len(t, ct, NonceSize+len(plaintext))

		pt, err := dec.Decrypt(ct)
		require.NoError(t, err)
		assert.Equal(t, plaintext, pt)
	}
}

func TestChaCha20FreshNoncePerMessage(t *testing.T) {
	key, err := GenerateKey()
	require.NoError(t, err)
	enc, _ := key.NewEncrypter()

	a, err := enc.Encrypt([]byte("same"))
	require.NoError(t, err)
	b, err := enc.Encrypt([]byte("same"))
	require.NoError(t, err)
	assert.NotEqual(t, a[:NonceSize], b[:NonceSize], "nonce reused")
	assert.NotEqual(t, a, b)
}

func TestChaCha20WrongKeyYieldsGarbage(t *testing.T) {
	k1, err := GenerateKey()
	require.NoError(t, err)
	k2, err := GenerateKey()
	require.NoError(t, err)

	enc, _ := k1.NewEncrypter()
	dec, _ := k2.NewDecrypter()

	plaintext := []byte("a perfectly ordinary chat message")
	for i := 0; i < 50; i++ {
		ct, err := enc.Encrypt(plaintext)
		require.NoError(t, err)

		// Raw ChaCha20 cannot fail; the wrong key simply produces a
		// different stream.
		pt, err := dec.Decrypt(ct)
		require.NoError(t, err)
		assert.NotEqual(t, plaintext, pt)
	}
}

func TestChaCha20ShortCiphertext(t *testing.T) {
	key, err := GenerateKey()
	require.NoError(t, err)
	dec, _ := key.NewDecrypter()

	_, err = dec.Decrypt(make([]byte, NonceSize-1))
	assert.Error(t, err)
}

func TestNewKeyValidatesSize(t *testing.T) {
	_, err := NewKey(make([]byte, 16))
	assert.Error(t, err)

	k, err := NewKey(make([]byte, KeySize))
	require.NoError(t, err)
	assert.Equal(t, KeySize, k.Len())
}
