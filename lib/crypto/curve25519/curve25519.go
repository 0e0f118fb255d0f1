// Package curve25519 implements the inner key exchange between two clients.
//
// Each pair of clients in a channel performs an X25519 exchange through the
// relay; the shared secret is mixed with the SHA-256 of the room password
// before keying ChaCha20. Two clients holding different passwords therefore
// derive different keys and cannot read each other's chat.
package curve25519

import (
	"crypto/rand"
	"crypto/sha256"
	"io"

	"github.com/nodecrypt/nodecrypt/lib/crypto/chacha20"
	"github.com/nodecrypt/nodecrypt/lib/util/logger"
	"github.com/samber/oops"
	"golang.org/x/crypto/curve25519"
)

var log = logger.GetNodeCryptLogger()

const (
	// KeySize is the X25519 scalar and point length.
	KeySize = 32
)

var ErrInvalidPeerKey = oops.Errorf("invalid Curve25519 peer public key")

// KeyPair holds a client's per-connection Curve25519 keypair.
type KeyPair struct {
	priv [KeySize]byte
	pub  [KeySize]byte
}

// GenerateKeyPair creates a fresh clamped keypair per RFC 7748.
func GenerateKeyPair() (*KeyPair, error) {
	var k KeyPair
	if _, err := io.ReadFull(rand.Reader, k.priv[:]); err != nil {
		return nil, oops.Errorf("failed to generate Curve25519 key: %w", err)
	}
	k.priv[0] &= 248
	k.priv[31] &= 127
	k.priv[31] |= 64
	pub, err := curve25519.X25519(k.priv[:], curve25519.Basepoint)
	if err != nil {
		return nil, oops.Errorf("failed to derive Curve25519 public key: %w", err)
	}
	copy(k.pub[:], pub)
	return &k, nil
}

// PublicBytes returns the public point sent to peers through the relay.
func (k *KeyPair) PublicBytes() []byte {
	out := make([]byte, KeySize)
	copy(out, k.pub[:])
	return out
}

// DeriveChatKey computes the per-peer ChaCha20 key:
//
//	SHA-256( X25519(priv, peerPub) XOR SHA-256(password) )
func (k *KeyPair) DeriveChatKey(peerPub []byte, password string) (*chacha20.ChaCha20Key, error) {
	if len(peerPub) != KeySize {
		return nil, ErrInvalidPeerKey
	}
	shared, err := curve25519.X25519(k.priv[:], peerPub)
	if err != nil {
		log.WithError(err).Debug("X25519 agreement failed")
		return nil, ErrInvalidPeerKey
	}
	mask := sha256.Sum256([]byte(password))
	mixed := make([]byte, KeySize)
	for i := range mixed {
		mixed[i] = shared[i] ^ mask[i]
	}
	sum := sha256.Sum256(mixed)
	key := chacha20.ChaCha20Key(sum)
	return &key, nil
}

// Zero clears the private scalar.
func (k *KeyPair) Zero() {
	for i := range k.priv {
		k.priv[i] = 0
	}
}
