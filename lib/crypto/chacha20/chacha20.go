// Package chacha20 implements the inner chat layer: raw ChaCha20 with a
// random 12-byte nonce prepended to every ciphertext.
//
// The stream is deliberately unauthenticated. A peer holding a different room
// password derives a different key and its traffic decrypts to garbage; the
// client detects that at the payload parse and drops the message rather than
// tearing down the session.
package chacha20

import (
	"crypto/rand"
	"io"

	"github.com/nodecrypt/nodecrypt/lib/util/logger"
	"github.com/samber/oops"
)

var log = logger.GetNodeCryptLogger()

// Key sizes
const (
	KeySize   = 32
	NonceSize = 12 // IETF ChaCha20 nonce size, fixed project-wide
)

// Error definitions
var (
	ErrInvalidKeySize   = oops.Errorf("invalid ChaCha20 key size")
	ErrInvalidNonceSize = oops.Errorf("invalid ChaCha20 nonce size")
	ErrCiphertextShort  = oops.Errorf("ChaCha20 ciphertext too short")
)

// ChaCha20Key is a 256-bit key for ChaCha20
type ChaCha20Key [KeySize]byte

// ChaCha20Nonce is a 96-bit nonce for ChaCha20
type ChaCha20Nonce [NonceSize]byte

// NewRandomNonce generates a cryptographically secure random nonce
func NewRandomNonce() (ChaCha20Nonce, error) {
	var nonce ChaCha20Nonce
	_, err := io.ReadFull(rand.Reader, nonce[:])
	if err != nil {
		return ChaCha20Nonce{}, oops.Errorf("failed to generate random nonce: %w", err)
	}
	return nonce, nil
}
