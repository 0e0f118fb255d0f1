package chacha20

import (
	"github.com/samber/oops"
	"golang.org/x/crypto/chacha20"
)

// ChaCha20Encrypter implements the Encrypter interface using raw ChaCha20
type ChaCha20Encrypter struct {
	Key ChaCha20Key
}

// Encrypt encrypts data using ChaCha20 with a random nonce
// The format is: [12-byte nonce][ciphertext]
func (e *ChaCha20Encrypter) Encrypt(data []byte) ([]byte, error) {
	log.WithField("data_length", len(data)).Debug("Encrypting data with ChaCha20")

	nonce, err := NewRandomNonce()
	if err != nil {
		return nil, err
	}

	stream, err := chacha20.NewUnauthenticatedCipher(e.Key[:], nonce[:])
	if err != nil {
		return nil, oops.Errorf("failed to create ChaCha20 cipher: %w", err)
	}

	result := make([]byte, NonceSize+len(data))
	copy(result[:NonceSize], nonce[:])
	stream.XORKeyStream(result[NonceSize:], data)

	log.WithField("result_length", len(result)).Debug("ChaCha20 encryption successful")
	return result, nil
}
