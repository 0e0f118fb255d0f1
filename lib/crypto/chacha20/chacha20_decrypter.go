package chacha20

import (
	"github.com/samber/oops"
	"golang.org/x/crypto/chacha20"
)

// ChaCha20Decrypter implements the Decrypter interface using raw ChaCha20
type ChaCha20Decrypter struct {
	Key ChaCha20Key
}

// Decrypt decrypts a nonce-prepended ChaCha20 ciphertext.
// With a wrong key this succeeds and yields garbage; callers validate the
// plaintext shape and drop unparseable results.
func (d *ChaCha20Decrypter) Decrypt(data []byte) ([]byte, error) {
	log.WithField("data_length", len(data)).Debug("Decrypting data with ChaCha20")

	if len(data) < NonceSize {
		return nil, ErrCiphertextShort
	}

	stream, err := chacha20.NewUnauthenticatedCipher(d.Key[:], data[:NonceSize])
	if err != nil {
		return nil, oops.Errorf("failed to create ChaCha20 cipher: %w", err)
	}

	plaintext := make([]byte, len(data)-NonceSize)
	stream.XORKeyStream(plaintext, data[NonceSize:])
	return plaintext, nil
}
