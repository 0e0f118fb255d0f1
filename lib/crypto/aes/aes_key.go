// Package aes implements the outer transport layer: AES-256-CBC with PKCS#7
// padding and a random 16-byte IV prepended to every ciphertext.
package aes

import (
	"crypto/aes"

	"github.com/nodecrypt/nodecrypt/lib/crypto/types"
	"github.com/nodecrypt/nodecrypt/lib/util/logger"
	"github.com/samber/oops"
)

var log = logger.GetNodeCryptLogger()

const (
	// KeySize is the outer session key length (AES-256).
	KeySize = 32
	// IVSize is the CBC initialization vector length.
	IVSize = aes.BlockSize
)

var (
	ErrInvalidKeySize = oops.Errorf("invalid AES key size")
	ErrBadCiphertext  = oops.Errorf("AES ciphertext malformed")
	ErrBadPadding     = oops.Errorf("invalid PKCS#7 padding")
)

// AESSymmetricKey is a 256-bit outer session key shared with one peer.
type AESSymmetricKey struct {
	Key []byte
}

// NewKey wraps a derived 32-byte session key.
func NewKey(key []byte) (*AESSymmetricKey, error) {
	if len(key) != KeySize {
		return nil, ErrInvalidKeySize
	}
	return &AESSymmetricKey{Key: key}, nil
}

// NewEncrypter creates a new AESSymmetricEncrypter
func (k *AESSymmetricKey) NewEncrypter() (types.Encrypter, error) {
	return &AESSymmetricEncrypter{Key: k.Key}, nil
}

// NewDecrypter creates a new AESSymmetricDecrypter
func (k *AESSymmetricKey) NewDecrypter() (types.Decrypter, error) {
	return &AESSymmetricDecrypter{Key: k.Key}, nil
}

// Len returns the length of the key
func (k *AESSymmetricKey) Len() int {
	return len(k.Key)
}
