package aes

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"io"

	"github.com/samber/oops"
)

// AESSymmetricEncrypter implements the Encrypter interface using AES-CBC
type AESSymmetricEncrypter struct {
	Key []byte
}

// Encrypt encrypts data using AES-CBC with PKCS#7 padding. A fresh random
// 16-byte IV is generated per call and prepended to the ciphertext.
func (e *AESSymmetricEncrypter) Encrypt(data []byte) ([]byte, error) {
	log.WithField("data_length", len(data)).Debug("Encrypting data")

	block, err := aes.NewCipher(e.Key)
	if err != nil {
		log.WithError(err).Error("Failed to create AES cipher")
		return nil, err
	}

	iv := make([]byte, IVSize)
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return nil, oops.Errorf("failed to generate IV: %w", err)
	}

	plaintext := pkcs7Pad(data, aes.BlockSize)
	out := make([]byte, IVSize+len(plaintext))
	copy(out, iv)
	mode := cipher.NewCBCEncrypter(block, iv)
	mode.CryptBlocks(out[IVSize:], plaintext)

	log.WithField("ciphertext_length", len(out)).Debug("Data encrypted successfully")
	return out, nil
}
