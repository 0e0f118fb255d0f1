package aes

import (
	"crypto/aes"
	"crypto/cipher"
)

// AESSymmetricDecrypter implements the Decrypter interface using AES-CBC
type AESSymmetricDecrypter struct {
	Key []byte
}

// Decrypt decrypts an IV-prepended AES-CBC ciphertext and strips the
// PKCS#7 padding.
func (d *AESSymmetricDecrypter) Decrypt(data []byte) ([]byte, error) {
	log.WithField("data_length", len(data)).Debug("Decrypting data")

	if len(data) < IVSize+aes.BlockSize || (len(data)-IVSize)%aes.BlockSize != 0 {
		return nil, ErrBadCiphertext
	}

	block, err := aes.NewCipher(d.Key)
	if err != nil {
		log.WithError(err).Error("Failed to create AES cipher")
		return nil, err
	}

	iv, ciphertext := data[:IVSize], data[IVSize:]
	plaintext := make([]byte, len(ciphertext))
	mode := cipher.NewCBCDecrypter(block, iv)
	mode.CryptBlocks(plaintext, ciphertext)

	unpadded, err := pkcs7Unpad(plaintext)
	if err != nil {
		return nil, err
	}

	log.WithField("plaintext_length", len(unpadded)).Debug("Data decrypted successfully")
	return unpadded, nil
}
