package rsa

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"

	"github.com/samber/oops"
)

// RSAPublicKey is a relay identity public key held as PKCS#1 DER.
type RSAPublicKey []byte

// LoadPublicKey validates and wraps PKCS#1 DER public key bytes.
func LoadPublicKey(der []byte) (RSAPublicKey, error) {
	k := RSAPublicKey(der)
	if _, err := k.toRSAPublicKey(); err != nil {
		return nil, err
	}
	return k, nil
}

// Encrypt encrypts plaintext to this key with RSA-OAEP-SHA256.
// OAEP bounds the plaintext to modulus minus padding overhead, which is
// plenty for the ECDH public points exchanged during the handshake.
func (r RSAPublicKey) Encrypt(plaintext []byte) ([]byte, error) {
	pubKey, err := r.toRSAPublicKey()
	if err != nil {
		return nil, err
	}
	ciphertext, err := rsa.EncryptOAEP(sha256.New(), rand.Reader, pubKey, plaintext, nil)
	if err != nil {
		return nil, oops.Errorf("RSA-OAEP encryption failed: %w", err)
	}
	return ciphertext, nil
}

// Len returns the encoded key length in bytes.
func (r RSAPublicKey) Len() int {
	return len(r)
}

// Bytes returns the raw PKCS#1 DER bytes of the public key.
func (r RSAPublicKey) Bytes() []byte {
	return r
}

func (r RSAPublicKey) toRSAPublicKey() (*rsa.PublicKey, error) {
	pubKey, err := x509.ParsePKCS1PublicKey(r)
	if err != nil {
		return nil, oops.Errorf("invalid RSA public key format: %w", err)
	}
	if pubKey.Size() != KeyBits/8 {
		return nil, oops.Errorf("unexpected RSA key size: got %d, want %d", pubKey.Size(), KeyBits/8)
	}
	return pubKey, nil
}
