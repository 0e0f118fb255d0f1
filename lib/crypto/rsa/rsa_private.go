package rsa

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"

	"github.com/samber/oops"
)

// RSAPrivateKey is a relay identity private key held as PKCS#1 DER.
type RSAPrivateKey []byte

// GenerateKey creates a new 2048-bit relay identity key.
func GenerateKey() (RSAPrivateKey, error) {
	priv, err := rsa.GenerateKey(rand.Reader, KeyBits)
	if err != nil {
		return nil, oops.Errorf("failed to generate RSA key: %w", err)
	}
	der := x509.MarshalPKCS1PrivateKey(priv)
	log.WithField("bits", KeyBits).Debug("generated RSA private key")
	return RSAPrivateKey(der), nil
}

// LoadPrivateKey validates and wraps PKCS#1 DER private key bytes.
func LoadPrivateKey(der []byte) (RSAPrivateKey, error) {
	k := RSAPrivateKey(der)
	if _, err := k.toRSAPrivateKey(); err != nil {
		return nil, err
	}
	return k, nil
}

// Decrypt decrypts an RSA-OAEP-SHA256 ciphertext addressed to this key.
func (r RSAPrivateKey) Decrypt(ciphertext []byte) ([]byte, error) {
	privKey, err := r.toRSAPrivateKey()
	if err != nil {
		return nil, err
	}
	plaintext, err := rsa.DecryptOAEP(sha256.New(), rand.Reader, privKey, ciphertext, nil)
	if err != nil {
		log.WithError(err).Debug("RSA-OAEP decryption failed")
		return nil, ErrDecryptFailed
	}
	return plaintext, nil
}

// Public extracts the public half as PKCS#1 DER.
func (r RSAPrivateKey) Public() (RSAPublicKey, error) {
	privKey, err := r.toRSAPrivateKey()
	if err != nil {
		return nil, err
	}
	der := x509.MarshalPKCS1PublicKey(&privKey.PublicKey)
	return RSAPublicKey(der), nil
}

// Bytes returns the raw PKCS#1 DER bytes of the private key.
func (r RSAPrivateKey) Bytes() []byte {
	return r
}

// Zero clears the key material.
func (r RSAPrivateKey) Zero() {
	for i := range r {
		r[i] = 0
	}
}

func (r RSAPrivateKey) toRSAPrivateKey() (*rsa.PrivateKey, error) {
	privKey, err := x509.ParsePKCS1PrivateKey(r)
	if err != nil {
		return nil, oops.Errorf("invalid RSA private key format: %w", err)
	}
	if privKey.Size() != KeyBits/8 {
		return nil, oops.Errorf("unexpected RSA key size: got %d, want %d", privKey.Size(), KeyBits/8)
	}
	return privKey, nil
}
