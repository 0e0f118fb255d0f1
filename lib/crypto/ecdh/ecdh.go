// Package ecdh implements the P-384 exchange that keys the outer AES layer
// between a client and the relay.
package ecdh

import (
	"crypto/ecdh"
	"crypto/rand"

	"github.com/nodecrypt/nodecrypt/lib/util/logger"
	"github.com/samber/oops"
)

var log = logger.GetNodeCryptLogger()

const (
	// PointSize is the uncompressed P-384 point encoding length.
	PointSize = 97
	// CoordinateSize is the byte length of a P-384 field element.
	CoordinateSize = 48
	// OuterKeySize is the derived AES session key length.
	OuterKeySize = 32
)

var ErrInvalidPublicPoint = oops.Errorf("invalid P-384 public point")

// KeyPair holds an ephemeral P-384 keypair for one outer session.
type KeyPair struct {
	priv *ecdh.PrivateKey
}

// GenerateKeyPair creates a fresh P-384 keypair.
func GenerateKeyPair() (*KeyPair, error) {
	priv, err := ecdh.P384().GenerateKey(rand.Reader)
	if err != nil {
		return nil, oops.Errorf("failed to generate P-384 keypair: %w", err)
	}
	return &KeyPair{priv: priv}, nil
}

// PublicBytes returns the uncompressed public point encoding.
func (k *KeyPair) PublicBytes() []byte {
	return k.priv.PublicKey().Bytes()
}

// DeriveOuterKey computes the shared P-384 secret against the remote public
// point and reduces it to the 256-bit AES session key. The raw shared secret
// is the X coordinate left-padded to 48 bytes; the session key is its first
// 32 bytes.
func (k *KeyPair) DeriveOuterKey(remotePoint []byte) ([]byte, error) {
	remote, err := ecdh.P384().NewPublicKey(remotePoint)
	if err != nil {
		log.WithError(err).Debug("rejecting remote ECDH point")
		return nil, ErrInvalidPublicPoint
	}
	secret, err := k.priv.ECDH(remote)
	if err != nil {
		return nil, oops.Errorf("P-384 key agreement failed: %w", err)
	}
	// crypto/ecdh already returns the X coordinate as a fixed 48-byte value.
	padded := make([]byte, CoordinateSize)
	copy(padded[CoordinateSize-len(secret):], secret)
	return padded[:OuterKeySize], nil
}
