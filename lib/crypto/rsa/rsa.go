// Package rsa implements the relay identity keys: RSA-2048 with OAEP-SHA256.
//
// The relay advertises its public key to every new client; clients use it to
// wrap their ECDH public points during the outer handshake. Keys are carried
// on the wire as PKCS#1 DER, base64-encoded by the codec.
package rsa

import (
	"github.com/nodecrypt/nodecrypt/lib/util/logger"
	"github.com/samber/oops"
)

var log = logger.GetNodeCryptLogger()

const (
	// KeyBits is the modulus size for relay identity keys.
	KeyBits = 2048
)

var (
	ErrInvalidPublicKey  = oops.Errorf("invalid RSA public key format")
	ErrInvalidPrivateKey = oops.Errorf("invalid RSA private key format")
	ErrDecryptFailed     = oops.Errorf("RSA-OAEP decryption failed")
)
