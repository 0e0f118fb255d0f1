package types

import "github.com/samber/oops"

var (
	ErrInvalidKeyFormat = oops.Errorf("invalid key format")
	ErrInvalidKeySize   = oops.Errorf("invalid key size")
)

// Encrypter encrypts data
type Encrypter interface {
	// encrypt a block of data
	// return encrypted block or nil and error if an error happens
	Encrypt(data []byte) ([]byte, error)
}

// Decrypter decrypts data
type Decrypter interface {
	// decrypt a block of data
	// return decrypted block or nil and error if an error happens
	Decrypt(data []byte) ([]byte, error)
}

// SymmetricKey is a key usable for both directions of a session
type SymmetricKey interface {
	// create a new encrypter for this key
	NewEncrypter() (Encrypter, error)
	// create a new decrypter for this key
	NewDecrypter() (Decrypter, error)
	// get the size of this key in bytes
	Len() int
}

// PrivateKey is an asymmetric private key
type PrivateKey interface {
	// Bytes returns the raw bytes of this private key
	Bytes() []byte
	// Zero clears all sensitive data from the private key
	Zero()
}

// PublicKey is an asymmetric public key
type PublicKey interface {
	Len() int
	Bytes() []byte
}
