package aes

import (
	"bytes"
	"crypto/rand"
	"testing"
)

func testKey(t *testing.T) *AESSymmetricKey {
	t.Helper()
	raw := make([]byte, KeySize)
	if _, err := rand.Read(raw); err != nil {
		t.Fatalf("Failed to generate random key: %v", err)
	}
	key, err := NewKey(raw)
	if err != nil {
		t.Fatalf("NewKey failed: %v", err)
	}
	return key
}

func TestAESEncryptDecrypt(t *testing.T) {
	key := testKey(t)

	encrypter, err := key.NewEncrypter()
	if err != nil {
		t.Fatalf("Error creating encrypter: %v", err)
	}
	decrypter, err := key.NewDecrypter()
	if err != nil {
		t.Fatalf("Error creating decrypter: %v", err)
	}

	testCases := []struct {
		name      string
		plaintext []byte
	}{
		{"Empty string", []byte("")},
		{"Short string", []byte("Hello, World!")},
		{"Long string", bytes.Repeat([]byte("A"), 1000)},
		{"Exact block size", bytes.Repeat([]byte("A"), 16)},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ciphertext, err := encrypter.Encrypt(tc.plaintext)
			if err != nil {
				t.Fatalf("Encryption failed: %v", err)
			}
			decrypted, err := decrypter.Decrypt(ciphertext)
			if err != nil {
				t.Fatalf("Decryption failed: %v", err)
			}
			if !bytes.Equal(tc.plaintext, decrypted) {
				t.Errorf("Decrypted text doesn't match original plaintext")
			}
		})
	}
}

func TestAESFreshIVPerCall(t *testing.T) {
	key := testKey(t)
	encrypter, _ := key.NewEncrypter()

	plaintext := []byte("same plaintext")
	a, err := encrypter.Encrypt(plaintext)
	if err != nil {
		t.Fatalf("Encryption failed: %v", err)
	}
	b, err := encrypter.Encrypt(plaintext)
	if err != nil {
		t.Fatalf("Encryption failed: %v", err)
	}
	if bytes.Equal(a, b) {
		t.Error("two encryptions of the same plaintext produced identical output")
	}
	if bytes.Equal(a[:IVSize], b[:IVSize]) {
		t.Error("IV reused across encryptions")
	}
}

func TestAESInvalidKeySize(t *testing.T) {
	if _, err := NewKey(make([]byte, 16)); err == nil {
		t.Error("expected error for 16-byte key")
	}
	if _, err := NewKey(nil); err == nil {
		t.Error("expected error for nil key")
	}
}

func TestAESDecryptMalformed(t *testing.T) {
	key := testKey(t)
	decrypter, _ := key.NewDecrypter()

	testCases := []struct {
		name string
		data []byte
	}{
		{"Empty", nil},
		{"Only IV", make([]byte, IVSize)},
		{"Not block aligned", make([]byte, IVSize+17)},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := decrypter.Decrypt(tc.data); err == nil {
				t.Error("expected error for malformed ciphertext")
			}
		})
	}
}

func TestAESWrongKeyNeverYieldsPlaintext(t *testing.T) {
	a := testKey(t)
	b := testKey(t)
	encrypter, _ := a.NewEncrypter()
	decrypter, _ := b.NewDecrypter()

	// With a wrong key, CBC either fails the padding check or yields bytes
	// that differ from the plaintext. Run a few rounds to cover both.
	plaintext := []byte("the quick brown fox jumps over the lazy dog")
	for i := 0; i < 16; i++ {
		ct, err := encrypter.Encrypt(plaintext)
		if err != nil {
			t.Fatalf("Encryption failed: %v", err)
		}
		pt, err := decrypter.Decrypt(ct)
		if err == nil && bytes.Equal(pt, plaintext) {
			t.Fatal("wrong key decrypted to the original plaintext")
		}
	}
}
