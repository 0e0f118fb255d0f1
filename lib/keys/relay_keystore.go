// Package keys implements the relay's long-lived RSA identity: creation,
// persistence across restarts, and 24-hour rotation.
package keys

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/nodecrypt/nodecrypt/lib/crypto/rsa"
	"github.com/nodecrypt/nodecrypt/lib/util/logger"
	"github.com/samber/oops"
	"github.com/sirupsen/logrus"
)

var log = logger.GetNodeCryptLogger()

// DefaultRotationInterval is how long one RSA identity stays active.
const DefaultRotationInterval = 24 * time.Hour

// identityFileName is the single durable slot per relay instance.
const identityFileName = "relay_identity.key"

// RelayIdentity is one generation of the relay's RSA keypair. Sessions hold
// their own reference to the identity they handshook with, so rotation never
// tears an in-flight handshake.
type RelayIdentity struct {
	Private   rsa.RSAPrivateKey
	Public    rsa.RSAPublicKey
	CreatedAt time.Time
}

// RelayKeystore owns the current RelayIdentity and its durable slot.
type RelayKeystore struct {
	mu       sync.RWMutex
	dir      string
	interval time.Duration
	current  *RelayIdentity
}

// storedIdentity is the on-disk representation of the durable slot.
type storedIdentity struct {
	CreatedAt  int64  `json:"created_at"`
	PrivateKey []byte `json:"private_key"`
}

// NewRelayKeystore opens the keystore rooted at dir. A stored identity whose
// age is within the rotation interval is restored; anything else is discarded
// and a fresh identity generated on first use.
func NewRelayKeystore(dir string, interval time.Duration) (*RelayKeystore, error) {
	if interval <= 0 {
		interval = DefaultRotationInterval
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, oops.Errorf("failed to create keystore dir: %w", err)
	}
	ks := &RelayKeystore{dir: dir, interval: interval}
	if ident, err := ks.load(); err == nil && time.Since(ident.CreatedAt) < interval {
		ks.current = ident
		log.WithFields(logrus.Fields{
			"at":  "keys.NewRelayKeystore",
			"age": time.Since(ident.CreatedAt).String(),
		}).Debug("restored_relay_identity")
	} else if err != nil && !os.IsNotExist(err) {
		log.WithError(err).Warn("discarding unreadable relay identity")
	}
	return ks, nil
}

// Current returns the active identity, generating a new keypair if none
// exists or the active one is past the rotation interval.
func (ks *RelayKeystore) Current() (*RelayIdentity, error) {
	ks.mu.RLock()
	ident := ks.current
	ks.mu.RUnlock()
	if ident != nil && time.Since(ident.CreatedAt) < ks.interval {
		return ident, nil
	}
	return ks.rotate()
}

// RotateIfDue generates and persists a new identity when the active one has
// aged past the rotation interval. Existing sessions keep the identity they
// were opened with.
func (ks *RelayKeystore) RotateIfDue(now time.Time) error {
	ks.mu.RLock()
	ident := ks.current
	ks.mu.RUnlock()
	if ident != nil && now.Sub(ident.CreatedAt) < ks.interval {
		return nil
	}
	_, err := ks.rotate()
	return err
}

func (ks *RelayKeystore) rotate() (*RelayIdentity, error) {
	ks.mu.Lock()
	defer ks.mu.Unlock()
	// Another caller may have rotated while we waited for the lock.
	if ks.current != nil && time.Since(ks.current.CreatedAt) < ks.interval {
		return ks.current, nil
	}

	priv, err := rsa.GenerateKey()
	if err != nil {
		return nil, err
	}
	pub, err := priv.Public()
	if err != nil {
		return nil, err
	}
	ident := &RelayIdentity{
		Private:   priv,
		Public:    pub,
		CreatedAt: time.Now(),
	}
	if err := ks.store(ident); err != nil {
		return nil, err
	}
	ks.current = ident
	log.WithFields(logrus.Fields{
		"at":   "keys.RelayKeystore.rotate",
		"bits": rsa.KeyBits,
	}).Info("relay_identity_rotated")
	return ident, nil
}

// store writes the identity to the durable slot atomically: write to a temp
// file in the same directory, then rename over the slot.
func (ks *RelayKeystore) store(ident *RelayIdentity) error {
	blob, err := json.Marshal(&storedIdentity{
		CreatedAt:  ident.CreatedAt.UnixMilli(),
		PrivateKey: ident.Private.Bytes(),
	})
	if err != nil {
		return oops.Errorf("failed to encode relay identity: %w", err)
	}
	target := filepath.Join(ks.dir, identityFileName)
	tmp, err := os.CreateTemp(ks.dir, identityFileName+".tmp*")
	if err != nil {
		return oops.Errorf("failed to create temp identity file: %w", err)
	}
	name := tmp.Name()
	if _, err := tmp.Write(blob); err != nil {
		tmp.Close()
		os.Remove(name)
		return oops.Errorf("failed to write relay identity: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(name)
		return oops.Errorf("failed to close relay identity file: %w", err)
	}
	if err := os.Rename(name, target); err != nil {
		os.Remove(name)
		return oops.Errorf("failed to persist relay identity: %w", err)
	}
	return nil
}

func (ks *RelayKeystore) load() (*RelayIdentity, error) {
	blob, err := os.ReadFile(filepath.Join(ks.dir, identityFileName))
	if err != nil {
		return nil, err
	}
	var stored storedIdentity
	if err := json.Unmarshal(blob, &stored); err != nil {
		return nil, oops.Errorf("failed to decode relay identity: %w", err)
	}
	priv, err := rsa.LoadPrivateKey(stored.PrivateKey)
	if err != nil {
		return nil, err
	}
	pub, err := priv.Public()
	if err != nil {
		return nil, err
	}
	return &RelayIdentity{
		Private:   priv,
		Public:    pub,
		CreatedAt: time.UnixMilli(stored.CreatedAt),
	}, nil
}
