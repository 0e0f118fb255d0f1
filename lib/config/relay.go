package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/nodecrypt/nodecrypt/lib/protocol"
)

// RelayConfig holds the relay's recognized options.
type RelayConfig struct {
	// ListenAddr is the WebSocket listen address.
	ListenAddr string

	// DataDir holds the durable relay identity slot.
	DataDir string

	// RSARotationInterval is how long one relay identity stays active.
	RSARotationInterval time.Duration

	// IdleTimeout closes sessions with no received frame for this long.
	IdleTimeout time.Duration

	// MaxEnvelopeBytes bounds one wire frame; sized for 256 KiB file chunks
	// plus base64 and envelope overhead.
	MaxEnvelopeBytes int
}

// RelayConfigProperties is the global relay configuration, updated from viper
// at InitConfig time.
var RelayConfigProperties = DefaultRelayConfig()

// DefaultRelayConfig returns the reference protocol values.
func DefaultRelayConfig() *RelayConfig {
	return &RelayConfig{
		ListenAddr:          "localhost:8787",
		DataDir:             defaultDataDir(),
		RSARotationInterval: 24 * time.Hour,
		IdleTimeout:         60 * time.Second,
		MaxEnvelopeBytes:    protocol.DefaultMaxEnvelopeBytes,
	}
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return NODECRYPT_BASE_DIR
	}
	return filepath.Join(home, NODECRYPT_BASE_DIR)
}
