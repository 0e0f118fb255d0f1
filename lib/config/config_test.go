package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
)

func TestDefaultRelayConfig(t *testing.T) {
	cfg := DefaultRelayConfig()
	assert.Equal(t, 24*time.Hour, cfg.RSARotationInterval)
	assert.Equal(t, 60*time.Second, cfg.IdleTimeout)
	assert.Equal(t, 512*1024, cfg.MaxEnvelopeBytes)
	assert.NotEmpty(t, cfg.ListenAddr)
	assert.NotEmpty(t, cfg.DataDir)
}

func TestNewRelayConfigFromViper(t *testing.T) {
	viper.Reset()
	defer viper.Reset()
	setDefaults()

	cfg := NewRelayConfigFromViper()
	assert.Equal(t, DefaultRelayConfig().RSARotationInterval, cfg.RSARotationInterval)
	assert.Equal(t, DefaultRelayConfig().IdleTimeout, cfg.IdleTimeout)

	viper.Set("relay.idle_timeout", "45s")
	viper.Set("relay.listen_addr", "0.0.0.0:9999")
	cfg = NewRelayConfigFromViper()
	assert.Equal(t, 45*time.Second, cfg.IdleTimeout)
	assert.Equal(t, "0.0.0.0:9999", cfg.ListenAddr)
}
