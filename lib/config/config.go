// Package config loads the relay configuration from a YAML file and defaults
// through viper. Environment variables are not read.
package config

import (
	"os"
	"path/filepath"

	"github.com/nodecrypt/nodecrypt/lib/util/logger"
	"github.com/spf13/viper"
)

var (
	CfgFile string
	log     = logger.GetNodeCryptLogger()
)

const NODECRYPT_BASE_DIR = ".nodecrypt"

func InitConfig() {
	if CfgFile != "" {
		// Use config file from the flag
		viper.SetConfigFile(CfgFile)
	} else {
		// Set up viper to use the default config path $HOME/.nodecrypt/
		viper.AddConfigPath(defaultDataDir())
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	// Load defaults
	setDefaults()

	// handle config file creating it if needed
	handleConfigFile()

	// Update RelayConfigProperties
	UpdateRelayConfig()
}

func setDefaults() {
	defaults := DefaultRelayConfig()
	viper.SetDefault("relay.listen_addr", defaults.ListenAddr)
	viper.SetDefault("relay.data_dir", defaults.DataDir)
	viper.SetDefault("relay.rsa_rotation_interval", defaults.RSARotationInterval)
	viper.SetDefault("relay.idle_timeout", defaults.IdleTimeout)
	viper.SetDefault("relay.max_envelope_bytes", defaults.MaxEnvelopeBytes)
}

// NewRelayConfigFromViper creates a new RelayConfig from current viper settings
// This is the preferred way to get config instead of using the global RelayConfigProperties
func NewRelayConfigFromViper() *RelayConfig {
	return &RelayConfig{
		ListenAddr:          viper.GetString("relay.listen_addr"),
		DataDir:             viper.GetString("relay.data_dir"),
		RSARotationInterval: viper.GetDuration("relay.rsa_rotation_interval"),
		IdleTimeout:         viper.GetDuration("relay.idle_timeout"),
		MaxEnvelopeBytes:    viper.GetInt("relay.max_envelope_bytes"),
	}
}

// UpdateRelayConfig updates the global RelayConfigProperties from viper settings
func UpdateRelayConfig() {
	*RelayConfigProperties = *NewRelayConfigFromViper()
}

func handleConfigFile() {
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok && CfgFile == "" {
			createDefaultConfig(defaultDataDir())
			return
		}
		log.Warnf("Error reading config file: %s", err)
	}
}

func createDefaultConfig(defaultConfigDir string) {
	defaultConfigFile := filepath.Join(defaultConfigDir, "config.yaml")
	// Ensure directory exists
	if err := os.MkdirAll(defaultConfigDir, 0o755); err != nil {
		log.Errorf("Could not create config directory: %s", err)
		return
	}

	// Write current config file
	if err := viper.WriteConfigAs(defaultConfigFile); err != nil {
		log.Errorf("Could not write default config file: %s", err)
		return
	}

	viper.SetConfigFile(defaultConfigFile)
	log.Debugf("Created default configuration at: %s", defaultConfigFile)
}
