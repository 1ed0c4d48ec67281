// Package config loads CLI configuration from the environment and an
// optional .env file using Viper.
package config

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Config holds the CLI configuration loaded from the environment.
type Config struct {
	// Domain is the tenant domain (e.g. tenant.auth0.com or a custom domain).
	Domain string `mapstructure:"GUARDIAN_DOMAIN"`
	// DeviceID is the default device identifier; optional when a single
	// enrollment exists in the store.
	DeviceID string `mapstructure:"GUARDIAN_DEVICE_ID"`
	// StorePath is the enrollment state file (default ~/.guardian/enrollments.json).
	StorePath string `mapstructure:"GUARDIAN_STORE"`
	// PrivateKeyPath is the PEM-encoded RSA private key file.
	PrivateKeyPath string `mapstructure:"GUARDIAN_PRIVATE_KEY"`
	// PublicKeyPath is the PEM-encoded RSA public key file.
	PublicKeyPath string `mapstructure:"GUARDIAN_PUBLIC_KEY"`
	// ClientName and ClientVersion override the Auth0-Client header identity.
	ClientName    string `mapstructure:"GUARDIAN_CLIENT_NAME"`
	ClientVersion string `mapstructure:"GUARDIAN_CLIENT_VERSION"`
}

// Load reads .env (if present), then builds Config from the environment.
// Missing .env is ignored; env vars override .env values.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()

	v.SetDefault("GUARDIAN_DOMAIN", "")
	v.SetDefault("GUARDIAN_DEVICE_ID", "")
	v.SetDefault("GUARDIAN_STORE", defaultStorePath())
	v.SetDefault("GUARDIAN_PRIVATE_KEY", "")
	v.SetDefault("GUARDIAN_PUBLIC_KEY", "")
	v.SetDefault("GUARDIAN_CLIENT_NAME", "")
	v.SetDefault("GUARDIAN_CLIENT_VERSION", "")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.StorePath == "" {
		return nil, errors.New("config: GUARDIAN_STORE must not be empty")
	}

	return &cfg, nil
}

func defaultStorePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "enrollments.json"
	}
	return filepath.Join(home, ".guardian", "enrollments.json")
}
