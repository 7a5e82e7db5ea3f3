package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Config holds the gateway configuration, loaded from the environment.
type Config struct {
	// APIBaseURL selects the Osool backend host.
	APIBaseURL string `env:"OSOOL_API_URL" envDefault:"http://localhost:8000"`

	// ListenAddr is the address the gateway listens on.
	ListenAddr string `env:"BAWABA_ADDR" envDefault:":9000"`

	// RedisURL, when set, enables the persistent token store and the
	// redis stream event publisher. Without it the session lives in
	// memory and dies with the process.
	RedisURL string `env:"REDIS_URL"`

	// WalletKeyHex, when set, enables wallet login with a local
	// secp256k1 key.
	WalletKeyHex string `env:"OSOOL_WALLET_KEY"`

	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
}

// Load parses the configuration from environment variables.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}
