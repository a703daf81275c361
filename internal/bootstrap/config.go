// Package bootstrap wires configuration, the domain packages, and the HTTP
// adapter together into a runnable Launcher App, the way the teacher's
// component bootstrap packages assemble their own services.
package bootstrap

import (
	"github.com/cronos-labs/xdr/pkg/mosenv"
)

// Config is the process configuration, bound from environment variables via
// `env` struct tags (pkg/mosenv.SetFromEnvVars), optionally seeded from a
// local .env file. Configuration *file* format and CLI flag parsing are
// external collaborators; this struct only describes the env-var surface.
type Config struct {
	ServerAddress string `env:"SERVER_ADDRESS"`

	ChainID             uint32  `env:"XDR_CHAIN_ID"`
	PricePerRequestUSDC float64 `env:"XDR_PRICE_PER_REQUEST_USDC"`
	CurrencyLabel       string  `env:"XDR_CURRENCY_LABEL"`
	RecipientAddress    string  `env:"XDR_RECIPIENT_ADDRESS"`
	ForwarderUseHTTP    bool    `env:"XDR_FORWARDER_USE_HTTP"`
	ForwarderTimeoutS   int64   `env:"XDR_FORWARDER_TIMEOUT_SECONDS"`

	// RedisURL mirrors ledger snapshots to Redis when non-empty. Optional.
	RedisURL string `env:"XDR_REDIS_URL"`
	// RabbitMQURL publishes trace events to an AMQP exchange when
	// non-empty. Optional.
	RabbitMQURL string `env:"XDR_RABBITMQ_URL"`

	Version string `env:"VERSION"`
}

// NewConfig builds a Config seeded with defaults and overridden by whatever
// environment variables are present.
func NewConfig() (*Config, error) {
	cfg := &Config{
		ServerAddress:       ":8080",
		ChainID:             338,
		PricePerRequestUSDC: 0.01,
		CurrencyLabel:       "USDC",
		RecipientAddress:    "0x0000000000000000000000000000000000dEaD",
		ForwarderTimeoutS:   30,
		Version:             "dev",
	}

	if err := mosenv.SetFromEnvVars(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}
