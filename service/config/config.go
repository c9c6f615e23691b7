package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	solanago "github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
)

// Config holds all application configuration loaded from environment variables.
// All required fields are validated at startup to ensure fail-fast behavior.
type Config struct {
	// Server configuration
	ServerAddr    string `env:"SERVER_ADDR" envDefault:":8080"`
	LogLevel      string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat     string `env:"LOG_FORMAT" envDefault:"json"`
	PublicBaseURL string `env:"PUBLIC_BASE_URL"`

	// Database configuration
	DatabaseURL   string `env:"DATABASE_URL"`
	DBAutoMigrate bool   `env:"DB_AUTO_MIGRATE" envDefault:"true"`

	// Solana configuration
	SolanaRPCURL  string `env:"SOLANA_RPC_URL" envDefault:"https://api.devnet.solana.com"`
	SolanaCluster string `env:"SOLANA_CLUSTER" envDefault:"devnet"`

	// Session configuration
	SessionSecret string        `env:"SESSION_SECRET"`
	SessionTTL    time.Duration `env:"SESSION_TTL" envDefault:"720h"`

	// Donation policy
	PlatformFeeAccount string          `env:"PLATFORM_FEE_ACCOUNT" envDefault:"GkgDke8NYrdw7H8HFRyouwSzJ1Nxu3LTnpYu83SEJWDn"`
	PlatformFeeSOL     decimal.Decimal `env:"PLATFORM_FEE_SOL" envDefault:"0.001"`
	MinAmountSOL       decimal.Decimal `env:"MIN_AMOUNT_SOL" envDefault:"0.1"`

	// Nonce replay guard (disabled when empty)
	RedisURL string        `env:"REDIS_URL"`
	NonceTTL time.Duration `env:"NONCE_TTL" envDefault:"24h"`

	// NATS event publishing (disabled when empty)
	NATSURL string `env:"NATS_URL"`
}

// minSessionSecretLength is the minimum HMAC key length for session tokens.
const minSessionSecretLength = 32

// Load reads configuration from environment variables and validates all required fields.
// Returns an error if any required configuration is missing or invalid.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// MustLoad is like Load but panics if configuration is invalid.
// Useful for server initialization where misconfiguration should halt startup.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}
	return cfg
}

// Validate checks if the configuration is valid.
// This is useful for testing configuration without loading from env.
func (c *Config) Validate() error {
	var errs []error

	if c.DatabaseURL == "" {
		errs = append(errs, fmt.Errorf("DATABASE_URL is required"))
	}

	if c.SolanaRPCURL == "" {
		errs = append(errs, fmt.Errorf("SOLANA_RPC_URL is required"))
	}

	switch c.SolanaCluster {
	case "mainnet", "devnet", "testnet":
	default:
		errs = append(errs, fmt.Errorf("SOLANA_CLUSTER must be one of mainnet, devnet, testnet, got %q", c.SolanaCluster))
	}

	if c.SessionSecret == "" {
		errs = append(errs, fmt.Errorf("SESSION_SECRET is required"))
	} else if len(c.SessionSecret) < minSessionSecretLength {
		errs = append(errs, fmt.Errorf("SESSION_SECRET must be at least %d bytes", minSessionSecretLength))
	}

	if c.SessionTTL <= 0 {
		errs = append(errs, fmt.Errorf("SESSION_TTL must be positive"))
	}

	if _, err := solanago.PublicKeyFromBase58(c.PlatformFeeAccount); err != nil {
		errs = append(errs, fmt.Errorf("PLATFORM_FEE_ACCOUNT is not a valid public key: %w", err))
	}

	if c.PlatformFeeSOL.IsNegative() {
		errs = append(errs, fmt.Errorf("PLATFORM_FEE_SOL cannot be negative"))
	}

	if !c.MinAmountSOL.IsPositive() {
		errs = append(errs, fmt.Errorf("MIN_AMOUNT_SOL must be positive"))
	}

	if c.RedisURL != "" && c.NonceTTL <= 0 {
		errs = append(errs, fmt.Errorf("NONCE_TTL must be positive when REDIS_URL is set"))
	}

	switch c.LogFormat {
	case "json", "text":
	default:
		errs = append(errs, fmt.Errorf("LOG_FORMAT must be 'json' or 'text', got %q", c.LogFormat))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %v", errs)
	}

	return nil
}

// PlatformFeeKey returns the parsed platform fee account.
// Only valid after Validate succeeded.
func (c *Config) PlatformFeeKey() solanago.PublicKey {
	return solanago.MustPublicKeyFromBase58(c.PlatformFeeAccount)
}

// BaseURL returns PublicBaseURL without a trailing slash.
func (c *Config) BaseURL() string {
	return strings.TrimRight(c.PublicBaseURL, "/")
}
