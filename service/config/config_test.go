package config

import (
	"os"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestLoad_ValidConfig(t *testing.T) {
	// Setup environment variables
	os.Setenv("DATABASE_URL", "postgres://localhost/test")
	os.Setenv("SESSION_SECRET", testSecret)
	defer cleanupEnv()

	cfg, err := Load()
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, "postgres://localhost/test", cfg.DatabaseURL)

	// Defaults
	assert.Equal(t, ":8080", cfg.ServerAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "https://api.devnet.solana.com", cfg.SolanaRPCURL)
	assert.Equal(t, "devnet", cfg.SolanaCluster)
	assert.Equal(t, 30*24*time.Hour, cfg.SessionTTL)
	assert.True(t, cfg.PlatformFeeSOL.Equal(decimal.RequireFromString("0.001")))
	assert.True(t, cfg.MinAmountSOL.Equal(decimal.RequireFromString("0.1")))
	assert.Equal(t, "GkgDke8NYrdw7H8HFRyouwSzJ1Nxu3LTnpYu83SEJWDn", cfg.PlatformFeeKey().String())
	assert.True(t, cfg.DBAutoMigrate)
	assert.Empty(t, cfg.RedisURL)
	assert.Empty(t, cfg.NATSURL)
}

func TestLoad_MissingDatabaseURL(t *testing.T) {
	os.Setenv("SESSION_SECRET", testSecret)
	defer cleanupEnv()

	cfg, err := Load()
	require.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "DATABASE_URL is required")
}

func TestLoad_MissingSessionSecret(t *testing.T) {
	os.Setenv("DATABASE_URL", "postgres://localhost/test")
	defer cleanupEnv()

	cfg, err := Load()
	require.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "SESSION_SECRET is required")
}

func TestLoad_InvalidDuration(t *testing.T) {
	os.Setenv("DATABASE_URL", "postgres://localhost/test")
	os.Setenv("SESSION_SECRET", testSecret)
	os.Setenv("SESSION_TTL", "invalid")
	defer cleanupEnv()

	cfg, err := Load()
	require.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "SESSION_TTL")
}

func TestLoad_CustomValues(t *testing.T) {
	os.Setenv("DATABASE_URL", "postgres://localhost/test")
	os.Setenv("SESSION_SECRET", testSecret)
	os.Setenv("SERVER_ADDR", ":9090")
	os.Setenv("LOG_LEVEL", "debug")
	os.Setenv("NATS_URL", "nats://nats.example.com:4222")
	os.Setenv("REDIS_URL", "redis://localhost:6379/0")
	os.Setenv("NONCE_TTL", "1h")
	os.Setenv("PLATFORM_FEE_SOL", "0.002")
	os.Setenv("PUBLIC_BASE_URL", "https://blinks.example.com/")
	defer cleanupEnv()

	cfg, err := Load()
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, ":9090", cfg.ServerAddr)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "nats://nats.example.com:4222", cfg.NATSURL)
	assert.Equal(t, "redis://localhost:6379/0", cfg.RedisURL)
	assert.Equal(t, time.Hour, cfg.NonceTTL)
	assert.True(t, cfg.PlatformFeeSOL.Equal(decimal.RequireFromString("0.002")))
	assert.Equal(t, "https://blinks.example.com", cfg.BaseURL())
}

func validConfig() *Config {
	return &Config{
		DatabaseURL:        "postgres://localhost/test",
		SolanaRPCURL:       "https://api.devnet.solana.com",
		SolanaCluster:      "devnet",
		SessionSecret:      testSecret,
		SessionTTL:         720 * time.Hour,
		PlatformFeeAccount: "GkgDke8NYrdw7H8HFRyouwSzJ1Nxu3LTnpYu83SEJWDn",
		PlatformFeeSOL:     decimal.RequireFromString("0.001"),
		MinAmountSOL:       decimal.RequireFromString("0.1"),
		LogFormat:          "json",
	}
}

func TestValidate_ValidConfig(t *testing.T) {
	assert.NoError(t, validConfig().Validate())
}

func TestValidate_Failures(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"short secret", func(c *Config) { c.SessionSecret = "short" }, "at least 32 bytes"},
		{"bad fee account", func(c *Config) { c.PlatformFeeAccount = "not-a-key" }, "PLATFORM_FEE_ACCOUNT"},
		{"negative fee", func(c *Config) { c.PlatformFeeSOL = decimal.RequireFromString("-1") }, "PLATFORM_FEE_SOL"},
		{"zero minimum", func(c *Config) { c.MinAmountSOL = decimal.Zero }, "MIN_AMOUNT_SOL"},
		{"redis without ttl", func(c *Config) { c.RedisURL = "redis://x"; c.NonceTTL = 0 }, "NONCE_TTL"},
		{"unknown cluster", func(c *Config) { c.SolanaCluster = "localnet" }, "SOLANA_CLUSTER"},
		{"bad log format", func(c *Config) { c.LogFormat = "xml" }, "LOG_FORMAT"},
		{"zero session ttl", func(c *Config) { c.SessionTTL = 0 }, "SESSION_TTL"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	cfg := validConfig()
	cfg.DatabaseURL = ""
	cfg.SessionSecret = ""

	err := cfg.Validate()
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "DATABASE_URL") && strings.Contains(err.Error(), "SESSION_SECRET"))
}

func TestMustLoad_Panics(t *testing.T) {
	// Don't set required env vars
	defer cleanupEnv()

	assert.Panics(t, func() {
		MustLoad()
	})
}

func TestMustLoad_Success(t *testing.T) {
	os.Setenv("DATABASE_URL", "postgres://localhost/test")
	os.Setenv("SESSION_SECRET", testSecret)
	defer cleanupEnv()

	assert.NotPanics(t, func() {
		cfg := MustLoad()
		assert.NotNil(t, cfg)
	})
}

// cleanupEnv clears all environment variables used in tests
func cleanupEnv() {
	for _, key := range []string{
		"DATABASE_URL", "SESSION_SECRET", "SESSION_TTL", "SERVER_ADDR", "LOG_LEVEL",
		"NATS_URL", "REDIS_URL", "NONCE_TTL", "PLATFORM_FEE_SOL", "PUBLIC_BASE_URL",
	} {
		os.Unsetenv(key)
	}
}
