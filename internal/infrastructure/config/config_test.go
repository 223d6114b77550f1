package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	originalEnv := map[string]string{
		"STOREFRONT_APP_NAME":                 os.Getenv("STOREFRONT_APP_NAME"),
		"STOREFRONT_APP_ENV":                  os.Getenv("STOREFRONT_APP_ENV"),
		"STOREFRONT_APP_PORT":                 os.Getenv("STOREFRONT_APP_PORT"),
		"STOREFRONT_DATABASE_HOST":            os.Getenv("STOREFRONT_DATABASE_HOST"),
		"STOREFRONT_DATABASE_PASSWORD":        os.Getenv("STOREFRONT_DATABASE_PASSWORD"),
		"STOREFRONT_DATABASE_SSLMODE":         os.Getenv("STOREFRONT_DATABASE_SSLMODE"),
		"STOREFRONT_DATABASE_MAX_OPEN_CONNS":  os.Getenv("STOREFRONT_DATABASE_MAX_OPEN_CONNS"),
		"STOREFRONT_DATABASE_MAX_IDLE_CONNS":  os.Getenv("STOREFRONT_DATABASE_MAX_IDLE_CONNS"),
		"STOREFRONT_JWT_SECRET":               os.Getenv("STOREFRONT_JWT_SECRET"),
		"STOREFRONT_CHECKOUT_TAX_RATE":        os.Getenv("STOREFRONT_CHECKOUT_TAX_RATE"),
		"STOREFRONT_CHECKOUT_INVOICE_PREFIX":  os.Getenv("STOREFRONT_CHECKOUT_INVOICE_PREFIX"),
		"STOREFRONT_GATEWAY_CHANNEL_ID":       os.Getenv("STOREFRONT_GATEWAY_CHANNEL_ID"),
		"STOREFRONT_GATEWAY_SHARED_SECRET":    os.Getenv("STOREFRONT_GATEWAY_SHARED_SECRET"),
	}

	defer func() {
		for k, v := range originalEnv {
			if v == "" {
				os.Unsetenv(k)
			} else {
				os.Setenv(k, v)
			}
		}
	}()

	clearEnv := func() {
		for k := range originalEnv {
			os.Unsetenv(k)
		}
	}

	t.Run("loads default values when env vars not set", func(t *testing.T) {
		clearEnv()

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "storefront-backend", cfg.App.Name)
		assert.Equal(t, "development", cfg.App.Env)
		assert.Equal(t, "8080", cfg.App.Port)
		assert.Equal(t, "localhost", cfg.Database.Host)
		assert.Equal(t, 5432, cfg.Database.Port)
		assert.Equal(t, "0.16", cfg.Checkout.TaxRate)
		assert.Equal(t, "0.01", cfg.Checkout.PriceTolerance)
		assert.Equal(t, "INV", cfg.Checkout.InvoicePrefix)
		assert.Equal(t, 30*time.Minute, cfg.Checkout.SessionTTL)
		assert.Equal(t, 10*time.Second, cfg.Gateway.LoadTimeout)
		assert.Equal(t, "KES", cfg.Gateway.CurrencyCode)
	})

	t.Run("loads values from environment variables with STOREFRONT prefix", func(t *testing.T) {
		clearEnv()
		os.Setenv("STOREFRONT_APP_NAME", "test-app")
		os.Setenv("STOREFRONT_APP_PORT", "9000")
		os.Setenv("STOREFRONT_DATABASE_HOST", "testdb.local")
		os.Setenv("STOREFRONT_CHECKOUT_TAX_RATE", "0.13")
		os.Setenv("STOREFRONT_CHECKOUT_INVOICE_PREFIX", "ORD")
		os.Setenv("STOREFRONT_GATEWAY_CHANNEL_ID", "channel-42")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "test-app", cfg.App.Name)
		assert.Equal(t, "9000", cfg.App.Port)
		assert.Equal(t, "testdb.local", cfg.Database.Host)
		assert.Equal(t, "0.13", cfg.Checkout.TaxRate)
		assert.Equal(t, "ORD", cfg.Checkout.InvoicePrefix)
		assert.Equal(t, "channel-42", cfg.Gateway.ChannelID)
	})

	t.Run("validates MaxIdleConns cannot exceed MaxOpenConns", func(t *testing.T) {
		clearEnv()
		os.Setenv("STOREFRONT_DATABASE_MAX_OPEN_CONNS", "10")
		os.Setenv("STOREFRONT_DATABASE_MAX_IDLE_CONNS", "20")

		_, err := Load()
		require.Error(t, err)
	})

	t.Run("production requires gateway secrets", func(t *testing.T) {
		clearEnv()
		os.Setenv("STOREFRONT_APP_ENV", "production")
		os.Setenv("STOREFRONT_JWT_SECRET", "0123456789abcdef0123456789abcdef")
		os.Setenv("STOREFRONT_DATABASE_PASSWORD", "secret")
		os.Setenv("STOREFRONT_DATABASE_SSLMODE", "require")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "gateway.shared_secret")

		os.Setenv("STOREFRONT_GATEWAY_SHARED_SECRET", "webhook-secret")
		os.Setenv("STOREFRONT_GATEWAY_CHANNEL_ID", "channel-1")
		_, err = Load()
		require.NoError(t, err)
	})
}

func TestDatabaseConfig_DSN(t *testing.T) {
	cfg := DatabaseConfig{
		Host:     "localhost",
		Port:     5432,
		User:     "store",
		Password: "p@ss/word",
		DBName:   "storefront",
		SSLMode:  "disable",
	}

	dsn := cfg.DSN()
	assert.Contains(t, dsn, "postgres://")
	assert.Contains(t, dsn, "localhost:5432")
	assert.Contains(t, dsn, "sslmode=disable")
	// special characters must be escaped
	assert.NotContains(t, dsn, "p@ss/word")
}
