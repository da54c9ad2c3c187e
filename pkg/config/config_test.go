package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "mysql", cfg.Database.Driver)
	assert.Equal(t, 8080, cfg.Gateway.Port)
	assert.Equal(t, []string{"cod"}, cfg.Checkout.CashMethods)
	assert.Equal(t, 14*24*time.Hour, cfg.Session.TTL)
	assert.Equal(t, "cart_session", cfg.Session.CookieName)
	assert.Equal(t, "https://api.paystack.co", cfg.Payment.BaseURL)
}

func TestLoadFileAndEnv(t *testing.T) {
	path := writeConfig(t, `
gateway:
  port: 9000
database:
  driver: postgres
  host: db.internal
  port: 5432
  username: shop
  password: secret
  database: carts
session:
  ttl: 2h
checkout:
  cash_methods: [cod, bank_transfer]
`)
	t.Setenv("CARTSHOP_GATEWAY_PORT", "9100")
	t.Setenv("CARTSHOP_AUTH_JWT_SECRET", "s3cret")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9100, cfg.Gateway.Port)
	assert.Equal(t, "s3cret", cfg.Auth.JWTSecret)
	assert.Equal(t, 2*time.Hour, cfg.Session.TTL)
	assert.Equal(t, []string{"cod", "bank_transfer"}, cfg.Checkout.CashMethods)
	assert.Equal(t, "host=db.internal port=5432 user=shop password=secret dbname=carts sslmode=disable", cfg.Database.DSN())
}

func TestLoadRejectsUnknownDriver(t *testing.T) {
	path := writeConfig(t, "database:\n  driver: oracle\n")
	_, err := Load(path)
	assert.ErrorContains(t, err, "oracle")
}

func TestMySQLDSN(t *testing.T) {
	c := DatabaseConfig{Driver: "mysql", Host: "localhost", Port: 3306, Username: "root", Password: "pw", Database: "shop"}
	assert.Equal(t, "root:pw@tcp(localhost:3306)/shop?charset=utf8mb4&parseTime=True&loc=Local", c.DSN())
}
