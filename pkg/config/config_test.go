package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withConfigFile(t *testing.T, body string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	t.Setenv("CONFIG_FILE", path)
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "missing.yaml"))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Database.Type)
	assert.Equal(t, 100, cfg.RateLimit.General.Requests)
	assert.Equal(t, 15*time.Minute, cfg.RateLimit.General.Window)
	assert.Equal(t, 5, cfg.RateLimit.Register.Requests)
	assert.False(t, cfg.AI.Enabled())
}

func TestLoadFileThenEnvOverride(t *testing.T) {
	withConfigFile(t, `
server:
  port: 9000
  env: staging
database:
  type: postgres
  host: db.internal
  name: learning
auth:
  access_ttl: 1h
logging:
  level: debug
`)
	t.Setenv("PORT", "9100")
	t.Setenv("OPENAI_API_KEY", "sk-test")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9100, cfg.Server.Port)
	assert.Equal(t, "staging", cfg.Server.Env)
	assert.Equal(t, time.Hour, cfg.Auth.AccessTTL)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Contains(t, cfg.Database.DSN(), "host=db.internal")
	assert.Contains(t, cfg.Database.DSN(), "dbname=learning")
	assert.True(t, cfg.AI.Enabled())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"bad port", func(c *Config) { c.Server.Port = 0 }},
		{"unknown db", func(c *Config) { c.Database.Type = "oracle" }},
		{"production default secret", func(c *Config) { c.Server.Env = "production" }},
		{"low bcrypt cost", func(c *Config) { c.Auth.BcryptCost = 2 }},
		{"empty limit", func(c *Config) { c.RateLimit.Game = Limit{} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}

	assert.NoError(t, defaultConfig().Validate())
}

func TestSQLiteDSN(t *testing.T) {
	cfg := defaultConfig()
	assert.Equal(t, "./data/alif24.db?mode=rwc&cache=shared&_busy_timeout=5000&_foreign_keys=on", cfg.Database.DSN())
}
