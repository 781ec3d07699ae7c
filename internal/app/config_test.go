package app_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cyphertext/internal/app"
)

func TestLoadConfig_MissingFileGivesDefaults(t *testing.T) {
	cfg, err := app.LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, app.DefaultConfig(), cfg)
}

func TestLoadConfig_OverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cyphertext.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
home: /tmp/alice
participant: 0xalice
relay_url: http://127.0.0.1:8080
cache: sqlite
transport_timeout: 3s
relay:
  backend: redis
  redis_addr: 127.0.0.1:6379
  cors_origins: ["http://localhost:5173"]
`), 0o600))

	cfg, err := app.LoadConfig(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "0xalice", cfg.Participant)
	assert.Equal(t, app.CacheSQLite, cfg.Cache)
	assert.Equal(t, 3*time.Second, cfg.TransportTimeout)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, app.BackendRedis, cfg.Relay.Backend)
	assert.Equal(t, ":8080", cfg.Relay.Listen)
	assert.Equal(t, []string{"http://localhost:5173"}, cfg.Relay.CORSOrigins)
}

func TestConfig_Validate(t *testing.T) {
	base := app.DefaultConfig()
	base.Home = t.TempDir()
	require.NoError(t, base.Validate())

	tests := map[string]func(*app.Config){
		"no home":         func(c *app.Config) { c.Home = "" },
		"bad cache":       func(c *app.Config) { c.Cache = "bolt" },
		"bad relay url":   func(c *app.Config) { c.RelayURL = "not a url" },
		"bad log level":   func(c *app.Config) { c.LogLevel = "loud" },
		"redis no addr":   func(c *app.Config) { c.Relay.Backend = app.BackendRedis },
		"unknown backend": func(c *app.Config) { c.Relay.Backend = "kafka" },
		"underscore id":   func(c *app.Config) { c.Participant = "b_c" },
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			cfg := base
			mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestRelayConfig_ValidateAlone(t *testing.T) {
	rc := app.DefaultConfig().Relay
	require.NoError(t, rc.Validate())
	rc.Backend = app.BackendRedis
	assert.Error(t, rc.Validate())
	rc.RedisAddr = "127.0.0.1:6379"
	assert.NoError(t, rc.Validate())
}
