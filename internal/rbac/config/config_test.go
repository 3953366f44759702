package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, DriverMongo, cfg.StoreDriver)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 30*time.Second, cfg.LockTTL)
	assert.Equal(t, 2, cfg.CascadeRetries)
	assert.Empty(t, cfg.RedisAddr)
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("LOCK_TTL", "5s")
	t.Setenv("BOOTSTRAP_SUPERADMINS", "alice,bob")
	t.Setenv("LOG_FORMAT", "text")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, DriverMemory, cfg.StoreDriver)
	assert.Equal(t, "localhost:6379", cfg.RedisAddr)
	assert.Equal(t, 5*time.Second, cfg.LockTTL)
	assert.Equal(t, []string{"alice", "bob"}, cfg.BootstrapSuperadmins)
	assert.Equal(t, "text", cfg.LogFormat)
}

func TestConfigValidate(t *testing.T) {
	base := Config{
		StoreDriver:      DriverMongo,
		MongoURI:         "mongodb://db",
		LockTTL:          time.Second,
		LockPollInterval: time.Millisecond,
		LogFormat:        "json",
	}
	require.NoError(t, base.Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown driver", func(c *Config) { c.StoreDriver = "postgres" }},
		{"mongo without uri", func(c *Config) { c.MongoURI = "" }},
		{"negative retries", func(c *Config) { c.CascadeRetries = -1 }},
		{"zero ttl", func(c *Config) { c.LockTTL = 0 }},
		{"bad log format", func(c *Config) { c.LogFormat = "xml" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
