package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadConfig_Defaults(t *testing.T) {
	path := writeConfigFile(t, "server:\n  mode: test\n")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "test", cfg.Server.Mode)
	assert.Equal(t, 15*time.Second, cfg.FlashSale.TicketTTL)
	assert.Equal(t, 2*time.Second, cfg.FlashSale.Grace)
	assert.Equal(t, time.Second, cfg.FlashSale.SweepInterval)
	assert.Equal(t, 10*time.Minute, cfg.FlashSale.ResultRetention)
	assert.Equal(t, 3, cfg.FlashSale.ConfirmRetries)
	assert.Equal(t, 10, cfg.RateLimit.JoinPerUser.Limit)
	assert.True(t, cfg.Metrics.Enabled)
	assert.False(t, cfg.Tracing.Enabled)
}

func TestLoadConfig_FileOverridesDefaults(t *testing.T) {
	path := writeConfigFile(t, `
server:
  port: 9000
flashsale:
  ticket_ttl: 30s
  grace: 5s
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, 30*time.Second, cfg.FlashSale.TicketTTL)
	assert.Equal(t, 5*time.Second, cfg.FlashSale.Grace)
	// Untouched keys keep their defaults.
	assert.Equal(t, time.Second, cfg.FlashSale.SweepInterval)
}

func TestLoadConfig_EnvOverride(t *testing.T) {
	t.Setenv("FLASHSALE_SERVER_PORT", "9090")
	t.Setenv("FLASHSALE_FLASHSALE_TICKET_TTL", "20s")

	path := writeConfigFile(t, "server:\n  mode: test\n")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 20*time.Second, cfg.FlashSale.TicketTTL)
}

func TestLoadConfig_RejectsInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{
			name:    "sweep interval not smaller than ttl",
			content: "flashsale:\n  ticket_ttl: 1s\n  sweep_interval: 1s\n",
		},
		{
			name:    "non-positive ttl",
			content: "flashsale:\n  ticket_ttl: 0s\n",
		},
		{
			name:    "negative confirm retries",
			content: "flashsale:\n  confirm_retries: -1\n",
		},
		{
			name:    "port out of range",
			content: "server:\n  port: 70000\n",
		},
		{
			name:    "empty jwt secret",
			content: "security:\n  jwt:\n    secret: \"\"\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfigFile(t, tt.content)
			_, err := LoadConfig(path)
			assert.Error(t, err)
		})
	}
}

func TestServerConfig_GetAddr(t *testing.T) {
	s := ServerConfig{Host: "127.0.0.1", Port: 9000}
	assert.Equal(t, "127.0.0.1:9000", s.GetAddr())

	empty := ServerConfig{}
	assert.Equal(t, "0.0.0.0:8080", empty.GetAddr())
}

func TestDatabaseConfig_GetDSN(t *testing.T) {
	d := DatabaseConfig{
		Host:     "db.internal",
		Port:     3306,
		Username: "app",
		Password: "secret",
		DBName:   "flashsale",
	}
	dsn := d.GetDSN()
	assert.Contains(t, dsn, "app:secret@tcp(db.internal:3306)/flashsale")
	assert.Contains(t, dsn, "parseTime=True")
}

func TestRedisConfig_GetAddr(t *testing.T) {
	r := RedisConfig{Host: "cache.internal", Port: 6380}
	assert.Equal(t, "cache.internal:6380", r.GetAddr())

	empty := RedisConfig{}
	assert.Equal(t, "localhost:6379", empty.GetAddr())
}

func TestGlobalConfig_Get(t *testing.T) {
	path := writeConfigFile(t, "server:\n  port: 8088\n")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Same(t, cfg, Get())
}
