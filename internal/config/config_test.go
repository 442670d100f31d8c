package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "formflow.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := load("", nil)
	require.NoError(t, err)
	assert.Equal(t, Default(), *cfg)
}

func TestLoad_FileAndEnv(t *testing.T) {
	path := writeFile(t, `
server:
  addr: ":9090"
  shutdown_timeout: 3s
database:
  path: /var/lib/formflow.db
  wal: false
cache:
  driver: redis
  ttl: 1h
redis:
  addr: redis:6379
  db: 2
log:
  level: debug
`)

	cfg, err := load(path, []string{
		"FORMFLOW_SERVER_ADDR=:7070",
		"FORMFLOW_REDIS_LOCK=true",
		"FORMFLOW_DATABASE_MAX_OPEN_CONNS=4",
		"FORMFLOW_UNKNOWN_THING=1",
		"HOME=/root",
	})
	require.NoError(t, err)

	assert.Equal(t, ":7070", cfg.Server.Addr)
	assert.Equal(t, 3*time.Second, cfg.Server.ShutdownTimeout)
	assert.True(t, cfg.Server.Admin, "unset keys keep defaults")
	assert.Equal(t, "/var/lib/formflow.db", cfg.Database.Path)
	assert.False(t, cfg.Database.WAL)
	assert.Equal(t, 4, cfg.Database.MaxOpenConns)
	assert.Equal(t, 5*time.Second, cfg.Database.BusyTimeout)
	assert.Equal(t, CacheRedis, cfg.Cache.Driver)
	assert.Equal(t, time.Hour, cfg.Cache.TTL)
	assert.Equal(t, 2, cfg.Redis.DB)
	assert.True(t, cfg.Redis.Lock)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoad_ProcessEnv(t *testing.T) {
	t.Setenv("FORMFLOW_LOG_LEVEL", "warn")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		env     []string
		want    string
	}{
		{"unknown key", "server:\n  port: 80\n", nil, "port"},
		{"bad duration", "cache:\n  ttl: soon\n", nil, "ttl"},
		{"bad driver", "cache:\n  driver: memcached\n", nil, "cache.driver"},
		{"bad level", "", []string{"FORMFLOW_LOG_LEVEL=loud"}, "log.level"},
		{"redis without addr", "cache:\n  driver: redis\nredis:\n  addr: \"\"\n", nil, "redis.addr"},
		{"not yaml", "server: [", nil, "parse"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := load(writeFile(t, tt.content), tt.env)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}

	_, err := load(filepath.Join(t.TempDir(), "missing.yaml"), nil)
	assert.ErrorIs(t, err, os.ErrNotExist)
}
