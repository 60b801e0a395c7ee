package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "development", cfg.Server.Env)
	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, 5*time.Minute, cfg.Auth.RoleCacheTTL)
	assert.Equal(t, 4, cfg.Notifications.Workers)
	assert.Equal(t, int32(25), cfg.Database.MaxConns)
	assert.False(t, cfg.KurrentDB.Enabled)
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("DB_NAME", "cases")
	t.Setenv("REDIS_ADDR", "redis:6379")
	t.Setenv("ROLE_CACHE_TTL", "30s")
	t.Setenv("NOTIFY_WORKERS", "8")
	t.Setenv("DB_MAX_CONNS", "10")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, "cases", cfg.Database.Database)
	assert.Equal(t, "redis:6379", cfg.Redis.Addr)
	assert.Equal(t, 30*time.Second, cfg.Auth.RoleCacheTTL)
	assert.Equal(t, 8, cfg.Notifications.Workers)
	assert.Equal(t, int32(10), cfg.Database.MaxConns)
}

func TestLoad_ConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 7000
nats:
  url: nats://nats:4222
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 7000, cfg.Server.Port)
	assert.Equal(t, "nats://nats:4222", cfg.NATS.URL)
}

func TestLoad_ProductionNeedsSecret(t *testing.T) {
	t.Setenv("ENV", "production")
	_, err := Load("")
	assert.Error(t, err)

	t.Setenv("JWT_SECRET", "a-real-secret")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.True(t, cfg.Server.IsProduction())
}

func TestDatabaseConfig_URL(t *testing.T) {
	d := DatabaseConfig{Host: "db", Port: 5432, User: "u", Password: "p@ss", Database: "platform", SSLMode: "disable"}
	assert.Equal(t, "postgres://u:p%40ss@db:5432/platform?sslmode=disable", d.URL())
	assert.Contains(t, d.DSN(), "dbname=platform")
}
