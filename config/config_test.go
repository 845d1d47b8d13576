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

func TestLoadConfig_Defaults(t *testing.T) {
	path := writeConfig(t, `
database:
  host: localhost
  port: 5432
redis:
  addr: localhost:6379
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTP.Address)
	assert.Equal(t, 30*time.Second, cfg.Booking.LockTTL())
	assert.Equal(t, 100*time.Millisecond, cfg.Booking.LockRetryDelay())
	assert.Equal(t, 50, cfg.Booking.LockMaxRetries)
	assert.Equal(t, 6, cfg.Tracking.RateLimit)
	assert.Equal(t, time.Minute, cfg.Tracking.RateWindow())
	assert.Equal(t, 30*time.Second, cfg.Tracking.Heartbeat())
}

func TestLoadConfig_EnvOverride(t *testing.T) {
	path := writeConfig(t, `
database:
  host: localhost
redis:
  addr: localhost:6379
tracking:
  rate_limit: 6
`)
	t.Setenv("DELIVERYDESK_REDIS_ADDR", "redis:6380")
	t.Setenv("DELIVERYDESK_TRACKING_RATE_LIMIT", "10")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "redis:6380", cfg.Redis.Addr)
	assert.Equal(t, 10, cfg.Tracking.RateLimit)
	assert.Equal(t, "localhost", cfg.Database.Host)
}

func TestLoadConfig_MissingRequired(t *testing.T) {
	path := writeConfig(t, "http:\n  address: \":9000\"\n")

	_, err := LoadConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis.addr is required")
	assert.Contains(t, err.Error(), "database.host is required")
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestDatabaseConfig_DSN(t *testing.T) {
	d := DatabaseConfig{Host: "db", Port: 5432, User: "u", Password: "p", Name: "desk", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=desk sslmode=disable", d.DSN())
}

func TestLoadConfig_IgnoresUnprefixedEnv(t *testing.T) {
	path := writeConfig(t, `
database:
  host: db.internal
  port: 5432
  user: deliverydesk
  password: secret
redis:
  addr: localhost:6379
  password: redis-secret
log:
  level: warn
`)
	t.Setenv("USER", "root")
	t.Setenv("PORT", "3000")
	t.Setenv("HOST", "workstation")
	t.Setenv("PASSWORD", "leaked")
	t.Setenv("LEVEL", "debug")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "deliverydesk", cfg.Database.User)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, "secret", cfg.Database.Password)
	assert.Equal(t, "redis-secret", cfg.Redis.Password)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadConfig_EnvOverrideSplitWords(t *testing.T) {
	path := writeConfig(t, `
database:
  host: localhost
  user: deliverydesk
redis:
  addr: localhost:6379
`)
	t.Setenv("DELIVERYDESK_DATABASE_USER", "ops")
	t.Setenv("DELIVERYDESK_BOOKING_LOCK_TTL_SECONDS", "45")
	t.Setenv("DELIVERYDESK_BOOKING_LOCK_RETRY_DELAY_MS", "250")
	t.Setenv("DELIVERYDESK_MINIO_LINK_TTL_MINUTES", "5")
	t.Setenv("DELIVERYDESK_KAFKA_BROKERS", "k1:9092,k2:9092")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "ops", cfg.Database.User)
	assert.Equal(t, 45*time.Second, cfg.Booking.LockTTL())
	assert.Equal(t, 250*time.Millisecond, cfg.Booking.LockRetryDelay())
	assert.Equal(t, 5*time.Minute, cfg.Minio.LinkTTL())
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
}

func TestLoadConfig_RejectsNegativeIntervals(t *testing.T) {
	path := writeConfig(t, `
database:
  host: localhost
redis:
  addr: localhost:6379
worker:
  reconcile_minutes: -1
tracking:
  heartbeat_seconds: -5
`)

	_, err := LoadConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "worker.reconcile_minutes must not be negative")
	assert.Contains(t, err.Error(), "tracking.heartbeat_seconds must not be negative")
}
