package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("ENV", "development")
	t.Setenv("STORE_DRIVER", "")
	t.Setenv("STRICT_UNIT_CONVERSION", "")
	t.Setenv("LOW_STOCK_THRESHOLD", "")
	t.Setenv("IDEMPOTENCY_TTL_SECONDS", "")
	t.Setenv("REDIS_SNAPSHOT_TTL_SECONDS", "")

	cfg := Load()

	assert.Equal(t, DriverPostgres, cfg.Database.Driver)
	assert.True(t, cfg.Database.AutoMigrate)
	assert.False(t, cfg.Business.StrictUnitConversion)
	assert.Equal(t, 1.0, cfg.Business.LowStockThreshold)
	assert.Equal(t, 24*time.Hour, cfg.Business.IdempotencyTTL)
	assert.Equal(t, 10*time.Minute, cfg.Redis.SnapshotTTL)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("ENV", "production")
	t.Setenv("STORE_DRIVER", "MEMORY")
	t.Setenv("STRICT_UNIT_CONVERSION", "true")
	t.Setenv("LOW_STOCK_THRESHOLD", "2.5")
	t.Setenv("KAFKA_BROKERS", "a:9092,b:9092")
	t.Setenv("DB_AUTO_MIGRATE", "")
	t.Setenv("REDIS_SNAPSHOT_TTL_SECONDS", "30")

	cfg := Load()

	assert.Equal(t, DriverMemory, cfg.Database.Driver)
	assert.False(t, cfg.Database.AutoMigrate)
	assert.True(t, cfg.Business.StrictUnitConversion)
	assert.Equal(t, 2.5, cfg.Business.LowStockThreshold)
	assert.Equal(t, []string{"a:9092", "b:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 30*time.Second, cfg.Redis.SnapshotTTL)
}

func TestLoadIgnoresMalformedNumbers(t *testing.T) {
	t.Setenv("LOW_STOCK_THRESHOLD", "-3")
	t.Setenv("IDEMPOTENCY_TTL_SECONDS", "soon")
	t.Setenv("REDIS_ENABLED", "maybe")

	cfg := Load()

	assert.Equal(t, 1.0, cfg.Business.LowStockThreshold)
	assert.Equal(t, 24*time.Hour, cfg.Business.IdempotencyTTL)
	assert.True(t, cfg.Redis.Enabled)
}
