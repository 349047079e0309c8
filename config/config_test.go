package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadEnv_Defaults(t *testing.T) {
	cfg := LoadEnv()

	assert.Equal(t, "pgx", cfg.Database.Driver)
	assert.Equal(t, int64(5), cfg.Ledger.LowStockThreshold)
	assert.Equal(t, 3, cfg.Ledger.MaxRetries)
	assert.Equal(t, "orders.events", cfg.Kafka.OrdersTopic)
	assert.Equal(t, "inventory.low-stock", cfg.Kafka.AlertsTopic)
}

func TestLoadEnv_Overrides(t *testing.T) {
	t.Setenv("DB_DRIVER", "sqlite3")
	t.Setenv("LEDGER_LOW_STOCK_THRESHOLD", "12")
	t.Setenv("LEDGER_RETRY_BACKOFF", "250ms")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("REDIS_ENABLED", "false")
	t.Setenv("LEDGER_MAX_RETRIES", "many")

	cfg := LoadEnv()

	assert.Equal(t, "sqlite3", cfg.Database.Driver)
	assert.Equal(t, int64(12), cfg.Ledger.LowStockThreshold)
	assert.Equal(t, 250*time.Millisecond, cfg.Ledger.RetryBackoff)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.False(t, cfg.Redis.Enabled)
	assert.Equal(t, 3, cfg.Ledger.MaxRetries, "unparsable values fall back")
}
