package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgconfig "github.com/pavel19a/serverless-lab-render/pkg/config"
	"github.com/pavel19a/serverless-lab-render/pkg/database"
	"github.com/pavel19a/serverless-lab-render/pkg/pubsub"
)

func TestDecode_Defaults(t *testing.T) {
	// Empty variables count as unset.
	for _, key := range []string{
		"PORT", "DATABASE_URL", "DB_STRATEGY", "DB_ORDER_BY", "STRICT_VALIDATION",
		"REDIS_ADDRESS", "REDIS_PASSWORD", "CACHE_TTL", "EVENTS_DRIVER", "KAFKA_BROKERS",
		"LOG_LEVEL",
	} {
		t.Setenv(key, "")
	}

	cfg, err := Decode(viper.New())
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:5000", cfg.Server.Addr())
	assert.Equal(t, 5*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, "", cfg.Database.URL)
	assert.False(t, cfg.Database.Configured())
	assert.Equal(t, database.StrategyURL, cfg.Database.Strategy)
	assert.Equal(t, OrderByID, cfg.Messages.OrderBy)
	assert.True(t, cfg.Validation.Strict)
	assert.Equal(t, 5*time.Second, cfg.Cache.TTL)
	assert.Equal(t, pubsub.DefaultConfig(), cfg.Events)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestDecode_Environment(t *testing.T) {
	t.Setenv("PORT", "8080")
	t.Setenv("DATABASE_URL", "postgres://u:p@db/app")
	t.Setenv("DB_STRATEGY", "fields")
	t.Setenv("DB_ORDER_BY", "created_at")
	t.Setenv("STRICT_VALIDATION", "false")
	t.Setenv("REDIS_ADDRESS", "cache:6379")
	t.Setenv("EVENTS_DRIVER", "kafka")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Decode(viper.New())
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "postgres://u:p@db/app", cfg.Database.URL)
	assert.Equal(t, database.StrategyFields, cfg.Database.Strategy)
	assert.Equal(t, OrderByCreatedAt, cfg.Messages.OrderBy)
	assert.False(t, cfg.Validation.Strict)
	assert.Equal(t, "cache:6379", cfg.Redis.Address)
	assert.Equal(t, "cache:6379", cfg.Events.Redis.Address)
	assert.Equal(t, pubsub.DriverKafka, cfg.Events.Driver)
	assert.Equal(t, "k1:9092,k2:9092", cfg.Events.Kafka.Brokers)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestDecode_Invalid(t *testing.T) {
	t.Run("order key", func(t *testing.T) {
		t.Setenv("DB_ORDER_BY", "random")
		_, err := Decode(viper.New())
		assert.ErrorContains(t, err, "messages.order_by")
	})

	t.Run("strategy", func(t *testing.T) {
		t.Setenv("DB_STRATEGY", "magic")
		_, err := Decode(viper.New())
		assert.ErrorContains(t, err, "database.strategy")
	})
}

func TestDecode_File(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(`
server:
  port: 9000
messages:
  order_by: created_at
cache:
  ttl: 1m
`), 0o600))

	v, err := pkgconfig.Load(dir, "config")
	require.NoError(t, err)
	cfg, err := Decode(v)
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, OrderByCreatedAt, cfg.Messages.OrderBy)
	assert.Equal(t, time.Minute, cfg.Cache.TTL)
	assert.True(t, cfg.Validation.Strict)
}
