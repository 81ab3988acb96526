package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	pkgconfig "github.com/pavel19a/serverless-lab-render/pkg/config"
	"github.com/pavel19a/serverless-lab-render/pkg/database"
	"github.com/pavel19a/serverless-lab-render/pkg/log"
	"github.com/pavel19a/serverless-lab-render/pkg/pubsub"
)

const (
	OrderByID        = "id"
	OrderByCreatedAt = "created_at"
)

type Config struct {
	Server     ServerConfig
	Database   database.Config
	Messages   MessagesConfig
	Validation ValidationConfig
	Redis      RedisConfig
	Cache      CacheConfig
	Events     pubsub.Config
	Log        log.Config
}

type ServerConfig struct {
	Host            string
	Port            int
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

type MessagesConfig struct {
	// OrderBy selects the recency key of the recent list: id or created_at.
	OrderBy string `mapstructure:"order_by"`
}

type ValidationConfig struct {
	// Strict rejects missing bodies and empty messages with 400.
	Strict bool `mapstructure:"strict"`
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type CacheConfig struct {
	Prefix string        `mapstructure:"prefix"`
	TTL    time.Duration `mapstructure:"ttl"`
}

// Load reads ./config/config.yaml when present and the environment.
// The returned viper instance can be handed to pkgconfig.Watch.
func Load() (*Config, *viper.Viper, error) {
	v, err := pkgconfig.Load("./config", "config")
	if err != nil {
		return nil, nil, err
	}

	cfg, err := Decode(v)
	if err != nil {
		return nil, nil, err
	}
	return cfg, v, nil
}

// Decode applies defaults and env bindings to v and unmarshals it.
func Decode(v *viper.Viper) (*Config, error) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 5000)
	v.SetDefault("server.shutdown_timeout", "5s")
	v.SetDefault("database.url", "")
	v.SetDefault("database.strategy", database.StrategyURL)
	v.SetDefault("database.log_level", "warn")
	v.SetDefault("messages.order_by", OrderByID)
	v.SetDefault("validation.strict", true)
	v.SetDefault("redis.address", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("cache.prefix", "messages")
	v.SetDefault("cache.ttl", "5s")
	events := pubsub.DefaultConfig()
	v.SetDefault("events.driver", events.Driver)
	v.SetDefault("events.redis.address", events.Redis.Address)
	v.SetDefault("events.redis.pool_size", events.Redis.PoolSize)
	v.SetDefault("events.redis.read_timeout", events.Redis.ReadTimeout)
	v.SetDefault("events.redis.write_timeout", events.Redis.WriteTimeout)
	v.SetDefault("events.kafka.brokers", events.Kafka.Brokers)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)
	v.SetDefault("log.service_name", "serverless-lab")

	_ = v.BindEnv("server.port", "PORT")
	_ = v.BindEnv("database.url", "DATABASE_URL")
	_ = v.BindEnv("database.strategy", "DB_STRATEGY")
	_ = v.BindEnv("database.log_level", "DB_LOG_LEVEL")
	_ = v.BindEnv("messages.order_by", "DB_ORDER_BY")
	_ = v.BindEnv("validation.strict", "STRICT_VALIDATION")
	_ = v.BindEnv("redis.address", "REDIS_ADDRESS")
	_ = v.BindEnv("redis.password", "REDIS_PASSWORD")
	_ = v.BindEnv("cache.ttl", "CACHE_TTL")
	_ = v.BindEnv("events.driver", "EVENTS_DRIVER")
	_ = v.BindEnv("events.redis.address", "REDIS_ADDRESS")
	_ = v.BindEnv("events.redis.password", "REDIS_PASSWORD")
	_ = v.BindEnv("events.kafka.brokers", "KAFKA_BROKERS")
	_ = v.BindEnv("log.level", "LOG_LEVEL")
	_ = v.BindEnv("log.pretty", "LOG_PRETTY")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	switch cfg.Messages.OrderBy {
	case OrderByID, OrderByCreatedAt:
	default:
		return nil, fmt.Errorf("messages.order_by must be %q or %q, got %q",
			OrderByID, OrderByCreatedAt, cfg.Messages.OrderBy)
	}
	switch cfg.Database.Strategy {
	case database.StrategyURL, database.StrategyFields:
	default:
		return nil, fmt.Errorf("database.strategy must be %q or %q, got %q",
			database.StrategyURL, database.StrategyFields, cfg.Database.Strategy)
	}

	return &cfg, nil
}
