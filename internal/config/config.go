package config

import (
	"time"

	pkgconfig "github.com/weiawesome/wes-io-live/follow-graph-service/pkg/config"
	"github.com/weiawesome/wes-io-live/follow-graph-service/pkg/database"
	pkglog "github.com/weiawesome/wes-io-live/follow-graph-service/pkg/log"
	"github.com/weiawesome/wes-io-live/follow-graph-service/pkg/pubsub"
)

type Config struct {
	Server     ServerConfig
	GRPC       GRPCConfig `mapstructure:"grpc"`
	Database   DatabaseConfig
	Redis      RedisConfig
	Kafka      KafkaConfig
	Events     pubsub.Config `mapstructure:"events"`
	Reconciler ReconcilerConfig
	Auth       AuthConfig
	Lock       LockConfig
	Cache      CacheConfig
	RateLimit  RateLimitConfig `mapstructure:"rate_limit"`
	Log        pkglog.Config
}

type ServerConfig struct {
	Host string
	Port int
}

type GRPCConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

type DatabaseConfig struct {
	Driver          string `mapstructure:"driver"`
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	TimeZone        string `mapstructure:"timezone"`
	FilePath        string `mapstructure:"file_path"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`
	LogLevel        string `mapstructure:"log_level"`
}

// Database converts to the shared database package config.
func (c DatabaseConfig) Database() *database.Config {
	return &database.Config{
		Driver:          c.Driver,
		Host:            c.Host,
		Port:            c.Port,
		User:            c.User,
		Password:        c.Password,
		DBName:          c.DBName,
		SSLMode:         c.SSLMode,
		TimeZone:        c.TimeZone,
		FilePath:        c.FilePath,
		MaxIdleConns:    c.MaxIdleConns,
		MaxOpenConns:    c.MaxOpenConns,
		ConnMaxLifetime: c.ConnMaxLifetime,
		LogLevel:        c.LogLevel,
	}
}

// RedisConfig configures the counter cache and the pair lock. With Redis
// disabled the service runs with no cache and an in-process lock, which is
// only safe for a single replica.
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// KafkaConfig configures the user profile CDC consumer.
type KafkaConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Brokers string `mapstructure:"brokers"`
	Topic   string `mapstructure:"topic"`
	GroupID string `mapstructure:"group_id"`
}

type ReconcilerConfig struct {
	Enabled   bool          `mapstructure:"enabled"`
	Interval  time.Duration `mapstructure:"interval"`
	TopN      int           `mapstructure:"top_n"`
	BatchSize int           `mapstructure:"batch_size"`
	// Repair writes corrected counters and missing reflections; otherwise
	// drift is only logged.
	Repair bool `mapstructure:"repair"`
}

type AuthConfig struct {
	PublicKeyPath string `mapstructure:"public_key_path"`
	Issuer        string `mapstructure:"issuer"`
}

type LockConfig struct {
	TTL   time.Duration `mapstructure:"ttl"`
	Retry time.Duration `mapstructure:"retry"`
}

type CacheConfig struct {
	TTL time.Duration `mapstructure:"ttl"`
}

// RateLimitConfig throttles graph mutations per caller.
type RateLimitConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	RPS     float64       `mapstructure:"rps"`
	Burst   int           `mapstructure:"burst"`
	Idle    time.Duration `mapstructure:"idle"`
}

func Load() (*Config, error) {
	v, err := pkgconfig.Load("./config", "config")
	if err != nil {
		return nil, err
	}

	// Set defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8096)
	v.SetDefault("grpc.enabled", true)
	v.SetDefault("grpc.port", 50066)
	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.dbname", "postgres")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.timezone", "UTC")
	v.SetDefault("database.file_path", "./data/follow-graph.db")
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("database.max_open_conns", 100)
	v.SetDefault("database.conn_max_lifetime", 60)
	v.SetDefault("database.log_level", "warn")
	v.SetDefault("redis.enabled", true)
	v.SetDefault("redis.address", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.brokers", "localhost:9092")
	v.SetDefault("kafka.topic", "dbserver1.public.users")
	v.SetDefault("kafka.group_id", "follow-graph-service")
	v.SetDefault("events.driver", "none")
	v.SetDefault("events.redis.address", "localhost:6379")
	v.SetDefault("events.kafka.brokers", "localhost:9092")
	v.SetDefault("events.kafka.partitions", 3)
	v.SetDefault("reconciler.enabled", true)
	v.SetDefault("reconciler.interval", "60s")
	v.SetDefault("reconciler.top_n", 100)
	v.SetDefault("reconciler.batch_size", 500)
	v.SetDefault("reconciler.repair", true)
	v.SetDefault("auth.public_key_path", "./keys/public.pem")
	v.SetDefault("auth.issuer", "")
	v.SetDefault("lock.ttl", "5s")
	v.SetDefault("lock.retry", "20ms")
	v.SetDefault("cache.ttl", "24h")
	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.rps", 5)
	v.SetDefault("rate_limit.burst", 20)
	v.SetDefault("rate_limit.idle", "3m")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.service_name", "follow-graph-service")

	// Bind environment variables
	err = pkgconfig.BindEnvs(v, map[string]string{
		"server.port":                "PORT",
		"grpc.enabled":               "GRPC_ENABLED",
		"grpc.port":                  "GRPC_PORT",
		"database.driver":            "DB_DRIVER",
		"database.host":              "DB_HOST",
		"database.port":              "DB_PORT",
		"database.user":              "DB_USER",
		"database.password":          "DB_PASSWORD",
		"database.dbname":            "DB_NAME",
		"database.sslmode":           "DB_SSLMODE",
		"database.file_path":         "DB_FILE_PATH",
		"database.max_idle_conns":    "DB_MAX_IDLE_CONNS",
		"database.max_open_conns":    "DB_MAX_OPEN_CONNS",
		"database.conn_max_lifetime": "DB_CONN_MAX_LIFETIME",
		"redis.enabled":              "REDIS_ENABLED",
		"redis.address":              "REDIS_ADDRESS",
		"redis.password":             "REDIS_PASSWORD",
		"redis.db":                   "REDIS_DB",
		"kafka.enabled":              "KAFKA_ENABLED",
		"kafka.brokers":              "KAFKA_BROKERS",
		"kafka.topic":                "KAFKA_TOPIC",
		"kafka.group_id":             "KAFKA_GROUP_ID",
		"events.driver":              "EVENTS_DRIVER",
		"events.redis.address":       "EVENTS_REDIS_ADDRESS",
		"events.kafka.brokers":       "EVENTS_KAFKA_BROKERS",
		"reconciler.enabled":         "RECONCILER_ENABLED",
		"reconciler.interval":        "RECONCILER_INTERVAL",
		"reconciler.top_n":           "RECONCILER_TOP_N",
		"reconciler.batch_size":      "RECONCILER_BATCH_SIZE",
		"reconciler.repair":          "RECONCILER_REPAIR",
		"auth.public_key_path":       "AUTH_PUBLIC_KEY_PATH",
		"auth.issuer":                "AUTH_ISSUER",
		"lock.ttl":                   "LOCK_TTL",
		"lock.retry":                 "LOCK_RETRY",
		"cache.ttl":                  "CACHE_TTL",
		"rate_limit.enabled":         "RATE_LIMIT_ENABLED",
		"rate_limit.rps":             "RATE_LIMIT_RPS",
		"rate_limit.burst":           "RATE_LIMIT_BURST",
		"log.level":                  "LOG_LEVEL",
		"log.pretty":                 "LOG_PRETTY",
	})
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
