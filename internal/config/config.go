// Package config loads server settings.
//
// Priority, lowest to highest: defaults, YAML file, environment.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

var ErrInvalidConfig = errors.New("invalid configuration")

const (
	DriverMemory = "memory"
	DriverMongo  = "mongo"
	DriverMySQL  = "mysql"
)

type Config struct {
	HTTP    HTTPConfig    `yaml:"http"`
	GRPC    GRPCConfig    `yaml:"grpc"`
	Storage StorageConfig `yaml:"storage"`
	Redis   RedisConfig   `yaml:"redis"`
	Kafka   KafkaConfig   `yaml:"kafka"`
	Log     LogConfig     `yaml:"log"`
	Trace   TraceConfig   `yaml:"trace"`
	Seed    bool          `yaml:"seed"`
}

type HTTPConfig struct {
	Addr            string        `yaml:"addr"`
	RequestTimeout  time.Duration `yaml:"request_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type GRPCConfig struct {
	Addr    string `yaml:"addr"`
	Enabled bool   `yaml:"enabled"`
}

type StorageConfig struct {
	Driver string      `yaml:"driver"`
	Mongo  MongoConfig `yaml:"mongo"`
	MySQL  MySQLConfig `yaml:"mysql"`
}

type MongoConfig struct {
	URI      string `yaml:"uri"`
	Database string `yaml:"database"`
}

type MySQLConfig struct {
	DSN             string        `yaml:"dsn"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	Migrate         bool          `yaml:"migrate"`
}

// RedisConfig is optional; without an address locks and idempotency keys
// stay in process.
type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	PoolSize int           `yaml:"pool_size"`
	LockTTL  time.Duration `yaml:"lock_ttl"`
}

// KafkaConfig is optional; without brokers order events are only logged.
type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // text | json
}

type TraceConfig struct {
	Stdout bool `yaml:"stdout"`
}

func Default() Config {
	return Config{
		HTTP: HTTPConfig{
			Addr:            ":4000",
			RequestTimeout:  10 * time.Second,
			ShutdownTimeout: 5 * time.Second,
		},
		GRPC: GRPCConfig{Addr: ":50051", Enabled: true},
		Storage: StorageConfig{
			Driver: DriverMemory,
			Mongo:  MongoConfig{URI: "mongodb://localhost:27017", Database: "sushi-cafe"},
			MySQL: MySQLConfig{
				DSN:             "root:root@tcp(localhost:3306)/cafe?parseTime=true",
				MaxOpenConns:    50,
				MaxIdleConns:    25,
				ConnMaxLifetime: 5 * time.Minute,
				Migrate:         true,
			},
		},
		Redis: RedisConfig{PoolSize: 100, LockTTL: 10 * time.Second},
		Kafka: KafkaConfig{Topic: "cafe.orders"},
		Log:   LogConfig{Level: "info", Format: "text"},
		Seed:  true,
	}
}

// Load reads path (may be empty) and then applies the environment.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		path = os.Getenv("CAFE_CONFIG")
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

type lookupFunc func(string) (string, bool)

func (c *Config) applyEnv(lookup lookupFunc) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	boolean := func(key string, dst *bool) error {
		v, ok := lookup(key)
		if !ok || v == "" {
			return nil
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%w: %s=%q", ErrInvalidConfig, key, v)
		}
		*dst = b
		return nil
	}
	duration := func(key string, dst *time.Duration) error {
		v, ok := lookup(key)
		if !ok || v == "" {
			return nil
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%w: %s=%q", ErrInvalidConfig, key, v)
		}
		*dst = d
		return nil
	}

	str("CAFE_HTTP_ADDR", &c.HTTP.Addr)
	str("CAFE_GRPC_ADDR", &c.GRPC.Addr)
	str("CAFE_STORAGE_DRIVER", &c.Storage.Driver)
	str("MONGO_URI", &c.Storage.Mongo.URI)
	str("MONGO_DATABASE", &c.Storage.Mongo.Database)
	str("MYSQL_DSN", &c.Storage.MySQL.DSN)
	str("REDIS_ADDR", &c.Redis.Addr)
	str("KAFKA_TOPIC", &c.Kafka.Topic)
	str("CAFE_LOG_LEVEL", &c.Log.Level)
	str("CAFE_LOG_FORMAT", &c.Log.Format)
	if v, ok := lookup("KAFKA_BROKERS"); ok && v != "" {
		c.Kafka.Brokers = splitCSV(v)
	}

	for key, dst := range map[string]*bool{
		"CAFE_GRPC_ENABLED": &c.GRPC.Enabled,
		"CAFE_TRACE_STDOUT": &c.Trace.Stdout,
		"CAFE_SEED":         &c.Seed,
		"MYSQL_MIGRATE":     &c.Storage.MySQL.Migrate,
	} {
		if err := boolean(key, dst); err != nil {
			return err
		}
	}
	for key, dst := range map[string]*time.Duration{
		"CAFE_REQUEST_TIMEOUT":  &c.HTTP.RequestTimeout,
		"CAFE_SHUTDOWN_TIMEOUT": &c.HTTP.ShutdownTimeout,
		"REDIS_LOCK_TTL":        &c.Redis.LockTTL,
	} {
		if err := duration(key, dst); err != nil {
			return err
		}
	}
	return nil
}

func (c Config) Validate() error {
	switch c.Storage.Driver {
	case DriverMemory, DriverMongo, DriverMySQL:
	default:
		return fmt.Errorf("%w: unknown storage driver %q", ErrInvalidConfig, c.Storage.Driver)
	}
	if c.HTTP.Addr == "" {
		return fmt.Errorf("%w: http.addr is required", ErrInvalidConfig)
	}
	if c.HTTP.RequestTimeout <= 0 {
		return fmt.Errorf("%w: http.request_timeout must be positive", ErrInvalidConfig)
	}
	if c.Redis.Addr != "" && c.Redis.LockTTL <= 0 {
		return fmt.Errorf("%w: redis.lock_ttl must be positive", ErrInvalidConfig)
	}
	if len(c.Kafka.Brokers) > 0 && c.Kafka.Topic == "" {
		return fmt.Errorf("%w: kafka.topic is required with brokers", ErrInvalidConfig)
	}
	if _, err := c.Log.SlogLevel(); err != nil {
		return err
	}
	return nil
}

func (l LogConfig) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(l.Level)); err != nil {
		return 0, fmt.Errorf("%w: log.level %q", ErrInvalidConfig, l.Level)
	}
	return level, nil
}

// NewLogger builds the process logger from the log section.
func (l LogConfig) NewLogger() *slog.Logger {
	level, err := l.SlogLevel()
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(l.Format, "json") {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}

func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
