package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// DBConfig Postgres connection settings
type DBConfig struct {
	Host               string        `yaml:"host"`
	Port               int           `yaml:"port"`
	User               string        `yaml:"user"`
	Password           string        `yaml:"password"`
	Name               string        `yaml:"name"`
	MaxConns           int32         `yaml:"max_conns"`
	MinConns           int32         `yaml:"min_conns"`
	SlowQueryThreshold time.Duration `yaml:"slow_query_threshold"`
}

// Store drivers
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// StoreConfig selects the record store backend
type StoreConfig struct {
	Driver     string `yaml:"driver"` // postgres | sqlite
	SQLitePath string `yaml:"sqlite_path"`
}

// MQConfig RabbitMQ settings. An empty URL disables event dispatch.
type MQConfig struct {
	URL              string        `yaml:"url"`
	DispatchInterval time.Duration `yaml:"dispatch_interval"`
	DispatchBatch    int           `yaml:"dispatch_batch"`
}

// RedisConfig Redis settings. An empty Addr disables the idempotency guard.
type RedisConfig struct {
	Addr           string        `yaml:"addr"`
	Password       string        `yaml:"password"`
	DB             int           `yaml:"db"`
	IdempotencyTTL time.Duration `yaml:"idempotency_ttl"`
}

// JWTConfig token settings
type JWTConfig struct {
	Secret string        `yaml:"secret"`
	TTL    time.Duration `yaml:"ttl"`
}

// ServerConfig HTTP listener settings
type ServerConfig struct {
	Port            string        `yaml:"port"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// HabitsConfig domain settings
type HabitsConfig struct {
	// Timezone defines the single day boundary used to derive "today".
	Timezone string `yaml:"timezone"`
}

// Config is the full service configuration.
type Config struct {
	DB     DBConfig     `yaml:"db"`
	Store  StoreConfig  `yaml:"store"`
	MQ     MQConfig     `yaml:"mq"`
	Redis  RedisConfig  `yaml:"redis"`
	JWT    JWTConfig    `yaml:"jwt"`
	Server ServerConfig `yaml:"server"`
	Habits HabitsConfig `yaml:"habits"`
}

// Default returns the configuration used when a key is missing from every layer.
func Default() Config {
	return Config{
		DB: DBConfig{
			Host:               "localhost",
			Port:               5432,
			User:               "habits",
			Name:               "habits",
			MaxConns:           10,
			MinConns:           2,
			SlowQueryThreshold: 100 * time.Millisecond,
		},
		Store: StoreConfig{
			Driver:     DriverPostgres,
			SQLitePath: "habits.db",
		},
		MQ: MQConfig{
			DispatchInterval: time.Second,
			DispatchBatch:    100,
		},
		Redis: RedisConfig{
			IdempotencyTTL: 10 * time.Minute,
		},
		JWT: JWTConfig{
			TTL: 24 * time.Hour,
		},
		Server: ServerConfig{
			Port:            ":8080",
			ShutdownTimeout: 30 * time.Second,
		},
		Habits: HabitsConfig{
			Timezone: "UTC",
		},
	}
}

// Validate reports the first setting that would make the service unusable.
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case DriverPostgres:
		if c.DB.Host == "" || c.DB.Name == "" {
			return fmt.Errorf("db.host and db.name are required for the postgres store")
		}
	case DriverSQLite:
		if c.Store.SQLitePath == "" {
			return fmt.Errorf("store.sqlite_path is required for the sqlite store")
		}
	default:
		return fmt.Errorf("unknown store driver %q", c.Store.Driver)
	}
	if c.JWT.Secret == "" {
		return fmt.Errorf("jwt.secret is required")
	}
	if _, err := time.LoadLocation(c.Habits.Timezone); err != nil {
		return fmt.Errorf("invalid habits.timezone %q: %w", c.Habits.Timezone, err)
	}
	return nil
}

// OverrideDBFromEnv applies DB_* environment variables
func OverrideDBFromEnv(cfg *DBConfig) {
	if host := os.Getenv("DB_HOST"); host != "" {
		cfg.Host = host
	}
	if port := os.Getenv("DB_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			cfg.Port = p
		}
	}
	if user := os.Getenv("DB_USER"); user != "" {
		cfg.User = user
	}
	if password := os.Getenv("DB_PASSWORD"); password != "" {
		cfg.Password = password
	}
	if name := os.Getenv("DB_NAME"); name != "" {
		cfg.Name = name
	}
}

// OverrideStoreFromEnv applies STORE_DRIVER and SQLITE_PATH
func OverrideStoreFromEnv(cfg *StoreConfig) {
	if driver := os.Getenv("STORE_DRIVER"); driver != "" {
		cfg.Driver = driver
	}
	if path := os.Getenv("SQLITE_PATH"); path != "" {
		cfg.SQLitePath = path
	}
}

// OverrideMQFromEnv applies MQ_URL
func OverrideMQFromEnv(cfg *MQConfig) {
	if url := os.Getenv("MQ_URL"); url != "" {
		cfg.URL = url
	}
}

// OverrideRedisFromEnv applies REDIS_ADDR and REDIS_PASSWORD
func OverrideRedisFromEnv(cfg *RedisConfig) {
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		cfg.Addr = addr
	}
	if password := os.Getenv("REDIS_PASSWORD"); password != "" {
		cfg.Password = password
	}
}

// OverrideJWTFromEnv applies JWT_SECRET
func OverrideJWTFromEnv(cfg *JWTConfig) {
	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		cfg.Secret = secret
	}
}

// OverrideServerFromEnv applies SERVER_PORT
func OverrideServerFromEnv(cfg *ServerConfig) {
	if port := os.Getenv("SERVER_PORT"); port != "" {
		cfg.Port = port
	}
}

// OverrideHabitsFromEnv applies HABITS_TIMEZONE
func OverrideHabitsFromEnv(cfg *HabitsConfig) {
	if tz := os.Getenv("HABITS_TIMEZONE"); tz != "" {
		cfg.Timezone = tz
	}
}
