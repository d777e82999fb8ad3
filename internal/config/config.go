package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	Auth     AuthConfig
	Admin    AdminConfig
	Ledger   LedgerConfig
	LogLevel string `env:"LOG_LEVEL" envDefault:"INFO"`
}

type ServerConfig struct {
	Port            string        `env:"PORT" envDefault:":8080"`
	ReadTimeout     time.Duration `env:"SERVER_READ_TIMEOUT" envDefault:"15s"`
	WriteTimeout    time.Duration `env:"SERVER_WRITE_TIMEOUT" envDefault:"15s"`
	IdleTimeout     time.Duration `env:"SERVER_IDLE_TIMEOUT" envDefault:"60s"`
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" envDefault:"30s"`
}

type DatabaseConfig struct {
	Driver      string `env:"DB_DRIVER" envDefault:"sqlite"`
	DSN         string `env:"DB_DSN" envDefault:"file:event-ledger.db?cache=shared"`
	AutoMigrate bool   `env:"DB_AUTO_MIGRATE" envDefault:"true"`
}

// RedisConfig leaves Addr empty to fall back to an in-process event lock.
type RedisConfig struct {
	Addr         string        `env:"REDIS_ADDR"`
	Password     string        `env:"REDIS_PASSWORD"`
	DB           int           `env:"REDIS_DB" envDefault:"0"`
	EventLockTTL time.Duration `env:"EVENT_LOCK_TTL" envDefault:"30s"`
}

type KafkaConfig struct {
	Enabled     bool     `env:"KAFKA_ENABLED" envDefault:"false"`
	Brokers     []string `env:"KAFKA_BROKERS" envSeparator:"," envDefault:"localhost:9092"`
	TopicPrefix string   `env:"KAFKA_TOPIC_PREFIX" envDefault:"event-ledger"`
}

type AuthConfig struct {
	MaxTokenAge time.Duration `env:"AUTH_MAX_TOKEN_AGE" envDefault:"1h"`
}

type AdminConfig struct {
	Enabled bool   `env:"ADMIN_ENABLED" envDefault:"false"`
	Key     string `env:"ADMIN_KEY"`
}

type LedgerConfig struct {
	// ProgramID overrides the program address events are derived under.
	ProgramID string `env:"PROGRAM_ID"`
}

// Load reads .env when present, then the process environment.
func Load() (*Config, error) {
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			return nil, fmt.Errorf("load .env: %w", err)
		}
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("DB_DRIVER must be postgres or sqlite, got %q", c.Database.Driver)
	}
	if c.Admin.Enabled && c.Admin.Key == "" {
		return fmt.Errorf("ADMIN_KEY is required when ADMIN_ENABLED is true")
	}
	if c.Auth.MaxTokenAge <= 0 {
		return fmt.Errorf("AUTH_MAX_TOKEN_AGE must be positive")
	}
	return nil
}
