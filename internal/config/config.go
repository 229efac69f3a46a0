// Package config loads server settings from the environment, optionally
// seeded from a .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Storage backends.
const (
	StorageMemory = "memory"
	StorageBolt   = "bbolt"
	StorageSQLite = "sqlite"
	StorageRedis  = "redis"
)

// Config holds every server setting.
type Config struct {
	Host string `env:"LUDO_HOST" envDefault:"localhost"`
	Port int    `env:"LUDO_PORT" envDefault:"8080"`

	LogLevel  string `env:"LUDO_LOG_LEVEL"  envDefault:"info"`
	LogFormat string `env:"LUDO_LOG_FORMAT" envDefault:"text"`

	Storage       string        `env:"LUDO_STORAGE"        envDefault:"memory"`
	StoragePath   string        `env:"LUDO_STORAGE_PATH"   envDefault:"ludo.db"`
	RedisAddr     string        `env:"LUDO_REDIS_ADDR"     envDefault:"localhost:6379"`
	RedisPassword string        `env:"LUDO_REDIS_PASSWORD"`
	RedisDB       int           `env:"LUDO_REDIS_DB"       envDefault:"0"`
	RedisTTL      time.Duration `env:"LUDO_REDIS_TTL"      envDefault:"24h"`

	AutoBots        bool          `env:"LUDO_AUTO_BOTS"         envDefault:"true"`
	BotDelayScale   float64       `env:"LUDO_BOT_DELAY_SCALE"   envDefault:"1"`
	StaleAfter      time.Duration `env:"LUDO_STALE_AFTER"       envDefault:"30m"`
	CleanupInterval time.Duration `env:"LUDO_CLEANUP_INTERVAL"  envDefault:"5m"`

	FastWorkers int           `env:"LUDO_FAST_WORKERS" envDefault:"0"`
	SlowWorkers int           `env:"LUDO_SLOW_WORKERS" envDefault:"0"`
	SlowTimeout time.Duration `env:"LUDO_SLOW_TIMEOUT" envDefault:"2m"`
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Load reads the given .env files (missing files are skipped; variables
// already set win) and parses the environment into a validated Config.
func Load(dotenv ...string) (Config, error) {
	for _, path := range dotenv {
		if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", path, err)
		}
	}

	var cfg Config
	if err := ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks values the env parser cannot.
func (c *Config) Validate() error {
	c.Storage = strings.ToLower(strings.TrimSpace(c.Storage))
	switch c.Storage {
	case StorageMemory, StorageRedis:
	case StorageBolt, StorageSQLite:
		if strings.TrimSpace(c.StoragePath) == "" {
			return fmt.Errorf("LUDO_STORAGE_PATH is required for %s storage", c.Storage)
		}
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage)
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.BotDelayScale < 0 {
		return fmt.Errorf("bot delay scale must not be negative")
	}
	return nil
}

// Addr returns the listen address.
func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
