package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// Remote store backends.
const (
	RemoteStoreSQLite = "sqlite"
	RemoteStoreRedis  = "redis"
)

type Config struct {
	Addr      string `env:"ADDR" envDefault:":8080"`
	LogLevel  string `env:"LOG_LEVEL" envDefault:"INFO"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`

	RemoteStore    string `env:"REMOTE_STORE" envDefault:"sqlite"`
	RemoteDBPath   string `env:"REMOTE_DB_PATH" envDefault:"file:logicbuild_remote.db"`
	LocalCachePath string `env:"LOCAL_CACHE_PATH" envDefault:"file:logicbuild_local.db"`
	RedisAddr      string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword  string `env:"REDIS_PASSWORD"`
	RedisDB        int    `env:"REDIS_DB" envDefault:"0"`

	SaveDebounce    time.Duration `env:"SAVE_DEBOUNCE" envDefault:"500ms"`
	WriterQueueSize int           `env:"WRITER_QUEUE_SIZE" envDefault:"16"`

	GeneratorBaseURL    string        `env:"GENERATOR_BASE_URL"`
	GeneratorAPIKey     string        `env:"GENERATOR_API_KEY"`
	GeneratorTimeout    time.Duration `env:"GENERATOR_TIMEOUT" envDefault:"15s"`
	GeneratorMaxRetries int           `env:"GENERATOR_MAX_RETRIES" envDefault:"2"`
}

// Load reads configuration from a .env file (if present) and environment variables.
func Load() (Config, error) {
	// Ignore error so the app still starts when .env is absent in production.
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse config from environment: %w", err)
	}
	cfg.RemoteStore = strings.ToLower(strings.TrimSpace(cfg.RemoteStore))
	return cfg, nil
}

// Validate checks value ranges and cross-field requirements.
func (c Config) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("ADDR cannot be empty")
	}
	switch c.RemoteStore {
	case RemoteStoreSQLite:
		if c.RemoteDBPath == "" {
			return fmt.Errorf("REMOTE_DB_PATH cannot be empty when REMOTE_STORE=sqlite")
		}
	case RemoteStoreRedis:
		if c.RedisAddr == "" {
			return fmt.Errorf("REDIS_ADDR cannot be empty when REMOTE_STORE=redis")
		}
	default:
		return fmt.Errorf("REMOTE_STORE must be %q or %q, got %q", RemoteStoreSQLite, RemoteStoreRedis, c.RemoteStore)
	}
	if c.LocalCachePath == "" {
		return fmt.Errorf("LOCAL_CACHE_PATH cannot be empty")
	}
	if c.SaveDebounce < 0 {
		return fmt.Errorf("SAVE_DEBOUNCE must not be negative, got %v", c.SaveDebounce)
	}
	if c.WriterQueueSize < 1 {
		return fmt.Errorf("WRITER_QUEUE_SIZE must be at least 1, got %d", c.WriterQueueSize)
	}
	if c.GeneratorTimeout <= 0 {
		return fmt.Errorf("GENERATOR_TIMEOUT must be positive, got %v", c.GeneratorTimeout)
	}
	if c.GeneratorMaxRetries < 0 || c.GeneratorMaxRetries > 10 {
		return fmt.Errorf("GENERATOR_MAX_RETRIES must be between 0 and 10, got %d", c.GeneratorMaxRetries)
	}
	return nil
}
