// Package config loads service settings from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"notam_parser/internal/storage"
)

// Cache backends.
const (
	CacheMemory = "memory"
	CacheRedis  = "redis"
	CacheNone   = "none"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	LogFile         string
	Workers         int
	ShutdownTimeout time.Duration

	AuthEnabled bool
	APIKeys     []string

	CacheBackend string
	CacheSize    int
	CacheTTL     time.Duration
	RedisAddr    string

	SQLitePath string

	// Postgres is nil unless POSTGRES_HOST is set.
	Postgres *storage.PostgresConfig
	// ClickHouse is nil unless CLICKHOUSE_HOST is set.
	ClickHouse *storage.ClickHouseConfig

	NATSURL            string
	NATSSubject        string
	NATSRecordsSubject string
	NATSStream         string
}

// Load reads configuration from environment variables and an optional .env
// file, applying defaults where unset.
func Load() (*Config, error) {
	// Try to load .env file, but don't fail if it doesn't exist.
	_ = godotenv.Load()

	shutdownTimeout, err := parseDuration("SHUTDOWN_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}
	cacheTTL, err := parseDuration("CACHE_TTL", "1h")
	if err != nil {
		return nil, err
	}
	workers, err := parseInt("WORKERS", 0)
	if err != nil {
		return nil, err
	}
	cacheSize, err := parseInt("CACHE_SIZE", 1024)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		HTTPAddr:        envOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        strings.ToLower(envOrDefault("LOG_LEVEL", "info")),
		LogFormat:       strings.ToLower(envOrDefault("LOG_FORMAT", "json")),
		LogFile:         os.Getenv("LOG_FILE"),
		Workers:         workers,
		ShutdownTimeout: shutdownTimeout,

		AuthEnabled: os.Getenv("AUTH_ENABLED") == "true",
		APIKeys:     splitList(os.Getenv("API_KEYS")),

		CacheBackend: strings.ToLower(envOrDefault("CACHE_BACKEND", CacheMemory)),
		CacheSize:    cacheSize,
		CacheTTL:     cacheTTL,
		RedisAddr:    envOrDefault("REDIS_ADDR", "localhost:6379"),

		SQLitePath: os.Getenv("SQLITE_PATH"),

		NATSURL:            os.Getenv("NATS_URL"),
		NATSSubject:        envOrDefault("NATS_SUBJECT", "notam.bulletins"),
		NATSRecordsSubject: envOrDefault("NATS_RECORDS_SUBJECT", "notam.records"),
		NATSStream:         os.Getenv("NATS_STREAM"),
	}

	if host := os.Getenv("POSTGRES_HOST"); host != "" {
		port, err := parseInt("POSTGRES_PORT", 5432)
		if err != nil {
			return nil, err
		}
		cfg.Postgres = &storage.PostgresConfig{
			Host:     host,
			Port:     port,
			Database: envOrDefault("POSTGRES_DB", "notam"),
			User:     envOrDefault("POSTGRES_USER", "notam"),
			Password: os.Getenv("POSTGRES_PASSWORD"),
		}
	}

	if host := os.Getenv("CLICKHOUSE_HOST"); host != "" {
		port, err := parseInt("CLICKHOUSE_PORT", 9000)
		if err != nil {
			return nil, err
		}
		cfg.ClickHouse = &storage.ClickHouseConfig{
			Host:     host,
			Port:     port,
			Database: envOrDefault("CLICKHOUSE_DB", "notam"),
			User:     envOrDefault("CLICKHOUSE_USER", "default"),
			Password: os.Getenv("CLICKHOUSE_PASSWORD"),
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid LOG_LEVEL %q", c.LogLevel)
	}
	switch c.LogFormat {
	case "json", "text":
	default:
		return fmt.Errorf("invalid LOG_FORMAT %q", c.LogFormat)
	}
	switch c.CacheBackend {
	case CacheMemory, CacheRedis, CacheNone:
	default:
		return fmt.Errorf("invalid CACHE_BACKEND %q", c.CacheBackend)
	}
	if c.CacheBackend == CacheMemory && c.CacheSize <= 0 {
		return errors.New("CACHE_SIZE must be positive")
	}
	if c.Workers < 0 {
		return errors.New("WORKERS must not be negative")
	}
	if c.AuthEnabled && len(c.APIKeys) == 0 {
		return errors.New("AUTH_ENABLED is true but API_KEYS is not set")
	}
	if c.NATSURL != "" && c.NATSSubject == c.NATSRecordsSubject {
		return errors.New("NATS_SUBJECT and NATS_RECORDS_SUBJECT must differ")
	}
	return nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func parseDuration(key, fallback string) (time.Duration, error) {
	d, err := time.ParseDuration(envOrDefault(key, fallback))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parseInt(key string, fallback int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
