package app

import (
	"fmt"
	"os"
	"time"
)

// Драйверы хранилища.
const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"
)

// Config описывает настройки запуска сервиса.
type Config struct {
	HTTPAddr    string
	MetricsAddr string

	StorageDriver string
	PostgresDSN   string

	KafkaBrokers string
	RedisAddr    string

	PriceCacheTTL      time.Duration
	CleanupInterval    time.Duration
	ReferenceRetention time.Duration
}

// DefaultConfig возвращает конфигурацию для локального запуска:
// in-memory хранилище, без Kafka и Redis.
func DefaultConfig() Config {
	return Config{
		HTTPAddr:           ":8080",
		MetricsAddr:        ":9090",
		StorageDriver:      StorageMemory,
		PriceCacheTTL:      30 * time.Second,
		CleanupInterval:    10 * time.Minute,
		ReferenceRetention: 30 * 24 * time.Hour,
	}
}

// LoadConfig читает конфигурацию из окружения поверх DefaultConfig.
func LoadConfig() Config {
	cfg := DefaultConfig()

	cfg.HTTPAddr = envOr("MEALSHARE_HTTP_ADDR", cfg.HTTPAddr)
	cfg.MetricsAddr = envOr("MEALSHARE_METRICS_ADDR", cfg.MetricsAddr)
	cfg.StorageDriver = envOr("MEALSHARE_STORAGE", cfg.StorageDriver)
	cfg.PostgresDSN = envOr("MEALSHARE_POSTGRES_DSN", cfg.PostgresDSN)
	cfg.KafkaBrokers = envOr("KAFKA_BROKERS", cfg.KafkaBrokers)
	cfg.RedisAddr = envOr("REDIS_ADDR", cfg.RedisAddr)
	cfg.PriceCacheTTL = envDuration("MEALSHARE_PRICE_CACHE_TTL", cfg.PriceCacheTTL)
	cfg.CleanupInterval = envDuration("MEALSHARE_CLEANUP_INTERVAL", cfg.CleanupInterval)
	cfg.ReferenceRetention = envDuration("MEALSHARE_REFERENCE_RETENTION", cfg.ReferenceRetention)

	return cfg
}

// Validate проверяет согласованность конфигурации.
func (c Config) Validate() error {
	switch c.StorageDriver {
	case StorageMemory:
	case StoragePostgres:
		if c.PostgresDSN == "" {
			return fmt.Errorf("postgres storage requires MEALSHARE_POSTGRES_DSN")
		}
	default:
		return fmt.Errorf("unknown storage driver %q", c.StorageDriver)
	}

	if c.HTTPAddr == "" {
		return fmt.Errorf("http address must not be empty")
	}
	if c.PriceCacheTTL <= 0 {
		return fmt.Errorf("price cache ttl must be positive")
	}
	if c.CleanupInterval <= 0 {
		return fmt.Errorf("cleanup interval must be positive")
	}

	return nil
}

func envOr(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}

func envDuration(name string, fallback time.Duration) time.Duration {
	v := os.Getenv(name)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
