package app

import (
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.HTTPAddr != ":8080" {
		t.Errorf("unexpected http addr: %s", cfg.HTTPAddr)
	}
	if cfg.StorageDriver != StorageMemory {
		t.Errorf("expected memory storage by default, got %s", cfg.StorageDriver)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config must be valid: %v", err)
	}
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("MEALSHARE_HTTP_ADDR", ":8181")
	t.Setenv("MEALSHARE_STORAGE", StoragePostgres)
	t.Setenv("MEALSHARE_POSTGRES_DSN", "postgres://localhost/mealshare")
	t.Setenv("MEALSHARE_PRICE_CACHE_TTL", "45s")
	t.Setenv("KAFKA_BROKERS", "broker1:9092,broker2:9092")

	cfg := LoadConfig()

	if cfg.HTTPAddr != ":8181" {
		t.Errorf("http addr not overridden: %s", cfg.HTTPAddr)
	}
	if cfg.StorageDriver != StoragePostgres {
		t.Errorf("storage not overridden: %s", cfg.StorageDriver)
	}
	if cfg.PostgresDSN != "postgres://localhost/mealshare" {
		t.Errorf("dsn not overridden: %s", cfg.PostgresDSN)
	}
	if cfg.PriceCacheTTL != 45*time.Second {
		t.Errorf("ttl not overridden: %v", cfg.PriceCacheTTL)
	}
	if cfg.KafkaBrokers != "broker1:9092,broker2:9092" {
		t.Errorf("brokers not overridden: %s", cfg.KafkaBrokers)
	}
}

func TestLoadConfig_InvalidDurationFallsBack(t *testing.T) {
	t.Setenv("MEALSHARE_PRICE_CACHE_TTL", "not-a-duration")

	cfg := LoadConfig()

	if cfg.PriceCacheTTL != DefaultConfig().PriceCacheTTL {
		t.Errorf("expected fallback ttl, got %v", cfg.PriceCacheTTL)
	}
}

func TestConfigValidate(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "default ok", mutate: func(*Config) {}},
		{name: "postgres without dsn", mutate: func(c *Config) { c.StorageDriver = StoragePostgres }, wantErr: true},
		{name: "postgres with dsn", mutate: func(c *Config) {
			c.StorageDriver = StoragePostgres
			c.PostgresDSN = "postgres://localhost/mealshare"
		}},
		{name: "unknown driver", mutate: func(c *Config) { c.StorageDriver = "cassandra" }, wantErr: true},
		{name: "empty http addr", mutate: func(c *Config) { c.HTTPAddr = "" }, wantErr: true},
		{name: "zero cleanup interval", mutate: func(c *Config) { c.CleanupInterval = 0 }, wantErr: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if tc.wantErr && err == nil {
				t.Error("expected validation error")
			}
			if !tc.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}
