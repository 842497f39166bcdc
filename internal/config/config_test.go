package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

const validConfig = `
instance:
  id: test-1
provider:
  base_url: https://provider.test
  max_retries: 5
feed:
  url: wss://relay.test
redis:
  addr: localhost:6379
database:
  postgres:
    host: localhost
    name: galmarket
    user: galmarket
    password: secret
dispatch:
  workers: 2
scan:
  batch_size: 5
`

func TestLoad(t *testing.T) {
	path := writeConfig(t, validConfig)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Instance.ID != "test-1" {
		t.Errorf("Instance.ID = %q, want %q", cfg.Instance.ID, "test-1")
	}
	if cfg.Provider.BaseURL != "https://provider.test" {
		t.Errorf("Provider.BaseURL = %q, want %q", cfg.Provider.BaseURL, "https://provider.test")
	}
	if cfg.Provider.MaxRetries != 5 {
		t.Errorf("Provider.MaxRetries = %d, want 5", cfg.Provider.MaxRetries)
	}
	if cfg.Dispatch.Workers != 2 {
		t.Errorf("Dispatch.Workers = %d, want 2", cfg.Dispatch.Workers)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("Load() with missing file should fail")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeConfig(t, "instance: [unclosed")
	if _, err := Load(path); err == nil {
		t.Error("Load() with invalid yaml should fail")
	}
}

func TestLoad_EnvExpansion(t *testing.T) {
	t.Setenv("GALMARKET_TEST_PASSWORD", "s3cret")

	path := writeConfig(t, `
instance:
  id: test-1
database:
  postgres:
    host: localhost
    name: galmarket
    user: galmarket
    password: ${GALMARKET_TEST_PASSWORD}
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Database.Postgres.Password != "s3cret" {
		t.Errorf("Password = %q, want %q", cfg.Database.Postgres.Password, "s3cret")
	}
}

func TestLoadWithDefaults(t *testing.T) {
	path := writeConfig(t, "instance:\n  id: test-1\n")

	cfg, err := LoadWithDefaults(path)
	if err != nil {
		t.Fatalf("LoadWithDefaults() error = %v", err)
	}

	if cfg.Provider.BaseURL != DefaultProviderURL {
		t.Errorf("Provider.BaseURL = %q, want %q", cfg.Provider.BaseURL, DefaultProviderURL)
	}
	if cfg.Provider.Pacing != DefaultPacing {
		t.Errorf("Provider.Pacing = %v, want %v", cfg.Provider.Pacing, DefaultPacing)
	}
	if cfg.Feed.ReconnectDelay != DefaultReconnectDelay {
		t.Errorf("Feed.ReconnectDelay = %v, want %v", cfg.Feed.ReconnectDelay, DefaultReconnectDelay)
	}
	if cfg.Redis.TTL != 7*24*time.Hour {
		t.Errorf("Redis.TTL = %v, want 168h", cfg.Redis.TTL)
	}
	if cfg.Dispatch.RetainFor != 24*time.Hour {
		t.Errorf("Dispatch.RetainFor = %v, want 24h", cfg.Dispatch.RetainFor)
	}
	if cfg.Populate.Concurrency != 6 {
		t.Errorf("Populate.Concurrency = %d, want 6", cfg.Populate.Concurrency)
	}
	if len(cfg.Populate.DisallowedTypes) != 2 {
		t.Errorf("Populate.DisallowedTypes = %v, want two defaults", cfg.Populate.DisallowedTypes)
	}
	if cfg.Scan.BatchSize != 10 {
		t.Errorf("Scan.BatchSize = %d, want 10", cfg.Scan.BatchSize)
	}
	if cfg.Rank.TopK != 20 {
		t.Errorf("Rank.TopK = %d, want 20", cfg.Rank.TopK)
	}
	if cfg.Metrics.Port != 9090 {
		t.Errorf("Metrics.Port = %d, want 9090", cfg.Metrics.Port)
	}
}

func TestLoadAndValidate(t *testing.T) {
	path := writeConfig(t, validConfig)
	if _, err := LoadAndValidate(path); err != nil {
		t.Fatalf("LoadAndValidate() error = %v", err)
	}
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing instance id", func(c *Config) { c.Instance.ID = "" }},
		{"bad pacing", func(c *Config) { c.Provider.Pacing = 1.5 }},
		{"db missing user", func(c *Config) { c.Database.Postgres.User = "" }},
		{"db min over max", func(c *Config) {
			c.Database.Postgres.MinConns = 20
			c.Database.Postgres.MaxConns = 10
		}},
		{"zero workers", func(c *Config) { c.Dispatch.Workers = 0 }},
		{"bad metrics port", func(c *Config) { c.Metrics.Port = 70000 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := LoadWithDefaults(writeConfig(t, validConfig))
			if err != nil {
				t.Fatalf("LoadWithDefaults() error = %v", err)
			}
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Validate() should fail")
			}
		})
	}
}
