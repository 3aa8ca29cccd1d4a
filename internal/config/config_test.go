// Package config contains tests for configuration loading and validation.
package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func validConfig() Config {
	cfg, err := Load("")
	if err != nil {
		panic(err)
	}
	return cfg
}

// TestLoadDefaults verifies the documented defaults with no file present.
func TestLoadDefaults(t *testing.T) {
	t.Setenv("GAZETTE_OPENAI_API_KEY", "test-key")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Fatalf("server.port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Pipeline.BatchSize != 50 || cfg.Pipeline.Concurrency != 5 {
		t.Fatalf("pipeline defaults = %+v", cfg.Pipeline)
	}
	if cfg.Pipeline.SequentialThreshold != 50 {
		t.Fatalf("sequential_threshold = %d, want 50", cfg.Pipeline.SequentialThreshold)
	}
	if cfg.Pipeline.TokenCeiling != 100000 {
		t.Fatalf("token_ceiling = %d, want 100000", cfg.Pipeline.TokenCeiling)
	}
	if cfg.BatchTimeout() != 10*time.Minute {
		t.Fatalf("batch timeout = %v, want 10m", cfg.BatchTimeout())
	}
	if cfg.Gazette.SkipPages != 12 || cfg.Gazette.StopMarker != "PAUC" {
		t.Fatalf("gazette defaults = %+v", cfg.Gazette)
	}
	if cfg.Storage.Provider != "memory" || cfg.Database.Driver != "memory" {
		t.Fatalf("provider defaults = %s/%s", cfg.Storage.Provider, cfg.Database.Driver)
	}
	if cfg.OpenAI.Model != "gpt-3.5-turbo" || cfg.OpenAI.APIKey != "test-key" {
		t.Fatalf("openai config = %+v", cfg.OpenAI)
	}
}

// TestLoadFromFile reads overrides from a YAML config file.
func TestLoadFromFile(t *testing.T) {
	t.Setenv("GAZETTE_OPENAI_API_KEY", "test-key")

	path := filepath.Join(t.TempDir(), "config.yaml")
	content := []byte(`
server:
  port: 9090
pipeline:
  batch_size: 25
  concurrency: 3
storage:
  provider: gcs
  gcs_bucket: gazette-intake
database:
  driver: sqlite
  path: /tmp/auctions.db
`)
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Port != 9090 {
		t.Fatalf("server.port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Pipeline.BatchSize != 25 || cfg.Pipeline.Concurrency != 3 {
		t.Fatalf("pipeline overrides = %+v", cfg.Pipeline)
	}
	if cfg.Storage.Provider != "gcs" || cfg.Storage.GCSBucket != "gazette-intake" {
		t.Fatalf("storage overrides = %+v", cfg.Storage)
	}
	if cfg.Database.Driver != "sqlite" || cfg.Database.Path != "/tmp/auctions.db" {
		t.Fatalf("database overrides = %+v", cfg.Database)
	}
	if cfg.Pipeline.SequentialThreshold != 50 {
		t.Fatal("unrelated defaults must survive a partial file")
	}
}

// TestValidateRejectsBadValues exercises each validation rule.
func TestValidateRejectsBadValues(t *testing.T) {
	t.Setenv("GAZETTE_OPENAI_API_KEY", "test-key")

	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad port", func(c *Config) { c.Server.Port = 0 }},
		{"bad batch size", func(c *Config) { c.Pipeline.BatchSize = 0 }},
		{"bad concurrency", func(c *Config) { c.Pipeline.Concurrency = -1 }},
		{"bad batch timeout", func(c *Config) { c.Pipeline.BatchTimeoutSeconds = 0 }},
		{"bad runners", func(c *Config) { c.Pipeline.Runners = 0 }},
		{"gcs without bucket", func(c *Config) { c.Storage.Provider = "gcs"; c.Storage.GCSBucket = "" }},
		{"unknown provider", func(c *Config) { c.Storage.Provider = "ftp" }},
		{"postgres without dsn", func(c *Config) { c.Database.Driver = "postgres"; c.Database.DSN = "" }},
		{"sqlite without path", func(c *Config) { c.Database.Driver = "sqlite"; c.Database.Path = "" }},
		{"unknown driver", func(c *Config) { c.Database.Driver = "oracle" }},
		{"missing openai key", func(c *Config) { c.OpenAI.APIKey = "" }},
		{"auth without key", func(c *Config) { c.Auth.Enabled = true; c.Auth.APIKey = "" }},
		{"geocode without key", func(c *Config) { c.Geocode.Enabled = true; c.Geocode.APIKey = "" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			tc.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

// TestLoadMissingFile surfaces unreadable config paths.
func TestLoadMissingFile(t *testing.T) {
	t.Setenv("GAZETTE_OPENAI_API_KEY", "test-key")

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing config file")
	}
}
