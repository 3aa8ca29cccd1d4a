// Package config loads and validates service configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Webhook  WebhookConfig  `mapstructure:"webhook"`
	Pipeline PipelineConfig `mapstructure:"pipeline"`
	Gazette  GazetteConfig  `mapstructure:"gazette"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Database DatabaseConfig `mapstructure:"database"`
	OpenAI   OpenAIConfig   `mapstructure:"openai"`
	Geocode  GeocodeConfig  `mapstructure:"geocode"`
	PubSub   PubSubConfig   `mapstructure:"pubsub"`
	Intake   IntakeConfig   `mapstructure:"intake"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// AuthConfig defines API authentication toggles.
type AuthConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	APIKey  string `mapstructure:"api_key"`
}

// WebhookConfig guards the ingest webhook endpoint.
type WebhookConfig struct {
	Secret string `mapstructure:"secret"`
}

// PipelineConfig governs batching, concurrency, and quotas.
type PipelineConfig struct {
	BatchSize           int   `mapstructure:"batch_size"`
	Concurrency         int   `mapstructure:"concurrency"`
	SequentialThreshold int   `mapstructure:"sequential_threshold"`
	BatchTimeoutSeconds int   `mapstructure:"batch_timeout_seconds"`
	TokenCeiling        int64 `mapstructure:"token_ceiling"`
	QueueDepth          int   `mapstructure:"queue_depth"`
	Runners             int   `mapstructure:"runners"`
}

// GazetteConfig tunes document normalization and segmentation.
type GazetteConfig struct {
	SkipPages     int    `mapstructure:"skip_pages"`
	StopMarker    string `mapstructure:"stop_marker"`
	MarkerPattern string `mapstructure:"marker_pattern"`
}

// StorageConfig selects and configures the document source.
type StorageConfig struct {
	Provider      string `mapstructure:"provider"`
	GCSBucket     string `mapstructure:"gcs_bucket"`
	IntakePrefix  string `mapstructure:"intake_prefix"`
	ArchivePrefix string `mapstructure:"archive_prefix"`
}

// DatabaseConfig selects and configures the record sink.
type DatabaseConfig struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
	Table  string `mapstructure:"table"`
	Path   string `mapstructure:"path"`
}

// OpenAIConfig configures the extraction model client.
type OpenAIConfig struct {
	BaseURL        string  `mapstructure:"base_url"`
	APIKey         string  `mapstructure:"api_key"`
	Model          string  `mapstructure:"model"`
	MaxTokens      int     `mapstructure:"max_tokens"`
	Temperature    float64 `mapstructure:"temperature"`
	TimeoutSeconds int     `mapstructure:"timeout_seconds"`
}

// GeocodeConfig configures optional address geocoding.
type GeocodeConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	BaseURL        string `mapstructure:"base_url"`
	APIKey         string `mapstructure:"api_key"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// PubSubConfig holds metadata for run-completion notifications.
type PubSubConfig struct {
	ProjectID string `mapstructure:"project_id"`
	TopicName string `mapstructure:"topic_name"`
}

// IntakeConfig points at the gazette listing page for discovery.
type IntakeConfig struct {
	ListingURL string `mapstructure:"listing_url"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("GAZETTE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("pipeline.batch_size", 50)
	v.SetDefault("pipeline.concurrency", 5)
	v.SetDefault("pipeline.sequential_threshold", 50)
	v.SetDefault("pipeline.batch_timeout_seconds", 600)
	v.SetDefault("pipeline.token_ceiling", 100000)
	v.SetDefault("pipeline.queue_depth", 64)
	v.SetDefault("pipeline.runners", 1)
	v.SetDefault("gazette.skip_pages", 12)
	v.SetDefault("gazette.stop_marker", "PAUC")
	v.SetDefault("gazette.marker_pattern", "")
	v.SetDefault("storage.provider", "memory")
	v.SetDefault("storage.gcs_bucket", "")
	v.SetDefault("storage.intake_prefix", "unprocessed")
	v.SetDefault("storage.archive_prefix", "processed")
	v.SetDefault("database.driver", "memory")
	v.SetDefault("database.dsn", "")
	v.SetDefault("database.table", "auctions")
	v.SetDefault("database.path", "")
	v.SetDefault("openai.base_url", "https://api.openai.com/v1")
	v.SetDefault("openai.api_key", "")
	v.SetDefault("openai.model", "gpt-3.5-turbo")
	v.SetDefault("openai.max_tokens", 1500)
	v.SetDefault("openai.temperature", 0.1)
	v.SetDefault("openai.timeout_seconds", 60)
	v.SetDefault("geocode.enabled", false)
	v.SetDefault("geocode.base_url", "")
	v.SetDefault("geocode.api_key", "")
	v.SetDefault("geocode.timeout_seconds", 10)
	v.SetDefault("pubsub.project_id", "")
	v.SetDefault("pubsub.topic_name", "")
	v.SetDefault("intake.listing_url", "")
	v.SetDefault("auth.enabled", false)
	v.SetDefault("auth.api_key", "")
	v.SetDefault("webhook.secret", "")
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Pipeline.BatchSize <= 0 {
		return fmt.Errorf("pipeline.batch_size must be > 0")
	}
	if c.Pipeline.Concurrency <= 0 {
		return fmt.Errorf("pipeline.concurrency must be > 0")
	}
	if c.Pipeline.BatchTimeoutSeconds <= 0 {
		return fmt.Errorf("pipeline.batch_timeout_seconds must be > 0")
	}
	if c.Pipeline.Runners <= 0 {
		return fmt.Errorf("pipeline.runners must be > 0")
	}
	switch c.Storage.Provider {
	case "memory":
	case "gcs":
		if c.Storage.GCSBucket == "" {
			return fmt.Errorf("storage.gcs_bucket must be set when storage.provider is gcs")
		}
	default:
		return fmt.Errorf("storage.provider must be one of gcs, memory")
	}
	switch c.Database.Driver {
	case "memory":
	case "postgres":
		if c.Database.DSN == "" {
			return fmt.Errorf("database.dsn must be set when database.driver is postgres")
		}
	case "sqlite":
		if c.Database.Path == "" {
			return fmt.Errorf("database.path must be set when database.driver is sqlite")
		}
	default:
		return fmt.Errorf("database.driver must be one of postgres, sqlite, memory")
	}
	if c.OpenAI.APIKey == "" {
		return fmt.Errorf("openai.api_key is required")
	}
	if c.Auth.Enabled && c.Auth.APIKey == "" {
		return fmt.Errorf("auth.api_key must be set when auth is enabled")
	}
	if c.Geocode.Enabled && c.Geocode.APIKey == "" {
		return fmt.Errorf("geocode.api_key must be set when geocoding is enabled")
	}
	return nil
}

// BatchTimeout converts the batch timeout config into a duration.
func (c Config) BatchTimeout() time.Duration {
	return time.Duration(c.Pipeline.BatchTimeoutSeconds) * time.Second
}

// OpenAITimeout converts the extraction client timeout into a duration.
func (c Config) OpenAITimeout() time.Duration {
	return time.Duration(c.OpenAI.TimeoutSeconds) * time.Second
}

// GeocodeTimeout converts the geocoding client timeout into a duration.
func (c Config) GeocodeTimeout() time.Duration {
	return time.Duration(c.Geocode.TimeoutSeconds) * time.Second
}
