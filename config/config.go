package config

import (
	"fmt"
	"time"

	"github.com/pithecene-io/posters/types"
)

// DefaultBucket is the poster bucket used when none is configured.
const DefaultBucket = "atw-posters-project-2"

// DefaultLedgerDataset is the lode dataset name for poster records.
const DefaultLedgerDataset = "posters"

// Ledger backends.
const (
	LedgerNone = "none"
	LedgerFS   = "fs"
	LedgerS3   = "s3"
)

// Notification types.
const (
	NotifyNone    = ""
	NotifyWebhook = "webhook"
	NotifyRedis   = "redis"
)

// Config represents a posters.yaml configuration file.
type Config struct {
	Storage   StorageConfig   `yaml:"storage"`
	Model     ModelConfig     `yaml:"model"`
	Guardrail GuardrailConfig `yaml:"guardrail"`
	Ledger    LedgerConfig    `yaml:"ledger"`
	Notify    NotifyConfig    `yaml:"notify"`
	Log       LogConfig       `yaml:"log"`
}

// StorageConfig configures the poster bucket.
type StorageConfig struct {
	Bucket      string `yaml:"bucket"`
	Region      string `yaml:"region"`
	Endpoint    string `yaml:"endpoint"`
	S3PathStyle bool   `yaml:"s3_path_style"`
	ContentType string `yaml:"content_type"`
}

// ModelConfig configures the Bedrock model.
type ModelConfig struct {
	ID     string `yaml:"id"`
	Region string `yaml:"region"`
}

// GuardrailConfig names a content-safety guardrail.
// The ID is reported in logs but never attached to image generation
// requests: Titan image models reject guardrail parameters.
type GuardrailConfig struct {
	ID string `yaml:"id"`
}

// LedgerConfig configures the poster ledger dataset.
type LedgerConfig struct {
	Backend string `yaml:"backend"`
	// Path is a directory (fs) or bucket/prefix (s3).
	Path    string `yaml:"path"`
	Dataset string `yaml:"dataset"`
	Region  string `yaml:"region"`
}

// NotifyConfig configures the publish notification.
type NotifyConfig struct {
	Type     string            `yaml:"type"`
	URL      string            `yaml:"url"`
	Channel  string            `yaml:"channel,omitempty"`
	Encoding string            `yaml:"encoding,omitempty"`
	Headers  map[string]string `yaml:"headers,omitempty"`
	Timeout  Duration          `yaml:"timeout,omitempty"`
	Retries  *int              `yaml:"retries,omitempty"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level string `yaml:"level"`
}

// Duration wraps time.Duration for YAML string parsing (e.g. "10s", "5m").
type Duration struct {
	time.Duration
}

// UnmarshalYAML parses a duration string like "10s" or "5m30s".
func (d *Duration) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	if s == "" {
		return nil
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	d.Duration = parsed
	return nil
}

// Default returns a config holding only defaults.
func Default() *Config {
	cfg := &Config{}
	cfg.ApplyDefaults()
	return cfg
}

// ApplyDefaults fills unset fields with their defaults.
func (c *Config) ApplyDefaults() {
	if c.Storage.Bucket == "" {
		c.Storage.Bucket = DefaultBucket
	}
	if c.Storage.ContentType == "" {
		c.Storage.ContentType = types.DefaultArtifactContentType
	}
	if c.Model.ID == "" {
		c.Model.ID = types.DefaultModelID
	}
	if c.Model.Region == "" {
		c.Model.Region = c.Storage.Region
	}
	if c.Ledger.Backend == "" {
		c.Ledger.Backend = LedgerNone
	}
	if c.Ledger.Dataset == "" {
		c.Ledger.Dataset = DefaultLedgerDataset
	}
	if c.Ledger.Region == "" {
		c.Ledger.Region = c.Storage.Region
	}
}

// Validate rejects unknown backends and incomplete sections.
func (c *Config) Validate() error {
	switch c.Ledger.Backend {
	case LedgerNone:
	case LedgerFS, LedgerS3:
		if c.Ledger.Path == "" {
			return fmt.Errorf("ledger.path is required for backend %q", c.Ledger.Backend)
		}
	default:
		return fmt.Errorf("invalid ledger.backend %q (must be none, fs, or s3)", c.Ledger.Backend)
	}

	switch c.Notify.Type {
	case NotifyNone:
	case NotifyWebhook, NotifyRedis:
		if c.Notify.URL == "" {
			return fmt.Errorf("notify.url is required for type %q", c.Notify.Type)
		}
	default:
		return fmt.Errorf("invalid notify.type %q (must be webhook or redis)", c.Notify.Type)
	}

	switch c.Notify.Encoding {
	case "", "json", "msgpack":
	default:
		return fmt.Errorf("invalid notify.encoding %q (must be json or msgpack)", c.Notify.Encoding)
	}

	if c.Notify.Retries != nil && *c.Notify.Retries < 0 {
		return fmt.Errorf("notify.retries must be >= 0, got %d", *c.Notify.Retries)
	}
	return nil
}
