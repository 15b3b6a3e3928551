package config

import (
	"fmt"
	"time"
)

// Config represents a qrtx.yaml configuration file.
// All values are optional and act as defaults for qrtx send and receive
// flags. CLI flags always override config values.
type Config struct {
	LogLevel string        `yaml:"log_level"`
	Send     SendConfig    `yaml:"send"`
	Receive  ReceiveConfig `yaml:"receive"`
	Storage  StorageConfig `yaml:"storage"`
	Journal  JournalConfig `yaml:"journal"`
	Adapter  AdapterConfig `yaml:"adapter"`
}

// SendConfig holds sender defaults.
type SendConfig struct {
	// Capacity is the per-frame symbol capacity; the chunk size is derived
	// from it.
	Capacity int      `yaml:"capacity"`
	Compress *bool    `yaml:"compress,omitempty"`
	Autoplay Duration `yaml:"autoplay,omitempty"`
}

// ReceiveConfig holds receiver defaults.
type ReceiveConfig struct {
	// Output is the directory file transfers are written to when the
	// storage backend is unset.
	Output string `yaml:"output"`
	// TextOut is a file clipboard text is appended to. Empty means stdout.
	TextOut string `yaml:"text_out"`
	// State is the checkpoint file used to resume a partial transfer.
	State   string `yaml:"state"`
	Backlog int    `yaml:"backlog"`
}

// StorageConfig holds file sink defaults from the config file.
type StorageConfig struct {
	Backend     string `yaml:"backend"`
	Path        string `yaml:"path"`
	Region      string `yaml:"region"`
	Endpoint    string `yaml:"endpoint"`
	S3PathStyle bool   `yaml:"s3_path_style"`
}

// JournalConfig holds transfer journal defaults.
type JournalConfig struct {
	Path     string `yaml:"path"`
	Disabled bool   `yaml:"disabled"`
}

// AdapterConfig holds adapter defaults from the config file.
type AdapterConfig struct {
	Type    string            `yaml:"type"`
	URL     string            `yaml:"url"`
	Channel string            `yaml:"channel,omitempty"`
	Headers map[string]string `yaml:"headers,omitempty"`
	Timeout Duration          `yaml:"timeout,omitempty"`
	Retries *int              `yaml:"retries,omitempty"`
}

// Duration wraps time.Duration for YAML string parsing (e.g. "10s", "5m").
type Duration struct {
	time.Duration
}

// UnmarshalYAML parses a duration string like "10s" or "500ms".
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
	if parsed < 0 {
		return fmt.Errorf("invalid duration %q: must not be negative", s)
	}
	d.Duration = parsed
	return nil
}

// Validate reports values no command could honor.
func (c *Config) Validate() error {
	if c.Send.Capacity < 0 {
		return fmt.Errorf("send.capacity must not be negative, got %d", c.Send.Capacity)
	}
	if c.Receive.Backlog < 0 {
		return fmt.Errorf("receive.backlog must not be negative, got %d", c.Receive.Backlog)
	}
	switch c.Storage.Backend {
	case "", "fs", "s3":
	default:
		return fmt.Errorf("storage.backend must be fs or s3, got %q", c.Storage.Backend)
	}
	if c.Storage.Backend != "" && c.Storage.Path == "" {
		return fmt.Errorf("storage.path is required when storage.backend is %s", c.Storage.Backend)
	}
	switch c.Adapter.Type {
	case "", "webhook", "redis":
	default:
		return fmt.Errorf("adapter.type must be webhook or redis, got %q", c.Adapter.Type)
	}
	if c.Adapter.Type != "" && c.Adapter.URL == "" {
		return fmt.Errorf("adapter.url is required when adapter.type is %s", c.Adapter.Type)
	}
	if c.Adapter.Retries != nil && *c.Adapter.Retries < 0 {
		return fmt.Errorf("adapter.retries must not be negative, got %d", *c.Adapter.Retries)
	}
	return nil
}
