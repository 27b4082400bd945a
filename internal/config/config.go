// Package config loads and validates the cache's runtime configuration
// surface, with optional hot-reload of a config file.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config is the recognized configuration surface for the cache subsystem.
type Config struct {
	EnableL0Cache bool `yaml:"enable_l0_cache"`
	EnableL1Cache bool `yaml:"enable_l1_cache"`

	L0PostLimit     int `yaml:"l0_post_limit" validate:"gte=1"`
	L0PageLimit     int `yaml:"l0_page_limit" validate:"gte=1"`
	L0ApiKeyLimit   int `yaml:"l0_api_key_limit" validate:"gte=1"`
	L0PostListLimit int `yaml:"l0_post_list_limit" validate:"gte=1"`

	L1ResponseLimit         int   `yaml:"l1_response_limit" validate:"gte=1"`
	L1ResponseBodyLimitBytes int64 `yaml:"l1_response_body_limit_bytes" validate:"gte=1"`

	AutoConsumeIntervalMs int `yaml:"auto_consume_interval_ms" validate:"gte=1"`
	MaxQueueEvents        int `yaml:"max_queue_events" validate:"gte=1"`
	ConsumeBatchLimit     int `yaml:"consume_batch_limit" validate:"gte=1"`
}

// Default returns the configuration defaults documented in the cache's
// external interface contract.
func Default() Config {
	return Config{
		EnableL0Cache:            true,
		EnableL1Cache:            true,
		L0PostLimit:              500,
		L0PageLimit:              100,
		L0ApiKeyLimit:            100,
		L0PostListLimit:          50,
		L1ResponseLimit:          200,
		L1ResponseBodyLimitBytes: 2 << 20, // 2 MiB
		AutoConsumeIntervalMs:    5000,
		MaxQueueEvents:           1024,
		ConsumeBatchLimit:        100,
	}
}

// AutoConsumeInterval converts the millisecond configuration field to a
// time.Duration for consumer.Config.
func (c Config) AutoConsumeInterval() time.Duration {
	return time.Duration(c.AutoConsumeIntervalMs) * time.Millisecond
}

var validate = validator.New()

// Load reads a YAML file at path, overlays it onto the defaults, and
// validates the result. A missing file is not an error: defaults are
// returned unmodified.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, validate.Struct(cfg)
		}
		return cfg, fmt.Errorf("config: reading %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("config: parsing %s: %w", path, err)
	}

	if err := validate.Struct(cfg); err != nil {
		return cfg, fmt.Errorf("config: invalid configuration: %w", err)
	}

	return cfg, nil
}
