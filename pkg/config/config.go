// Package config loads server configuration from an optional YAML file
// and CHUNKUP_* environment variables.
package config

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	// Packages
	units "github.com/docker/go-units"
	yaml "github.com/knadh/koanf/parsers/yaml"
	env "github.com/knadh/koanf/providers/env"
	file "github.com/knadh/koanf/providers/file"
	koanf "github.com/knadh/koanf/v2"
	schema "github.com/mutablelogic/go-chunkup/pkg/schema"
)

///////////////////////////////////////////////////////////////////////////////
// TYPES

// Config is the server configuration.
type Config struct {
	Addr    string        `koanf:"addr"`
	Prefix  string        `koanf:"prefix"`
	Storage StorageConfig `koanf:"storage"`
	Upload  UploadConfig  `koanf:"upload"`
	Redis   RedisConfig   `koanf:"redis"`
	Notify  NotifyConfig  `koanf:"notify"`
}

// StorageConfig selects the chunk and object storage backend.
type StorageConfig struct {
	URL       string `koanf:"url"`      // mem://, file:// or s3://
	Endpoint  string `koanf:"endpoint"` // S3-compatible endpoint
	Anonymous bool   `koanf:"anonymous"`
}

// UploadConfig sets the limits and timers of upload sessions. Sizes are
// human-readable binary sizes such as "5MiB".
type UploadConfig struct {
	ChunkSize       string        `koanf:"chunk_size"`
	MaxSize         string        `koanf:"max_size"`
	Extensions      []string      `koanf:"extensions"`
	IdleTimeout     time.Duration `koanf:"idle_timeout"`
	Retention       time.Duration `koanf:"retention"`
	ReclaimInterval time.Duration `koanf:"reclaim_interval"`
}

// RedisConfig keeps session records in Redis when URL is set.
type RedisConfig struct {
	URL    string `koanf:"url"`
	Prefix string `koanf:"prefix"`
}

// NotifyConfig sends completed objects to an SQS queue when Queue is set.
type NotifyConfig struct {
	Queue    string `koanf:"queue"`
	Endpoint string `koanf:"endpoint"`
}

///////////////////////////////////////////////////////////////////////////////
// GLOBALS

const (
	// EnvPrefix is the prefix of configuration environment variables. A
	// double underscore separates nested keys, so CHUNKUP_UPLOAD__MAX_SIZE
	// sets upload.max_size.
	EnvPrefix = "CHUNKUP_"
	envNest   = "__"
)

///////////////////////////////////////////////////////////////////////////////
// LIFECYCLE

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		Addr:   "localhost:8080",
		Prefix: "/api/" + schema.SchemaName,
		Storage: StorageConfig{
			URL: "mem://" + schema.SchemaName,
		},
		Upload: UploadConfig{
			ChunkSize:       units.BytesSize(float64(schema.DefaultChunkSize)),
			MaxSize:         units.BytesSize(float64(schema.DefaultMaxSize)),
			Extensions:      slices.Clone(schema.DefaultExtensions),
			IdleTimeout:     schema.DefaultIdleTimeout,
			Retention:       schema.DefaultRetention,
			ReclaimInterval: schema.DefaultReclaimInterval,
		},
		Redis: RedisConfig{
			Prefix: schema.SchemaName,
		},
	}
}

// Load returns the defaults overlaid with the YAML file at path, when path
// is not empty, and then with environment variables.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	// Configuration file
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load %q: %w", path, err)
		}
	}

	// Environment variables override the file
	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, err
	}

	// Unmarshal over the defaults
	cfg := Default()
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// Return success
	return &cfg, nil
}

///////////////////////////////////////////////////////////////////////////////
// PUBLIC METHODS

// Validate checks sizes and durations.
func (c Config) Validate() error {
	var result error
	chunkSize, err := c.Upload.ChunkSizeBytes()
	if err != nil {
		result = errors.Join(result, err)
	}
	maxSize, err := c.Upload.MaxSizeBytes()
	if err != nil {
		result = errors.Join(result, err)
	}
	if err == nil && chunkSize > maxSize {
		result = errors.Join(result, fmt.Errorf("upload.chunk_size %q exceeds upload.max_size %q", c.Upload.ChunkSize, c.Upload.MaxSize))
	}
	for key, d := range map[string]time.Duration{
		"upload.idle_timeout":     c.Upload.IdleTimeout,
		"upload.retention":        c.Upload.Retention,
		"upload.reclaim_interval": c.Upload.ReclaimInterval,
	} {
		if d <= 0 {
			result = errors.Join(result, fmt.Errorf("%s must be positive, got %v", key, d))
		}
	}
	if c.Storage.URL == "" {
		result = errors.Join(result, errors.New("storage.url is required"))
	}
	return result
}

// ChunkSizeBytes returns the chunk size in bytes.
func (u UploadConfig) ChunkSizeBytes() (int64, error) {
	return parseSize("upload.chunk_size", u.ChunkSize)
}

// MaxSizeBytes returns the maximum upload size in bytes.
func (u UploadConfig) MaxSizeBytes() (int64, error) {
	return parseSize("upload.max_size", u.MaxSize)
}

///////////////////////////////////////////////////////////////////////////////
// PRIVATE METHODS

// envKey maps CHUNKUP_UPLOAD__MAX_SIZE to upload.max_size
func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.ReplaceAll(s, envNest, ".")
}

// parseSize accepts a byte count or a binary size such as "5MiB" or "500m".
func parseSize(key, value string) (int64, error) {
	value = strings.TrimSpace(value)
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		if n, err = units.RAMInBytes(value); err != nil {
			return 0, fmt.Errorf("%s: %w", key, err)
		}
	}
	if n <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %q", key, value)
	}
	return n, nil
}
