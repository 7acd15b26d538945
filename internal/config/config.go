// Package config loads deckhistory settings from a YAML file with environment
// overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Environment variables that override file settings.
const (
	EnvStorageDriver   = "DECKHISTORY_STORAGE_DRIVER"
	EnvSQLitePath      = "DECKHISTORY_SQLITE_PATH"
	EnvPostgresDSN     = "DECKHISTORY_POSTGRES_DSN"
	EnvBlobDriver      = "DECKHISTORY_BLOB_DRIVER"
	EnvBlobFSRoot      = "DECKHISTORY_BLOB_FS_ROOT"
	EnvBlobS3Bucket    = "DECKHISTORY_BLOB_S3_BUCKET"
	EnvBlobS3Region    = "DECKHISTORY_BLOB_S3_REGION"
	EnvBlobS3Endpoint  = "DECKHISTORY_BLOB_S3_ENDPOINT"
	EnvBlobS3PathStyle = "DECKHISTORY_BLOB_S3_PATH_STYLE"
	EnvLogLevel        = "DECKHISTORY_LOG_LEVEL"
	EnvMaxStackHeight  = "DECKHISTORY_MAX_STACK_HEIGHT"
)

// Config holds all deckhistory configuration.
type Config struct {
	Storage StorageConfig `yaml:"storage"`
	Blob    BlobConfig    `yaml:"blob"`
	Logging LoggingConfig `yaml:"logging"`
	History HistoryConfig `yaml:"history"`
}

// StorageConfig selects the command history store.
type StorageConfig struct {
	Driver      string `yaml:"driver"` // memory, sqlite, postgres
	SQLitePath  string `yaml:"sqlite_path"`
	PostgresDSN string `yaml:"postgres_dsn"`
}

// BlobConfig selects the analysis artifact store.
type BlobConfig struct {
	Driver string   `yaml:"driver"` // memory, fs, s3
	FSRoot string   `yaml:"fs_root"`
	S3     S3Config `yaml:"s3"`
}

// S3Config configures the S3 blob driver. Static keys are optional; the AWS
// default credential chain applies when they are empty.
type S3Config struct {
	Bucket          string `yaml:"bucket"`
	Region          string `yaml:"region"`
	Endpoint        string `yaml:"endpoint"`
	PathStyle       bool   `yaml:"path_style"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, console
}

// HistoryConfig tunes history replay.
type HistoryConfig struct {
	MaxStackHeight int `yaml:"max_stack_height"`
}

// DefaultConfig returns the built-in settings.
func DefaultConfig() *Config {
	return &Config{
		Storage: StorageConfig{Driver: "memory", SQLitePath: "./deckhistory.db"},
		Blob:    BlobConfig{Driver: "memory", FSRoot: "./analyses", S3: S3Config{Region: "us-east-1"}},
		Logging: LoggingConfig{Level: "info", Format: "json"},
		History: HistoryConfig{MaxStackHeight: 5},
	}
}

// Load reads path over the defaults and applies environment overrides. An
// empty path or a missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		case os.IsNotExist(err):
		default:
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}
	if err := cfg.applyEnvOverrides(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnvOverrides(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	str(EnvStorageDriver, &c.Storage.Driver)
	str(EnvSQLitePath, &c.Storage.SQLitePath)
	str(EnvPostgresDSN, &c.Storage.PostgresDSN)
	str(EnvBlobDriver, &c.Blob.Driver)
	str(EnvBlobFSRoot, &c.Blob.FSRoot)
	str(EnvBlobS3Bucket, &c.Blob.S3.Bucket)
	str(EnvBlobS3Region, &c.Blob.S3.Region)
	str(EnvBlobS3Endpoint, &c.Blob.S3.Endpoint)
	str(EnvLogLevel, &c.Logging.Level)
	if v, ok := lookup(EnvBlobS3PathStyle); ok && v != "" {
		c.Blob.S3.PathStyle = strings.EqualFold(v, "true")
	}
	if v, ok := lookup(EnvMaxStackHeight); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvMaxStackHeight, err)
		}
		c.History.MaxStackHeight = n
	}
	return nil
}

// Validate checks driver names and required settings.
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case "memory", "sqlite":
	case "postgres":
		if c.Storage.PostgresDSN == "" {
			return fmt.Errorf("postgres storage requires a dsn")
		}
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	switch c.Blob.Driver {
	case "memory", "fs":
	case "s3":
		if c.Blob.S3.Bucket == "" {
			return fmt.Errorf("s3 blob driver requires a bucket")
		}
	default:
		return fmt.Errorf("unknown blob driver %q", c.Blob.Driver)
	}
	if c.History.MaxStackHeight < 1 {
		return fmt.Errorf("max stack height must be positive, got %d", c.History.MaxStackHeight)
	}
	return nil
}
