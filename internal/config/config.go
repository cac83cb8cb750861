// Package config loads tirecore runtime settings from TIRECORE_* environment variables.
package config

import (
	"fmt"
	"strings"

	"github.com/caarlos0/env/v11"

	"tirecore/internal/blob"
	"tirecore/internal/core"
)

// Metrics backends.
const (
	MetricsPrometheus = "prometheus"
	MetricsExpvar     = "expvar"
	MetricsNone       = "none"
)

// Config is the full process configuration.
type Config struct {
	Storage StorageConfig `envPrefix:"TIRECORE_STORAGE_"`
	Blob    BlobConfig    `envPrefix:"TIRECORE_BLOB_"`

	HTTPAddr     string `env:"TIRECORE_HTTP_ADDR" envDefault:":8080"`
	LogLevel     string `env:"TIRECORE_LOG_LEVEL" envDefault:"info"`
	CatalogPath  string `env:"TIRECORE_CATALOG_PATH"`
	Metrics      string `env:"TIRECORE_METRICS" envDefault:"prometheus"`
	OTLPEndpoint string `env:"TIRECORE_OTEL_ENDPOINT"`
	SeedDemo     bool   `env:"TIRECORE_SEED_DEMO" envDefault:"false"`
}

// StorageConfig selects the ledger backend.
type StorageConfig struct {
	Driver      string `env:"DRIVER" envDefault:"sqlite"`
	SQLitePath  string `env:"SQLITE_PATH" envDefault:"tirecore.db"`
	PostgresDSN string `env:"POSTGRES_DSN" envDefault:"postgres://localhost/tirecore?sslmode=disable"`
}

// BlobConfig selects the result archive backend.
type BlobConfig struct {
	Driver string        `env:"DRIVER" envDefault:"fs"`
	FSRoot string        `env:"FS_ROOT" envDefault:"./blobdata"`
	S3     blob.S3Config `envPrefix:"S3_"`
}

// Load parses the environment and validates enumerated settings.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects unknown drivers and backends.
func (c Config) Validate() error {
	switch core.StorageDriver(strings.ToLower(c.Storage.Driver)) {
	case core.StorageMemory, core.StorageSQLite, core.StoragePostgres:
	default:
		return fmt.Errorf("unsupported storage driver %q", c.Storage.Driver)
	}
	switch blob.Driver(strings.ToLower(c.Blob.Driver)) {
	case blob.DriverFilesystem, blob.DriverMemory, blob.DriverS3:
	default:
		return fmt.Errorf("unsupported blob driver %q", c.Blob.Driver)
	}
	switch c.Metrics {
	case MetricsPrometheus, MetricsExpvar, MetricsNone:
	default:
		return fmt.Errorf("unsupported metrics backend %q", c.Metrics)
	}
	return nil
}

// CoreStorage converts the storage settings for core.OpenPersistentStore.
func (c Config) CoreStorage() core.StorageConfig {
	return core.StorageConfig{
		Driver:      core.StorageDriver(strings.ToLower(c.Storage.Driver)),
		SQLitePath:  c.Storage.SQLitePath,
		PostgresDSN: c.Storage.PostgresDSN,
	}
}

// BlobStore converts the blob settings for blob.Open.
func (c Config) BlobStore() blob.Config {
	return blob.Config{
		Driver: blob.Driver(strings.ToLower(c.Blob.Driver)),
		FSRoot: c.Blob.FSRoot,
		S3:     c.Blob.S3,
	}
}
