// Package config loads FileDock configuration from a YAML file with
// FILEDOCK_* environment overrides applied on top.
package config

import (
	"os"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/koustreak/FileDock/internal/blobstore"
	"github.com/koustreak/FileDock/internal/errs"
)

// Config is the full service configuration.
type Config struct {
	Server  Server  `yaml:"server"`
	Storage Storage `yaml:"storage"`
	Log     Log     `yaml:"log"`
}

// Server configures the HTTP listener.
type Server struct {
	// Addr is the listen address, e.g. ":8080".
	Addr string `yaml:"addr"`

	// ShutdownTimeout bounds graceful shutdown on SIGINT/SIGTERM.
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// Storage configures the object store connection.
type Storage struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	UseSSL    bool   `yaml:"use_ssl"`
	Region    string `yaml:"region"`
	Bucket    string `yaml:"bucket"`
}

// Log configures the structured logger.
type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns local-dev settings: MinIO on localhost with the stock
// credentials, JSON logging at info.
func Default() *Config {
	return &Config{
		Server: Server{
			Addr:            ":8080",
			ShutdownTimeout: 10 * time.Second,
		},
		Storage: Storage{
			Endpoint:  "localhost:9000",
			AccessKey: "minioadmin",
			SecretKey: "minioadmin",
			Bucket:    "filedock",
		},
		Log: Log{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load builds the configuration: defaults, then the YAML file at path (if
// given), then environment overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, errs.Wrap(errs.ErrKindInvalidInput, "failed to read config file", err)
		}
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, errs.Wrap(errs.ErrKindInvalidInput, "failed to parse config file", err)
		}
	}

	cfg.applyEnv()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// BlobstoreConfig translates the storage section for the store drivers.
func (c *Config) BlobstoreConfig() *blobstore.Config {
	return &blobstore.Config{
		Provider:  blobstore.ProviderMinIO,
		Endpoint:  c.Storage.Endpoint,
		AccessKey: c.Storage.AccessKey,
		SecretKey: c.Storage.SecretKey,
		UseSSL:    c.Storage.UseSSL,
		Region:    c.Storage.Region,
		Bucket:    c.Storage.Bucket,
	}
}

func (c *Config) applyEnv() {
	setString := func(dst *string, key string) {
		if v, ok := os.LookupEnv(key); ok {
			*dst = v
		}
	}

	setString(&c.Server.Addr, "FILEDOCK_ADDR")
	setString(&c.Storage.Endpoint, "FILEDOCK_STORAGE_ENDPOINT")
	setString(&c.Storage.AccessKey, "FILEDOCK_STORAGE_ACCESS_KEY")
	setString(&c.Storage.SecretKey, "FILEDOCK_STORAGE_SECRET_KEY")
	setString(&c.Storage.Region, "FILEDOCK_STORAGE_REGION")
	setString(&c.Storage.Bucket, "FILEDOCK_STORAGE_BUCKET")
	setString(&c.Log.Level, "FILEDOCK_LOG_LEVEL")
	setString(&c.Log.Format, "FILEDOCK_LOG_FORMAT")

	if v, ok := os.LookupEnv("FILEDOCK_STORAGE_USE_SSL"); ok {
		c.Storage.UseSSL = v == "true" || v == "1"
	}
}

func (c *Config) validate() error {
	if c.Storage.Endpoint == "" {
		return errs.New(errs.ErrKindInvalidInput, "storage endpoint must not be empty")
	}
	if c.Storage.Bucket == "" {
		return errs.New(errs.ErrKindInvalidInput, "storage bucket must not be empty")
	}
	if c.Server.Addr == "" {
		return errs.New(errs.ErrKindInvalidInput, "server addr must not be empty")
	}
	return nil
}
