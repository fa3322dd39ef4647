// Package config loads exporter settings from YAML with environment
// overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"rnaindex/internal/blob"
	"rnaindex/internal/store"
)

// StorageConfig selects and configures the relational store.
type StorageConfig struct {
	Driver       string        `yaml:"driver"`
	PostgresDSN  string        `yaml:"postgres_dsn"`
	SQLitePath   string        `yaml:"sqlite_path"`
	QueryTimeout time.Duration `yaml:"query_timeout"`
	MaxOpenConns int           `yaml:"max_open_conns"`
	ApplySchema  bool          `yaml:"apply_schema"`
}

// ExportConfig tunes paging, concurrency and chunk naming.
type ExportConfig struct {
	PageSize        int    `yaml:"page_size"`
	ResolvePageSize int    `yaml:"resolve_page_size"`
	Workers         int    `yaml:"workers"`
	TaxID           int64  `yaml:"taxid"`
	ChunkPrefix     string `yaml:"chunk_prefix"`
	Release         string `yaml:"release"`
	Overwrite       bool   `yaml:"overwrite"`
}

// RetryConfig configures backoff for transient store failures.
type RetryConfig struct {
	InitialInterval time.Duration `yaml:"initial_interval"`
	MaxInterval     time.Duration `yaml:"max_interval"`
	MaxElapsed      time.Duration `yaml:"max_elapsed"`
	Multiplier      float64       `yaml:"multiplier"`
}

// SinkConfig selects the object store receiving dump chunks.
type SinkConfig struct {
	Driver string        `yaml:"driver"`
	FSRoot string        `yaml:"fs_root"`
	S3     blob.S3Config `yaml:"s3"`
}

// LogConfig configures logging.
type LogConfig struct {
	Debug bool `yaml:"debug"`
}

// MetricsConfig configures the Prometheus endpoint; an empty address
// disables it.
type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

// Config is the root configuration.
type Config struct {
	Storage StorageConfig `yaml:"storage"`
	Export  ExportConfig  `yaml:"export"`
	Retry   RetryConfig   `yaml:"retry"`
	Sink    SinkConfig    `yaml:"sink"`
	Log     LogConfig     `yaml:"log"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// Load reads the config at path. A missing file (or empty path) yields the
// defaults. Environment overrides are applied last.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}
	applyConfigDefaults(cfg)
	if err := applyEnv(cfg, os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the built-in configuration.
func Default() *Config {
	cfg := &Config{
		Storage: StorageConfig{Driver: string(store.DriverPostgres), SQLitePath: "rnaindex.db", QueryTimeout: 30 * time.Second},
		Export:  ExportConfig{PageSize: 1000, ResolvePageSize: 1000, Workers: 4, ChunkPrefix: "xml4dbdumps/"},
		Sink:    SinkConfig{Driver: string(blob.DriverFilesystem), FSRoot: "./dumps"},
	}
	policy := store.DefaultRetryPolicy()
	cfg.Retry = RetryConfig{
		InitialInterval: policy.InitialInterval,
		MaxInterval:     policy.MaxInterval,
		MaxElapsed:      policy.MaxElapsedTime,
		Multiplier:      policy.Multiplier,
	}
	return cfg
}

func applyConfigDefaults(cfg *Config) {
	def := Default()
	if cfg.Storage.Driver == "" {
		cfg.Storage.Driver = def.Storage.Driver
	}
	if cfg.Storage.QueryTimeout <= 0 {
		cfg.Storage.QueryTimeout = def.Storage.QueryTimeout
	}
	if cfg.Export.PageSize <= 0 {
		cfg.Export.PageSize = def.Export.PageSize
	}
	if cfg.Export.ResolvePageSize <= 0 {
		cfg.Export.ResolvePageSize = def.Export.ResolvePageSize
	}
	if cfg.Export.Workers <= 0 {
		cfg.Export.Workers = def.Export.Workers
	}
	if cfg.Retry.InitialInterval <= 0 {
		cfg.Retry.InitialInterval = def.Retry.InitialInterval
	}
	if cfg.Retry.MaxInterval <= 0 {
		cfg.Retry.MaxInterval = def.Retry.MaxInterval
	}
	if cfg.Retry.MaxElapsed <= 0 {
		cfg.Retry.MaxElapsed = def.Retry.MaxElapsed
	}
	if cfg.Retry.Multiplier <= 1 {
		cfg.Retry.Multiplier = def.Retry.Multiplier
	}
	if cfg.Sink.Driver == "" {
		cfg.Sink.Driver = def.Sink.Driver
	}
}

// Validate rejects unknown drivers and incomplete sink settings.
func (c *Config) Validate() error {
	switch store.Driver(c.Storage.Driver) {
	case store.DriverPostgres, store.DriverSQLite, store.DriverMemory:
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	switch blob.Driver(c.Sink.Driver) {
	case blob.DriverFilesystem, blob.DriverMemory:
	case blob.DriverS3:
		if c.Sink.S3.Bucket == "" {
			return fmt.Errorf("sink.s3.bucket required for s3 sink")
		}
	default:
		return fmt.Errorf("unknown sink driver %q", c.Sink.Driver)
	}
	if c.Export.TaxID < 0 {
		return fmt.Errorf("export.taxid must not be negative")
	}
	return nil
}

// RetryPolicy converts the retry settings.
func (c *Config) RetryPolicy() store.RetryPolicy {
	return store.RetryPolicy{
		InitialInterval: c.Retry.InitialInterval,
		MaxInterval:     c.Retry.MaxInterval,
		MaxElapsedTime:  c.Retry.MaxElapsed,
		Multiplier:      c.Retry.Multiplier,
	}
}

// BlobConfig converts the sink settings.
func (c *Config) BlobConfig() blob.Config {
	return blob.Config{Driver: blob.Driver(c.Sink.Driver), FSRoot: c.Sink.FSRoot, S3: c.Sink.S3}
}

// Environment overrides:
//
//	RNAINDEX_STORAGE_DRIVER, RNAINDEX_POSTGRES_DSN, RNAINDEX_SQLITE_PATH,
//	RNAINDEX_QUERY_TIMEOUT, RNAINDEX_EXPORT_PAGE_SIZE, RNAINDEX_EXPORT_WORKERS,
//	RNAINDEX_EXPORT_TAXID, RNAINDEX_EXPORT_RELEASE, RNAINDEX_EXPORT_PREFIX,
//	RNAINDEX_SINK_DRIVER, RNAINDEX_SINK_FS_ROOT, RNAINDEX_S3_BUCKET,
//	RNAINDEX_S3_REGION, RNAINDEX_S3_ENDPOINT, RNAINDEX_S3_PATH_STYLE,
//	RNAINDEX_LOG_DEBUG, RNAINDEX_METRICS_ADDR
func applyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	str := func(name string, dst *string) {
		if v, ok := lookup(name); ok && v != "" {
			*dst = v
		}
	}
	var errs []error
	num := func(name string, dst *int) {
		if v, ok := lookup(name); ok && v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", name, err))
				return
			}
			*dst = n
		}
	}
	flag := func(name string, dst *bool) {
		if v, ok := lookup(name); ok && v != "" {
			b, err := strconv.ParseBool(strings.TrimSpace(v))
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", name, err))
				return
			}
			*dst = b
		}
	}
	str("RNAINDEX_STORAGE_DRIVER", &cfg.Storage.Driver)
	str("RNAINDEX_POSTGRES_DSN", &cfg.Storage.PostgresDSN)
	str("RNAINDEX_SQLITE_PATH", &cfg.Storage.SQLitePath)
	if v, ok := lookup("RNAINDEX_QUERY_TIMEOUT"); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("RNAINDEX_QUERY_TIMEOUT: %w", err))
		} else {
			cfg.Storage.QueryTimeout = d
		}
	}
	num("RNAINDEX_EXPORT_PAGE_SIZE", &cfg.Export.PageSize)
	num("RNAINDEX_EXPORT_WORKERS", &cfg.Export.Workers)
	if v, ok := lookup("RNAINDEX_EXPORT_TAXID"); ok && v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("RNAINDEX_EXPORT_TAXID: %w", err))
		} else {
			cfg.Export.TaxID = n
		}
	}
	str("RNAINDEX_EXPORT_RELEASE", &cfg.Export.Release)
	str("RNAINDEX_EXPORT_PREFIX", &cfg.Export.ChunkPrefix)
	str("RNAINDEX_SINK_DRIVER", &cfg.Sink.Driver)
	str("RNAINDEX_SINK_FS_ROOT", &cfg.Sink.FSRoot)
	str("RNAINDEX_S3_BUCKET", &cfg.Sink.S3.Bucket)
	str("RNAINDEX_S3_REGION", &cfg.Sink.S3.Region)
	str("RNAINDEX_S3_ENDPOINT", &cfg.Sink.S3.Endpoint)
	flag("RNAINDEX_S3_PATH_STYLE", &cfg.Sink.S3.PathStyle)
	flag("RNAINDEX_LOG_DEBUG", &cfg.Log.Debug)
	str("RNAINDEX_METRICS_ADDR", &cfg.Metrics.Addr)
	return errors.Join(errs...)
}
