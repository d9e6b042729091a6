// Package config loads and validates primerblast configuration via Viper.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/JakeFAU/primerblast-validator/internal/logging"
)

// Config captures every knob loaded via Viper.
type Config struct {
	NCBI       NCBIConfig     `mapstructure:"ncbi"`
	Submit     SubmitConfig   `mapstructure:"submit"`
	Validation ValidateConfig `mapstructure:"validate"`
	Archive    ArchiveConfig  `mapstructure:"archive"`
	Storage    StorageConfig  `mapstructure:"storage"`
	Store      StoreConfig    `mapstructure:"store"`
	PubSub     PubSubConfig   `mapstructure:"pubsub"`
	Progress   ProgressConfig `mapstructure:"progress"`
	Metrics    MetricsConfig  `mapstructure:"metrics"`
	Logging    logging.Config `mapstructure:"logging"`
}

// NCBIConfig describes the Primer-BLAST endpoint and how we identify to it.
type NCBIConfig struct {
	SubmitURL      string `mapstructure:"submit_url"`
	Email          string `mapstructure:"email"`
	Organism       string `mapstructure:"organism"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	UserAgent      string `mapstructure:"user_agent"`
	MaxBodyBytes   int    `mapstructure:"max_body_bytes"`
}

// SubmitConfig governs the submission batch.
type SubmitConfig struct {
	Workers            int     `mapstructure:"workers"`
	CheckpointInterval int     `mapstructure:"checkpoint_interval"`
	RequestsPerSecond  float64 `mapstructure:"requests_per_second"`
	Burst              int     `mapstructure:"burst"`
	Input              string  `mapstructure:"input"`
}

// ValidateConfig governs the validation batch.
type ValidateConfig struct {
	Workers             int    `mapstructure:"workers"`
	CheckpointInterval  int    `mapstructure:"checkpoint_interval"`
	MinRequestSpacingMs int    `mapstructure:"min_request_spacing_ms"`
	JobsPath            string `mapstructure:"jobs_path"`
}

// ArchiveConfig controls raw result page archiving.
type ArchiveConfig struct {
	Mode   string `mapstructure:"mode"`
	Prefix string `mapstructure:"prefix"`
}

// StorageConfig selects the blob store.
type StorageConfig struct {
	Provider      string `mapstructure:"provider"`
	BaseDir       string `mapstructure:"base_dir"`
	GCSBucket     string `mapstructure:"gcs_bucket"`
	Prefix        string `mapstructure:"prefix"`
	ExportResults bool   `mapstructure:"export_results"`
}

// StoreConfig selects the relational results store.
type StoreConfig struct {
	Driver   string `mapstructure:"driver"`
	DSN      string `mapstructure:"dsn"`
	Table    string `mapstructure:"table"`
	MaxConns int32  `mapstructure:"max_conns"`
}

// PubSubConfig enables run notices on a topic.
type PubSubConfig struct {
	ProjectID string `mapstructure:"project_id"`
	Topic     string `mapstructure:"topic"`
}

// ProgressConfig tunes the event hub.
type ProgressConfig struct {
	BufferSize         int `mapstructure:"buffer_size"`
	MaxBatchEvents     int `mapstructure:"max_batch_events"`
	MaxBatchWaitMs     int `mapstructure:"max_batch_wait_ms"`
	SinkTimeoutSeconds int `mapstructure:"sink_timeout_seconds"`
}

// MetricsConfig configures the status server. An empty Addr disables it.
type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
}

// Blob store providers.
const (
	ProviderNone   = "none"
	ProviderMemory = "memory"
	ProviderLocal  = "local"
	ProviderGCS    = "gcs"
)

// Result store drivers.
const (
	DriverNone     = "none"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("PRIMERBLAST")
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
	v.SetDefault("ncbi.submit_url", "https://www.ncbi.nlm.nih.gov/tools/primer-blast/primertool.cgi")
	v.SetDefault("ncbi.email", "")
	v.SetDefault("ncbi.organism", "Viruses (taxid:10239)")
	v.SetDefault("ncbi.timeout_seconds", 60)
	v.SetDefault("ncbi.user_agent", "primerblast-validator/1.0")
	v.SetDefault("ncbi.max_body_bytes", 0)
	v.SetDefault("submit.workers", 8)
	v.SetDefault("submit.checkpoint_interval", 10)
	v.SetDefault("submit.requests_per_second", 3.0)
	v.SetDefault("submit.burst", 1)
	v.SetDefault("submit.input", "primers.csv")
	v.SetDefault("validate.workers", 8)
	v.SetDefault("validate.checkpoint_interval", 1000)
	v.SetDefault("validate.min_request_spacing_ms", 340)
	v.SetDefault("validate.jobs_path", "primer_jobs_all.json")
	v.SetDefault("archive.mode", "off")
	v.SetDefault("archive.prefix", "html")
	v.SetDefault("storage.provider", ProviderNone)
	v.SetDefault("storage.base_dir", "data/blobs")
	v.SetDefault("storage.gcs_bucket", "")
	v.SetDefault("storage.prefix", "")
	v.SetDefault("storage.export_results", false)
	v.SetDefault("store.driver", DriverNone)
	v.SetDefault("store.dsn", "")
	v.SetDefault("store.table", "validation_results")
	v.SetDefault("store.max_conns", 4)
	v.SetDefault("pubsub.project_id", "")
	v.SetDefault("pubsub.topic", "")
	v.SetDefault("progress.buffer_size", 4096)
	v.SetDefault("progress.max_batch_events", 256)
	v.SetDefault("progress.max_batch_wait_ms", 500)
	v.SetDefault("progress.sink_timeout_seconds", 10)
	v.SetDefault("metrics.addr", "")
	v.SetDefault("logging.development", true)
	v.SetDefault("logging.level", "")
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.NCBI.SubmitURL == "" {
		return errors.New("ncbi.submit_url must be set")
	}
	if c.NCBI.TimeoutSeconds <= 0 {
		return errors.New("ncbi.timeout_seconds must be > 0")
	}
	if c.Submit.Workers <= 0 {
		return errors.New("submit.workers must be > 0")
	}
	if c.Submit.CheckpointInterval <= 0 {
		return errors.New("submit.checkpoint_interval must be > 0")
	}
	if c.Submit.RequestsPerSecond < 0 {
		return errors.New("submit.requests_per_second must be >= 0")
	}
	if c.Validation.Workers <= 0 {
		return errors.New("validate.workers must be > 0")
	}
	if c.Validation.CheckpointInterval <= 0 {
		return errors.New("validate.checkpoint_interval must be > 0")
	}
	if c.Validation.MinRequestSpacingMs < 0 {
		return errors.New("validate.min_request_spacing_ms must be >= 0")
	}
	switch c.Archive.Mode {
	case "", "off", "failures", "all":
	default:
		return fmt.Errorf("archive.mode %q must be off, failures or all", c.Archive.Mode)
	}
	switch c.Storage.Provider {
	case "", ProviderNone, ProviderMemory:
	case ProviderLocal:
		if c.Storage.BaseDir == "" {
			return errors.New("storage.base_dir must be set when storage.provider is local")
		}
	case ProviderGCS:
		if c.Storage.GCSBucket == "" {
			return errors.New("storage.gcs_bucket must be set when storage.provider is gcs")
		}
	default:
		return fmt.Errorf("unknown storage.provider %q", c.Storage.Provider)
	}
	if c.Archive.Mode != "" && c.Archive.Mode != "off" && !c.HasBlobStore() {
		return errors.New("archive.mode requires a storage.provider")
	}
	if c.Storage.ExportResults && !c.HasBlobStore() {
		return errors.New("storage.export_results requires a storage.provider")
	}
	switch c.Store.Driver {
	case "", DriverNone:
	case DriverPostgres, DriverSQLite:
		if c.Store.DSN == "" {
			return fmt.Errorf("store.dsn must be set when store.driver is %s", c.Store.Driver)
		}
	default:
		return fmt.Errorf("unknown store.driver %q", c.Store.Driver)
	}
	if c.PubSub.Topic != "" && c.PubSub.ProjectID == "" {
		return errors.New("pubsub.project_id must be set when pubsub.topic is set")
	}
	return nil
}

// HasBlobStore reports whether a blob store provider is configured.
func (c Config) HasBlobStore() bool {
	return c.Storage.Provider != "" && c.Storage.Provider != ProviderNone
}

// FetchTimeout converts ncbi.timeout_seconds to a duration.
func (c Config) FetchTimeout() time.Duration {
	return time.Duration(c.NCBI.TimeoutSeconds) * time.Second
}

// RequestSpacing converts validate.min_request_spacing_ms to a duration.
func (c Config) RequestSpacing() time.Duration {
	return time.Duration(c.Validation.MinRequestSpacingMs) * time.Millisecond
}

// BatchWait converts progress.max_batch_wait_ms to a duration.
func (c Config) BatchWait() time.Duration {
	return time.Duration(c.Progress.MaxBatchWaitMs) * time.Millisecond
}

// SinkTimeout converts progress.sink_timeout_seconds to a duration.
func (c Config) SinkTimeout() time.Duration {
	return time.Duration(c.Progress.SinkTimeoutSeconds) * time.Second
}
