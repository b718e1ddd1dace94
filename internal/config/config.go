// Package config holds the engine's configuration types, their defaults,
// and the loader that fills them from files and environment variables.
// The types here are plain data; nothing in this package touches the
// network or the dataset.
package config

import (
	"fmt"
	"time"
)

// ─────────────────────────────────────────────────────────────────────────────
// Component settings
// ─────────────────────────────────────────────────────────────────────────────

// ServerConfig sizes and times the HTTP listener.
type ServerConfig struct {
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // "debug" | "release" | "test"

	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	MaxBodySize     int64         `mapstructure:"max_body_size"`

	// AllowedOrigins enables CORS for the listed origins.  Empty leaves
	// the CORS middleware out of the chain entirely.
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// DatasetConfig names the three dataset artifacts and how to parse them.
type DatasetConfig struct {
	TableArtifact      string        `mapstructure:"table_artifact"`
	SpeciesArtifact    string        `mapstructure:"species_artifact"`
	TreeArtifact       string        `mapstructure:"tree_artifact"`
	Delimiter          string        `mapstructure:"delimiter"`
	SpeciesHeaderLines int           `mapstructure:"species_header_lines"`
	LoadTimeout        time.Duration `mapstructure:"load_timeout"`
}

// DataSourceConfig selects where dataset artifacts are fetched from.
type DataSourceConfig struct {
	Kind string `mapstructure:"kind"` // "fs" | "minio"
	Root string `mapstructure:"root"` // fs only
}

// MinIOConfig points the engine at the S3-compatible object store that
// holds dataset artifacts.
type MinIOConfig struct {
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Bucket    string `mapstructure:"bucket"`
	Prefix    string `mapstructure:"prefix"`
	UseSSL    bool   `mapstructure:"use_ssl"`
}

// KafkaConfig holds the dataset-event producer parameters.
type KafkaConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Brokers      []string      `mapstructure:"brokers"`
	ClientID     string        `mapstructure:"client_id"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// LogConfig selects level, encoding, and sinks for the zap logger.
type LogConfig struct {
	Level            string   `mapstructure:"level"`  // "debug" | "info" | "warn" | "error"
	Format           string   `mapstructure:"format"` // "json" | "console"
	OutputPaths      []string `mapstructure:"output_paths"`
	ErrorOutputPaths []string `mapstructure:"error_output_paths"`
}

// MetricsConfig holds Prometheus exposition parameters.
type MetricsConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Path      string `mapstructure:"path"`
	Namespace string `mapstructure:"namespace"`
}

// RateLimitConfig holds HTTP request throttling parameters.
type RateLimitConfig struct {
	Enabled bool    `mapstructure:"enabled"`
	RPS     float64 `mapstructure:"rps"`
	Burst   int     `mapstructure:"burst"`
}

// AdminConfig guards mutating endpoints.  An empty APIKey disables them.
type AdminConfig struct {
	APIKey string `mapstructure:"api_key"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Root
// ─────────────────────────────────────────────────────────────────────────────

// Config is the root configuration for the engine.  Every infrastructure
// component and application service reads its settings from the relevant
// sub-struct.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Dataset    DatasetConfig    `mapstructure:"dataset"`
	DataSource DataSourceConfig `mapstructure:"datasource"`
	MinIO      MinIOConfig      `mapstructure:"minio"`
	Kafka      KafkaConfig      `mapstructure:"kafka"`
	Log        LogConfig        `mapstructure:"log"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
	RateLimit  RateLimitConfig  `mapstructure:"ratelimit"`
	Admin      AdminConfig      `mapstructure:"admin"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Semantic checks
// ─────────────────────────────────────────────────────────────────────────────

func oneOf(v string, allowed ...string) bool {
	for _, a := range allowed {
		if v == a {
			return true
		}
	}
	return false
}

// Validate checks the fully-populated Config for contradictions.  Any
// error is fatal: the engine refuses to start rather than run with a
// partial configuration.
func (c *Config) Validate() error {
	if p := c.Server.Port; p < 1 || p > 65535 {
		return fmt.Errorf("config: server.port %d outside [1, 65535]", p)
	}
	if !oneOf(c.Server.Mode, "debug", "release", "test") {
		return fmt.Errorf("config: server.mode %q not one of debug|release|test", c.Server.Mode)
	}

	required := []struct{ key, val string }{
		{"dataset.table_artifact", c.Dataset.TableArtifact},
		{"dataset.species_artifact", c.Dataset.SpeciesArtifact},
		{"dataset.tree_artifact", c.Dataset.TreeArtifact},
	}
	for _, r := range required {
		if r.val == "" {
			return fmt.Errorf("config: %s is required", r.key)
		}
	}
	if c.Dataset.SpeciesHeaderLines < 0 {
		return fmt.Errorf("config: dataset.species_header_lines must be ≥ 0, got %d", c.Dataset.SpeciesHeaderLines)
	}

	switch c.DataSource.Kind {
	case "fs":
		if c.DataSource.Root == "" {
			return fmt.Errorf("config: datasource.root is required for the fs data source")
		}
	case "minio":
		if c.MinIO.Endpoint == "" {
			return fmt.Errorf("config: minio.endpoint is required for the minio data source")
		}
		if c.MinIO.Bucket == "" {
			return fmt.Errorf("config: minio.bucket is required for the minio data source")
		}
	default:
		return fmt.Errorf("config: datasource.kind %q not one of fs|minio", c.DataSource.Kind)
	}

	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("config: kafka.brokers must list at least one broker when kafka is enabled")
	}

	if !oneOf(c.Log.Level, "debug", "info", "warn", "error") {
		return fmt.Errorf("config: log.level %q not one of debug|info|warn|error", c.Log.Level)
	}
	if !oneOf(c.Log.Format, "json", "console") {
		return fmt.Errorf("config: log.format %q not one of json|console", c.Log.Format)
	}

	if c.RateLimit.Enabled {
		if c.RateLimit.RPS <= 0 {
			return fmt.Errorf("config: ratelimit.rps must be > 0 when rate limiting is enabled, got %g", c.RateLimit.RPS)
		}
		if c.RateLimit.Burst < 1 {
			return fmt.Errorf("config: ratelimit.burst must be ≥ 1 when rate limiting is enabled, got %d", c.RateLimit.Burst)
		}
	}
	return nil
}
