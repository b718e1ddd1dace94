package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// envPrefix is the environment variable prefix used by all engine settings.
const envPrefix = "ORTHO"

// Sentinel errors for the distinct load failure classes.  Callers match them
// with errors.Is.
var (
	ErrConfigFileNotFound = errors.New("config: file not found")
	ErrConfigParseError   = errors.New("config: parse error")
	ErrConfigValidation   = errors.New("config: validation failed")
)

type loadOptions struct {
	configPath  string
	searchPaths []string
	overrides   map[string]interface{}
}

// LoadOption customises Load behaviour.
type LoadOption func(*loadOptions)

// WithConfigPath loads exactly the given file; a missing file is an error.
func WithConfigPath(path string) LoadOption {
	return func(o *loadOptions) { o.configPath = path }
}

// WithSearchPaths looks for a "config.yaml" in the given directories.  When
// none contains one, Load falls back to environment variables and defaults.
func WithSearchPaths(dirs ...string) LoadOption {
	return func(o *loadOptions) { o.searchPaths = append(o.searchPaths, dirs...) }
}

// WithOverrides applies explicit key/value overrides after file and
// environment merging.  Keys use dotted notation, e.g. "server.port".
func WithOverrides(overrides map[string]interface{}) LoadOption {
	return func(o *loadOptions) { o.overrides = overrides }
}

// newViper builds a pre-configured Viper instance with the engine's standard
// settings: YAML file type, ORTHO_ env prefix, automatic env binding, and a
// key replacer that maps "." → "_" so that nested keys like "server.port"
// resolve to "ORTHO_SERVER_PORT".
func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	registerKeys(v)
	return v
}

// registerKeys declares every configuration key with a typed zero default.
// AutomaticEnv only resolves keys viper has seen, so without this a purely
// env-driven load would silently ignore ORTHO_* variables.
func registerKeys(v *viper.Viper) {
	zero := map[string]interface{}{
		"server.port":             0,
		"server.mode":             "",
		"server.read_timeout":     0,
		"server.write_timeout":    0,
		"server.max_body_size":    0,
		"server.shutdown_timeout": 0,
		"server.allowed_origins":  []string{},

		"dataset.table_artifact":       "",
		"dataset.species_artifact":     "",
		"dataset.tree_artifact":        "",
		"dataset.delimiter":            "",
		"dataset.species_header_lines": 0,
		"dataset.load_timeout":         0,

		"datasource.kind": "",
		"datasource.root": "",

		"minio.endpoint":   "",
		"minio.access_key": "",
		"minio.secret_key": "",
		"minio.bucket":     "",
		"minio.prefix":     "",
		"minio.use_ssl":    false,

		"kafka.enabled":       false,
		"kafka.brokers":       []string{},
		"kafka.client_id":     "",
		"kafka.write_timeout": 0,

		"log.level":              "",
		"log.format":             "",
		"log.output_paths":       []string{},
		"log.error_output_paths": []string{},

		// Bool defaults live here because ApplyDefaults cannot tell an
		// explicit false from an unset field.
		"metrics.enabled":   true,
		"metrics.path":      "",
		"metrics.namespace": "",

		"ratelimit.enabled": false,
		"ratelimit.rps":     0.0,
		"ratelimit.burst":   0,

		"admin.api_key": "",
	}
	for key, val := range zero {
		v.SetDefault(key, val)
	}
}

// Load reads configuration from an optional YAML file, merges ORTHO_*
// environment variable overrides and explicit overrides, applies engine
// defaults for unset fields, and validates the result.  It returns a
// fully-populated *Config or a descriptive error wrapping one of the
// sentinel errors above.
func Load(opts ...LoadOption) (*Config, error) {
	o := loadOptions{}
	for _, opt := range opts {
		opt(&o)
	}

	v := newViper()

	switch {
	case o.configPath != "":
		v.SetConfigFile(o.configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, classifyReadError(o.configPath, err)
		}
	case len(o.searchPaths) > 0:
		v.SetConfigName("config")
		for _, dir := range o.searchPaths {
			v.AddConfigPath(dir)
		}
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, classifyReadError(strings.Join(o.searchPaths, ":"), err)
			}
			// No file in any search path: env vars and defaults only.
		}
	}

	for key, val := range o.overrides {
		v.Set(key, val)
	}

	return unmarshalAndFinalize(v)
}

// LoadFromFile loads exactly the given YAML file.
func LoadFromFile(path string) (*Config, error) {
	return Load(WithConfigPath(path))
}

// LoadFromEnv builds a Config entirely from ORTHO_* environment variables,
// with no config file required.  This is the preferred loading strategy for
// containerised deployments.
//
// Environment variable naming convention:
//
//	ORTHO_<SECTION>_<FIELD>   e.g.  ORTHO_SERVER_PORT, ORTHO_DATASOURCE_ROOT
func LoadFromEnv() (*Config, error) {
	return Load()
}

func classifyReadError(path string, err error) error {
	var notFound viper.ConfigFileNotFoundError
	if errors.As(err, &notFound) || strings.Contains(err.Error(), "no such file") {
		return fmt.Errorf("%w: %q: %v", ErrConfigFileNotFound, path, err)
	}
	return fmt.Errorf("%w: %q: %v", ErrConfigParseError, path, err)
}

// unmarshalAndFinalize unmarshals viper state into a Config struct, applies
// defaults, and validates the result.
func unmarshalAndFinalize(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfigParseError, err)
	}

	ApplyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfigValidation, err)
	}

	return cfg, nil
}

// Watch monitors configPath for changes and invokes onChange with the newly
// parsed Config whenever the file is modified on disk.  It is intended for
// hot-reloading non-critical settings such as log level and rate-limit
// thresholds; callers are responsible for applying only the safe subset of
// changes at runtime.
//
// Watch is non-blocking; it starts a background goroutine managed by viper.
// A changed file that fails to parse or validate is skipped so the
// application never observes a broken configuration.
func Watch(configPath string, onChange func(*Config)) {
	v := newViper()
	v.SetConfigFile(configPath)

	// Initial read; callers should have called Load first, so errors here
	// only mean the watcher starts against an empty state.
	_ = v.ReadInConfig()

	v.OnConfigChange(func(_ fsnotify.Event) {
		cfg, err := unmarshalAndFinalize(v)
		if err != nil {
			return
		}
		onChange(cfg)
	})
	v.WatchConfig()
}

// MustLoad is a convenience wrapper around Load that panics on any error.
// It is intended for use in main() where a config-load failure is always fatal.
func MustLoad(opts ...LoadOption) *Config {
	cfg, err := Load(opts...)
	if err != nil {
		panic(fmt.Sprintf("config: MustLoad failed: %v", err))
	}
	return cfg
}
