package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/marmos91/h5s3/internal/bytesize"
)

// EnvPrefix prefixes every environment override, e.g. H5S3_DRIVER_PAGE_SIZE.
const EnvPrefix = "H5S3"

// Config is the h5s3 configuration.
//
// Sources, highest precedence first:
//  1. CLI flags
//  2. Environment variables (H5S3_*)
//  3. Configuration file (YAML or TOML)
//  4. Defaults
type Config struct {
	// Logging controls log output
	Logging LoggingConfig `mapstructure:"logging" json:"logging" yaml:"logging"`

	// Telemetry controls OpenTelemetry tracing and Pyroscope profiling
	Telemetry TelemetryConfig `mapstructure:"telemetry" json:"telemetry" yaml:"telemetry"`

	// Metrics controls Prometheus collection and its HTTP endpoint
	Metrics MetricsConfig `mapstructure:"metrics" json:"metrics" yaml:"metrics"`

	// Driver holds the settings objects are opened with
	Driver DriverConfig `mapstructure:"driver" json:"driver" yaml:"driver"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum log level to output
	// Valid values: DEBUG, INFO, WARN, ERROR (case-insensitive, normalized to uppercase)
	Level string `mapstructure:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error" json:"level" yaml:"level"`

	// Format specifies the log output format
	// Valid values: text, json
	Format string `mapstructure:"format" validate:"required,oneof=text json" json:"format" yaml:"format"`

	// Output is stdout, stderr or a file path
	Output string `mapstructure:"output" validate:"required" json:"output" yaml:"output"`
}

// TelemetryConfig controls OpenTelemetry distributed tracing.
type TelemetryConfig struct {
	// Enabled turns tracing on. Default: false
	Enabled bool `mapstructure:"enabled" json:"enabled" yaml:"enabled"`

	// Endpoint is the OTLP gRPC collector (host:port)
	Endpoint string `mapstructure:"endpoint" json:"endpoint" yaml:"endpoint"`

	// Insecure disables TLS towards the collector
	Insecure bool `mapstructure:"insecure" json:"insecure" yaml:"insecure"`

	// SampleRate is the fraction of traces kept (0.0 to 1.0)
	SampleRate float64 `mapstructure:"sample_rate" validate:"omitempty,gte=0,lte=1" json:"sample_rate" yaml:"sample_rate"`

	// Profiling contains Pyroscope continuous profiling configuration
	Profiling ProfilingConfig `mapstructure:"profiling" json:"profiling" yaml:"profiling"`
}

// ProfilingConfig controls Pyroscope continuous profiling.
type ProfilingConfig struct {
	Enabled bool `mapstructure:"enabled" json:"enabled" yaml:"enabled"`

	// Endpoint is the Pyroscope server URL
	Endpoint string `mapstructure:"endpoint" json:"endpoint" yaml:"endpoint"`

	// ProfileTypes: cpu, alloc_objects, alloc_space, inuse_objects,
	// inuse_space, goroutines, mutex_count, mutex_duration, block_count,
	// block_duration
	ProfileTypes []string `mapstructure:"profile_types" validate:"dive,oneof=cpu alloc_objects alloc_space inuse_objects inuse_space goroutines mutex_count mutex_duration block_count block_duration" json:"profile_types" yaml:"profile_types"`
}

// MetricsConfig configures Prometheus metrics.
// When Enabled is false nothing is collected.
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled" json:"enabled" yaml:"enabled"`

	// Port of the /metrics endpoint long-running commands serve.
	// Default: 9090
	Port int `mapstructure:"port" validate:"omitempty,min=1,max=65535" json:"port" yaml:"port"`
}

// DriverConfig holds the options objects are opened with. See
// driver.Options for the meaning of each field.
type DriverConfig struct {
	// PageSize accepts human-readable sizes ("2Mi", "64KiB"). 0 adopts the
	// page size an existing object was written with.
	PageSize bytesize.ByteSize `mapstructure:"page_size" json:"page_size" yaml:"page_size"`

	// PageCacheSize is the number of resident pages per handle. 0 means
	// 4 GiB worth of pages.
	PageCacheSize int `mapstructure:"page_cache_size" validate:"gte=0" json:"page_cache_size" yaml:"page_cache_size"`

	// Backend is the S3 client: http (built-in signer) or sdk (AWS SDK)
	Backend string `mapstructure:"backend" validate:"required,oneof=http sdk" json:"backend" yaml:"backend"`

	// AWS credentials. When empty, AWS_ACCESS_KEY_ID, AWS_SECRET_ACCESS_KEY
	// and AWS_SESSION_TOKEN are used.
	AWSAccessKey    string `mapstructure:"aws_access_key" json:"aws_access_key,omitempty" yaml:"aws_access_key,omitempty"`
	AWSSecretKey    string `mapstructure:"aws_secret_key" json:"aws_secret_key,omitempty" yaml:"aws_secret_key,omitempty"`
	AWSSessionToken string `mapstructure:"aws_session_token" json:"aws_session_token,omitempty" yaml:"aws_session_token,omitempty"`

	AWSRegion string `mapstructure:"aws_region" validate:"required" json:"aws_region" yaml:"aws_region"`

	// Host overrides the S3 endpoint (host or host:port), e.g. a MinIO or
	// Localstack address. Path-style addressing is used with it.
	Host string `mapstructure:"host" validate:"omitempty,hostname_port|hostname_rfc1123" json:"host,omitempty" yaml:"host,omitempty"`

	UseTLS bool `mapstructure:"use_tls" json:"use_tls" yaml:"use_tls"`

	// Timeout bounds one HTTP request
	Timeout time.Duration `mapstructure:"timeout" validate:"gte=0" json:"timeout" yaml:"timeout"`

	// FlushRetries is how many times a failed flush is retried when the
	// failure is temporary
	FlushRetries uint64 `mapstructure:"flush_retries" json:"flush_retries" yaml:"flush_retries"`

	// FileRoot is the directory file:// buckets live under
	FileRoot string `mapstructure:"file_root" json:"file_root" yaml:"file_root"`

	// BadgerDir is the database directory for badger:// objects; empty
	// keeps the database in memory
	BadgerDir string `mapstructure:"badger_dir" json:"badger_dir,omitempty" yaml:"badger_dir,omitempty"`
}

// Load loads configuration from defaults, the config file and the
// environment, then validates it. A missing config file is not an error.
//
// configPath may be empty to use the default location.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setupViper(v, configPath)

	if _, err := readConfigFile(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(configDecodeHooks())); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	ApplyDefaults(&cfg)
	applyAWSEnvironment(&cfg.Driver)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

// SaveConfig writes cfg as YAML to path with owner-only permissions, since
// it may carry credentials.
func SaveConfig(cfg *Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	return writeConfigFile(path, data)
}

// writeConfigFile writes encoded config bytes.
func writeConfigFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Redacted returns a copy safe to print: secrets are replaced.
func (c *Config) Redacted() *Config {
	out := *c
	out.Telemetry.Profiling.ProfileTypes = append([]string(nil), c.Telemetry.Profiling.ProfileTypes...)
	if out.Driver.AWSSecretKey != "" {
		out.Driver.AWSSecretKey = "<redacted>"
	}
	if out.Driver.AWSSessionToken != "" {
		out.Driver.AWSSessionToken = "<redacted>"
	}
	return &out
}

// setupViper wires environment overrides and the config file location.
// Defaults are registered so that every key can be overridden from the
// environment even when no config file sets it.
func setupViper(v *viper.Viper, configPath string) {
	registerDefaults(v, GetDefaultConfig())

	// H5S3_DRIVER_PAGE_SIZE=64Ki overrides driver.page_size
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		return
	}
	v.AddConfigPath(getConfigDir())
	v.SetConfigName("config")
	v.SetConfigType("yaml")
}

// registerDefaults flattens cfg through its mapstructure tags into viper
// defaults.
func registerDefaults(v *viper.Viper, cfg *Config) {
	var flat map[string]any
	if err := mapstructure.Decode(*cfg, &flat); err != nil {
		return
	}
	var walk func(prefix string, m map[string]any)
	walk = func(prefix string, m map[string]any) {
		for k, val := range m {
			key := k
			if prefix != "" {
				key = prefix + "." + k
			}
			switch vv := val.(type) {
			case map[string]any:
				walk(key, vv)
			case bytesize.ByteSize:
				v.SetDefault(key, vv.String())
			case time.Duration:
				v.SetDefault(key, vv.String())
			default:
				v.SetDefault(key, vv)
			}
		}
	}
	walk("", flat)
}

// readConfigFile reads the config file. It reports whether one was found;
// only a file that exists but cannot be read or parsed is an error.
func readConfigFile(v *viper.Viper) (bool, error) {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read config file: %w", err)
	}
	return true, nil
}

// applyAWSEnvironment falls back to the standard AWS variables for
// credentials and region the configuration leaves empty.
func applyAWSEnvironment(cfg *DriverConfig) {
	if cfg.AWSAccessKey == "" && cfg.AWSSecretKey == "" {
		cfg.AWSAccessKey = os.Getenv("AWS_ACCESS_KEY_ID")
		cfg.AWSSecretKey = os.Getenv("AWS_SECRET_ACCESS_KEY")
		if cfg.AWSSessionToken == "" {
			cfg.AWSSessionToken = os.Getenv("AWS_SESSION_TOKEN")
		}
	}
}

// configDecodeHooks parses byte sizes and durations from strings.
func configDecodeHooks() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		byteSizeDecodeHook(),
		durationDecodeHook(),
		mapstructure.StringToSliceHookFunc(","),
	)
}

// byteSizeDecodeHook converts strings ("2Mi", "64KiB") and numbers to
// bytesize.ByteSize.
func byteSizeDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data any) (any, error) {
		if to != reflect.TypeOf(bytesize.ByteSize(0)) {
			return data, nil
		}

		switch v := data.(type) {
		case string:
			return bytesize.ParseByteSize(v)
		case int:
			if v < 0 {
				return nil, fmt.Errorf("byte size must not be negative, got %d", v)
			}
			return bytesize.ByteSize(v), nil
		case int64:
			if v < 0 {
				return nil, fmt.Errorf("byte size must not be negative, got %d", v)
			}
			return bytesize.ByteSize(v), nil
		case uint64:
			return bytesize.ByteSize(v), nil
		case float64:
			// YAML and TOML numbers may arrive as floats
			if v < 0 {
				return nil, fmt.Errorf("byte size must not be negative, got %v", v)
			}
			return bytesize.ByteSize(v), nil
		default:
			return data, nil
		}
	}
}

// durationDecodeHook converts strings ("30s", "5m") to time.Duration.
// Plain integers are nanoseconds.
func durationDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data any) (any, error) {
		if to != reflect.TypeOf(time.Duration(0)) {
			return data, nil
		}

		switch v := data.(type) {
		case string:
			return time.ParseDuration(v)
		case int:
			return time.Duration(v), nil
		case int64:
			return time.Duration(v), nil
		case float64:
			return time.Duration(v), nil
		default:
			return data, nil
		}
	}
}

// getConfigDir returns $XDG_CONFIG_HOME/h5s3, ~/.config/h5s3, or "." when
// the home directory is unknown.
func getConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "h5s3")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "h5s3")
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}

// DefaultConfigExists checks if a config file exists at the default location.
func DefaultConfigExists() bool {
	_, err := os.Stat(GetDefaultConfigPath())
	return err == nil
}

// GetConfigDir returns the configuration directory path.
func GetConfigDir() string {
	return getConfigDir()
}
