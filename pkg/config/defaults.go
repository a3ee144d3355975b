package config

import (
	"strings"

	"github.com/marmos91/h5s3/internal/telemetry"
	"github.com/marmos91/h5s3/pkg/driver"
)

// ApplyDefaults fills zero-valued fields with defaults and normalizes
// values. Explicit values are preserved.
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyTelemetryDefaults(&cfg.Telemetry)
	applyMetricsDefaults(&cfg.Metrics)
	applyDriverDefaults(&cfg.Driver)
}

// applyLoggingDefaults sets logging defaults and normalizes values.
func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Format == "" {
		cfg.Format = "text"
	}
	if cfg.Output == "" {
		// stdout carries object bytes for cat
		cfg.Output = "stderr"
	}
}

func applyTelemetryDefaults(cfg *TelemetryConfig) {
	def := telemetry.DefaultConfig()
	if cfg.Endpoint == "" {
		cfg.Endpoint = def.Endpoint
	}
	if cfg.SampleRate == 0 {
		cfg.SampleRate = def.SampleRate
	}
	applyProfilingDefaults(&cfg.Profiling)
}

func applyProfilingDefaults(cfg *ProfilingConfig) {
	def := telemetry.DefaultProfilingConfig()
	if cfg.Endpoint == "" {
		cfg.Endpoint = def.Endpoint
	}
	if len(cfg.ProfileTypes) == 0 {
		cfg.ProfileTypes = def.ProfileTypes
	}
}

// applyMetricsDefaults sets the port only when metrics are on.
func applyMetricsDefaults(cfg *MetricsConfig) {
	if cfg.Enabled && cfg.Port == 0 {
		cfg.Port = 9090
	}
}

// applyDriverDefaults leaves PageSize and PageCacheSize at zero: the engine
// resolves them per object at open time.
func applyDriverDefaults(cfg *DriverConfig) {
	def := driver.DefaultOptions()
	if cfg.Backend == "" {
		cfg.Backend = string(def.Backend)
	}
	cfg.Backend = strings.ToLower(cfg.Backend)
	if cfg.AWSRegion == "" {
		cfg.AWSRegion = def.Region
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.FileRoot == "" {
		cfg.FileRoot = def.FileRoot
	}
}

// GetDefaultConfig returns a Config with every default applied.
func GetDefaultConfig() *Config {
	def := driver.DefaultOptions()
	cfg := &Config{
		Driver: DriverConfig{
			UseTLS:       def.UseTLS,
			FlushRetries: def.FlushRetry.MaxRetries,
		},
	}
	ApplyDefaults(cfg)
	return cfg
}
