package config

import (
	"github.com/marmos91/h5s3/internal/logger"
	"github.com/marmos91/h5s3/internal/telemetry"
	"github.com/marmos91/h5s3/pkg/credentials"
	"github.com/marmos91/h5s3/pkg/driver"
)

// DriverOptions converts the driver section into options for driver.Open.
func (c *Config) DriverOptions() driver.Options {
	d := c.Driver
	o := driver.DefaultOptions()

	o.PageSize = d.PageSize.Int64()
	o.PageCacheSize = d.PageCacheSize
	o.Backend = driver.Backend(d.Backend)
	o.Region = d.AWSRegion
	o.Host = d.Host
	o.UseTLS = d.UseTLS
	o.Timeout = d.Timeout
	o.FlushRetry.MaxRetries = d.FlushRetries
	o.FileRoot = d.FileRoot
	o.BadgerDir = d.BadgerDir
	o.Metrics = c.Metrics.Enabled

	if d.AWSAccessKey != "" || d.AWSSecretKey != "" {
		o.Credentials = credentials.New(d.AWSAccessKey, d.AWSSecretKey)
		if d.AWSSessionToken != "" {
			o.Credentials = o.Credentials.WithSessionToken(d.AWSSessionToken)
		}
	}
	return o
}

// LoggerConfig converts the logging section for logger.Init.
func (c *Config) LoggerConfig() logger.Config {
	return logger.Config{
		Level:  c.Logging.Level,
		Format: c.Logging.Format,
		Output: c.Logging.Output,
	}
}

// TelemetryConfig converts the telemetry section for telemetry.Init.
func (c *Config) TelemetryConfig(version string) telemetry.Config {
	t := telemetry.DefaultConfig()
	t.Enabled = c.Telemetry.Enabled
	t.Endpoint = c.Telemetry.Endpoint
	t.Insecure = c.Telemetry.Insecure
	t.SampleRate = c.Telemetry.SampleRate
	if version != "" {
		t.ServiceVersion = version
	}
	return t
}

// ProfilingConfig converts the profiling section for
// telemetry.InitProfiling.
func (c *Config) ProfilingConfig(version string) telemetry.ProfilingConfig {
	p := telemetry.DefaultProfilingConfig()
	p.Enabled = c.Telemetry.Profiling.Enabled
	p.Endpoint = c.Telemetry.Profiling.Endpoint
	p.ProfileTypes = append([]string(nil), c.Telemetry.Profiling.ProfileTypes...)
	if version != "" {
		p.ServiceVersion = version
	}
	return p
}
