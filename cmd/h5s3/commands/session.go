package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marmos91/h5s3/internal/logger"
	"github.com/marmos91/h5s3/internal/telemetry"
	"github.com/marmos91/h5s3/pkg/config"
	"github.com/marmos91/h5s3/pkg/driver"
	"github.com/marmos91/h5s3/pkg/metrics"
)

// session is the runtime a command works in: configuration with flag
// overrides applied, initialized logging, tracing, profiling and metrics.
type session struct {
	cfg      *config.Config
	shutdown []func() error
}

// loadConfig loads the configuration and applies the flags the user set.
func (g *globals) loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(g.cfgFile)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.Logging.Level = g.logLevel
	}
	d := &cfg.Driver
	if flags.Changed("page-size") {
		d.PageSize = g.pageSize
	}
	if flags.Changed("page-cache-size") {
		d.PageCacheSize = g.pageCacheSize
	}
	if flags.Changed("backend") {
		d.Backend = g.backend
	}
	if flags.Changed("region") {
		d.AWSRegion = g.region
	}
	if flags.Changed("host") {
		d.Host = g.host
	}
	if flags.Changed("no-tls") {
		d.UseTLS = !g.noTLS
	}
	if flags.Changed("file-root") {
		d.FileRoot = g.fileRoot
	}
	if flags.Changed("badger-dir") {
		d.BadgerDir = g.badgerDir
	}

	config.ApplyDefaults(cfg)
	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// start loads the configuration and brings up the ambient services.
// forceMetrics enables the metrics registry even when the configuration
// leaves it off.
func (g *globals) start(cmd *cobra.Command, forceMetrics bool) (*session, error) {
	cfg, err := g.loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	s := &session{cfg: cfg}

	if err := logger.Init(cfg.LoggerConfig()); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	ctx := cmd.Context()
	traceStop, err := telemetry.Init(ctx, cfg.TelemetryConfig(g.build.Version))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	s.shutdown = append(s.shutdown, func() error { return traceStop(context.WithoutCancel(ctx)) })

	profStop, err := telemetry.InitProfiling(cfg.ProfilingConfig(g.build.Version))
	if err != nil {
		_ = s.close()
		return nil, fmt.Errorf("failed to initialize profiling: %w", err)
	}
	s.shutdown = append(s.shutdown, profStop)

	if cfg.Metrics.Enabled || forceMetrics {
		cfg.Metrics.Enabled = true
		metrics.InitRegistry()
	}

	logger.Debug("h5s3: session started",
		"command", cmd.Name(),
		"tracing", telemetry.IsEnabled(),
		"metrics", metrics.IsEnabled(),
		logger.KeyBackend, cfg.Driver.Backend,
		logger.KeyRegion, cfg.Driver.AWSRegion,
	)
	return s, nil
}

// open opens uri with the session's driver options.
func (s *session) open(ctx context.Context, uri string) (*driver.Handle, error) {
	return driver.Open(ctx, uri, s.cfg.DriverOptions())
}

// close stops the ambient services in reverse order.
func (s *session) close() error {
	var errs []error
	for i := len(s.shutdown) - 1; i >= 0; i-- {
		if err := s.shutdown[i](); err != nil {
			errs = append(errs, err)
		}
	}
	s.shutdown = nil
	return errors.Join(errs...)
}

// closeHandle closes h and reports a failed close as the command error
// unless the command already failed. The process is about to exit, so a
// handle that cannot be flushed is abandoned.
func closeHandle(h *driver.Handle, err *error) {
	cerr := h.Close()
	if cerr == nil {
		return
	}
	if dropped, aerr := h.Abandon(); aerr != nil || dropped > 0 {
		logger.Error("h5s3: unflushed data lost",
			logger.KeyURI, h.Location().String(), logger.KeyDirty, dropped)
	}
	if *err == nil {
		*err = cerr
		return
	}
	logger.Error("h5s3: close failed", logger.KeyError, cerr.Error())
}
