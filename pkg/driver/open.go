package driver

import (
	"context"
	"fmt"

	"github.com/marmos91/h5s3/internal/logger"
	"github.com/marmos91/h5s3/pkg/engine"
	"github.com/marmos91/h5s3/pkg/metrics"
	"github.com/marmos91/h5s3/pkg/pagecache"
	"github.com/marmos91/h5s3/pkg/transport"
	"github.com/marmos91/h5s3/pkg/transport/badger"
	"github.com/marmos91/h5s3/pkg/transport/fs"
	"github.com/marmos91/h5s3/pkg/transport/s3http"
	"github.com/marmos91/h5s3/pkg/transport/s3sdk"

	// Prometheus implementations register their constructors in init.
	prommetrics "github.com/marmos91/h5s3/pkg/metrics/prometheus"
)

// Open opens the object named by uri and returns a handle positioned on
// its persisted logical size. An object that was never written opens empty.
//
// Configuration problems fail with ErrInvalidConfiguration before any
// network traffic; failing to reach the storage fails with
// ErrStorageUnavailable.
func Open(ctx context.Context, uri string, opts Options) (*Handle, error) {
	loc, err := ParseURI(uri)
	if err != nil {
		return nil, err
	}
	if err := opts.validateFor(loc); err != nil {
		return nil, err
	}

	t, release, err := openTransport(ctx, loc, opts)
	if err != nil {
		return nil, err
	}

	var (
		tm transport.Metrics
		pm pagecache.Metrics
	)
	if opts.Metrics {
		tm = metrics.NewTransportMetrics()
		pm = metrics.NewPageCacheMetrics()
	}
	inst := transport.Instrument(t, "", tm)

	lc := logger.NewLogContext(loc.String())
	ctx = logger.WithContext(ctx, lc)

	eng, err := engine.Open(ctx, inst, loc.ObjectKey(), engine.Options{
		PageSize:  opts.PageSize,
		CacheSize: opts.PageCacheSize,
		Retry:     opts.FlushRetry,
		Metrics:   pm,
	})
	if err != nil {
		if cerr := release(); cerr != nil {
			logger.WarnCtx(ctx, "driver: release transport after failed open",
				logger.KeyBackend, inst.Name(), logger.KeyError, cerr.Error())
		}
		return nil, err
	}

	logger.DebugCtx(ctx, "driver: opened",
		logger.KeyBackend, inst.Name(),
		logger.KeyHandle, eng.ID(),
		logger.KeyPageSize, eng.PageSize(),
		logger.KeyEOF, eng.EOF(),
	)

	return &Handle{
		eng:     eng,
		loc:     loc,
		backend: inst.Name(),
		release: release,
		lc:      lc.WithHandle(eng.ID()),
	}, nil
}

// openTransport builds the transport loc's scheme selects. release frees
// what this call allocated; an injected transport is left to its owner.
func openTransport(ctx context.Context, loc Location, opts Options) (transport.Transport, func() error, error) {
	noop := func() error { return nil }

	if opts.Transport != nil {
		return opts.Transport, noop, nil
	}

	switch loc.Scheme {
	case SchemeS3:
		switch opts.Backend {
		case BackendSDK:
			t, err := s3sdk.NewFromConfig(ctx, s3sdk.Config{
				Bucket:      loc.Bucket,
				Region:      opts.Region,
				Credentials: opts.Credentials,
				Host:        opts.Host,
				UseTLS:      opts.UseTLS,
				Timeout:     opts.Timeout,
			})
			if err != nil {
				return nil, nil, fmt.Errorf("%w: %w", ErrInvalidConfiguration, err)
			}
			return t, noop, nil
		default:
			t, err := s3http.New(s3http.Config{
				Bucket:      loc.Bucket,
				Region:      opts.Region,
				Credentials: opts.Credentials,
				Host:        opts.Host,
				UseTLS:      opts.UseTLS,
				Timeout:     opts.Timeout,
			})
			if err != nil {
				return nil, nil, fmt.Errorf("%w: %w", ErrInvalidConfiguration, err)
			}
			return t, noop, nil
		}

	case SchemeFile:
		t, err := fs.New(opts.FileRoot)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %w", ErrInvalidConfiguration, err)
		}
		return t, noop, nil

	case SchemeBadger:
		t, err := badger.Open(badger.Config{
			Dir:      opts.BadgerDir,
			InMemory: opts.BadgerDir == "",
		})
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
		}
		unregister := func() {}
		if opts.Metrics {
			unregister = prommetrics.RegisterBadgerCache(t.DB())
		}
		return t, func() error {
			unregister()
			return t.Close()
		}, nil
	}

	return nil, nil, fmt.Errorf("%w: unsupported scheme %q", ErrInvalidConfiguration, loc.Scheme)
}
