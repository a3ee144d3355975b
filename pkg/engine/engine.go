// Package engine is the byte-range I/O engine behind an open handle.
//
// A host format drives it with small synchronous calls: read, write,
// flush, eof, truncate and close. The engine splits every range into
// page-aligned pieces served by a pagecache.Cache, keeps the logical size
// and persists it in a sidecar object next to the data after each flush.
//
// Calls on one Engine are serialised by a mutex and block on the network
// inline. Two engines opened on the same key share nothing and may diverge.
package engine

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/marmos91/h5s3/internal/logger"
	"github.com/marmos91/h5s3/internal/telemetry"
	"github.com/marmos91/h5s3/pkg/pagecache"
	"github.com/marmos91/h5s3/pkg/transport"
)

const (
	// DefaultPageSize is used when neither the caller nor the object's
	// metadata sets a page size.
	DefaultPageSize int64 = 2 << 20

	// DefaultCacheBytes sizes the default page budget: cache size is
	// DefaultCacheBytes / page size pages.
	DefaultCacheBytes int64 = 4 << 30

	// MinPageSize is the smallest page size accepted.
	MinPageSize int64 = 64
)

// File is the capability set a host format needs from a random-access
// byte store. *Engine implements it.
type File interface {
	Read(ctx context.Context, offset, length int64) ([]byte, error)
	ReadAt(ctx context.Context, p []byte, off int64) (int, error)
	Write(ctx context.Context, offset int64, data []byte) error
	WriteAt(ctx context.Context, p []byte, off int64) (int, error)
	Flush(ctx context.Context) error
	EOF() int64
	Truncate(ctx context.Context, size int64) error
	Close(ctx context.Context) error
}

var _ File = (*Engine)(nil)

// Options configures an Engine. Zero values select defaults.
type Options struct {
	// PageSize in bytes. Zero adopts the page size recorded for an existing
	// object, or DefaultPageSize for a new one.
	PageSize int64

	// CacheSize is the page budget. Zero means DefaultCacheBytes / PageSize.
	CacheSize int

	// Retry applies to flush write-backs. The zero value makes one attempt.
	Retry RetryPolicy

	// Metrics receives page cache activity. Optional.
	Metrics pagecache.Metrics
}

type state int

const (
	stateActive state = iota
	stateClosed
)

func (s state) String() string {
	if s == stateClosed {
		return "closed"
	}
	return "active"
}

// Engine is the per-handle file state plus its private page cache.
type Engine struct {
	mu sync.Mutex

	t        transport.Transport
	key      string
	id       string
	cache    *pagecache.Cache
	pageSize int64
	retry    RetryPolicy

	size      int64 // logical EOF
	persisted int64 // EOF recorded in the sidecar
	extent    int64 // remote page extent implied by the sidecar
	state     state
}

// Open opens key on t. An object without metadata is new and empty.
//
// Open returns ErrInvalidConfiguration for negative sizes, a page size
// below MinPageSize, or a page size different from the one the object was
// written with. Failing to read the metadata returns ErrStorageUnavailable.
func Open(ctx context.Context, t transport.Transport, key string, opts Options) (*Engine, error) {
	if t == nil {
		return nil, fmt.Errorf("%w: transport is required", ErrInvalidConfiguration)
	}
	if key == "" {
		return nil, fmt.Errorf("%w: object key is required", ErrInvalidConfiguration)
	}
	if opts.PageSize < 0 {
		return nil, fmt.Errorf("%w: page size must not be negative, got %d", ErrInvalidConfiguration, opts.PageSize)
	}
	if opts.CacheSize < 0 {
		return nil, fmt.Errorf("%w: page cache size must not be negative, got %d", ErrInvalidConfiguration, opts.CacheSize)
	}
	if opts.PageSize != 0 && opts.PageSize < MinPageSize {
		return nil, fmt.Errorf("%w: page size %d is below the minimum of %d", ErrInvalidConfiguration, opts.PageSize, MinPageSize)
	}

	ctx, span := telemetry.StartEngineSpan(ctx, telemetry.SpanEngineOpen, telemetry.StorageKey(key))
	defer span.End()

	m, found, err := loadMeta(ctx, t, key)
	if err != nil {
		telemetry.RecordError(ctx, err)
		return nil, err
	}

	pageSize := opts.PageSize
	switch {
	case found && pageSize == 0:
		pageSize = m.PageSize
	case found && pageSize != m.PageSize:
		return nil, fmt.Errorf("%w: %s was written with page size %d, configured %d",
			ErrInvalidConfiguration, key, m.PageSize, pageSize)
	case pageSize == 0:
		pageSize = DefaultPageSize
	}

	capacity := opts.CacheSize
	if capacity == 0 {
		capacity = int(max(DefaultCacheBytes/pageSize, 1))
	}

	cache, err := pagecache.New(t, key, pagecache.Config{
		PageSize:    pageSize,
		Capacity:    capacity,
		KnownExtent: m.EOF,
		RemotePages: m.Extent,
		Metrics:     opts.Metrics,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfiguration, err)
	}

	e := &Engine{
		t:         t,
		key:       key,
		id:        uuid.NewString(),
		cache:     cache,
		pageSize:  pageSize,
		retry:     opts.Retry,
		size:      m.EOF,
		persisted: m.EOF,
		extent:    cache.RemotePages(),
	}
	logger.DebugCtx(ctx, "engine: opened",
		logger.KeyKey, key,
		logger.KeyHandle, e.id,
		logger.KeyPageSize, pageSize,
		logger.KeyCapacity, capacity,
		logger.KeyEOF, e.size,
		"existing", found,
	)
	return e, nil
}

// Key returns the object key.
func (e *Engine) Key() string { return e.key }

// ID returns the handle id used in logs.
func (e *Engine) ID() string { return e.id }

// PageSize returns the page size in effect.
func (e *Engine) PageSize() int64 { return e.pageSize }

// EOF returns the logical size. It reflects writes and truncations
// immediately, before any flush.
func (e *Engine) EOF() int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.size
}

// Closed reports whether Close or Abandon completed.
func (e *Engine) Closed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state == stateClosed
}

// Stats returns the page cache counters.
func (e *Engine) Stats() pagecache.Stats {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cache.Stats()
}

// Flush writes every dirty page back, retrying temporary failures per the
// retry policy, then records the logical size and remote extent if either
// changed. Pages that
// could not be written stay dirty for the next Flush.
func (e *Engine) Flush(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.checkActive(); err != nil {
		return err
	}
	return e.flushLocked(ctx)
}

func (e *Engine) flushLocked(ctx context.Context) error {
	ctx, span := telemetry.StartEngineSpan(ctx, telemetry.SpanEngineFlush,
		telemetry.StorageKey(e.key), telemetry.Dirty(len(e.cache.DirtyPages())))
	defer span.End()

	err := e.retry.do(ctx, "flush", func() error {
		if err := e.cache.FlushAll(ctx); err != nil {
			return err
		}
		// pages dropped by a shrink and exposed again by growth must not
		// resurface on the next open
		_, err := e.cache.ZeroStale(ctx, ceilDiv(e.size, e.pageSize))
		return err
	})
	if err != nil {
		telemetry.RecordError(ctx, err)
		logger.WarnCtx(ctx, "engine: flush failed",
			logger.KeyKey, e.key,
			logger.KeyHandle, e.id,
			logger.KeyDirty, len(e.cache.DirtyPages()),
			logger.KeyError, err.Error(),
		)
		return err
	}

	extent := e.cache.RemotePages()
	if e.size == e.persisted && extent == e.extent {
		return nil
	}
	m := meta{PageSize: e.pageSize, EOF: e.size, Extent: extent}
	err = e.retry.do(ctx, "flush", func() error {
		return storeMeta(ctx, e.t, e.key, m)
	})
	if err != nil {
		telemetry.RecordError(ctx, err)
		return err
	}
	e.persisted, e.extent = e.size, extent
	return nil
}

// Close flushes and releases the page cache. Closing a closed handle is a
// no-op. When the flush fails the handle stays open and keeps its dirty
// pages so the caller can retry Close or give up with Abandon.
func (e *Engine) Close(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state == stateClosed {
		return nil
	}

	ctx, span := telemetry.StartEngineSpan(ctx, telemetry.SpanEngineClose, telemetry.StorageKey(e.key))
	defer span.End()

	if err := e.flushLocked(ctx); err != nil {
		return err
	}
	e.cache.Release()
	e.state = stateClosed

	logger.DebugCtx(ctx, "engine: closed",
		logger.KeyKey, e.key, logger.KeyHandle, e.id, logger.KeyEOF, e.size)
	return nil
}

// Abandon closes the handle without flushing and returns the number of
// dirty pages dropped.
func (e *Engine) Abandon() int {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state == stateClosed {
		return 0
	}
	dropped := e.cache.Release()
	e.state = stateClosed
	if dropped > 0 {
		logger.Warn("engine: abandoned handle with unflushed pages",
			logger.KeyKey, e.key, logger.KeyHandle, e.id, logger.KeyDirty, dropped)
	}
	return dropped
}

func (e *Engine) checkActive() error {
	if e.state != stateActive {
		return fmt.Errorf("%w: %s is %s", ErrInvalidState, e.key, e.state)
	}
	return nil
}
