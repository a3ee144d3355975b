package engine

import (
	"context"
	"fmt"

	"github.com/marmos91/h5s3/internal/logger"
	"github.com/marmos91/h5s3/internal/telemetry"
)

// Truncate sets the logical size.
//
// Shrinking zeroes the tail of the page holding the new boundary, marks it
// dirty and drops every page wholly past it, dirty or not. Dropped pages
// read as zeros from then on, whatever is still stored remotely. Growing
// only moves the size; the new range reads as zeros.
func (e *Engine) Truncate(ctx context.Context, size int64) error {
	if size < 0 {
		return fmt.Errorf("%w: negative size %d", ErrInvalidArgument, size)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.checkActive(); err != nil {
		return err
	}

	ctx, span := telemetry.StartEngineSpan(ctx, telemetry.SpanEngineTruncate,
		telemetry.StorageKey(e.key), telemetry.EOF(size))
	defer span.End()

	old := e.size
	if size >= old {
		e.size = size
		return nil
	}

	// zero the boundary page first: it may need a fetch, and a failure
	// must leave the handle untouched
	if in := size % e.pageSize; in != 0 {
		if err := e.cache.ZeroFrom(ctx, size/e.pageSize, in); err != nil {
			telemetry.RecordError(ctx, err)
			return fmt.Errorf("truncate %s to %d: %w", e.key, size, err)
		}
	}
	dropped := e.cache.Discard(ceilDiv(size, e.pageSize))
	e.size = size

	logger.DebugCtx(ctx, "engine: truncated",
		logger.KeyKey, e.key,
		logger.KeyEOF, size,
		"previous_eof", old,
		logger.KeyEvicted, dropped,
	)
	return nil
}
