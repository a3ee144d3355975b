package engine

import (
	"context"
	"fmt"

	"github.com/marmos91/h5s3/internal/logger"
	"github.com/marmos91/h5s3/internal/telemetry"
)

// Read returns length bytes starting at offset. Bytes at or past the
// logical size read as zeros and are never fetched.
func (e *Engine) Read(ctx context.Context, offset, length int64) ([]byte, error) {
	if length < 0 {
		return nil, fmt.Errorf("%w: negative length %d", ErrInvalidArgument, length)
	}
	buf := make([]byte, length)
	if _, err := e.ReadAt(ctx, buf, offset); err != nil {
		return nil, err
	}
	return buf, nil
}

// ReadAt fills p from offset off and returns how many bytes lay before the
// logical size. The rest of p is zeroed. A transport failure on any page
// fails the whole call; pages fetched before it stay cached.
func (e *Engine) ReadAt(ctx context.Context, p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, fmt.Errorf("%w: negative offset %d", ErrInvalidArgument, off)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.checkActive(); err != nil {
		return 0, err
	}

	avail := max(min(int64(len(p)), e.size-off), 0)
	clear(p[avail:])
	if avail == 0 {
		return 0, nil
	}

	ctx, span := telemetry.StartEngineSpan(ctx, telemetry.SpanEngineRead,
		telemetry.StorageKey(e.key), telemetry.Offset(off), telemetry.Length(int64(len(p))))
	defer span.End()

	for s := range spans(off, avail, e.pageSize) {
		view, err := e.cache.GetPage(ctx, s.Page)
		if err != nil {
			telemetry.RecordError(ctx, err)
			return 0, fmt.Errorf("read %s at %d: %w", e.key, off, err)
		}
		view.CopyTo(p[s.BufOffset:s.BufOffset+s.Length], s.Offset)
	}

	logger.DebugCtx(ctx, "engine: read",
		logger.KeyKey, e.key,
		logger.KeyOffset, off,
		logger.KeyLength, len(p),
		logger.KeyBytesRead, avail,
		logger.KeyZeroFill, int64(len(p))-avail,
	)
	return int(avail), nil
}

// Write copies data to offset. See WriteAt.
func (e *Engine) Write(ctx context.Context, offset int64, data []byte) error {
	_, err := e.WriteAt(ctx, data, offset)
	return err
}

// WriteAt copies p into the pages covering [off, off+len(p)) and extends
// the logical size to cover it. Every page is fetched before it is
// modified so bytes outside the written range survive.
//
// When a page fetch fails the call returns the bytes applied so far with
// the error; the logical size covers only that prefix.
func (e *Engine) WriteAt(ctx context.Context, p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, fmt.Errorf("%w: negative offset %d", ErrInvalidArgument, off)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.checkActive(); err != nil {
		return 0, err
	}
	if len(p) == 0 {
		return 0, nil
	}

	ctx, span := telemetry.StartEngineSpan(ctx, telemetry.SpanEngineWrite,
		telemetry.StorageKey(e.key), telemetry.Offset(off), telemetry.Length(int64(len(p))))
	defer span.End()

	var written int64
	for s := range spans(off, int64(len(p)), e.pageSize) {
		if _, err := e.cache.GetPage(ctx, s.Page); err != nil {
			e.extend(off + written)
			telemetry.RecordError(ctx, err)
			return int(written), fmt.Errorf("write %s at %d: %w", e.key, off, err)
		}
		if err := e.cache.MarkDirty(s.Page, s.Offset, p[s.BufOffset:s.BufOffset+s.Length]); err != nil {
			e.extend(off + written)
			return int(written), fmt.Errorf("write %s at %d: %w", e.key, off, err)
		}
		written += s.Length
	}
	e.extend(off + written)

	logger.DebugCtx(ctx, "engine: write",
		logger.KeyKey, e.key,
		logger.KeyOffset, off,
		logger.KeyBytesWritten, written,
		logger.KeyEOF, e.size,
	)
	return int(written), nil
}

func (e *Engine) extend(end int64) {
	if end > e.size {
		e.size = end
	}
}
