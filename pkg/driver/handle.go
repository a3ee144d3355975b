package driver

import (
	"context"
	"io"
	"sync"

	"github.com/marmos91/h5s3/internal/logger"
	"github.com/marmos91/h5s3/pkg/engine"
	"github.com/marmos91/h5s3/pkg/pagecache"
)

// Handle is an open object. It exposes the context-aware engine through
// File and context-free io adapters for code written against the io
// interfaces. Like the engine it is meant for one caller at a time.
type Handle struct {
	eng     *engine.Engine
	loc     Location
	backend string
	lc      *logger.LogContext

	releaseOnce sync.Once
	release     func() error
	releaseErr  error
}

var (
	_ io.ReaderAt = (*Handle)(nil)
	_ io.WriterAt = (*Handle)(nil)
)

// Info describes an open handle.
type Info struct {
	URI       string          `json:"uri" yaml:"uri"`
	Backend   string          `json:"backend" yaml:"backend"`
	Key       string          `json:"key" yaml:"key"`
	Handle    string          `json:"handle" yaml:"handle"`
	PageSize  int64           `json:"page_size" yaml:"page_size"`
	EOF       int64           `json:"eof" yaml:"eof"`
	PageCache pagecache.Stats `json:"page_cache" yaml:"page_cache"`
}

// File returns the engine behind the handle.
func (h *Handle) File() engine.File { return h.eng }

// Location returns the parsed URI the handle was opened on.
func (h *Handle) Location() Location { return h.loc }

// Size returns the logical size.
func (h *Handle) Size() int64 { return h.eng.EOF() }

// Info snapshots the handle state.
func (h *Handle) Info() Info {
	return Info{
		URI:       h.loc.String(),
		Backend:   h.backend,
		Key:       h.eng.Key(),
		Handle:    h.eng.ID(),
		PageSize:  h.eng.PageSize(),
		EOF:       h.eng.EOF(),
		PageCache: h.eng.Stats(),
	}
}

// ctx carries the handle's log fields into calls made through the io
// adapters, which have no context parameter.
func (h *Handle) ctx() context.Context {
	return logger.WithContext(context.Background(), h.lc)
}

// ReadAt implements io.ReaderAt. Bytes past the logical size are not
// returned: a short read reports io.EOF.
func (h *Handle) ReadAt(p []byte, off int64) (int, error) {
	n, err := h.eng.ReadAt(h.ctx(), p, off)
	if err != nil {
		return n, err
	}
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

// WriteAt implements io.WriterAt.
func (h *Handle) WriteAt(p []byte, off int64) (int, error) {
	return h.eng.WriteAt(h.ctx(), p, off)
}

// Truncate sets the logical size.
func (h *Handle) Truncate(size int64) error {
	return h.eng.Truncate(h.ctx(), size)
}

// Sync flushes dirty pages and the logical size to storage.
func (h *Handle) Sync() error {
	return h.eng.Flush(h.ctx())
}

// Close flushes and closes the handle, then releases the transport the
// handle opened. If the flush fails the handle stays open so the caller
// can retry Close or give up with Abandon.
func (h *Handle) Close() error {
	return h.CloseContext(h.ctx())
}

// CloseContext is Close with a caller-supplied context.
func (h *Handle) CloseContext(ctx context.Context) error {
	if err := h.eng.Close(ctx); err != nil {
		return err
	}
	return h.releaseTransport()
}

// Abandon closes the handle without flushing and returns the number of
// dirty pages dropped.
func (h *Handle) Abandon() (int, error) {
	dropped := h.eng.Abandon()
	return dropped, h.releaseTransport()
}

func (h *Handle) releaseTransport() error {
	h.releaseOnce.Do(func() {
		h.releaseErr = h.release()
	})
	return h.releaseErr
}
