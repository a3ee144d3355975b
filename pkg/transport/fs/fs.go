// Package fs is a transport backed by a local directory. Each logical
// object is one sparse file, so arbitrary byte ranges can be read and
// written in place.
package fs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/marmos91/h5s3/pkg/transport"
)

// Transport stores objects as files under a root directory.
type Transport struct {
	root string
	sync bool
}

var _ transport.Transport = (*Transport)(nil)

// Option configures a Transport.
type Option func(*Transport)

// WithSync fsyncs every PutRange before returning.
func WithSync() Option {
	return func(t *Transport) { t.sync = true }
}

// New returns a transport rooted at dir, creating it if needed.
func New(dir string, opts ...Option) (*Transport, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("fs: resolve root %q: %w", dir, err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("fs: create root %q: %w", abs, err)
	}
	t := &Transport{root: abs}
	for _, o := range opts {
		o(t)
	}
	return t, nil
}

// Name implements transport.Named.
func (t *Transport) Name() string { return "fs" }

// Root returns the absolute root directory.
func (t *Transport) Root() string { return t.root }

// path maps key to a file below root, rejecting keys that escape it.
func (t *Transport) path(key string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash("/" + key))
	if clean == string(filepath.Separator) {
		return "", fmt.Errorf("fs: empty key")
	}
	p := filepath.Join(t.root, clean)
	if !strings.HasPrefix(p, t.root+string(filepath.Separator)) {
		return "", fmt.Errorf("fs: key %q escapes root", key)
	}
	return p, nil
}

// GetRange reads up to length bytes at offset.
func (t *Transport) GetRange(_ context.Context, key string, offset, length int64) ([]byte, error) {
	p, err := t.path(key)
	if err != nil {
		return nil, ioError("get", key, err)
	}

	f, err := os.Open(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, transport.ErrNotFound
		}
		return nil, ioError("get", key, err)
	}
	defer f.Close()

	buf := make([]byte, length)
	n, err := f.ReadAt(buf, offset)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, ioError("get", key, err)
	}
	return buf[:n], nil
}

// PutRange writes data at offset, extending the file as needed. Skipped
// regions stay sparse and read as zeros.
func (t *Transport) PutRange(_ context.Context, key string, offset int64, data []byte) error {
	p, err := t.path(key)
	if err != nil {
		return ioError("put", key, err)
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return ioError("put", key, err)
	}

	f, err := os.OpenFile(p, os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return ioError("put", key, err)
	}

	if _, err := f.WriteAt(data, offset); err != nil {
		_ = f.Close()
		return ioError("put", key, err)
	}
	if t.sync {
		if err := f.Sync(); err != nil {
			_ = f.Close()
			return ioError("put", key, err)
		}
	}
	if err := f.Close(); err != nil {
		return ioError("put", key, err)
	}
	return nil
}

func ioError(op, key string, err error) error {
	return &transport.TransportError{Op: op, Key: key, Category: transport.CategoryIO, Err: err}
}
