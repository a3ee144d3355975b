package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/marmos91/h5s3/pkg/transport"
)

// metaSize is the fixed encoded size of the sidecar. Flat backends rewrite
// it in place, so every version must cover the previous one completely.
const metaSize = 256

// meta is the sidecar stored next to every object. It records the page
// size the object was written with, its logical size and how many pages
// may hold data remotely. Extent exceeds the pages covering EOF after a
// flushed shrink, since the old segments are never deleted.
type meta struct {
	PageSize int64 `json:"page_size"`
	EOF      int64 `json:"eof"`
	Extent   int64 `json:"extent,omitempty"`
}

// loadMeta reads the sidecar for key. found is false for a fresh object.
func loadMeta(ctx context.Context, t transport.Transport, key string) (m meta, found bool, err error) {
	raw, err := t.GetRange(ctx, transport.MetaKey(key), 0, metaSize)
	switch {
	case errors.Is(err, transport.ErrNotFound):
		return meta{}, false, nil
	case err != nil:
		return meta{}, false, fmt.Errorf("%w: read metadata of %s: %w", ErrStorageUnavailable, key, err)
	}

	raw = bytes.TrimRight(raw, " \x00")
	if len(raw) == 0 {
		return meta{}, false, nil
	}
	if err := json.Unmarshal(raw, &m); err != nil {
		return meta{}, false, fmt.Errorf("%w: corrupt metadata for %s: %w", ErrInvalidConfiguration, key, err)
	}
	if m.PageSize <= 0 || m.EOF < 0 || m.Extent < 0 {
		return meta{}, false, fmt.Errorf("%w: corrupt metadata for %s: page_size=%d eof=%d extent=%d",
			ErrInvalidConfiguration, key, m.PageSize, m.EOF, m.Extent)
	}
	return m, true, nil
}

// storeMeta writes the sidecar for key, space padded to metaSize.
func storeMeta(ctx context.Context, t transport.Transport, key string, m meta) error {
	data, err := json.Marshal(m)
	if err != nil {
		return err
	}
	buf := bytes.Repeat([]byte{' '}, metaSize)
	copy(buf, data)

	if err := t.PutRange(ctx, transport.MetaKey(key), 0, buf); err != nil {
		return fmt.Errorf("%w: write metadata of %s: %w", ErrStorageUnavailable, key, err)
	}
	return nil
}
