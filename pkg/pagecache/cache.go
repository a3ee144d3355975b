// Package pagecache keeps fixed-size pages of one remote object in memory.
//
// Pages are fetched lazily, modified in place and written back either when
// evicted or on FlushAll. The cache bounds the number of resident pages to
// a capacity C and evicts least-recently-used pages first, preferring clean
// ones. A dirty page only leaves the cache after its PUT succeeded; when
// that is impossible the cache stays above C rather than lose data.
//
// A Cache is not safe for concurrent use. The engine owning it serialises
// access.
package pagecache

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/marmos91/h5s3/internal/logger"
	"github.com/marmos91/h5s3/pkg/transport"
)

// UnknownExtent disables the known-zero optimisation: every missing page
// is fetched from the transport.
const UnknownExtent int64 = -1

// Config configures a Cache.
type Config struct {
	// PageSize is the size of every page in bytes.
	PageSize int64

	// Capacity is the number of pages kept resident.
	Capacity int

	// KnownExtent is the number of bytes that may exist remotely. Pages
	// starting at or past it read as zeros without a fetch. Use
	// UnknownExtent to always fetch.
	KnownExtent int64

	// RemotePages is the number of pages that may hold data remotely. It
	// exceeds KnownExtent after a flushed shrink: pages between the two
	// read as zeros and are overwritten by ZeroStale once growth exposes
	// them again.
	RemotePages int64

	// Metrics is optional.
	Metrics Metrics
}

// Cache is the page table for one object key.
type Cache struct {
	t        transport.Transport
	key      string
	pageSize int64
	capacity int
	metrics  Metrics

	pages map[int64]*page
	seq   uint64

	// zeroFrom is the first page index whose remote content is absent or
	// stale. written holds pages past zeroFrom flushed since, which must be
	// fetched again. A run of them starting at zeroFrom moves zeroFrom.
	zeroFrom int64
	written  pageRuns

	// remoteEnd bounds the page indices that may exist remotely.
	// [staleLo, staleHi) holds discarded pages whose old remote content
	// may still be there.
	remoteEnd int64
	staleLo   int64
	staleHi   int64

	stats Stats
}

// New returns an empty cache for key.
func New(t transport.Transport, key string, cfg Config) (*Cache, error) {
	if t == nil {
		return nil, errors.New("pagecache: transport is required")
	}
	if cfg.PageSize <= 0 {
		return nil, fmt.Errorf("pagecache: page size must be positive, got %d", cfg.PageSize)
	}
	if cfg.Capacity <= 0 {
		return nil, fmt.Errorf("pagecache: capacity must be positive, got %d", cfg.Capacity)
	}

	zeroFrom := int64(math.MaxInt64)
	if cfg.KnownExtent >= 0 {
		zeroFrom = ceilDiv(cfg.KnownExtent, cfg.PageSize)
	}
	c := &Cache{
		t:         t,
		key:       key,
		pageSize:  cfg.PageSize,
		capacity:  cfg.Capacity,
		metrics:   cfg.Metrics,
		pages:     make(map[int64]*page, min(cfg.Capacity+1, 1024)),
		zeroFrom:  zeroFrom,
		remoteEnd: zeroFrom,
	}
	if cfg.KnownExtent >= 0 && cfg.RemotePages > zeroFrom {
		c.remoteEnd = cfg.RemotePages
		c.staleLo, c.staleHi = zeroFrom, cfg.RemotePages
	}
	return c, nil
}

// PageSize returns the page size in bytes.
func (c *Cache) PageSize() int64 { return c.pageSize }

// Capacity returns the configured page capacity.
func (c *Cache) Capacity() int { return c.capacity }

// Key returns the object key the cache serves.
func (c *Cache) Key() string { return c.key }

// RemotePages returns the number of pages that may hold data remotely,
// counting pages whose content is stale.
func (c *Cache) RemotePages() int64 { return c.remoteEnd }

// Resident reports whether page idx is in memory.
func (c *Cache) Resident(idx int64) bool {
	_, ok := c.pages[idx]
	return ok
}

// IsDirty reports whether page idx is resident and dirty.
func (c *Cache) IsDirty(idx int64) bool {
	p, ok := c.pages[idx]
	return ok && p.dirty
}

// Stats returns a snapshot of the cache counters.
func (c *Cache) Stats() Stats {
	s := c.stats
	s.Resident = len(c.pages)
	s.Dirty = c.dirtyCount()
	s.Capacity = c.capacity
	return s
}

// GetPage returns page idx, fetching it on a miss. A missing object yields
// a zero page; any other transport failure is wrapped in
// ErrStorageUnavailable and nothing is inserted. Eviction runs after the
// new page is inserted and never picks it.
func (c *Cache) GetPage(ctx context.Context, idx int64) (View, error) {
	if idx < 0 {
		return View{}, fmt.Errorf("pagecache: negative page index %d", idx)
	}

	if p, ok := c.pages[idx]; ok {
		c.touch(p)
		c.stats.Hits++
		if c.metrics != nil {
			c.metrics.RecordHit()
		}
		return View{p: p}, nil
	}

	data, fetched, err := c.load(ctx, idx)
	if err != nil {
		return View{}, err
	}

	c.stats.Misses++
	if fetched {
		c.stats.Fetches++
	} else {
		c.stats.ZeroFills++
	}
	if c.metrics != nil {
		c.metrics.RecordMiss(fetched)
	}

	p := &page{index: idx, data: data}
	c.touch(p)
	c.pages[idx] = p

	c.evictIfOverCapacity(ctx, idx)
	c.recordResidency()
	return View{p: p}, nil
}

// load materialises page idx. fetched reports whether a request was made.
func (c *Cache) load(ctx context.Context, idx int64) (data []byte, fetched bool, err error) {
	if c.knownZero(idx) {
		return make([]byte, c.pageSize), false, nil
	}

	raw, err := c.t.GetRange(ctx, c.key, idx*c.pageSize, c.pageSize)
	switch {
	case errors.Is(err, transport.ErrNotFound):
		return make([]byte, c.pageSize), true, nil
	case err != nil:
		return nil, true, fmt.Errorf("%w: fetch page %d of %s: %w", ErrStorageUnavailable, idx, c.key, err)
	}

	data = make([]byte, c.pageSize)
	copy(data, raw)
	return data, true, nil
}

func (c *Cache) knownZero(idx int64) bool {
	if idx < c.zeroFrom {
		return false
	}
	return !c.written.contains(idx)
}

// MarkDirty copies data into resident page idx at off and marks it dirty.
func (c *Cache) MarkDirty(idx, off int64, data []byte) error {
	p, ok := c.pages[idx]
	if !ok {
		return fmt.Errorf("%w: page %d", ErrPageNotResident, idx)
	}
	if off < 0 || off+int64(len(data)) > c.pageSize {
		return fmt.Errorf("%w: page %d offset %d length %d", ErrOutOfPage, idx, off, len(data))
	}

	copy(p.data[off:], data)
	p.dirty = true
	c.touch(p)
	return nil
}

// ZeroFrom zeroes page idx from off to its end and marks it dirty,
// fetching the page first if needed.
func (c *Cache) ZeroFrom(ctx context.Context, idx, off int64) error {
	if off < 0 || off > c.pageSize {
		return fmt.Errorf("%w: page %d offset %d", ErrOutOfPage, idx, off)
	}
	if _, err := c.GetPage(ctx, idx); err != nil {
		return err
	}
	p := c.pages[idx]
	clear(p.data[off:])
	p.dirty = true
	return nil
}

// Discard drops every page at or past fromIdx, dirty or not, and records
// that their remote content is stale.
func (c *Cache) Discard(fromIdx int64) int {
	if fromIdx < 0 {
		fromIdx = 0
	}

	dropped := 0
	for idx := range c.pages {
		if idx >= fromIdx {
			delete(c.pages, idx)
			dropped++
		}
	}
	if fromIdx < c.zeroFrom {
		c.zeroFrom = fromIdx
	}
	if fromIdx < c.remoteEnd {
		if c.staleLo >= c.staleHi {
			c.staleLo, c.staleHi = fromIdx, c.remoteEnd
		} else {
			c.staleLo = min(c.staleLo, fromIdx)
			c.staleHi = max(c.staleHi, c.remoteEnd)
		}
	}
	c.written.truncate(fromIdx)

	if dropped > 0 {
		logger.Debug("pagecache: discarded pages",
			logger.KeyKey, c.key, logger.KeyFirstZero, fromIdx, logger.KeyEvicted, dropped)
	}
	c.recordResidency()
	return dropped
}

// Release drops every page and returns how many were still dirty.
func (c *Cache) Release() int {
	dirty := c.dirtyCount()
	clear(c.pages)
	c.recordResidency()
	return dirty
}

func (c *Cache) touch(p *page) {
	c.seq++
	p.lastUse = c.seq
}

func (c *Cache) dirtyCount() int {
	n := 0
	for _, p := range c.pages {
		if p.dirty {
			n++
		}
	}
	return n
}

func (c *Cache) recordResidency() {
	if c.metrics != nil {
		c.metrics.RecordResidency(len(c.pages), c.dirtyCount())
	}
}

func ceilDiv(a, b int64) int64 {
	if a <= 0 {
		return 0
	}
	return (a + b - 1) / b
}
