package pagecache

import (
	"context"
	"errors"
	"fmt"
	"slices"
)

// FlushPage writes page idx back when it is resident and dirty. On failure
// the page stays dirty and the error wraps ErrStorageUnavailable.
func (c *Cache) FlushPage(ctx context.Context, idx int64) error {
	p, ok := c.pages[idx]
	if !ok || !p.dirty {
		return nil
	}
	if err := c.writeBack(ctx, p); err != nil {
		return fmt.Errorf("%w: flush page %d of %s: %w", ErrStorageUnavailable, idx, c.key, err)
	}
	return nil
}

// FlushAll writes back every dirty page in ascending index order. It keeps
// going after a failure so independent pages still reach storage, and
// returns the joined errors of the pages that remain dirty.
func (c *Cache) FlushAll(ctx context.Context) error {
	dirty := c.DirtyPages()

	var errs []error
	for _, idx := range dirty {
		if err := c.FlushPage(ctx, idx); err != nil {
			errs = append(errs, err)
		}
	}
	c.recordResidency()
	return errors.Join(errs...)
}

// DirtyPages returns the indices of dirty pages in ascending order.
func (c *Cache) DirtyPages() []int64 {
	out := make([]int64, 0, len(c.pages))
	for idx, p := range c.pages {
		if p.dirty {
			out = append(out, idx)
		}
	}
	slices.Sort(out)
	return out
}

// writeBack PUTs the full page. Only a successful PUT clears the dirty
// flag.
func (c *Cache) writeBack(ctx context.Context, p *page) error {
	err := c.t.PutRange(ctx, c.key, p.index*c.pageSize, p.data)
	if c.metrics != nil {
		c.metrics.RecordWriteBack(err == nil)
	}
	if err != nil {
		c.stats.Failures++
		return err
	}

	p.dirty = false
	c.stats.WriteBacks++
	c.noteWritten(p.index)
	return nil
}

func (c *Cache) noteWritten(idx int64) {
	if idx >= c.zeroFrom {
		c.written.add(idx)
		if hi, ok := c.written.popRunAt(c.zeroFrom); ok {
			c.zeroFrom = hi
		}
	}
	if idx >= c.remoteEnd {
		c.remoteEnd = idx + 1
	}
}

// ZeroStale overwrites with zeros every discarded page below endIdx whose
// old content may still be stored remotely, so that a reader trusting a
// logical size of endIdx pages sees zeros there. Dirty pages are left to
// FlushAll. It returns the number of pages written.
func (c *Cache) ZeroStale(ctx context.Context, endIdx int64) (int, error) {
	hi := min(endIdx, c.staleHi)
	if c.staleLo >= hi {
		return 0, nil
	}

	var zero []byte
	n := 0
	for idx := c.staleLo; idx < hi; idx++ {
		// pages below zeroFrom or in written were flushed after the discard
		if !c.knownZero(idx) || c.IsDirty(idx) {
			continue
		}
		if zero == nil {
			zero = make([]byte, c.pageSize)
		}
		err := c.t.PutRange(ctx, c.key, idx*c.pageSize, zero)
		if c.metrics != nil {
			c.metrics.RecordWriteBack(err == nil)
		}
		if err != nil {
			c.stats.Failures++
			c.staleLo = idx
			return n, fmt.Errorf("%w: zero stale page %d of %s: %w", ErrStorageUnavailable, idx, c.key, err)
		}
		c.stats.WriteBacks++
		c.noteWritten(idx)
		n++
	}

	if hi == c.staleHi {
		c.staleLo, c.staleHi = 0, 0
	} else {
		c.staleLo = hi
	}
	return n, nil
}
