package pagecache

import (
	"context"

	"github.com/marmos91/h5s3/internal/logger"
)

// evictIfOverCapacity brings the resident count back to the capacity.
//
// The least recently used clean page goes first. With no clean candidate
// the least recently used dirty page is written back and then evicted. If
// that write-back fails the page stays dirty and resident and the cache
// remains over capacity until a later flush succeeds.
//
// pinned is never evicted: it is the page the caller is about to use.
func (c *Cache) evictIfOverCapacity(ctx context.Context, pinned int64) {
	for len(c.pages) > c.capacity {
		if victim := c.lru(pinned, false); victim != nil {
			c.evict(victim, false)
			continue
		}

		victim := c.lru(pinned, true)
		if victim == nil {
			return
		}
		if err := c.writeBack(ctx, victim); err != nil {
			logger.WarnCtx(ctx, "pagecache: write-back on evict failed, staying over capacity",
				logger.KeyKey, c.key,
				logger.KeyPage, victim.index,
				logger.KeyResident, len(c.pages),
				logger.KeyCapacity, c.capacity,
				logger.KeyError, err.Error(),
			)
			return
		}
		c.evict(victim, true)
	}
}

// lru returns the least recently used page with the given dirty state,
// excluding pinned.
func (c *Cache) lru(pinned int64, dirty bool) *page {
	var victim *page
	for idx, p := range c.pages {
		if idx == pinned || p.dirty != dirty {
			continue
		}
		if victim == nil || p.lastUse < victim.lastUse {
			victim = p
		}
	}
	return victim
}

func (c *Cache) evict(p *page, wroteBack bool) {
	delete(c.pages, p.index)
	c.stats.Evictions++
	if c.metrics != nil {
		c.metrics.RecordEviction(wroteBack)
	}
	logger.Debug("pagecache: evicted page",
		logger.KeyKey, c.key, logger.KeyPage, p.index, "write_back", wroteBack)
}
