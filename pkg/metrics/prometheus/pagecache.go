package prometheus

import (
	"sync"

	"github.com/marmos91/h5s3/pkg/metrics"
	"github.com/marmos91/h5s3/pkg/pagecache"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func init() {
	metrics.RegisterPageCacheMetricsConstructor(NewPageCacheMetrics)
}

// pageCacheCollectors are shared by every handle on one registry.
type pageCacheCollectors struct {
	lookups    *prometheus.CounterVec
	evictions  *prometheus.CounterVec
	writeBacks *prometheus.CounterVec
	resident   prometheus.Gauge
	dirty      prometheus.Gauge
}

var (
	pageCacheMu   sync.Mutex
	pageCacheReg  *prometheus.Registry
	pageCacheColl *pageCacheCollectors
)

func sharedPageCacheCollectors(reg *prometheus.Registry) *pageCacheCollectors {
	pageCacheMu.Lock()
	defer pageCacheMu.Unlock()

	if pageCacheColl != nil && pageCacheReg == reg {
		return pageCacheColl
	}

	pageCacheReg = reg
	pageCacheColl = &pageCacheCollectors{
		lookups: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "h5s3_pagecache_lookups_total",
				Help: "Page lookups by result",
			},
			[]string{"result"}, // "hit", "fetch", "zero_fill"
		),
		evictions: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "h5s3_pagecache_evictions_total",
				Help: "Pages evicted, by whether a write-back was needed",
			},
			[]string{"kind"}, // "clean", "write_back"
		),
		writeBacks: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "h5s3_pagecache_write_backs_total",
				Help: "Page PUTs issued by the cache, by status",
			},
			[]string{"status"},
		),
		resident: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Name: "h5s3_pagecache_resident_pages",
				Help: "Pages currently held in memory across all handles",
			},
		),
		dirty: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Name: "h5s3_pagecache_dirty_pages",
				Help: "Resident pages with unflushed changes across all handles",
			},
		),
	}
	return pageCacheColl
}

// pageCacheMetrics is one handle's view on the shared collectors. It keeps
// the last residency it reported so the gauges stay a sum over handles.
type pageCacheMetrics struct {
	c *pageCacheCollectors

	mu       sync.Mutex
	resident int
	dirty    int
}

// NewPageCacheMetrics creates Prometheus-backed page cache metrics.
//
// Returns nil if metrics are not enabled (InitRegistry not called).
func NewPageCacheMetrics() pagecache.Metrics {
	reg := metrics.GetRegistry()
	if reg == nil {
		return nil
	}
	return &pageCacheMetrics{c: sharedPageCacheCollectors(reg)}
}

func (m *pageCacheMetrics) RecordHit() {
	m.c.lookups.WithLabelValues("hit").Inc()
}

func (m *pageCacheMetrics) RecordMiss(fetched bool) {
	result := "zero_fill"
	if fetched {
		result = "fetch"
	}
	m.c.lookups.WithLabelValues(result).Inc()
}

func (m *pageCacheMetrics) RecordEviction(writeBack bool) {
	kind := "clean"
	if writeBack {
		kind = "write_back"
	}
	m.c.evictions.WithLabelValues(kind).Inc()
}

func (m *pageCacheMetrics) RecordWriteBack(ok bool) {
	m.c.writeBacks.WithLabelValues(status(ok)).Inc()
}

func (m *pageCacheMetrics) RecordResidency(resident, dirty int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.c.resident.Add(float64(resident - m.resident))
	m.c.dirty.Add(float64(dirty - m.dirty))
	m.resident, m.dirty = resident, dirty
}

func status(ok bool) string {
	if ok {
		return "success"
	}
	return "error"
}
