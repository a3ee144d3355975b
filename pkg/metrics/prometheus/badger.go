package prometheus

import (
	badgerdb "github.com/dgraph-io/badger/v4"
	"github.com/marmos91/h5s3/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
)

// RegisterBadgerCache exports the block and index cache statistics of db,
// read at scrape time. The returned function unregisters them; call it
// before closing db. With metrics disabled both are no-ops.
func RegisterBadgerCache(db *badgerdb.DB) (unregister func()) {
	reg := metrics.GetRegistry()
	if reg == nil || db == nil {
		return func() {}
	}

	var registered []prometheus.Collector
	add := func(name, help, cacheType string, value func() float64) {
		c := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name:        name,
			Help:        help,
			ConstLabels: prometheus.Labels{"cache_type": cacheType},
		}, value)
		if err := reg.Register(c); err == nil {
			registered = append(registered, c)
		}
	}

	for _, cacheType := range []string{"block", "index"} {
		stats := db.BlockCacheMetrics
		if cacheType == "index" {
			stats = db.IndexCacheMetrics
		}
		add("h5s3_badger_cache_hit_ratio", "Badger cache hit ratio (0.0 to 1.0) by cache type", cacheType,
			func() float64 { return stats().Ratio() })
		add("h5s3_badger_cache_hits", "Badger cache hits by cache type", cacheType,
			func() float64 { return float64(stats().Hits()) })
		add("h5s3_badger_cache_misses", "Badger cache misses by cache type", cacheType,
			func() float64 { return float64(stats().Misses()) })
	}

	return func() {
		for _, c := range registered {
			reg.Unregister(c)
		}
	}
}
