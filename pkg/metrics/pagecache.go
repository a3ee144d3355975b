package metrics

import "github.com/marmos91/h5s3/pkg/pagecache"

// NewPageCacheMetrics returns page cache metrics for one handle.
//
// Returns nil if metrics are not enabled (InitRegistry not called) or the
// Prometheus implementation is not linked in. Passing nil to the page
// cache disables collection with zero overhead.
func NewPageCacheMetrics() pagecache.Metrics {
	if !IsEnabled() || newPageCacheMetrics == nil {
		return nil
	}
	return newPageCacheMetrics()
}

// newPageCacheMetrics is set by pkg/metrics/prometheus.
var newPageCacheMetrics func() pagecache.Metrics

// RegisterPageCacheMetricsConstructor registers the page cache metrics
// constructor. Called by pkg/metrics/prometheus during initialization.
func RegisterPageCacheMetricsConstructor(constructor func() pagecache.Metrics) {
	newPageCacheMetrics = constructor
}
