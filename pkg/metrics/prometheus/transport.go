package prometheus

import (
	"sync"
	"time"

	"github.com/marmos91/h5s3/pkg/metrics"
	"github.com/marmos91/h5s3/pkg/transport"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func init() {
	metrics.RegisterTransportMetricsConstructor(NewTransportMetrics)
}

// transportMetrics is the Prometheus implementation of transport.Metrics.
type transportMetrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	bytes    *prometheus.CounterVec
}

var (
	transportMu  sync.Mutex
	transportReg *prometheus.Registry
	transportM   *transportMetrics
)

// NewTransportMetrics creates Prometheus-backed transport metrics. All
// callers on one registry share the same collectors.
//
// Returns nil if metrics are not enabled (InitRegistry not called).
func NewTransportMetrics() transport.Metrics {
	reg := metrics.GetRegistry()
	if reg == nil {
		return nil
	}

	transportMu.Lock()
	defer transportMu.Unlock()

	if transportM != nil && transportReg == reg {
		return transportM
	}

	transportReg = reg
	transportM = &transportMetrics{
		requests: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "h5s3_transport_requests_total",
				Help: "Object transport requests by backend, operation and outcome",
			},
			[]string{"backend", "operation", "outcome"},
		),
		duration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "h5s3_transport_request_duration_milliseconds",
				Help: "Duration of object transport requests in milliseconds",
				Buckets: []float64{
					1,     // local backends
					5,     // 5ms
					10,    // 10ms - same-region object store
					50,    // 50ms
					100,   // 100ms
					500,   // 500ms - large pages
					1000,  // 1s
					5000,  // 5s
					30000, // 30s
				},
			},
			[]string{"backend", "operation"},
		),
		bytes: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "h5s3_transport_bytes_total",
				Help: "Payload bytes moved by object transport requests",
			},
			[]string{"backend", "operation"},
		),
	}
	return transportM
}

func (m *transportMetrics) ObserveRequest(backend, op, outcome string, bytes int, d time.Duration) {
	if m == nil {
		return
	}

	m.requests.WithLabelValues(backend, op, outcome).Inc()
	m.duration.WithLabelValues(backend, op).Observe(d.Seconds() * 1000)
	if bytes > 0 {
		m.bytes.WithLabelValues(backend, op).Add(float64(bytes))
	}
}
