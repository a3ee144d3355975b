package metrics

import "github.com/marmos91/h5s3/pkg/transport"

// NewTransportMetrics returns request metrics for object transports, or
// nil when metrics are disabled.
func NewTransportMetrics() transport.Metrics {
	if !IsEnabled() || newTransportMetrics == nil {
		return nil
	}
	return newTransportMetrics()
}

var newTransportMetrics func() transport.Metrics

// RegisterTransportMetricsConstructor registers the transport metrics
// constructor. Called by pkg/metrics/prometheus during initialization.
func RegisterTransportMetricsConstructor(constructor func() transport.Metrics) {
	newTransportMetrics = constructor
}
