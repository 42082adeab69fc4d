package metrics

import (
	"github.com/marmos91/zkgo/internal/session"
)

// ClientMetrics is an alias for the session package's observability
// hook, re-exported here so callers configure metrics through
// pkg/metrics the same way the teacher's adapters configure theirs
// (pkg/metrics.NewXMetrics()), rather than reaching into internal/session
// directly.
type ClientMetrics = session.Metrics

// NewClientMetrics returns a Prometheus-backed ClientMetrics, or nil
// (zero overhead, per the teacher's "pass nil to disable" convention)
// if InitRegistry has not been called.
//
// Example usage:
//
//	metrics.InitRegistry()
//	m := metrics.NewClientMetrics()
//	client, err := zk.Dial(ctx, "localhost:2181", zk.WithMetrics(m))
func NewClientMetrics() ClientMetrics {
	if !IsEnabled() {
		return nil
	}
	return newPrometheusClientMetrics()
}

// newPrometheusClientMetrics is implemented in
// pkg/metrics/prometheus/client.go. The indirection avoids an import
// cycle between pkg/metrics and pkg/metrics/prometheus, mirroring the
// teacher's NewCacheMetrics/RegisterCacheMetricsConstructor pattern.
var newPrometheusClientMetrics func() ClientMetrics

// RegisterClientMetricsConstructor is called by
// pkg/metrics/prometheus's init() to install the real constructor.
func RegisterClientMetricsConstructor(constructor func() ClientMetrics) {
	newPrometheusClientMetrics = constructor
}
