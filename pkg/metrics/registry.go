// Package metrics is the enable/disable gate and shared Prometheus
// registry for every metrics implementation in this module. Kept as
// its own leaf package (mirroring the teacher's pkg/metrics) so
// pkg/metrics/prometheus can register collectors without internal/
// session or pkg/zk needing to know whether metrics are enabled at
// all: pass a nil ClientMetrics and every call site becomes a no-op.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	enabled  bool
	registry *prometheus.Registry
)

// InitRegistry enables metrics collection and creates the shared
// registry every pkg/metrics/prometheus constructor registers against.
// Call once, before constructing any *Metrics implementation.
func InitRegistry() *prometheus.Registry {
	enabled = true
	registry = prometheus.NewRegistry()
	return registry
}

// IsEnabled reports whether InitRegistry has been called.
func IsEnabled() bool {
	return enabled
}

// GetRegistry returns the shared registry. Only valid after
// InitRegistry; callers gate on IsEnabled first.
func GetRegistry() *prometheus.Registry {
	return registry
}
