// Package metrics is a thin, optional indirection over Prometheus: the
// core sync packages depend only on the SyncMetrics interface here, never
// on prometheus/client_golang directly, so metrics stay a pluggable
// concern rather than a hard dependency of the engine.
package metrics

import (
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registry *prometheus.Registry
	enabled  atomic.Bool
)

// InitRegistry enables metrics collection and creates the Prometheus
// registry components register against. Safe to call once at process
// startup; a nil registry until then means every constructor in this
// package returns nil, so instrumentation calls become no-ops.
func InitRegistry() *prometheus.Registry {
	registry = prometheus.NewRegistry()
	enabled.Store(true)
	return registry
}

// IsEnabled reports whether InitRegistry has been called.
func IsEnabled() bool {
	return enabled.Load()
}

// GetRegistry returns the active registry, or nil if metrics aren't
// enabled.
func GetRegistry() *prometheus.Registry {
	return registry
}
