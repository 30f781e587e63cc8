package metrics

import "github.com/marmos91/mailidx/pkg/syncengine"

// NewSyncMetrics creates a new Prometheus-backed SyncMetrics instance.
//
// Returns nil if metrics are not enabled (InitRegistry not called). When
// nil is returned, callers should pass nil to syncengine.Driver, which
// results in zero overhead.
func NewSyncMetrics() syncengine.SyncMetrics {
	if !IsEnabled() {
		return nil
	}
	return newPrometheusSyncMetrics()
}

// newPrometheusSyncMetrics is implemented in
// pkg/metrics/prometheus/sync.go; the indirection avoids an import cycle
// between this package and the prometheus subpackage.
var newPrometheusSyncMetrics func() syncengine.SyncMetrics

// RegisterSyncMetricsConstructor registers the Prometheus sync metrics
// constructor. Called by pkg/metrics/prometheus/sync.go during package
// initialization.
func RegisterSyncMetricsConstructor(constructor func() syncengine.SyncMetrics) {
	newPrometheusSyncMetrics = constructor
}

// ObserveDrive reports the outcome of one Driver.Run pass.
func ObserveDrive(m syncengine.SyncMetrics, recordsApplied int, corrupted, fsckInvoked bool) {
	if m == nil {
		return
	}
	m.RecordsApplied(recordsApplied)
	if corrupted {
		m.CorruptionEvent()
	}
	if fsckInvoked {
		m.FsckInvoked()
	}
}

// RecordHeadOffsetLag reports how far log_file_head_offset trails the
// log's current tail, for the caller to export as a lag gauge.
func RecordHeadOffsetLag(m syncengine.SyncMetrics, lagBytes uint64) {
	if m != nil {
		m.SetHeadOffsetLag(lagBytes)
	}
}
