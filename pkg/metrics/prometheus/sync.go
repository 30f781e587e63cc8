package prometheus

import (
	"github.com/marmos91/mailidx/pkg/metrics"
	"github.com/marmos91/mailidx/pkg/syncengine"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// syncMetrics is the Prometheus implementation of syncengine.SyncMetrics.
type syncMetrics struct {
	recordsApplied   prometheus.Counter
	corruptionEvents prometheus.Counter
	fsckInvocations  prometheus.Counter
	headOffsetLag    prometheus.Gauge
}

// NewSyncMetrics creates a new Prometheus-backed SyncMetrics instance.
//
// Returns nil if metrics are not enabled (InitRegistry not called).
func NewSyncMetrics() syncengine.SyncMetrics {
	if !metrics.IsEnabled() {
		return nil
	}

	reg := metrics.GetRegistry()

	return &syncMetrics{
		recordsApplied: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "mailidx_sync_records_applied_total",
			Help: "Total number of transaction log records applied by the sync driver",
		}),
		corruptionEvents: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "mailidx_sync_corruption_events_total",
			Help: "Total number of sync passes that observed corruption",
		}),
		fsckInvocations: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "mailidx_sync_fsck_invocations_total",
			Help: "Total number of sync passes that invoked the repairer",
		}),
		headOffsetLag: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "mailidx_sync_log_file_head_offset_lag_bytes",
			Help: "Bytes by which log_file_head_offset trails the log's current tail after the last sync pass",
		}),
	}
}

func (m *syncMetrics) RecordsApplied(n int) {
	if m == nil {
		return
	}
	m.recordsApplied.Add(float64(n))
}

func (m *syncMetrics) CorruptionEvent() {
	if m == nil {
		return
	}
	m.corruptionEvents.Inc()
}

func (m *syncMetrics) FsckInvoked() {
	if m == nil {
		return
	}
	m.fsckInvocations.Inc()
}

func (m *syncMetrics) SetHeadOffsetLag(bytes uint64) {
	if m == nil {
		return
	}
	m.headOffsetLag.Set(float64(bytes))
}

func init() {
	metrics.RegisterSyncMetricsConstructor(NewSyncMetrics)
}
