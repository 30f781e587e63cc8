package syncengine

// SyncMetrics is the out-of-scope metrics collaborator: a narrow
// interface so the driver can report counters without importing
// Prometheus (or anything else) directly. A nil SyncMetrics is always
// safe to pass and results in zero overhead.
type SyncMetrics interface {
	// RecordsApplied reports how many log entries one Driver.Run pass
	// applied (successfully or not).
	RecordsApplied(n int)
	// CorruptionEvent reports one pass that observed corruption.
	CorruptionEvent()
	// FsckInvoked reports one pass that invoked the repairer.
	FsckInvoked()
	// SetHeadOffsetLag reports how many bytes log_file_head_offset
	// trails the log's current tail after finalize.
	SetHeadOffsetLag(bytes uint64)
}
