package logger

import (
	"context"
	"time"
)

// contextKey is a private type for context keys to avoid collisions
type contextKey struct{}

// logContextKey is the key for LogContext in context.Context
var logContextKey = contextKey{}

// LogContext holds sync-scoped logging context: which mailbox index is
// being synced, and where in the transaction log the current record sits.
type LogContext struct {
	TraceID    string    // OpenTelemetry-style trace ID, if tracing is wired in by the caller
	IndexPath  string    // path of the index file being synced
	IndexID    uint32    // header.indexid of the map being synced
	LogFileSeq uint32    // transaction log sequence currently being replayed
	LogOffset  uint64    // byte offset within LogFileSeq of the current record
	StartTime  time.Time // for duration calculation
}

// WithContext returns a new context with the given LogContext.
func WithContext(ctx context.Context, lc *LogContext) context.Context {
	return context.WithValue(ctx, logContextKey, lc)
}

// FromContext retrieves the LogContext from context, or nil if not present.
func FromContext(ctx context.Context) *LogContext {
	if ctx == nil {
		return nil
	}
	lc, _ := ctx.Value(logContextKey).(*LogContext)
	return lc
}

// NewLogContext creates a new LogContext for a sync session against the
// given index path.
func NewLogContext(indexPath string) *LogContext {
	return &LogContext{
		IndexPath: indexPath,
		StartTime: time.Now(),
	}
}

// Clone creates a copy of the LogContext.
func (lc *LogContext) Clone() *LogContext {
	if lc == nil {
		return nil
	}
	return &LogContext{
		TraceID:    lc.TraceID,
		IndexPath:  lc.IndexPath,
		IndexID:    lc.IndexID,
		LogFileSeq: lc.LogFileSeq,
		LogOffset:  lc.LogOffset,
		StartTime:  lc.StartTime,
	}
}

// WithPosition returns a copy with the current log position set.
func (lc *LogContext) WithPosition(logFileSeq uint32, logOffset uint64) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.LogFileSeq = logFileSeq
		clone.LogOffset = logOffset
	}
	return clone
}

// WithIndexID returns a copy with the index ID set.
func (lc *LogContext) WithIndexID(indexID uint32) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.IndexID = indexID
	}
	return clone
}

// WithTrace returns a copy with trace info set.
func (lc *LogContext) WithTrace(traceID string) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.TraceID = traceID
	}
	return clone
}

// DurationMs returns the duration since StartTime in milliseconds
func (lc *LogContext) DurationMs() float64 {
	if lc == nil || lc.StartTime.IsZero() {
		return 0
	}
	return float64(time.Since(lc.StartTime).Microseconds()) / 1000.0
}
