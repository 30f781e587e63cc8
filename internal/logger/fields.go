package logger

import (
	"log/slog"
)

// Standard field keys for structured logging across the sync engine.
// Use these keys consistently across all log statements for log aggregation and querying.
const (
	// ========================================================================
	// Distributed Tracing
	// ========================================================================
	KeyTraceID = "trace_id" // OpenTelemetry-style trace ID, if the caller wires in tracing
	KeySpanID  = "span_id"  // OpenTelemetry-style span ID

	// ========================================================================
	// Index & Log Position
	// ========================================================================
	KeyIndexPath  = "index_path"   // path of the index file being synced
	KeyIndexID    = "index_id"     // header.indexid of the map being synced
	KeyLogFileSeq = "log_file_seq" // transaction log sequence currently being replayed
	KeyLogOffset  = "log_offset"   // byte offset within log_file_seq of the current record

	// ========================================================================
	// Record Map
	// ========================================================================
	KeyUID           = "uid"            // message UID
	KeySeq           = "seq"            // record sequence number within the map
	KeyRecordCount   = "record_count"   // total records in the map
	KeyMessageCount  = "message_count"  // messages_count from the index header
	KeyRecordSize    = "record_size"    // fixed record size in bytes
	KeyModseq        = "modseq"         // highest-modseq / modseq value being applied

	// ========================================================================
	// Extension Engine
	// ========================================================================
	KeyExtID      = "ext_id"      // extension map index (cur_ext_map_idx)
	KeyExtName    = "ext_name"    // extension name
	KeyExtRecSize = "ext_rec_size" // per-record extension payload size

	// ========================================================================
	// Filter Matcher / Merger
	// ========================================================================
	KeyFilterName        = "filter_name"        // config filter parser identifier
	KeyFilterSpecificity = "filter_specificity"  // computed specificity rank of a matched filter
	KeyFilterLocalName   = "filter_local_name"   // local_name filter clause
	KeyFilterService     = "filter_service"      // service filter clause

	// ========================================================================
	// Transaction Record Type
	// ========================================================================
	KeyRecordType = "record_type" // transaction log record type being applied

	// ========================================================================
	// Operation Metadata
	// ========================================================================
	KeyDurationMs = "duration_ms" // operation duration in milliseconds
	KeyError      = "error"       // error message
	KeyErrorCode  = "error_code"  // numeric/named error code
	KeySource     = "source"      // component/source of a log event
	KeyOperation  = "operation"   // sub-operation name

	// ========================================================================
	// I/O
	// ========================================================================
	KeyOffset       = "offset"        // byte offset for a read/write
	KeyBytesRead    = "bytes_read"    // actual bytes read
	KeyBytesWritten = "bytes_written" // actual bytes written
	KeySize         = "size"          // size in bytes

	// ========================================================================
	// Retry / fsck
	// ========================================================================
	KeyAttempt    = "attempt"     // retry attempt number
	KeyMaxRetries = "max_retries" // maximum retry attempts
)

// ============================================================================
// Field constructors for type safety
// ============================================================================

// TraceID returns a slog.Attr for the trace ID.
func TraceID(id string) slog.Attr {
	return slog.String(KeyTraceID, id)
}

// SpanID returns a slog.Attr for the span ID.
func SpanID(id string) slog.Attr {
	return slog.String(KeySpanID, id)
}

// IndexPath returns a slog.Attr for the index file path.
func IndexPath(p string) slog.Attr {
	return slog.String(KeyIndexPath, p)
}

// IndexID returns a slog.Attr for the index header ID.
func IndexID(id uint32) slog.Attr {
	return slog.Any(KeyIndexID, id)
}

// LogFileSeq returns a slog.Attr for the transaction log sequence number.
func LogFileSeq(seq uint32) slog.Attr {
	return slog.Any(KeyLogFileSeq, seq)
}

// LogOffset returns a slog.Attr for a transaction log byte offset.
func LogOffset(off uint64) slog.Attr {
	return slog.Uint64(KeyLogOffset, off)
}

// UID returns a slog.Attr for a message UID.
func UID(uid uint32) slog.Attr {
	return slog.Any(KeyUID, uid)
}

// Seq returns a slog.Attr for a record sequence number.
func Seq(seq uint32) slog.Attr {
	return slog.Any(KeySeq, seq)
}

// RecordCount returns a slog.Attr for a record map's total record count.
func RecordCount(n uint32) slog.Attr {
	return slog.Any(KeyRecordCount, n)
}

// MessageCount returns a slog.Attr for the header's message count.
func MessageCount(n uint32) slog.Attr {
	return slog.Any(KeyMessageCount, n)
}

// RecordSize returns a slog.Attr for the fixed record size.
func RecordSize(n uint16) slog.Attr {
	return slog.Any(KeyRecordSize, n)
}

// Modseq returns a slog.Attr for a modseq value.
func Modseq(m uint64) slog.Attr {
	return slog.Uint64(KeyModseq, m)
}

// ExtID returns a slog.Attr for an extension map index.
func ExtID(id int) slog.Attr {
	return slog.Int(KeyExtID, id)
}

// ExtName returns a slog.Attr for an extension name.
func ExtName(name string) slog.Attr {
	return slog.String(KeyExtName, name)
}

// ExtRecSize returns a slog.Attr for an extension's per-record payload size.
func ExtRecSize(n uint16) slog.Attr {
	return slog.Any(KeyExtRecSize, n)
}

// FilterName returns a slog.Attr for a config filter parser identifier.
func FilterName(name string) slog.Attr {
	return slog.String(KeyFilterName, name)
}

// FilterSpecificity returns a slog.Attr for a computed filter specificity rank.
func FilterSpecificity(rank int) slog.Attr {
	return slog.Int(KeyFilterSpecificity, rank)
}

// RecordType returns a slog.Attr for a transaction record type name.
func RecordType(t string) slog.Attr {
	return slog.String(KeyRecordType, t)
}

// DurationMs returns a slog.Attr for a duration in milliseconds.
func DurationMs(ms float64) slog.Attr {
	return slog.Float64(KeyDurationMs, ms)
}

// Err returns a slog.Attr for an error.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String(KeyError, err.Error())
}

// ErrorCode returns a slog.Attr for a named error code.
func ErrorCode(code string) slog.Attr {
	return slog.String(KeyErrorCode, code)
}

// Source returns a slog.Attr for a component/source name.
func Source(src string) slog.Attr {
	return slog.String(KeySource, src)
}

// Operation returns a slog.Attr for a sub-operation name.
func Operation(op string) slog.Attr {
	return slog.String(KeyOperation, op)
}

// Offset returns a slog.Attr for a byte offset.
func Offset(off uint64) slog.Attr {
	return slog.Uint64(KeyOffset, off)
}

// BytesRead returns a slog.Attr for actual bytes read.
func BytesRead(n int) slog.Attr {
	return slog.Int(KeyBytesRead, n)
}

// BytesWritten returns a slog.Attr for actual bytes written.
func BytesWritten(n int) slog.Attr {
	return slog.Int(KeyBytesWritten, n)
}

// Size returns a slog.Attr for a size in bytes.
func Size(s uint64) slog.Attr {
	return slog.Uint64(KeySize, s)
}

// Attempt returns a slog.Attr for a retry attempt number.
func Attempt(n int) slog.Attr {
	return slog.Int(KeyAttempt, n)
}

// MaxRetries returns a slog.Attr for the maximum retry attempts.
func MaxRetries(n int) slog.Attr {
	return slog.Int(KeyMaxRetries, n)
}
