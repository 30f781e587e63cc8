package syncengine

import "fmt"

// ErrorCode categorizes a corruption report the sync loop raised while
// applying one transaction record. It never aborts the sync pass by
// itself — the driver's best-effort replay policy continues past it
// and lets the caller decide whether to invoke fsck.
type ErrorCode int

const (
	// ErrCounterViolation: SEEN/DELETED counts would underflow or
	// exceed messages_count.
	ErrCounterViolation ErrorCode = iota

	// ErrUIDViolation: append with uid < next_uid, or a flag update
	// referencing uid >= next_uid.
	ErrUIDViolation

	// ErrFraming: an EXT_* or HEADER_UPDATE sub-record extends past
	// its payload.
	ErrFraming

	// ErrMissingExtContext: EXT_REC_UPDATE or EXT_ATOMIC_INC with no
	// preceding EXT_INTRO establishing the current extension.
	ErrMissingExtContext

	// ErrUnknownType: header.type & TypeMask is not recognized.
	ErrUnknownType

	// ErrSizeViolation: EXT_RESET shorter than the legacy minimum.
	ErrSizeViolation
)

func (c ErrorCode) String() string {
	switch c {
	case ErrCounterViolation:
		return "counter_violation"
	case ErrUIDViolation:
		return "uid_violation"
	case ErrFraming:
		return "framing"
	case ErrMissingExtContext:
		return "missing_ext_context"
	case ErrUnknownType:
		return "unknown_type"
	case ErrSizeViolation:
		return "size_violation"
	default:
		return "unknown"
	}
}

// SyncError is a corruption report carrying the log position of the
// record that triggered it, for diagnostics and fsck handoff.
type SyncError struct {
	Code       ErrorCode
	Message    string
	LogFileSeq uint32
	LogOffset  uint64
}

// Error implements the error interface.
func (e *SyncError) Error() string {
	return fmt.Sprintf("%s at seq=%d offset=%d: %s", e.Code, e.LogFileSeq, e.LogOffset, e.Message)
}

func newSyncError(code ErrorCode, logFileSeq uint32, logOffset uint64, format string, args ...any) *SyncError {
	return &SyncError{
		Code:       code,
		Message:    fmt.Sprintf(format, args...),
		LogFileSeq: logFileSeq,
		LogOffset:  logOffset,
	}
}
