// Package txlog defines the transaction log reader contract the sync
// driver replays against, plus two reference implementations: MmapLog
// (a real mmap-backed append-only log) and MemLog (a pure in-memory
// log used by the bulk of the engine's tests).
package txlog

import (
	"context"
	"errors"
)

// RecordType identifies the kind of mutation a transaction record carries,
// taken from header.Type & TypeMask.
type RecordType uint32

const (
	TypeAppend RecordType = iota + 1
	TypeExpunge
	TypeExpungeGuid
	TypeFlagUpdate
	TypeHeaderUpdate
	TypeExtIntro
	TypeExtReset
	TypeExtHdrUpdate
	TypeExtHdrUpdate32
	TypeExtRecUpdate
	TypeExtAtomicInc
	TypeKeywordUpdate
	TypeKeywordReset
	TypeModseqUpdate
	TypeIndexDeleted
	TypeIndexUndeleted
	TypeBoundary
	TypeAttributeUpdate
)

// Header-level bits layered on top of the RecordType in the low byte.
const (
	TypeMask       uint32 = 0x000000FF
	FlagExternal   uint32 = 0x00000100 // a completed change, as opposed to a request
	FlagExpungeProt uint32 = 0x00000200
)

// EntryHeader is the fixed framing every transaction record carries,
// independent of backing store: a type+flags word and a payload size.
type EntryHeader struct {
	Type uint32 // RecordType in the low byte, flag bits above
	Size uint32 // payload length in bytes, 4-byte aligned
}

// RecordType extracts the record type from the header, discarding flag bits.
func (h EntryHeader) RecordType() RecordType {
	return RecordType(h.Type & TypeMask)
}

// External reports whether the EXTERNAL bit is set.
func (h EntryHeader) External() bool {
	return h.Type&FlagExternal != 0
}

// Entry is one transaction record yielded by a View, tagged with its
// position in the log so the driver can track log_file_head_offset and
// implement the "already applied" skip check.
type Entry struct {
	Header     EntryHeader
	Payload    []byte
	LogFileSeq uint32
	Offset     uint64 // offset of this entry's header within the log file
}

// SyncKind distinguishes a FILE sync (driven directly against the log
// file, entitled to invoke expunge handlers and advance the tail offset)
// from a VIEW sync (a secondary reader catching up to the head offset).
type SyncKind int

const (
	SyncFile SyncKind = iota
	SyncView
)

var (
	// ErrLogNotFound is returned by OpenView when the requested
	// (logFileSeq, offset) position no longer exists in the log — a
	// non-fatal "lost log" condition the driver reports but does not
	// treat as a hard failure.
	ErrLogNotFound = errors.New("txlog: requested log position not found")
)

// Reader opens positional views onto a transaction log.
type Reader interface {
	// OpenView positions a new View at the given log sequence and byte
	// offset. Returns ErrLogNotFound if that position is no longer
	// present (the log was rotated/pruned past it); any other error is
	// a hard I/O failure.
	OpenView(ctx context.Context, logFileSeq uint32, offset uint64) (View, error)

	// CurrentLogFileSeq reports the sequence number of the log file
	// currently being written, for the driver to adopt when the map's
	// own recorded sequence has gone stale (OpenView reported
	// ErrLogNotFound) and a fresh map must be built against whatever log
	// generation is live now.
	CurrentLogFileSeq(ctx context.Context) (uint32, error)
}

// View is a single replay cursor over a transaction log, opened at a
// fixed starting position.
type View interface {
	// Next returns the next entry past the current position, or
	// ok=false when the view has reached end-of-log (EOL).
	Next(ctx context.Context) (entry Entry, ok bool, err error)

	// Reset reports whether the underlying log was reset (truncated
	// and restarted) since the view was opened. Once observed true for
	// a given view, the driver must install a fresh map.
	Reset() bool

	// MaxTailOffset returns the highest tail offset the log head
	// currently advertises, used by the driver to bound
	// log_file_tail_offset at finalize time.
	MaxTailOffset() uint64

	// Close releases resources held by the view.
	Close() error
}
