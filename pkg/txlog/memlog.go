package txlog

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// memRecord is one appended transaction record together with the
// synthetic transaction ID assigned at append time, useful for
// correlating log lines in tests without a real on-disk log.
type memRecord struct {
	txID    string
	header  EntryHeader
	payload []byte
}

// MemLog is a pure in-memory transaction log. It backs the bulk of the
// sync engine's unit tests: no real mmap, no filesystem, append-only
// within a process.
type MemLog struct {
	mu            sync.Mutex
	logFileSeq    uint32
	records       []memRecord
	maxTailOffset uint64
	generation    int
}

// NewMemLog creates an empty in-memory log at the given sequence number.
func NewMemLog(logFileSeq uint32) *MemLog {
	return &MemLog{logFileSeq: logFileSeq}
}

// Append adds a transaction record to the log and returns its assigned
// offset (the running byte count, 4-byte aligned as real logs require).
func (l *MemLog) Append(recordType RecordType, external bool, payload []byte) uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()

	typ := uint32(recordType)
	if external {
		typ |= FlagExternal
	}

	offset := l.nextOffsetLocked()
	l.records = append(l.records, memRecord{
		txID: uuid.NewString(),
		header: EntryHeader{
			Type: typ,
			Size: alignedSize(len(payload)),
		},
		payload: payload,
	})
	return offset
}

// Reset truncates the log and begins a fresh generation at the given
// sequence number, simulating log rotation observed mid-sync.
func (l *MemLog) Reset(logFileSeq uint32) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.logFileSeq = logFileSeq
	l.records = nil
	l.generation++
}

// SetMaxTailOffset sets the value View.MaxTailOffset will report.
func (l *MemLog) SetMaxTailOffset(offset uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.maxTailOffset = offset
}

func (l *MemLog) nextOffsetLocked() uint64 {
	var off uint64
	for _, r := range l.records {
		off += entryHeaderSize + uint64(r.header.Size)
	}
	return off
}

// entryHeaderSize is the on-the-wire size of an EntryHeader: two
// little-endian uint32 fields.
const entryHeaderSize = 8

// alignedSize rounds a payload length up to a 4-byte boundary.
func alignedSize(n int) uint32 {
	return uint32((n + 3) &^ 3)
}

// CurrentLogFileSeq implements Reader.
func (l *MemLog) CurrentLogFileSeq(ctx context.Context) (uint32, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.logFileSeq, nil
}

// OpenView implements Reader.
func (l *MemLog) OpenView(ctx context.Context, logFileSeq uint32, offset uint64) (View, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if logFileSeq != l.logFileSeq {
		return nil, ErrLogNotFound
	}

	idx, pos := 0, uint64(0)
	for idx < len(l.records) && pos < offset {
		pos += entryHeaderSize + uint64(l.records[idx].header.Size)
		idx++
	}
	if pos != offset {
		return nil, ErrLogNotFound
	}

	return &memView{log: l, idx: idx, offset: pos, openGen: l.generation}, nil
}

// memView is MemLog's View implementation.
type memView struct {
	log     *MemLog
	idx     int
	offset  uint64
	openGen int
}

func (v *memView) Next(ctx context.Context) (Entry, bool, error) {
	v.log.mu.Lock()
	defer v.log.mu.Unlock()

	if v.idx >= len(v.log.records) {
		return Entry{}, false, nil
	}

	rec := v.log.records[v.idx]
	entry := Entry{
		Header:     rec.header,
		Payload:    rec.payload,
		LogFileSeq: v.log.logFileSeq,
		Offset:     v.offset,
	}

	v.offset += entryHeaderSize + uint64(rec.header.Size)
	v.idx++
	return entry, true, nil
}

func (v *memView) Reset() bool {
	v.log.mu.Lock()
	defer v.log.mu.Unlock()

	if v.openGen != v.log.generation {
		v.openGen = v.log.generation
		return true
	}
	return false
}

func (v *memView) MaxTailOffset() uint64 {
	v.log.mu.Lock()
	defer v.log.mu.Unlock()
	return v.log.maxTailOffset
}

func (v *memView) Close() error {
	return nil
}

var _ Reader = (*MemLog)(nil)
var _ View = (*memView)(nil)
