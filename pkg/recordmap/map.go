package recordmap

import (
	"sync"
	"sync/atomic"
)

// Sibling is a weak back-reference held by a Map: an owner (typically
// an *indexmap.Map) that shares this record buffer and must be notified
// when a flag update changes a counted bit so its header counters stay
// in sync. The registry never owns a Sibling and never prunes one by
// garbage collection: an entry is removed only by UnregisterSibling,
// which indexmap.Map.PromoteToPrivate calls when an owner moves to a
// private copy. Releasing an owner does not remove its entry.
type Sibling interface{}

// SeqRange is an inclusive, 1-based sequence range, e.g. as produced by
// translating a UID range from an EXPUNGE transaction record.
type SeqRange struct {
	Start, End uint32
}

// Map is the record array: a densely packed, fixed-size-record byte
// buffer, always heap-allocated. It may be shared (referenced by more
// than one indexmap.Map) or private (exclusively owned). The
// first mutating operation on a shared Map must promote it to a
// private copy first.
type Map struct {
	mu              sync.RWMutex
	recordSize      uint16
	buf             []byte
	count           uint32 // records_count: may exceed messages_count during append staging
	lastAppendedUID uint32

	refcount atomic.Int32 // number of owners currently sharing this *Map

	siblingsMu sync.Mutex
	siblings   []Sibling
}

// New creates an empty, private record map with the given fixed record
// size in bytes.
func New(recordSize uint16) *Map {
	m := &Map{recordSize: recordSize}
	m.refcount.Store(1)
	return m
}

// RecordSize returns the fixed per-record size in bytes.
func (m *Map) RecordSize() uint16 {
	return m.recordSize
}

// Len returns the current record count (records_count).
func (m *Map) Len() uint32 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.count
}

// LastAppendedUID returns the UID of the most recently appended record,
// used to recognize re-applies of an already-staged append.
func (m *Map) LastAppendedUID() uint32 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastAppendedUID
}

// RecordAt returns a view over the record at the given 1-based sequence
// number. The returned Record aliases the backing buffer and must not
// be retained across a call to Append, which may reallocate it.
func (m *Map) RecordAt(seq uint32) Record {
	m.mu.RLock()
	defer m.mu.RUnlock()
	off := uint64(seq-1) * uint64(m.recordSize)
	return Record(m.buf[off : off+uint64(m.recordSize)])
}

// Append adds a new record with the given uid and flags, zero-filling
// every extension-defined byte beyond the fixed prefix, and returns its
// new sequence number.
func (m *Map) Append(uid uint32, flags uint8) uint32 {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec := make([]byte, m.recordSize)
	Record(rec).SetUID(uid)
	Record(rec).SetFlags(flags)

	m.buf = append(m.buf, rec...)
	m.count++
	m.lastAppendedUID = uid
	return m.count
}

// IsShared reports whether more than one owner currently references
// this record map.
func (m *Map) IsShared() bool {
	return m.refcount.Load() > 1
}

// CloneShared returns this same record map with its owner refcount
// incremented — the record buffer is not copied. Callers must promote
// to a private copy before mutating while IsShared() is true.
func (m *Map) CloneShared() *Map {
	m.refcount.Add(1)
	return m
}

// Release decrements the owner refcount, typically called by an
// indexmap.Map that is switching to a freshly promoted private copy.
func (m *Map) Release() {
	m.refcount.Add(-1)
}

// MakePrivateCopy returns a brand-new, exclusively owned Map with a
// fresh copy of the current record bytes. The caller is responsible for
// releasing its reference to the old (possibly still shared) Map and
// re-registering itself as a sibling of the new one.
func (m *Map) MakePrivateCopy() *Map {
	m.mu.RLock()
	defer m.mu.RUnlock()

	bufCopy := make([]byte, len(m.buf))
	copy(bufCopy, m.buf)

	nm := &Map{
		recordSize:      m.recordSize,
		buf:             bufCopy,
		count:           m.count,
		lastAppendedUID: m.lastAppendedUID,
	}
	nm.refcount.Store(1)
	return nm
}

// RegisterSibling adds a weak back-reference to an owner sharing this
// record map, used for flag-counter fan-out.
func (m *Map) RegisterSibling(s Sibling) {
	m.siblingsMu.Lock()
	defer m.siblingsMu.Unlock()
	m.siblings = append(m.siblings, s)
}

// UnregisterSibling removes a previously registered back-reference.
func (m *Map) UnregisterSibling(s Sibling) {
	m.siblingsMu.Lock()
	defer m.siblingsMu.Unlock()
	for i, x := range m.siblings {
		if x == s {
			m.siblings = append(m.siblings[:i], m.siblings[i+1:]...)
			return
		}
	}
}

// Siblings returns a snapshot of the current back-reference list.
func (m *Map) Siblings() []Sibling {
	m.siblingsMu.Lock()
	defer m.siblingsMu.Unlock()
	out := make([]Sibling, len(m.siblings))
	copy(out, m.siblings)
	return out
}

// CompactExpunge removes the records at the given sequence ranges
// (sorted ascending, non-overlapping, 1-based inclusive), moving
// surviving records down to close the gaps in a single left-to-right
// pass — equivalent to the original's per-range memmove plus final
// straggler move. Returns the number of records removed. Counter
// bookkeeping (SEEN/DELETED decrements) must be done by the caller
// before calling this, since the flags of a record about to be removed
// are no longer available afterward.
func (m *Map) CompactExpunge(ranges []SeqRange) uint32 {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(ranges) == 0 {
		return 0
	}

	rs := uint64(m.recordSize)
	var writePos, readPos, removed, ri uint32

	for readPos < m.count {
		seq := readPos + 1
		if int(ri) < len(ranges) && seq >= ranges[ri].Start && seq <= ranges[ri].End {
			removed++
			readPos++
			if seq == ranges[ri].End {
				ri++
			}
			continue
		}

		if writePos != readPos {
			dst := uint64(writePos) * rs
			src := uint64(readPos) * rs
			copy(m.buf[dst:dst+rs], m.buf[src:src+rs])
		}
		writePos++
		readPos++
	}

	m.buf = m.buf[:uint64(writePos)*rs]
	m.count = writePos
	return removed
}
