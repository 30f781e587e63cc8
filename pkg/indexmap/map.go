// Package indexmap implements the Map component (C2): a reference
// counted header plus record-map pairing, with copy-on-write promotion
// to a private copy before any mutation.
package indexmap

import (
	"fmt"
	"sync/atomic"

	"github.com/marmos91/mailidx/pkg/recordmap"
)

// Map is the header + record-map pairing a sync context mutates.
type Map struct {
	Header  Header
	Records *recordmap.Map

	// hdrCopyBuf is the byte-exact header image written back to
	// storage; HEADER_UPDATE records patch it directly, and the struct
	// mirror is kept in sync where byte ranges overlap known fields.
	hdrCopyBuf []byte

	// Extension state tracked across EXT_INTRO/EXT_REC_UPDATE/
	// EXT_ATOMIC_INC dispatch within a single sync pass.
	curExtMapIdx     int // -1 when no extension context is active
	curExtIgnore     bool
	curExtRecordSize uint16

	// DeleteRequested mirrors the INDEX_DELETED/INDEX_UNDELETED flag.
	DeleteRequested bool

	// NoDirty disables the HAVE_DIRTY invariant entirely, mirroring an
	// index opened in NO_DIRTY mode.
	NoDirty bool

	refcount atomic.Int32
}

// NewMap creates a fresh, private, empty Map with the given fixed
// record size.
func NewMap(recordSize uint16) *Map {
	m := &Map{
		Records:      recordmap.New(recordSize),
		curExtMapIdx: -1,
	}
	m.Header.RecordSize = recordSize
	m.Header.BaseHeaderSize = HeaderSize
	m.Header.HeaderSize = HeaderSize
	m.refcount.Store(1)
	m.Records.RegisterSibling(m)
	buf, _ := m.Header.MarshalBinary()
	m.hdrCopyBuf = buf
	return m
}

// Refcount returns the current reference count.
func (m *Map) Refcount() int32 {
	return m.refcount.Load()
}

// Acquire increments the reference count and returns the same Map,
// used when a new View begins referencing it.
func (m *Map) Acquire() *Map {
	m.refcount.Add(1)
	return m
}

// Release decrements the reference count.
func (m *Map) Release() {
	m.refcount.Add(-1)
}

// CurExtMapIdx returns the extension map index currently active
// (EXT_INTRO having set it), or -1 if none.
func (m *Map) CurExtMapIdx() int {
	return m.curExtMapIdx
}

// SetCurExt sets the active extension context, as established by an
// EXT_INTRO record.
func (m *Map) SetCurExt(idx int, ignore bool, recordSize uint16) {
	m.curExtMapIdx = idx
	m.curExtIgnore = ignore
	m.curExtRecordSize = recordSize
}

// ClearCurExt clears the active extension context.
func (m *Map) ClearCurExt() {
	m.curExtMapIdx = -1
	m.curExtIgnore = false
	m.curExtRecordSize = 0
}

// CurExtIgnore reports whether the active extension's updates should
// be ignored (an unrecognized extension whose updates are skipped).
func (m *Map) CurExtIgnore() bool {
	return m.curExtIgnore
}

// CurExtRecordSize returns the active extension's declared per-record
// payload size.
func (m *Map) CurExtRecordSize() uint16 {
	return m.curExtRecordSize
}

// HdrCopyBuf returns the current byte-exact header image.
func (m *Map) HdrCopyBuf() []byte {
	return m.hdrCopyBuf
}

// PatchHdrCopyBuf writes data at the given offset inside hdrCopyBuf.
// It never grows the buffer: a range past its end is returned as an
// error and nothing is written. Callers must bound
// offset+len(data) against Header.BaseHeaderSize themselves (framing
// violation is a corruption, not a panic).
func (m *Map) PatchHdrCopyBuf(offset int, data []byte) error {
	if offset < 0 || offset+len(data) > len(m.hdrCopyBuf) {
		return fmt.Errorf("indexmap: header patch out of bounds: offset=%d len=%d buf=%d", offset, len(data), len(m.hdrCopyBuf))
	}
	copy(m.hdrCopyBuf[offset:], data)
	return nil
}

// SyncHdrCopyBufFromHeader overwrites hdrCopyBuf with the current
// in-memory Header struct's byte-exact image (used at finalize time).
func (m *Map) SyncHdrCopyBufFromHeader() error {
	buf, err := m.Header.MarshalBinary()
	if err != nil {
		return err
	}
	if len(m.hdrCopyBuf) < len(buf) {
		m.hdrCopyBuf = append(m.hdrCopyBuf, make([]byte, len(buf)-len(m.hdrCopyBuf))...)
	}
	copy(m.hdrCopyBuf, buf)
	return nil
}

// Clone returns a brand-new Map struct sharing the same Records (via
// CloneShared), with its own refcount of 1 and its own hdrCopyBuf copy.
// Used both to duplicate a Map for independent promotion and internally
// by PromoteToPrivate when more than one owner references the original.
func (m *Map) Clone() *Map {
	nm := &Map{
		Header:           m.Header,
		Records:          m.Records.CloneShared(),
		hdrCopyBuf:       append([]byte(nil), m.hdrCopyBuf...),
		curExtMapIdx:     m.curExtMapIdx,
		curExtIgnore:     m.curExtIgnore,
		curExtRecordSize: m.curExtRecordSize,
		DeleteRequested:  m.DeleteRequested,
		NoDirty:          m.NoDirty,
	}
	nm.refcount.Store(1)
	nm.Records.RegisterSibling(nm)
	return nm
}

// PromoteToPrivate ensures the caller holds an exclusively owned Map
// struct backed by an exclusively owned Records buffer, mirroring the
// original's two-stage get_atomic_map: first promote the Map struct
// itself if shared by more than one owner, then promote the Records
// buffer if it is shared by any other Map. Returns the (possibly new)
// Map the caller must use for all further mutation in this sync pass.
func (m *Map) PromoteToPrivate() *Map {
	target := m
	if m.refcount.Load() > 1 {
		target = m.Clone()
		m.refcount.Add(-1)
	}

	if target.Records.IsShared() {
		old := target.Records
		target.Records = old.MakePrivateCopy()
		old.UnregisterSibling(target)
		old.Release()
		target.Records.RegisterSibling(target)
	}

	return target
}

// CheckConsistency validates the header/record invariants spec.md §3
// requires to hold at every quiescent point (testable properties 1-3,
// 7). It does not mutate anything; a caller observing an error should
// treat the map as requiring fsck.
func (m *Map) CheckConsistency() error {
	if m.Header.MessagesCount > m.Header.RecordsCount {
		return fmt.Errorf("indexmap: messages_count %d exceeds records_count %d", m.Header.MessagesCount, m.Header.RecordsCount)
	}

	var seen, deleted uint32
	var haveDirty bool
	var prevUID uint32
	for seq := uint32(1); seq <= m.Header.MessagesCount; seq++ {
		rec := m.Records.RecordAt(seq)
		if rec.UID() <= prevUID && seq > 1 {
			return fmt.Errorf("indexmap: uid not strictly ascending at seq %d", seq)
		}
		prevUID = rec.UID()

		if rec.UID() >= m.Header.NextUID {
			return fmt.Errorf("indexmap: record uid %d >= next_uid %d", rec.UID(), m.Header.NextUID)
		}

		if rec.Has(recordmap.FlagSeen) {
			seen++
		} else if rec.UID() < m.Header.FirstUnseenUIDLowwater {
			return fmt.Errorf("indexmap: unseen record uid %d below lowwater %d", rec.UID(), m.Header.FirstUnseenUIDLowwater)
		}

		if rec.Has(recordmap.FlagDeleted) {
			deleted++
		} else if rec.UID() < m.Header.FirstDeletedUIDLowwater {
			return fmt.Errorf("indexmap: undeleted record uid %d below lowwater %d", rec.UID(), m.Header.FirstDeletedUIDLowwater)
		}

		if rec.Has(recordmap.FlagDirty) {
			haveDirty = true
		}
	}

	if seen != m.Header.SeenMessagesCount {
		return fmt.Errorf("indexmap: seen_messages_count %d does not match actual %d", m.Header.SeenMessagesCount, seen)
	}
	if deleted != m.Header.DeletedMessagesCount {
		return fmt.Errorf("indexmap: deleted_messages_count %d does not match actual %d", m.Header.DeletedMessagesCount, deleted)
	}
	if !m.NoDirty && haveDirty != m.Header.HaveDirty() {
		return fmt.Errorf("indexmap: have_dirty flag %v does not match actual %v", m.Header.HaveDirty(), haveDirty)
	}
	if m.Header.LogFileHeadOffset < m.Header.LogFileTailOffset {
		return fmt.Errorf("indexmap: log_file_head_offset %d below tail offset %d", m.Header.LogFileHeadOffset, m.Header.LogFileTailOffset)
	}

	return nil
}
