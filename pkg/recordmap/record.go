// Package recordmap implements the record array component (C1): a
// densely packed, fixed-size-record byte buffer supporting clone,
// private-memory promotion, and append — shared read-only across
// multiple index maps until a mutator promotes its own copy.
package recordmap

import "encoding/binary"

// Flag bits live in byte 4 of every record.
const (
	FlagSeen    uint8 = 1 << 0
	FlagDeleted uint8 = 1 << 1
	FlagDirty   uint8 = 1 << 2
)

// uidOffset and flagsOffset are fixed within every record regardless of
// record_size: byte 0-3 little-endian uid, byte 4 flags.
const (
	uidOffset   = 0
	flagsOffset = 4
	fixedPrefix = 5
)

// Record is a mutable view over one record's bytes within a Map's
// backing buffer. It aliases the buffer; callers must not retain a
// Record past an operation that may reallocate the buffer (Append).
type Record []byte

// UID returns the record's message UID.
func (r Record) UID() uint32 {
	return binary.LittleEndian.Uint32(r[uidOffset:])
}

// SetUID sets the record's message UID.
func (r Record) SetUID(uid uint32) {
	binary.LittleEndian.PutUint32(r[uidOffset:], uid)
}

// Flags returns the record's flag byte.
func (r Record) Flags() uint8 {
	return r[flagsOffset]
}

// SetFlags sets the record's flag byte.
func (r Record) SetFlags(flags uint8) {
	r[flagsOffset] = flags
}

// Has reports whether all bits in mask are set.
func (r Record) Has(mask uint8) bool {
	return r[flagsOffset]&mask == mask
}
