package indexmap

import (
	"encoding/binary"
	"fmt"
)

// Header-level flag bits.
const (
	FlagHaveDirty uint32 = 1 << 0
	FlagFsckd     uint32 = 1 << 1
)

// HeaderSize is the fixed, bit-exact encoded size of Header — the
// default base_header_size. A stored header_size may exceed this to
// reserve room for future fields, mirroring the teacher's mmap header's
// reserved trailing bytes.
const HeaderSize = 66

// Header mirrors the on-disk/mmap index header exactly: every field
// named in spec.md §3, little-endian, fixed layout.
type Header struct {
	IndexID                uint32
	LogFileSeq             uint32
	LogFileHeadOffset       uint64
	LogFileTailOffset       uint64
	MessagesCount           uint32
	RecordsCount            uint32 // may exceed MessagesCount during append staging
	NextUID                 uint32
	SeenMessagesCount       uint32
	DeletedMessagesCount    uint32
	FirstUnseenUIDLowwater  uint32
	FirstDeletedUIDLowwater uint32
	BaseHeaderSize          uint32
	HeaderSize              uint32
	RecordSize              uint16
	Flags                   uint32
}

// HaveDirty reports whether FlagHaveDirty is set.
func (h *Header) HaveDirty() bool {
	return h.Flags&FlagHaveDirty != 0
}

// SetHaveDirty sets or clears FlagHaveDirty.
func (h *Header) SetHaveDirty(v bool) {
	if v {
		h.Flags |= FlagHaveDirty
	} else {
		h.Flags &^= FlagHaveDirty
	}
}

// Fsckd reports whether FlagFsckd is set.
func (h *Header) Fsckd() bool {
	return h.Flags&FlagFsckd != 0
}

// MarshalBinary produces the bit-exact little-endian on-disk image of
// the header, always HeaderSize bytes long.
func (h *Header) MarshalBinary() ([]byte, error) {
	buf := make([]byte, HeaderSize)
	binary.LittleEndian.PutUint32(buf[0:4], h.IndexID)
	binary.LittleEndian.PutUint32(buf[4:8], h.LogFileSeq)
	binary.LittleEndian.PutUint64(buf[8:16], h.LogFileHeadOffset)
	binary.LittleEndian.PutUint64(buf[16:24], h.LogFileTailOffset)
	binary.LittleEndian.PutUint32(buf[24:28], h.MessagesCount)
	binary.LittleEndian.PutUint32(buf[28:32], h.RecordsCount)
	binary.LittleEndian.PutUint32(buf[32:36], h.NextUID)
	binary.LittleEndian.PutUint32(buf[36:40], h.SeenMessagesCount)
	binary.LittleEndian.PutUint32(buf[40:44], h.DeletedMessagesCount)
	binary.LittleEndian.PutUint32(buf[44:48], h.FirstUnseenUIDLowwater)
	binary.LittleEndian.PutUint32(buf[48:52], h.FirstDeletedUIDLowwater)
	binary.LittleEndian.PutUint32(buf[52:56], h.BaseHeaderSize)
	binary.LittleEndian.PutUint32(buf[56:60], h.HeaderSize)
	binary.LittleEndian.PutUint16(buf[60:62], h.RecordSize)
	binary.LittleEndian.PutUint32(buf[62:66], h.Flags)
	return buf, nil
}

// UnmarshalBinary parses a header image produced by MarshalBinary.
func (h *Header) UnmarshalBinary(buf []byte) error {
	if len(buf) < HeaderSize {
		return fmt.Errorf("indexmap: header buffer too short: %d bytes", len(buf))
	}
	h.IndexID = binary.LittleEndian.Uint32(buf[0:4])
	h.LogFileSeq = binary.LittleEndian.Uint32(buf[4:8])
	h.LogFileHeadOffset = binary.LittleEndian.Uint64(buf[8:16])
	h.LogFileTailOffset = binary.LittleEndian.Uint64(buf[16:24])
	h.MessagesCount = binary.LittleEndian.Uint32(buf[24:28])
	h.RecordsCount = binary.LittleEndian.Uint32(buf[28:32])
	h.NextUID = binary.LittleEndian.Uint32(buf[32:36])
	h.SeenMessagesCount = binary.LittleEndian.Uint32(buf[36:40])
	h.DeletedMessagesCount = binary.LittleEndian.Uint32(buf[40:44])
	h.FirstUnseenUIDLowwater = binary.LittleEndian.Uint32(buf[44:48])
	h.FirstDeletedUIDLowwater = binary.LittleEndian.Uint32(buf[48:52])
	h.BaseHeaderSize = binary.LittleEndian.Uint32(buf[52:56])
	h.HeaderSize = binary.LittleEndian.Uint32(buf[56:60])
	h.RecordSize = binary.LittleEndian.Uint16(buf[60:62])
	h.Flags = binary.LittleEndian.Uint32(buf[62:66])
	return nil
}
