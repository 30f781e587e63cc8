package syncengine

import (
	"encoding/binary"

	"github.com/marmos91/mailidx/pkg/extension"
)

// Fixed entry sizes for the transaction types whose payload is a flat
// array of identically-sized entries (no internal length prefix).
const (
	appendEntrySize      = 8  // uid(4) + flags(1) + pad(3)
	expungeEntrySize     = 8  // uid1(4) + uid2(4)
	expungeGUIDEntrySize = 20 // uid(4) + guid(16)
	flagUpdateEntrySize  = 12 // uid1(4) + uid2(4) + add(1) + remove(1) + pad(2)
	atomicIncEntrySize   = 8  // uid(4) + diff(4, signed)
	modseqEntrySize      = 12 // uid(4) + modseq_high(4) + modseq_low(4)

	extIntroFixedSize      = 16 // ext_id(4) + reset_id(4) + hdr_size(4) + record_size(2) + name_size(2)
	extResetLegacySize     = 4  // new_reset_id(4)
	extResetFullSize       = 8  // new_reset_id(4) + flags(4)
	hdrUpdateFixedSize     = 4  // offset(2) + size(2)
	hdr32UpdateFixedSize   = 8  // offset(4) + size(4)
	extRecUpdateHeaderSize = 4  // uid(4), then cur_ext_record_size bytes of payload
)

type appendEntry struct {
	UID   uint32
	Flags uint8
}

func decodeAppendEntry(b []byte) appendEntry {
	return appendEntry{
		UID:   binary.LittleEndian.Uint32(b[0:4]),
		Flags: b[4],
	}
}

type expungeEntry struct {
	UID1, UID2 uint32
}

func decodeExpungeEntry(b []byte) expungeEntry {
	return expungeEntry{
		UID1: binary.LittleEndian.Uint32(b[0:4]),
		UID2: binary.LittleEndian.Uint32(b[4:8]),
	}
}

type expungeGUIDEntry struct {
	UID  uint32
	GUID [16]byte
}

func decodeExpungeGUIDEntry(b []byte) expungeGUIDEntry {
	var e expungeGUIDEntry
	e.UID = binary.LittleEndian.Uint32(b[0:4])
	copy(e.GUID[:], b[4:20])
	return e
}

type flagUpdateEntry struct {
	UID1, UID2  uint32
	Add, Remove uint8
}

func decodeFlagUpdateEntry(b []byte) flagUpdateEntry {
	return flagUpdateEntry{
		UID1:   binary.LittleEndian.Uint32(b[0:4]),
		UID2:   binary.LittleEndian.Uint32(b[4:8]),
		Add:    b[8],
		Remove: b[9],
	}
}

type headerUpdateEntry struct {
	Offset uint16
	Size   uint16
	Data   []byte
}

type headerUpdate32Entry struct {
	Offset uint32
	Size   uint32
	Data   []byte
}

type extIntroEntry struct {
	ExtID      uint32
	ResetID    uint32
	HdrSize    uint32
	RecordSize uint16
	Name       string
}

type extRecUpdateEntry struct {
	UID  uint32
	Data []byte
}

type atomicIncEntry struct {
	UID  uint32
	Diff int32
}

func decodeAtomicIncEntry(b []byte) atomicIncEntry {
	return atomicIncEntry{
		UID:  binary.LittleEndian.Uint32(b[0:4]),
		Diff: int32(binary.LittleEndian.Uint32(b[4:8])),
	}
}

type modseqEntry struct {
	UID        uint32
	ModseqHigh uint32
	ModseqLow  uint32
}

func decodeModseqEntry(b []byte) modseqEntry {
	return modseqEntry{
		UID:        binary.LittleEndian.Uint32(b[0:4]),
		ModseqHigh: binary.LittleEndian.Uint32(b[4:8]),
		ModseqLow:  binary.LittleEndian.Uint32(b[8:12]),
	}
}

func (e modseqEntry) Value() uint64 {
	return uint64(e.ModseqHigh)<<32 | uint64(e.ModseqLow)
}

// decodeExtIntroEntries walks a sequence of variable-length EXT_INTRO
// sub-records, each padded to extension.Align4(extIntroFixedSize+nameSize).
// Returns extension.ErrFraming-worthy error via the returned ok=false
// when a sub-record's declared size runs past the payload.
func decodeExtIntroEntries(payload []byte) ([]extIntroEntry, bool) {
	var out []extIntroEntry
	off := 0
	for off < len(payload) {
		if off+extIntroFixedSize > len(payload) {
			return out, false
		}
		extID := binary.LittleEndian.Uint32(payload[off : off+4])
		resetID := binary.LittleEndian.Uint32(payload[off+4 : off+8])
		hdrSize := binary.LittleEndian.Uint32(payload[off+8 : off+12])
		recordSize := binary.LittleEndian.Uint16(payload[off+12 : off+14])
		nameSize := binary.LittleEndian.Uint16(payload[off+14 : off+16])

		nameStart := off + extIntroFixedSize
		nameEnd := nameStart + int(nameSize)
		if nameEnd > len(payload) {
			return out, false
		}
		name := string(payload[nameStart:nameEnd])

		out = append(out, extIntroEntry{
			ExtID:      extID,
			ResetID:    resetID,
			HdrSize:    hdrSize,
			RecordSize: recordSize,
			Name:       name,
		})

		stride := extension.Align4(uint32(extIntroFixedSize) + uint32(nameSize))
		off += int(stride)
	}
	return out, true
}

// decodeHeaderUpdateEntries walks HEADER_UPDATE / EXT_HDR_UPDATE's
// 16-bit length-prefixed sub-records.
func decodeHeaderUpdateEntries(payload []byte) ([]headerUpdateEntry, bool) {
	var out []headerUpdateEntry
	off := 0
	for off < len(payload) {
		if off+hdrUpdateFixedSize > len(payload) {
			return out, false
		}
		offset := binary.LittleEndian.Uint16(payload[off : off+2])
		size := binary.LittleEndian.Uint16(payload[off+2 : off+4])

		dataStart := off + hdrUpdateFixedSize
		dataEnd := dataStart + int(size)
		if dataEnd > len(payload) {
			return out, false
		}
		out = append(out, headerUpdateEntry{Offset: offset, Size: size, Data: payload[dataStart:dataEnd]})

		stride := extension.Align4(uint32(hdrUpdateFixedSize) + uint32(size))
		off += int(stride)
	}
	return out, true
}

// decodeHeaderUpdate32Entries walks EXT_HDR_UPDATE32's 32-bit
// length-prefixed sub-records.
func decodeHeaderUpdate32Entries(payload []byte) ([]headerUpdate32Entry, bool) {
	var out []headerUpdate32Entry
	off := 0
	for off < len(payload) {
		if off+hdr32UpdateFixedSize > len(payload) {
			return out, false
		}
		offset := binary.LittleEndian.Uint32(payload[off : off+4])
		size := binary.LittleEndian.Uint32(payload[off+4 : off+8])

		dataStart := off + hdr32UpdateFixedSize
		dataEnd := dataStart + int(size)
		if dataEnd > len(payload) {
			return out, false
		}
		out = append(out, headerUpdate32Entry{Offset: offset, Size: size, Data: payload[dataStart:dataEnd]})

		stride := extension.Align4(uint32(hdr32UpdateFixedSize) + size)
		off += int(stride)
	}
	return out, true
}

// decodeExtRecUpdateEntries walks EXT_REC_UPDATE's fixed-stride
// entries, stride derived from the currently introduced extension's
// declared record size.
func decodeExtRecUpdateEntries(payload []byte, curExtRecordSize uint16) ([]extRecUpdateEntry, bool) {
	stride := extension.RecStride(extRecUpdateHeaderSize, uint32(curExtRecordSize))
	if stride == 0 {
		return nil, len(payload) == 0
	}

	var out []extRecUpdateEntry
	off := 0
	for off < len(payload) {
		if off+int(stride) > len(payload) {
			return out, false
		}
		uid := binary.LittleEndian.Uint32(payload[off : off+4])
		data := payload[off+extRecUpdateHeaderSize : off+extRecUpdateHeaderSize+int(curExtRecordSize)]
		out = append(out, extRecUpdateEntry{UID: uid, Data: data})
		off += int(stride)
	}
	return out, true
}
