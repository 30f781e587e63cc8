package syncengine

import (
	"context"
	"encoding/binary"

	"github.com/marmos91/mailidx/pkg/extension"
	"github.com/marmos91/mailidx/pkg/txlog"
)

// findOrCreateExt resolves name to a stable index into sc.exts,
// registering a new slot on first sight.
func (sc *Context) findOrCreateExt(name string, recordSize uint16) int {
	for i, e := range sc.exts {
		if e.name == name {
			sc.exts[i].recordSize = recordSize
			return i
		}
	}
	_, err := sc.Registry.Lookup(name)
	sc.exts = append(sc.exts, extInfo{name: name, recordSize: recordSize, ignore: err != nil})
	return len(sc.exts) - 1
}

func (sc *Context) applyExtIntro(ctx context.Context, entry txlog.Entry) error {
	entries, ok := decodeExtIntroEntries(entry.Payload)
	if !ok {
		return newSyncError(ErrFraming, sc.LogFileSeq, sc.LogOffset, "EXT_INTRO sub-record extends past payload")
	}

	sc.promote()

	for _, e := range entries {
		idx := sc.findOrCreateExt(e.Name, e.RecordSize)
		info := sc.exts[idx]
		sc.Map.SetCurExt(idx, info.ignore, e.RecordSize)

		if !info.ignore {
			desc := extension.Descriptor{Name: e.Name, RecordSize: e.RecordSize, HdrSize: e.HdrSize, ResetID: e.ResetID}
			if err := sc.Registry.Dispatch(ctx, e.Name, func(c context.Context, h extension.Handler) error {
				return h.Intro(c, desc)
			}); err != nil {
				sc.Logger.WarnContext(ctx, "extension intro handler failed", "extension", e.Name, "error", err)
			}
		}
	}

	sc.lastIntro = intro{
		logFileSeq: sc.LogFileSeq,
		offset:     sc.LogOffset,
		endOffset:  sc.LogOffset + entryFrameSize(entry),
		valid:      true,
	}

	return nil
}

func (sc *Context) applyExtReset(ctx context.Context, entry txlog.Entry) error {
	payload := entry.Payload
	if len(payload) < extResetLegacySize {
		return newSyncError(ErrSizeViolation, sc.LogFileSeq, sc.LogOffset, "EXT_RESET payload %d bytes shorter than legacy minimum %d", len(payload), extResetLegacySize)
	}

	padded := payload
	if len(padded) < extResetFullSize {
		padded = make([]byte, extResetFullSize)
		copy(padded, payload)
	}

	sc.promote()

	idx := sc.Map.CurExtMapIdx()
	if idx < 0 || idx >= len(sc.exts) {
		return newSyncError(ErrMissingExtContext, sc.LogFileSeq, sc.LogOffset, "EXT_RESET with no preceding EXT_INTRO")
	}
	info := sc.exts[idx]
	if info.ignore {
		return nil
	}

	newResetID := binary.LittleEndian.Uint32(padded[0:4])
	return sc.Registry.Dispatch(ctx, info.name, func(c context.Context, h extension.Handler) error {
		return h.Reset(c, newResetID)
	})
}

func (sc *Context) applyExtHdrUpdate(ctx context.Context, entry txlog.Entry, wide bool) error {
	sc.promote()

	idx := sc.Map.CurExtMapIdx()
	if idx < 0 || idx >= len(sc.exts) {
		return newSyncError(ErrMissingExtContext, sc.LogFileSeq, sc.LogOffset, "EXT_HDR_UPDATE with no preceding EXT_INTRO")
	}
	info := sc.exts[idx]

	if wide {
		entries, ok := decodeHeaderUpdate32Entries(entry.Payload)
		if !ok {
			return newSyncError(ErrFraming, sc.LogFileSeq, sc.LogOffset, "EXT_HDR_UPDATE32 sub-record extends past payload")
		}
		if info.ignore {
			return nil
		}
		for _, e := range entries {
			if err := sc.Registry.Dispatch(ctx, info.name, func(c context.Context, h extension.Handler) error {
				return h.HdrUpdate(c, e.Offset, e.Data)
			}); err != nil {
				return err
			}
		}
		return nil
	}

	entries, ok := decodeHeaderUpdateEntries(entry.Payload)
	if !ok {
		return newSyncError(ErrFraming, sc.LogFileSeq, sc.LogOffset, "EXT_HDR_UPDATE sub-record extends past payload")
	}
	if info.ignore {
		return nil
	}
	for _, e := range entries {
		if err := sc.Registry.Dispatch(ctx, info.name, func(c context.Context, h extension.Handler) error {
			return h.HdrUpdate(c, uint32(e.Offset), e.Data)
		}); err != nil {
			return err
		}
	}
	return nil
}

func (sc *Context) applyExtRecUpdate(ctx context.Context, entry txlog.Entry) error {
	sc.promote()

	idx := sc.Map.CurExtMapIdx()
	if idx < 0 || idx >= len(sc.exts) {
		return newSyncError(ErrMissingExtContext, sc.LogFileSeq, sc.LogOffset, "EXT_REC_UPDATE with no preceding EXT_INTRO")
	}
	info := sc.exts[idx]

	entries, ok := decodeExtRecUpdateEntries(entry.Payload, sc.Map.CurExtRecordSize())
	if !ok {
		return newSyncError(ErrFraming, sc.LogFileSeq, sc.LogOffset, "EXT_REC_UPDATE entry extends past payload")
	}
	if info.ignore {
		return nil
	}

	rm := sc.Map.Records
	for _, e := range entries {
		seq, ok := seqForUID(rm, e.UID)
		if !ok {
			continue
		}
		if err := sc.Registry.Dispatch(ctx, info.name, func(c context.Context, h extension.Handler) error {
			return h.RecUpdate(c, seq, e.Data)
		}); err != nil {
			return err
		}
	}
	return nil
}

func (sc *Context) applyExtAtomicInc(ctx context.Context, entry txlog.Entry) error {
	payload := entry.Payload
	if len(payload)%atomicIncEntrySize != 0 {
		return newSyncError(ErrFraming, sc.LogFileSeq, sc.LogOffset, "EXT_ATOMIC_INC payload length %d not a multiple of %d", len(payload), atomicIncEntrySize)
	}

	sc.promote()

	idx := sc.Map.CurExtMapIdx()
	if idx < 0 || idx >= len(sc.exts) {
		return newSyncError(ErrMissingExtContext, sc.LogFileSeq, sc.LogOffset, "EXT_ATOMIC_INC with no preceding EXT_INTRO")
	}
	info := sc.exts[idx]

	rm := sc.Map.Records
	for off := 0; off+atomicIncEntrySize <= len(payload); off += atomicIncEntrySize {
		e := decodeAtomicIncEntry(payload[off : off+atomicIncEntrySize])
		seq, ok := seqForUID(rm, e.UID)
		if !ok {
			continue
		}
		if info.ignore {
			continue
		}
		if err := sc.Registry.Dispatch(ctx, info.name, func(c context.Context, h extension.Handler) error {
			return h.AtomicInc(c, seq, e.Diff)
		}); err != nil {
			return err
		}
	}
	return nil
}

func (sc *Context) applyKeywordUpdate(ctx context.Context, entry txlog.Entry) error {
	sc.promote()
	if sc.Keywords == nil {
		return nil
	}
	return sc.Keywords.Update(ctx, entry.Payload)
}

func (sc *Context) applyKeywordReset(ctx context.Context, entry txlog.Entry) error {
	sc.promote()
	if sc.Keywords == nil {
		return nil
	}
	return sc.Keywords.Reset(ctx, entry.Payload)
}

