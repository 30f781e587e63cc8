package syncengine

import (
	"context"

	"github.com/marmos91/mailidx/pkg/recordmap"
	"github.com/marmos91/mailidx/pkg/txlog"
)

func (sc *Context) applyExpunge(ctx context.Context, entry txlog.Entry) error {
	if !entry.Header.External() {
		// A request, not a completed change; nothing to do yet.
		return nil
	}

	rm := sc.Map.Records
	var uidRanges []recordmap.SeqRange

	switch entry.Header.RecordType() {
	case txlog.TypeExpunge:
		payload := entry.Payload
		if len(payload)%expungeEntrySize != 0 {
			return newSyncError(ErrFraming, sc.LogFileSeq, sc.LogOffset, "EXPUNGE payload length %d not a multiple of %d", len(payload), expungeEntrySize)
		}
		for off := 0; off+expungeEntrySize <= len(payload); off += expungeEntrySize {
			e := decodeExpungeEntry(payload[off : off+expungeEntrySize])
			if seq1, seq2, ok := seqRangeForUIDRange(rm, e.UID1, e.UID2); ok {
				uidRanges = append(uidRanges, recordmap.SeqRange{Start: seq1, End: seq2})
			}
		}
	case txlog.TypeExpungeGuid:
		payload := entry.Payload
		if len(payload)%expungeGUIDEntrySize != 0 {
			return newSyncError(ErrFraming, sc.LogFileSeq, sc.LogOffset, "EXPUNGE_GUID payload length %d not a multiple of %d", len(payload), expungeGUIDEntrySize)
		}
		for off := 0; off+expungeGUIDEntrySize <= len(payload); off += expungeGUIDEntrySize {
			e := decodeExpungeGUIDEntry(payload[off : off+expungeGUIDEntrySize])
			if seq, ok := seqForUID(rm, e.UID); ok {
				uidRanges = append(uidRanges, recordmap.SeqRange{Start: seq, End: seq})
			}
		}
	}

	ranges := mergeSeqRanges(uidRanges)
	if len(ranges) == 0 {
		return nil
	}

	sc.promote()
	h := &sc.Map.Header
	rm = sc.Map.Records

	if sc.SyncKind == txlog.SyncFile {
		for _, r := range ranges {
			for seq := r.Start; seq <= r.End; seq++ {
				rec := rm.RecordAt(seq)
				for _, handler := range sc.ExpungeHandlers {
					if int(handler.RecordOffset) >= len(rec) {
						continue
					}
					if err := handler.Fn(ctx, rec[handler.RecordOffset:], handler.HandlerCtx); err != nil {
						sc.Logger.WarnContext(ctx, "expunge handler failed", "error", err)
					}
				}
			}
		}
	}

	for _, r := range ranges {
		for seq := r.Start; seq <= r.End; seq++ {
			rec := rm.RecordAt(seq)
			var seenDelta, deletedDelta int32
			if rec.Has(recordmap.FlagSeen) {
				seenDelta = -1
			}
			if rec.Has(recordmap.FlagDeleted) {
				deletedDelta = -1
			}
			if !applyCounterDeltas(h, seenDelta, deletedDelta) {
				return newSyncError(ErrCounterViolation, sc.LogFileSeq, sc.LogOffset, "expunge of seq %d would underflow SEEN/DELETED counters", seq)
			}
		}

		if sc.Tracker != nil {
			sc.Tracker.Expunge(sc.modseqCtx, r.Start, r.End)
		}
	}

	removed := rm.CompactExpunge(ranges)
	h.RecordsCount -= removed
	h.MessagesCount -= removed

	return nil
}
