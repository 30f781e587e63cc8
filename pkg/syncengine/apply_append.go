package syncengine

import (
	"context"

	"github.com/marmos91/mailidx/pkg/recordmap"
	"github.com/marmos91/mailidx/pkg/txlog"
)

func (sc *Context) applyAppend(ctx context.Context, entry txlog.Entry) error {
	payload := entry.Payload
	if len(payload)%appendEntrySize != 0 {
		return newSyncError(ErrFraming, sc.LogFileSeq, sc.LogOffset, "APPEND payload length %d not a multiple of %d", len(payload), appendEntrySize)
	}

	sc.promote()
	h := &sc.Map.Header
	rm := sc.Map.Records

	for off := 0; off+appendEntrySize <= len(payload); off += appendEntrySize {
		e := decodeAppendEntry(payload[off : off+appendEntrySize])

		if e.UID < h.NextUID {
			return newSyncError(ErrUIDViolation, sc.LogFileSeq, sc.LogOffset, "append uid %d below next_uid %d", e.UID, h.NextUID)
		}

		var seq uint32
		if e.UID <= rm.LastAppendedUID() {
			// Already staged by an earlier application of this same
			// transaction; messages_count has not yet counted it.
			seq = h.MessagesCount + 1
		} else {
			seq = rm.Append(e.UID, e.Flags)
			if sc.Tracker != nil {
				sc.Tracker.Append(sc.modseqCtx, seq)
			}
		}

		rec := rm.RecordAt(seq)
		h.MessagesCount++
		h.NextUID = e.UID + 1
		h.RecordsCount = rm.Len()

		if rec.Has(recordmap.FlagDirty) && !sc.Map.NoDirty {
			h.SetHaveDirty(true)
		}

		isSeen, isDeleted := rec.Has(recordmap.FlagSeen), rec.Has(recordmap.FlagDeleted)

		if isSeen {
			h.SeenMessagesCount++
		} else if h.FirstUnseenUIDLowwater == 0 {
			h.FirstUnseenUIDLowwater = e.UID
		}

		if isDeleted {
			h.DeletedMessagesCount++
		} else if h.FirstDeletedUIDLowwater == 0 {
			h.FirstDeletedUIDLowwater = e.UID
		}

		fanOutAppendLowwaters(rm, sc.Map, e.UID, isSeen, isDeleted)
	}

	return nil
}
