package syncengine

import (
	"context"

	"github.com/marmos91/mailidx/pkg/recordmap"
	"github.com/marmos91/mailidx/pkg/txlog"
)

func (sc *Context) applyFlagUpdate(ctx context.Context, entry txlog.Entry) error {
	payload := entry.Payload
	if len(payload)%flagUpdateEntrySize != 0 {
		return newSyncError(ErrFraming, sc.LogFileSeq, sc.LogOffset, "FLAG_UPDATE payload length %d not a multiple of %d", len(payload), flagUpdateEntrySize)
	}

	sc.promote()
	h := &sc.Map.Header
	rm := sc.Map.Records

	for off := 0; off+flagUpdateEntrySize <= len(payload); off += flagUpdateEntrySize {
		e := decodeFlagUpdateEntry(payload[off : off+flagUpdateEntrySize])

		if e.UID1 >= h.NextUID || e.UID2 >= h.NextUID {
			return newSyncError(ErrUIDViolation, sc.LogFileSeq, sc.LogOffset, "flag update references uid range [%d,%d] at or past next_uid %d", e.UID1, e.UID2, h.NextUID)
		}

		seq1, seq2, ok := seqRangeForUIDRange(rm, e.UID1, e.UID2)
		if !ok {
			continue
		}

		if e.Add&recordmap.FlagDirty != 0 && !sc.Map.NoDirty {
			h.SetHaveDirty(true)
		}

		flagMask := ^e.Remove
		changedMask := uint8(0)

		for seq := seq1; seq <= seq2; seq++ {
			rec := rm.RecordAt(seq)
			old := rec.Flags()
			newFlags := (old & flagMask) | e.Add
			if old == newFlags {
				continue
			}

			uid := rec.UID()
			countedDiff := (old ^ newFlags) & (recordmap.FlagSeen | recordmap.FlagDeleted)
			if countedDiff != 0 {
				var seenDelta, deletedDelta int32
				if countedDiff&recordmap.FlagSeen != 0 {
					wasSeen, isSeen := old&recordmap.FlagSeen != 0, newFlags&recordmap.FlagSeen != 0
					if isSeen {
						seenDelta = 1
					} else {
						seenDelta = -1
					}
					onSeenTransition(h, rm, seq, uid, wasSeen, isSeen)
					fanOutSeenTransition(rm, sc.Map, seq, uid, wasSeen, isSeen)
				}
				if countedDiff&recordmap.FlagDeleted != 0 {
					wasDeleted, isDeleted := old&recordmap.FlagDeleted != 0, newFlags&recordmap.FlagDeleted != 0
					if isDeleted {
						deletedDelta = 1
					} else {
						deletedDelta = -1
					}
					onDeletedTransition(h, rm, seq, uid, wasDeleted, isDeleted)
					fanOutDeletedTransition(rm, sc.Map, seq, uid, wasDeleted, isDeleted)
				}

				if !applyCounterDeltas(h, seenDelta, deletedDelta) {
					return newSyncError(ErrCounterViolation, sc.LogFileSeq, sc.LogOffset, "flag update at seq %d would violate SEEN/DELETED counters", seq)
				}
				fanOutCounterUpdate(rm, sc.Map, uid, seenDelta, deletedDelta)
			}

			rec.SetFlags(newFlags)
			changedMask |= old ^ newFlags
		}

		if sc.Tracker != nil {
			sc.Tracker.UpdateFlags(sc.modseqCtx, changedMask, seq1, seq2)
		}
	}

	return nil
}
