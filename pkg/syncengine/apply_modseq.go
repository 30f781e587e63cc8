package syncengine

import (
	"context"

	"github.com/marmos91/mailidx/pkg/modseq"
	"github.com/marmos91/mailidx/pkg/txlog"
)

func (sc *Context) applyModseqUpdate(ctx context.Context, entry txlog.Entry) error {
	payload := entry.Payload
	if len(payload)%modseqEntrySize != 0 {
		return newSyncError(ErrFraming, sc.LogFileSeq, sc.LogOffset, "MODSEQ_UPDATE payload length %d not a multiple of %d", len(payload), modseqEntrySize)
	}

	if sc.Tracker == nil {
		return nil
	}

	sc.promote()
	rm := sc.Map.Records

	for off := 0; off+modseqEntrySize <= len(payload); off += modseqEntrySize {
		e := decodeModseqEntry(payload[off : off+modseqEntrySize])

		var seq uint32
		if e.UID != 0 {
			var ok bool
			seq, ok = seqForUID(rm, e.UID)
			if !ok {
				continue
			}
		}

		switch sc.Tracker.Set(sc.modseqCtx, seq, e.Value()) {
		case modseq.SetIgnored:
			if sc.CommitResult != nil {
				sc.CommitResult.IgnoredModseqChanges++
			}
		case modseq.SetError:
			return newSyncError(ErrCounterViolation, sc.LogFileSeq, sc.LogOffset, "modseq set on uid %d before tracking was enabled", e.UID)
		}
	}

	return nil
}
