package syncengine

import (
	"sort"

	"github.com/marmos91/mailidx/pkg/indexmap"
	"github.com/marmos91/mailidx/pkg/recordmap"
)

// seqRangeForUIDRange resolves a uid1..uid2 range (inclusive) to a
// sequence range over rm's ascending-uid records, via binary search.
// ok is false when no record falls inside the range.
func seqRangeForUIDRange(rm *recordmap.Map, uid1, uid2 uint32) (seq1, seq2 uint32, ok bool) {
	n := int(rm.Len())
	if n == 0 || uid1 > uid2 {
		return 0, 0, false
	}

	lo := sort.Search(n, func(i int) bool { return rm.RecordAt(uint32(i+1)).UID() >= uid1 })
	if lo >= n {
		return 0, 0, false
	}
	if rm.RecordAt(uint32(lo + 1)).UID() > uid2 {
		return 0, 0, false
	}

	hi := sort.Search(n, func(i int) bool { return rm.RecordAt(uint32(i+1)).UID() > uid2 }) - 1
	if hi < lo {
		return 0, 0, false
	}

	return uint32(lo + 1), uint32(hi + 1), true
}

// seqForUID resolves a single uid to its sequence number via binary
// search; ok is false if no record carries that uid.
func seqForUID(rm *recordmap.Map, uid uint32) (seq uint32, ok bool) {
	s1, _, found := seqRangeForUIDRange(rm, uid, uid)
	if !found {
		return 0, false
	}
	return s1, true
}

// mergeSeqRanges sorts and coalesces overlapping or adjacent ranges.
func mergeSeqRanges(ranges []recordmap.SeqRange) []recordmap.SeqRange {
	if len(ranges) == 0 {
		return nil
	}
	sorted := append([]recordmap.SeqRange(nil), ranges...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })

	out := []recordmap.SeqRange{sorted[0]}
	for _, r := range sorted[1:] {
		last := &out[len(out)-1]
		if r.Start <= last.End+1 {
			if r.End > last.End {
				last.End = r.End
			}
			continue
		}
		out = append(out, r)
	}
	return out
}

// addSaturatingU32 adds a signed delta to an unsigned counter without
// wrapping; overflow/underflow is reported via ok=false so the caller
// can raise ErrCounterViolation instead of silently wrapping.
func addSaturatingU32(v uint32, delta int32) (result uint32, ok bool) {
	if delta < 0 {
		d := uint32(-delta)
		if d > v {
			return v, false
		}
		return v - d, true
	}
	if uint32(delta) > ^uint32(0)-v {
		return v, false
	}
	return v + uint32(delta), true
}

// applyCounterDeltas adjusts a header's SEEN/DELETED counters,
// reporting a counter violation instead of wrapping on underflow or
// on exceeding MessagesCount.
func applyCounterDeltas(h *indexmap.Header, seenDelta, deletedDelta int32) (ok bool) {
	seen, seenOK := addSaturatingU32(h.SeenMessagesCount, seenDelta)
	deleted, deletedOK := addSaturatingU32(h.DeletedMessagesCount, deletedDelta)
	if !seenOK || !deletedOK || seen > h.MessagesCount || deleted > h.MessagesCount {
		return false
	}
	h.SeenMessagesCount = seen
	h.DeletedMessagesCount = deleted
	return true
}

// nextUnseenUIDAfter scans forward from fromSeq (exclusive) for the
// next record lacking FlagSeen, falling back to nextUID (meaning
// "nothing left unseen") if none is found.
func nextUnseenUIDAfter(rm *recordmap.Map, fromSeq uint32, nextUID uint32) uint32 {
	n := rm.Len()
	for seq := fromSeq + 1; seq <= n; seq++ {
		if r := rm.RecordAt(seq); !r.Has(recordmap.FlagSeen) {
			return r.UID()
		}
	}
	return nextUID
}

// nextUndeletedUIDAfter is the DELETED-flag symmetric counterpart.
func nextUndeletedUIDAfter(rm *recordmap.Map, fromSeq uint32, nextUID uint32) uint32 {
	n := rm.Len()
	for seq := fromSeq + 1; seq <= n; seq++ {
		if r := rm.RecordAt(seq); !r.Has(recordmap.FlagDeleted) {
			return r.UID()
		}
	}
	return nextUID
}

// onSeenTransition updates FirstUnseenUIDLowwater after one record's
// SEEN bit flips at the given (seq, uid).
func onSeenTransition(h *indexmap.Header, rm *recordmap.Map, seq, uid uint32, wasSeen, isSeen bool) {
	switch {
	case !wasSeen && isSeen:
		if uid == h.FirstUnseenUIDLowwater {
			h.FirstUnseenUIDLowwater = nextUnseenUIDAfter(rm, seq, h.NextUID)
		}
	case wasSeen && !isSeen:
		if h.FirstUnseenUIDLowwater == 0 || uid < h.FirstUnseenUIDLowwater {
			h.FirstUnseenUIDLowwater = uid
		}
	}
}

// onDeletedTransition updates FirstDeletedUIDLowwater after one
// record's DELETED bit flips at the given (seq, uid).
func onDeletedTransition(h *indexmap.Header, rm *recordmap.Map, seq, uid uint32, wasDeleted, isDeleted bool) {
	switch {
	case !wasDeleted && isDeleted:
		if uid == h.FirstDeletedUIDLowwater {
			h.FirstDeletedUIDLowwater = nextUndeletedUIDAfter(rm, seq, h.NextUID)
		}
	case wasDeleted && !isDeleted:
		if h.FirstDeletedUIDLowwater == 0 || uid < h.FirstDeletedUIDLowwater {
			h.FirstDeletedUIDLowwater = uid
		}
	}
}

// fanOutCounterUpdate applies a SEEN/DELETED counter delta to every
// Map sharing rm whose next_uid > uid, per the counter-update fan-out
// policy: flag updates are visible to every sibling view of the same
// record map, not only the one driving this sync pass. self is the
// Map whose header the caller already updated directly (every Map
// self-registers as its own sibling on creation) and is skipped here
// so its counters aren't applied twice.
func fanOutCounterUpdate(rm *recordmap.Map, self *indexmap.Map, uid uint32, seenDelta, deletedDelta int32) {
	for _, sib := range rm.Siblings() {
		im, ok := sib.(*indexmap.Map)
		if !ok || im == self || im.Header.NextUID <= uid {
			continue
		}
		applyCounterDeltas(&im.Header, seenDelta, deletedDelta)
	}
}

// fanOutSeenTransition mirrors a SEEN-flag transition at (seq, uid)
// onto first_unseen_uid_lowwater on every other Map sharing rm whose
// next_uid has already reached uid, the lowwater analogue of
// fanOutCounterUpdate. It reruns onSeenTransition per sibling rather
// than copying self's value, since each sibling's lowwater fallback
// depends on its own next_uid.
func fanOutSeenTransition(rm *recordmap.Map, self *indexmap.Map, seq, uid uint32, wasSeen, isSeen bool) {
	for _, sib := range rm.Siblings() {
		im, ok := sib.(*indexmap.Map)
		if !ok || im == self || im.Header.NextUID <= uid {
			continue
		}
		onSeenTransition(&im.Header, rm, seq, uid, wasSeen, isSeen)
	}
}

// fanOutDeletedTransition is the DELETED-flag counterpart of
// fanOutSeenTransition.
func fanOutDeletedTransition(rm *recordmap.Map, self *indexmap.Map, seq, uid uint32, wasDeleted, isDeleted bool) {
	for _, sib := range rm.Siblings() {
		im, ok := sib.(*indexmap.Map)
		if !ok || im == self || im.Header.NextUID <= uid {
			continue
		}
		onDeletedTransition(&im.Header, rm, seq, uid, wasDeleted, isDeleted)
	}
}

// fanOutAppendLowwaters mirrors an appended record's unset SEEN/DELETED
// flags onto first_unseen_uid_lowwater/first_deleted_uid_lowwater on
// every other Map sharing rm whose next_uid has already reached uid,
// the append-time analogue of fanOutSeenTransition/
// fanOutDeletedTransition (there is no prior flag state to transition
// from, so this applies the same "lowwater unset" initialization
// applyAppend applies to self).
func fanOutAppendLowwaters(rm *recordmap.Map, self *indexmap.Map, uid uint32, isSeen, isDeleted bool) {
	for _, sib := range rm.Siblings() {
		im, ok := sib.(*indexmap.Map)
		if !ok || im == self || im.Header.NextUID <= uid {
			continue
		}
		if !isSeen && im.Header.FirstUnseenUIDLowwater == 0 {
			im.Header.FirstUnseenUIDLowwater = uid
		}
		if !isDeleted && im.Header.FirstDeletedUIDLowwater == 0 {
			im.Header.FirstDeletedUIDLowwater = uid
		}
	}
}
