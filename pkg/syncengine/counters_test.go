package syncengine

import (
	"testing"

	"github.com/marmos91/mailidx/pkg/indexmap"
	"github.com/marmos91/mailidx/pkg/recordmap"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeqRangeForUIDRange(t *testing.T) {
	rm := recordmap.New(testRecordSize)
	rm.Append(10, 0)
	rm.Append(20, 0)
	rm.Append(30, 0)

	seq1, seq2, ok := seqRangeForUIDRange(rm, 15, 25)
	require.True(t, ok)
	assert.EqualValues(t, 2, seq1)
	assert.EqualValues(t, 2, seq2)

	_, _, ok = seqRangeForUIDRange(rm, 31, 40)
	assert.False(t, ok, "a range entirely past the last uid must report not found")
}

func TestSeqForUID_NotFound(t *testing.T) {
	rm := recordmap.New(testRecordSize)
	rm.Append(10, 0)
	_, ok := seqForUID(rm, 99)
	assert.False(t, ok)
}

func TestMergeSeqRanges_CoalescesAdjacentAndOverlapping(t *testing.T) {
	in := []recordmap.SeqRange{{Start: 5, End: 7}, {Start: 1, End: 2}, {Start: 3, End: 4}, {Start: 10, End: 12}}
	out := mergeSeqRanges(in)
	assert.Equal(t, []recordmap.SeqRange{{Start: 1, End: 7}, {Start: 10, End: 12}}, out)
}

func TestApplyCounterDeltas_RejectsUnderflow(t *testing.T) {
	h := &indexmap.Header{MessagesCount: 5, SeenMessagesCount: 0}
	ok := applyCounterDeltas(h, -1, 0)
	assert.False(t, ok, "decrementing below zero must be rejected rather than wrapping")
	assert.EqualValues(t, 0, h.SeenMessagesCount)
}

func TestApplyCounterDeltas_RejectsExceedingMessagesCount(t *testing.T) {
	h := &indexmap.Header{MessagesCount: 1, SeenMessagesCount: 1}
	ok := applyCounterDeltas(h, 1, 0)
	assert.False(t, ok, "seen count may never exceed messages_count")
}

// TestFanOutCounterUpdate_UpdatesOnlySiblingsThatHaveSeenTheUID registers
// two indexmap Maps as siblings of one record buffer: a counter update
// fanned out from that buffer must reach the sibling whose next_uid is
// past the affected uid, but never a sibling whose next_uid hasn't
// reached it yet.
func TestFanOutCounterUpdate_UpdatesOnlySiblingsThatHaveSeenTheUID(t *testing.T) {
	rm := recordmap.New(testRecordSize)
	rm.Append(1, 0)

	caughtUp := indexmap.NewMap(testRecordSize)
	caughtUp.Header.NextUID = 2
	caughtUp.Header.MessagesCount = 1

	behind := indexmap.NewMap(testRecordSize)
	behind.Header.NextUID = 1 // hasn't observed uid 1 yet

	rm.RegisterSibling(caughtUp)
	rm.RegisterSibling(behind)

	fanOutCounterUpdate(rm, nil, 1, 1, 0)

	assert.EqualValues(t, 1, caughtUp.Header.SeenMessagesCount)
	assert.EqualValues(t, 0, behind.Header.SeenMessagesCount, "a sibling that hasn't reached this uid yet must not be touched")
}
