package syncengine

import (
	"context"
	"testing"

	"github.com/marmos91/mailidx/pkg/recordmap"
	"github.com/marmos91/mailidx/pkg/txlog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestApplyExpunge_S2_CompactsAndDecrementsCounters covers scenario S2:
// expunging a SEEN, DELETED message must shrink both records_count and
// messages_count by exactly the removed count and drop its counted
// flags out of the header totals.
func TestApplyExpunge_S2_CompactsAndDecrementsCounters(t *testing.T) {
	sc := newTestContext()
	ctx := context.Background()

	require.NoError(t, sc.Apply(ctx, entry(txlog.TypeAppend, true, appendPayload(
		appendEntry{UID: 1, Flags: recordmap.FlagSeen | recordmap.FlagDeleted},
		appendEntry{UID: 2},
		appendEntry{UID: 3},
	))))
	require.EqualValues(t, 3, sc.Map.Header.RecordsCount)
	require.EqualValues(t, 1, sc.Map.Header.SeenMessagesCount)
	require.EqualValues(t, 1, sc.Map.Header.DeletedMessagesCount)

	require.NoError(t, sc.Apply(ctx, entry(txlog.TypeExpunge, true, expungePayload(expungeEntry{UID1: 1, UID2: 1}))))

	h := sc.Map.Header
	assert.EqualValues(t, 2, h.RecordsCount)
	assert.EqualValues(t, 2, h.MessagesCount)
	assert.EqualValues(t, 0, h.SeenMessagesCount)
	assert.EqualValues(t, 0, h.DeletedMessagesCount)
	assert.EqualValues(t, 2, sc.Map.Records.RecordAt(1).UID(), "the surviving record must shift down to close the gap")
}

func TestApplyExpunge_RequestOnlyEntryIsNoop(t *testing.T) {
	sc := newTestContext()
	ctx := context.Background()

	require.NoError(t, sc.Apply(ctx, entry(txlog.TypeAppend, true, appendPayload(appendEntry{UID: 1}))))
	require.NoError(t, sc.Apply(ctx, entry(txlog.TypeExpunge, false, expungePayload(expungeEntry{UID1: 1, UID2: 1}))))

	assert.EqualValues(t, 1, sc.Map.Header.RecordsCount, "a non-external expunge record is a request, not yet a completed change")
}

func TestApplyExpunge_UnknownUIDRangeIsNoop(t *testing.T) {
	sc := newTestContext()
	ctx := context.Background()

	require.NoError(t, sc.Apply(ctx, entry(txlog.TypeAppend, true, appendPayload(appendEntry{UID: 1}))))
	require.NoError(t, sc.Apply(ctx, entry(txlog.TypeExpunge, true, expungePayload(expungeEntry{UID1: 50, UID2: 60}))))

	assert.EqualValues(t, 1, sc.Map.Header.RecordsCount)
}
