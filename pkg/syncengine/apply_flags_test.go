package syncengine

import (
	"context"
	"testing"

	"github.com/marmos91/mailidx/pkg/recordmap"
	"github.com/marmos91/mailidx/pkg/txlog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestApplyFlagUpdate_S3_LowwaterAdvancesToNextUnseen covers
// scenario S3: uid 11 becomes SEEN while uid 12 stays unseen, so the
// lowwater must move forward to 12, never skip past a still-unseen uid.
func TestApplyFlagUpdate_S3_LowwaterAdvancesToNextUnseen(t *testing.T) {
	sc := newTestContext()
	ctx := context.Background()

	require.NoError(t, sc.Apply(ctx, entry(txlog.TypeAppend, true, appendPayload(
		appendEntry{UID: 11},
		appendEntry{UID: 12},
	))))
	require.EqualValues(t, 11, sc.Map.Header.FirstUnseenUIDLowwater)

	require.NoError(t, sc.Apply(ctx, entry(txlog.TypeFlagUpdate, true, flagUpdatePayload(flagUpdateEntry{
		UID1: 11, UID2: 11, Add: recordmap.FlagSeen,
	}))))

	assert.EqualValues(t, 12, sc.Map.Header.FirstUnseenUIDLowwater, "lowwater must advance to the next remaining unseen uid, not drop to zero or skip past 12")
	assert.EqualValues(t, 1, sc.Map.Header.SeenMessagesCount)
}

func TestApplyFlagUpdate_LowwaterUnchangedWhenTransitionNotAtBoundary(t *testing.T) {
	sc := newTestContext()
	ctx := context.Background()

	require.NoError(t, sc.Apply(ctx, entry(txlog.TypeAppend, true, appendPayload(
		appendEntry{UID: 10},
		appendEntry{UID: 11},
	))))
	require.EqualValues(t, 10, sc.Map.Header.FirstUnseenUIDLowwater)

	// Mark uid 11 SEEN; lowwater (10) is below it, so it must not move.
	require.NoError(t, sc.Apply(ctx, entry(txlog.TypeFlagUpdate, true, flagUpdatePayload(flagUpdateEntry{
		UID1: 11, UID2: 11, Add: recordmap.FlagSeen,
	}))))

	assert.EqualValues(t, 10, sc.Map.Header.FirstUnseenUIDLowwater)
}

func TestApplyFlagUpdate_UIDAtOrPastNextUIDIsViolation(t *testing.T) {
	sc := newTestContext()
	ctx := context.Background()
	require.NoError(t, sc.Apply(ctx, entry(txlog.TypeAppend, true, appendPayload(appendEntry{UID: 5}))))

	err := sc.Apply(ctx, entry(txlog.TypeFlagUpdate, true, flagUpdatePayload(flagUpdateEntry{
		UID1: 6, UID2: 6, Add: recordmap.FlagSeen,
	})))
	require.Error(t, err)
	syncErr, ok := err.(*SyncError)
	require.True(t, ok)
	assert.Equal(t, ErrUIDViolation, syncErr.Code)
}

