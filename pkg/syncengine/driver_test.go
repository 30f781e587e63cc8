package syncengine

import (
	"context"
	"log/slog"
	"testing"

	"github.com/marmos91/mailidx/pkg/extension"
	"github.com/marmos91/mailidx/pkg/fsck"
	"github.com/marmos91/mailidx/pkg/indexmap"
	"github.com/marmos91/mailidx/pkg/modseq"
	"github.com/marmos91/mailidx/pkg/txlog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDriver(log *txlog.MemLog) *Driver {
	return NewDriver(log, extension.NewRegistry(), modseq.NewMemTracker(), fsck.NullRepairer{}, slog.Default())
}

func TestDriver_Run_ReplaysAppendsAndAdvancesHeadOffset(t *testing.T) {
	log := txlog.NewMemLog(1)
	log.Append(txlog.TypeAppend, true, appendPayload(appendEntry{UID: 1}))
	off2 := log.Append(txlog.TypeAppend, true, appendPayload(appendEntry{UID: 2}))
	wantHeadOffset := off2 + entryHeaderWireSize + 8 // second entry's header + its 8-byte payload
	log.SetMaxTailOffset(wantHeadOffset)

	m := indexmap.NewMap(testRecordSize)
	m.Header.LogFileSeq = 1

	d := newTestDriver(log)
	result, driveResult, err := d.Run(context.Background(), m, txlog.SyncFile)
	require.NoError(t, err)
	require.NotNil(t, driveResult)

	assert.EqualValues(t, 2, result.Header.MessagesCount)
	assert.EqualValues(t, 3, result.Header.NextUID)
	assert.EqualValues(t, wantHeadOffset, result.Header.LogFileHeadOffset)
	assert.False(t, driveResult.Corrupted)
	assert.False(t, driveResult.LostLog)
}

func TestDriver_Run_LostLogAllocatesFreshMap(t *testing.T) {
	log := txlog.NewMemLog(7)
	log.Append(txlog.TypeAppend, true, appendPayload(appendEntry{UID: 1}))

	m := indexmap.NewMap(testRecordSize)
	m.Header.LogFileSeq = 99 // stale seq the log no longer has
	m.Header.Flags |= indexmap.FlagFsckd

	d := newTestDriver(log)
	result, driveResult, err := d.Run(context.Background(), m, txlog.SyncFile)
	require.NoError(t, err)

	assert.True(t, driveResult.LostLog)
	assert.EqualValues(t, 7, result.Header.LogFileSeq)
	assert.True(t, result.Header.Fsckd(), "a preserved FSCKD flag must survive the reset")
	assert.EqualValues(t, 1, result.Header.MessagesCount, "the fresh map must replay the current log from the start")
}

func TestDriver_Run_WantsRewriteWhenUnreadLogFarExceedsIndexSize(t *testing.T) {
	log := txlog.NewMemLog(1)
	var lastOffset uint64
	for uid := uint32(1); uid <= 10; uid++ {
		lastOffset = log.Append(txlog.TypeAppend, true, appendPayload(appendEntry{UID: uid}))
	}
	log.SetMaxTailOffset(lastOffset + entryHeaderWireSize + 8) // a small, empty index sees this backlog as large

	m := indexmap.NewMap(testRecordSize)
	m.Header.LogFileSeq = 1

	d := newTestDriver(log)
	result, driveResult, err := d.Run(context.Background(), m, txlog.SyncFile)
	require.NoError(t, err)
	assert.True(t, driveResult.WantsRewrite)
	assert.False(t, driveResult.Corrupted)
	assert.EqualValues(t, 10, result.Header.MessagesCount)
}

func TestDriver_Run_CorruptionTriggersRepairer(t *testing.T) {
	log := txlog.NewMemLog(1)
	log.Append(txlog.TypeAppend, true, []byte{1, 2, 3}) // malformed: not a multiple of appendEntrySize

	m := indexmap.NewMap(testRecordSize)
	m.Header.LogFileSeq = 1

	repairer := &countingRepairer{}
	d := newTestDriver(log)
	d.Repairer = repairer

	_, driveResult, err := d.Run(context.Background(), m, txlog.SyncFile)
	require.NoError(t, err)
	assert.True(t, driveResult.Corrupted)
	assert.True(t, driveResult.FsckInvoked)
	assert.Equal(t, 1, repairer.calls)
}

type countingRepairer struct {
	calls int
}

func (r *countingRepairer) Repair(_ context.Context, m *indexmap.Map) (*indexmap.Map, error) {
	r.calls++
	return m, nil
}
