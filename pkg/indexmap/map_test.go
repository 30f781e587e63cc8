package indexmap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/mailidx/pkg/recordmap"
)

func TestNewMap_InitializesHeaderAndRecords(t *testing.T) {
	m := NewMap(16)
	assert.Equal(t, uint16(16), m.Header.RecordSize)
	assert.Equal(t, uint32(HeaderSize), m.Header.BaseHeaderSize)
	assert.Equal(t, int32(1), m.Refcount())
	assert.Equal(t, -1, m.CurExtMapIdx())
	assert.Len(t, m.HdrCopyBuf(), HeaderSize)
}

func TestMap_AcquireReleaseTracksRefcount(t *testing.T) {
	m := NewMap(8)
	m.Acquire()
	assert.Equal(t, int32(2), m.Refcount())
	m.Release()
	assert.Equal(t, int32(1), m.Refcount())
}

func TestMap_CloneSharesRecordsWithIndependentStruct(t *testing.T) {
	m := NewMap(8)
	m.Records.Append(1, 0)
	m.Header.MessagesCount = 1

	clone := m.Clone()
	assert.NotSame(t, m, clone)
	assert.Same(t, m.Records, clone.Records)
	assert.True(t, m.Records.IsShared())
	assert.Equal(t, int32(1), clone.Refcount())

	clone.Header.MessagesCount = 99
	assert.Equal(t, uint32(1), m.Header.MessagesCount, "cloned header must not alias the original")
}

func TestMap_PromoteToPrivate_SharedStructClonesAndReleasesOriginal(t *testing.T) {
	m := NewMap(8)
	shared := m.Acquire() // refcount now 2, same pointer

	target := shared.PromoteToPrivate()
	assert.NotSame(t, m, target, "promotion must split off a private struct when refcount > 1")
	assert.Equal(t, int32(1), m.Refcount(), "original loses the promoted reference")
	assert.Equal(t, int32(1), target.Refcount())
}

func TestMap_PromoteToPrivate_SharedRecordsGetsPrivateCopy(t *testing.T) {
	m := NewMap(8)
	m.Records.Append(1, 0)

	other := m.Records.CloneShared()
	require.Same(t, m.Records, other)
	require.True(t, m.Records.IsShared())

	target := m.PromoteToPrivate()
	assert.Same(t, m, target, "refcount on the Map struct itself is still 1")
	assert.False(t, target.Records.IsShared())
	assert.NotSame(t, other, target.Records)

	target.Records.Append(2, 0)
	assert.Equal(t, uint32(1), other.Len(), "the still-shared records buffer must be unaffected")
}

func TestMap_PromoteToPrivate_AlreadyPrivateIsNoop(t *testing.T) {
	m := NewMap(8)
	target := m.PromoteToPrivate()
	assert.Same(t, m, target)
	assert.Same(t, m.Records, target.Records)
}

func TestMap_PatchHdrCopyBufBoundsCheck(t *testing.T) {
	m := NewMap(8)
	err := m.PatchHdrCopyBuf(0, []byte{1, 2, 3, 4})
	require.NoError(t, err)

	err = m.PatchHdrCopyBuf(HeaderSize-1, []byte{1, 2})
	assert.Error(t, err)
}

func TestMap_SyncHdrCopyBufFromHeader(t *testing.T) {
	m := NewMap(8)
	m.Header.NextUID = 42
	require.NoError(t, m.SyncHdrCopyBufFromHeader())

	var h Header
	require.NoError(t, h.UnmarshalBinary(m.HdrCopyBuf()))
	assert.Equal(t, uint32(42), h.NextUID)
}

func TestMap_CheckConsistency_ValidMapPasses(t *testing.T) {
	m := NewMap(8)
	m.Records.Append(1, recordmap.FlagSeen)
	m.Header.MessagesCount = 1
	m.Header.RecordsCount = 1
	m.Header.NextUID = 2
	m.Header.SeenMessagesCount = 1
	m.Header.FirstUnseenUIDLowwater = 2
	m.Header.FirstDeletedUIDLowwater = 1

	assert.NoError(t, m.CheckConsistency())
}

func TestMap_CheckConsistency_DetectsSeenCountMismatch(t *testing.T) {
	m := NewMap(8)
	m.Records.Append(1, recordmap.FlagSeen)
	m.Header.MessagesCount = 1
	m.Header.RecordsCount = 1
	m.Header.NextUID = 2
	m.Header.SeenMessagesCount = 0 // wrong: the record is seen
	m.Header.FirstUnseenUIDLowwater = 2
	m.Header.FirstDeletedUIDLowwater = 1

	assert.Error(t, m.CheckConsistency())
}

func TestMap_CheckConsistency_DetectsMessagesExceedingRecords(t *testing.T) {
	m := NewMap(8)
	m.Header.MessagesCount = 5
	m.Header.RecordsCount = 3
	assert.Error(t, m.CheckConsistency())
}
