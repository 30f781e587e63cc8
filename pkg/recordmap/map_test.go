package recordmap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMap_AppendZeroFillsExtensionBytes(t *testing.T) {
	m := New(16)

	seq := m.Append(10, FlagSeen)
	require.Equal(t, uint32(1), seq)
	require.Equal(t, uint32(1), m.Len())

	rec := m.RecordAt(1)
	assert.Equal(t, uint32(10), rec.UID())
	assert.True(t, rec.Has(FlagSeen))
	for i := fixedPrefix; i < len(rec); i++ {
		assert.Equal(t, byte(0), rec[i], "extension byte %d must be zero-filled", i)
	}
}

func TestMap_AppendTracksLastAppendedUID(t *testing.T) {
	m := New(8)
	m.Append(1, 0)
	m.Append(2, 0)
	assert.Equal(t, uint32(2), m.LastAppendedUID())
}

func TestMap_CloneSharedTracksRefcount(t *testing.T) {
	m := New(8)
	assert.False(t, m.IsShared())

	clone := m.CloneShared()
	assert.Same(t, m, clone)
	assert.True(t, m.IsShared())

	m.Release()
	assert.False(t, m.IsShared())
}

func TestMap_MakePrivateCopyIsIndependent(t *testing.T) {
	m := New(8)
	m.Append(1, 0)
	m.CloneShared()

	priv := m.MakePrivateCopy()
	assert.False(t, priv.IsShared())

	priv.Append(2, FlagSeen)
	assert.Equal(t, uint32(2), priv.Len())
	assert.Equal(t, uint32(1), m.Len(), "original must be unaffected by mutation of the private copy")
}

func TestMap_SiblingRegistry(t *testing.T) {
	m := New(8)
	type owner struct{ name string }
	a, b := &owner{"a"}, &owner{"b"}

	m.RegisterSibling(a)
	m.RegisterSibling(b)
	assert.ElementsMatch(t, []Sibling{a, b}, m.Siblings())

	m.UnregisterSibling(a)
	assert.ElementsMatch(t, []Sibling{b}, m.Siblings())
}

func TestMap_CompactExpunge(t *testing.T) {
	// Property-style check against scenario S2: uids [1,2,3,4,5],
	// expunge seq 2 and seq 4; expect surviving [1,3,5].
	m := New(8)
	for uid := uint32(1); uid <= 5; uid++ {
		m.Append(uid, 0)
	}

	removed := m.CompactExpunge([]SeqRange{{Start: 2, End: 2}, {Start: 4, End: 4}})
	assert.Equal(t, uint32(2), removed)
	assert.Equal(t, uint32(3), m.Len())

	assert.Equal(t, uint32(1), m.RecordAt(1).UID())
	assert.Equal(t, uint32(3), m.RecordAt(2).UID())
	assert.Equal(t, uint32(5), m.RecordAt(3).UID())
}

func TestMap_CompactExpungeContiguousRangeAndTail(t *testing.T) {
	m := New(8)
	for uid := uint32(1); uid <= 6; uid++ {
		m.Append(uid, 0)
	}

	removed := m.CompactExpunge([]SeqRange{{Start: 2, End: 3}})
	assert.Equal(t, uint32(2), removed)
	require.Equal(t, uint32(4), m.Len())

	want := []uint32{1, 4, 5, 6}
	for i, uid := range want {
		assert.Equal(t, uid, m.RecordAt(uint32(i+1)).UID())
	}
}

func TestMap_CompactExpungeNoRanges(t *testing.T) {
	m := New(8)
	m.Append(1, 0)
	removed := m.CompactExpunge(nil)
	assert.Equal(t, uint32(0), removed)
	assert.Equal(t, uint32(1), m.Len())
}
