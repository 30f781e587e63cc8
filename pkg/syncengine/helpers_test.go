package syncengine

import (
	"encoding/binary"
	"log/slog"

	"github.com/marmos91/mailidx/pkg/extension"
	"github.com/marmos91/mailidx/pkg/indexmap"
	"github.com/marmos91/mailidx/pkg/modseq"
	"github.com/marmos91/mailidx/pkg/txlog"
)

const testRecordSize = 8 // fixed prefix (uid+flags=5) rounded up, no extension bytes

func newTestContext() *Context {
	m := indexmap.NewMap(testRecordSize)
	return NewContext(m, extension.NewRegistry(), modseq.NewMemTracker(), txlog.SyncFile, slog.Default())
}

func appendPayload(entries ...appendEntry) []byte {
	buf := make([]byte, 0, len(entries)*appendEntrySize)
	for _, e := range entries {
		row := make([]byte, appendEntrySize)
		binary.LittleEndian.PutUint32(row[0:4], e.UID)
		row[4] = e.Flags
		buf = append(buf, row...)
	}
	return buf
}

func flagUpdatePayload(e flagUpdateEntry) []byte {
	buf := make([]byte, flagUpdateEntrySize)
	binary.LittleEndian.PutUint32(buf[0:4], e.UID1)
	binary.LittleEndian.PutUint32(buf[4:8], e.UID2)
	buf[8] = e.Add
	buf[9] = e.Remove
	return buf
}

func expungePayload(e expungeEntry) []byte {
	buf := make([]byte, expungeEntrySize)
	binary.LittleEndian.PutUint32(buf[0:4], e.UID1)
	binary.LittleEndian.PutUint32(buf[4:8], e.UID2)
	return buf
}

func headerUpdatePayload(offset uint16, data []byte) []byte {
	buf := make([]byte, hdrUpdateFixedSize)
	binary.LittleEndian.PutUint16(buf[0:2], offset)
	binary.LittleEndian.PutUint16(buf[2:4], uint16(len(data)))
	buf = append(buf, data...)
	padded := extension.Align4(uint32(len(buf)))
	for uint32(len(buf)) < padded {
		buf = append(buf, 0)
	}
	return buf
}

func entry(recordType txlog.RecordType, external bool, payload []byte) txlog.Entry {
	typ := uint32(recordType)
	if external {
		typ |= txlog.FlagExternal
	}
	return txlog.Entry{
		Header:  txlog.EntryHeader{Type: typ, Size: extension.Align4(uint32(len(payload)))},
		Payload: payload,
	}
}
