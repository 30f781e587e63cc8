package syncengine

import (
	"context"

	"github.com/marmos91/mailidx/pkg/indexmap"
	"github.com/marmos91/mailidx/pkg/txlog"
)

func (sc *Context) applyHeaderUpdate(ctx context.Context, entry txlog.Entry) error {
	entries, ok := decodeHeaderUpdateEntries(entry.Payload)
	if !ok {
		return newSyncError(ErrFraming, sc.LogFileSeq, sc.LogOffset, "HEADER_UPDATE sub-record extends past payload")
	}

	sc.promote()

	for _, e := range entries {
		if err := sc.patchHeader(int(e.Offset), e.Data); err != nil {
			return err
		}
	}

	return nil
}

// patchHeader validates and writes data at offset into hdr_copy_buf,
// then, when the whole range lies within indexmap.HeaderSize, mirrors
// it into the live Header struct, applying the next_uid shrink guard and
// preserving log_file_tail_offset (the driver owns that field).
func (sc *Context) patchHeader(offset int, data []byte) error {
	if offset < 0 || offset+len(data) > int(sc.Map.Header.BaseHeaderSize) {
		return newSyncError(ErrFraming, sc.LogFileSeq, sc.LogOffset, "HEADER_UPDATE offset=%d size=%d exceeds base_header_size=%d", offset, len(data), sc.Map.Header.BaseHeaderSize)
	}

	if err := sc.Map.PatchHdrCopyBuf(offset, data); err != nil {
		return newSyncError(ErrFraming, sc.LogFileSeq, sc.LogOffset, "%v", err)
	}

	if offset+len(data) > indexmap.HeaderSize {
		// Falls entirely or partly in reserved trailing bytes the
		// struct doesn't model; hdr_copy_buf alone carries it.
		return nil
	}

	buf, err := sc.Map.Header.MarshalBinary()
	if err != nil {
		return err
	}
	copy(buf[offset:], data)

	prevNextUID := sc.Map.Header.NextUID
	prevTail := sc.Map.Header.LogFileTailOffset

	var patched indexmap.Header
	if err := patched.UnmarshalBinary(buf); err != nil {
		return err
	}

	if patched.NextUID < prevNextUID {
		patched.NextUID = prevNextUID
	}
	patched.LogFileTailOffset = prevTail

	sc.Map.Header = patched
	return nil
}
