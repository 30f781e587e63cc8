// mmaplog.go provides a memory-mapped, append-only transaction log.
//
// File Format:
//
//	Header (64 bytes):
//	  - Magic: "MIDX" (4 bytes)
//	  - Version: uint16 (2 bytes)
//	  - Generation: uint32 (4 bytes) - bumped on Reset, detects log rotation
//	  - LogFileSeq: uint32 (4 bytes)
//	  - EntryCount: uint32 (4 bytes)
//	  - NextOffset: uint64 (8 bytes) - byte offset of the next entry to append
//	  - MaxTailOffset: uint64 (8 bytes)
//	  - Reserved: 30 bytes
//
//	Entries (variable), starting at offset 64:
//	  - Type: uint32 (4 bytes) - RecordType in the low byte, flag bits above
//	  - Size: uint32 (4 bytes) - payload length, pre-padding
//	  - Payload: Size bytes, then zero-padded to a 4-byte boundary
//
// A reader replays entries from an arbitrary (logFileSeq, offset) position;
// OpenView rejects a stale logFileSeq or an offset that doesn't land on an
// entry boundary with ErrLogNotFound.
package txlog

import (
	"context"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/sys/unix"
)

const (
	mmapMagic        = "MIDX"
	mmapVersion      = uint16(1)
	mmapHeaderSize   = 64
	mmapInitialSize  = 1 * 1024 * 1024 // 1MB initial file size
	mmapGrowthFactor = 2               // double size when growing
)

type mmapHeader struct {
	Magic         [4]byte
	Version       uint16
	Generation    uint32
	LogFileSeq    uint32
	EntryCount    uint32
	NextOffset    uint64
	MaxTailOffset uint64
}

// MmapLog is a memory-mapped, append-only transaction log. It is the
// reference Reader backing used when the sync driver must be exercised
// against a real mmap-backed region rather than an in-memory fixture.
type MmapLog struct {
	mu     sync.Mutex
	path   string
	file   *os.File
	data   []byte
	size   uint64
	header *mmapHeader
	closed bool
}

// NewMmapLog opens or creates a transaction log file at dir/txlog.dat.
func NewMmapLog(dir string, logFileSeq uint32) (*MmapLog, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create directory: %w", err)
	}

	l := &MmapLog{path: filepath.Join(dir, "txlog.dat")}
	if err := l.init(logFileSeq); err != nil {
		return nil, fmt.Errorf("init txlog: %w", err)
	}
	return l, nil
}

func (l *MmapLog) init(logFileSeq uint32) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, err := os.Stat(l.path); err == nil {
		return l.openExisting()
	}
	return l.createNew(logFileSeq)
}

func (l *MmapLog) createNew(logFileSeq uint32) error {
	f, err := os.OpenFile(l.path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("create file: %w", err)
	}

	if err := f.Truncate(int64(mmapInitialSize)); err != nil {
		f.Close()
		return fmt.Errorf("truncate file: %w", err)
	}

	data, err := unix.Mmap(int(f.Fd()), 0, mmapInitialSize, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		f.Close()
		return fmt.Errorf("mmap: %w", err)
	}

	l.file = f
	l.data = data
	l.size = mmapInitialSize
	l.header = &mmapHeader{
		Version:    mmapVersion,
		LogFileSeq: logFileSeq,
		NextOffset: mmapHeaderSize,
	}
	copy(l.header.Magic[:], mmapMagic)
	l.writeHeader()
	return nil
}

func (l *MmapLog) openExisting() error {
	f, err := os.OpenFile(l.path, os.O_RDWR, 0644)
	if err != nil {
		return fmt.Errorf("open file: %w", err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return fmt.Errorf("stat file: %w", err)
	}

	size := uint64(info.Size())
	if size < mmapHeaderSize {
		f.Close()
		return fmt.Errorf("txlog file too small: %d bytes", size)
	}

	data, err := unix.Mmap(int(f.Fd()), 0, int(size), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		f.Close()
		return fmt.Errorf("mmap: %w", err)
	}

	l.file = f
	l.data = data
	l.size = size
	l.header = readHeader(data)

	if string(l.header.Magic[:]) != mmapMagic {
		l.closeLocked()
		return fmt.Errorf("txlog: bad magic")
	}
	if l.header.Version != mmapVersion {
		l.closeLocked()
		return fmt.Errorf("txlog: version mismatch")
	}
	return nil
}

func readHeader(data []byte) *mmapHeader {
	h := &mmapHeader{}
	copy(h.Magic[:], data[0:4])
	h.Version = binary.LittleEndian.Uint16(data[4:6])
	h.Generation = binary.LittleEndian.Uint32(data[6:10])
	h.LogFileSeq = binary.LittleEndian.Uint32(data[10:14])
	h.EntryCount = binary.LittleEndian.Uint32(data[14:18])
	h.NextOffset = binary.LittleEndian.Uint64(data[18:26])
	h.MaxTailOffset = binary.LittleEndian.Uint64(data[26:34])
	return h
}

func (l *MmapLog) writeHeader() {
	copy(l.data[0:4], l.header.Magic[:])
	binary.LittleEndian.PutUint16(l.data[4:6], l.header.Version)
	binary.LittleEndian.PutUint32(l.data[6:10], l.header.Generation)
	binary.LittleEndian.PutUint32(l.data[10:14], l.header.LogFileSeq)
	binary.LittleEndian.PutUint32(l.data[14:18], l.header.EntryCount)
	binary.LittleEndian.PutUint64(l.data[18:26], l.header.NextOffset)
	binary.LittleEndian.PutUint64(l.data[26:34], l.header.MaxTailOffset)
}

// AppendEntry appends a transaction record to the log.
func (l *MmapLog) AppendEntry(recordType RecordType, external bool, payload []byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return fmt.Errorf("txlog: closed")
	}

	typ := uint32(recordType)
	if external {
		typ |= FlagExternal
	}

	padded := alignedSize(len(payload))
	total := entryHeaderSize + uint64(padded)

	if err := l.ensureSpace(total); err != nil {
		return err
	}

	offset := l.header.NextOffset
	binary.LittleEndian.PutUint32(l.data[offset:], typ)
	binary.LittleEndian.PutUint32(l.data[offset+4:], uint32(len(payload)))
	copy(l.data[offset+8:], payload)
	for i := len(payload); i < int(padded); i++ {
		l.data[offset+8+uint64(i)] = 0
	}

	l.header.NextOffset = offset + total
	l.header.EntryCount++
	l.writeHeader()
	return nil
}

// SetMaxTailOffset records the log head's advertised max tail offset.
func (l *MmapLog) SetMaxTailOffset(offset uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return fmt.Errorf("txlog: closed")
	}
	l.header.MaxTailOffset = offset
	l.writeHeader()
	return nil
}

// Reset truncates the log back to empty and bumps its generation, so
// open Views observe Reset()==true and the driver installs a fresh map.
func (l *MmapLog) Reset(logFileSeq uint32) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return fmt.Errorf("txlog: closed")
	}
	l.header.Generation++
	l.header.LogFileSeq = logFileSeq
	l.header.EntryCount = 0
	l.header.NextOffset = mmapHeaderSize
	l.writeHeader()
	return nil
}

func (l *MmapLog) ensureSpace(needed uint64) error {
	if l.header.NextOffset+needed <= l.size {
		return nil
	}

	newSize := l.size * mmapGrowthFactor
	for l.header.NextOffset+needed > newSize {
		newSize *= mmapGrowthFactor
	}

	if err := unix.Munmap(l.data); err != nil {
		return fmt.Errorf("munmap: %w", err)
	}
	if err := l.file.Truncate(int64(newSize)); err != nil {
		return fmt.Errorf("truncate: %w", err)
	}
	data, err := unix.Mmap(int(l.file.Fd()), 0, int(newSize), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return fmt.Errorf("mmap: %w", err)
	}
	l.data = data
	l.size = newSize
	return nil
}

// Sync flushes dirty mmap pages asynchronously.
func (l *MmapLog) Sync() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return fmt.Errorf("txlog: closed")
	}
	return unix.Msync(l.data, unix.MS_ASYNC)
}

// Close releases the mmap region and underlying file.
func (l *MmapLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.closeLocked()
}

func (l *MmapLog) closeLocked() error {
	if l.closed {
		return nil
	}
	l.closed = true

	if l.data != nil {
		_ = unix.Msync(l.data, unix.MS_SYNC)
		if err := unix.Munmap(l.data); err != nil {
			return fmt.Errorf("munmap: %w", err)
		}
		l.data = nil
	}
	if l.file != nil {
		if err := l.file.Close(); err != nil {
			return fmt.Errorf("close file: %w", err)
		}
		l.file = nil
	}
	return nil
}

// CurrentLogFileSeq implements Reader.
func (l *MmapLog) CurrentLogFileSeq(ctx context.Context) (uint32, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return 0, fmt.Errorf("txlog: closed")
	}
	return l.header.LogFileSeq, nil
}

// OpenView implements Reader.
func (l *MmapLog) OpenView(ctx context.Context, logFileSeq uint32, offset uint64) (View, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return nil, fmt.Errorf("txlog: closed")
	}
	if logFileSeq != l.header.LogFileSeq {
		return nil, ErrLogNotFound
	}
	if offset < mmapHeaderSize || offset > l.header.NextOffset {
		return nil, ErrLogNotFound
	}
	pos := uint64(mmapHeaderSize)
	for pos < offset {
		size := binary.LittleEndian.Uint32(l.data[pos+4:])
		pos += entryHeaderSize + uint64(alignedSize(int(size)))
	}
	if pos != offset {
		return nil, ErrLogNotFound
	}

	return &mmapView{
		log:        l,
		offset:     offset,
		openGen:    l.header.Generation,
	}, nil
}

// mmapView is MmapLog's View implementation.
type mmapView struct {
	log     *MmapLog
	offset  uint64
	openGen uint32
}

func (v *mmapView) Next(ctx context.Context) (Entry, bool, error) {
	v.log.mu.Lock()
	defer v.log.mu.Unlock()

	if v.log.closed {
		return Entry{}, false, fmt.Errorf("txlog: closed")
	}
	if v.offset >= v.log.header.NextOffset {
		return Entry{}, false, nil
	}
	if v.offset+entryHeaderSize > v.log.size {
		return Entry{}, false, fmt.Errorf("txlog: corrupted entry header at offset %d", v.offset)
	}

	typ := binary.LittleEndian.Uint32(v.log.data[v.offset:])
	size := binary.LittleEndian.Uint32(v.log.data[v.offset+4:])
	padded := alignedSize(int(size))

	payloadStart := v.offset + entryHeaderSize
	if payloadStart+uint64(size) > v.log.size {
		return Entry{}, false, fmt.Errorf("txlog: corrupted payload at offset %d", v.offset)
	}

	payload := make([]byte, size)
	copy(payload, v.log.data[payloadStart:payloadStart+uint64(size)])

	entry := Entry{
		Header:     EntryHeader{Type: typ, Size: padded},
		Payload:    payload,
		LogFileSeq: v.log.header.LogFileSeq,
		Offset:     v.offset,
	}

	v.offset += entryHeaderSize + uint64(padded)
	return entry, true, nil
}

func (v *mmapView) Reset() bool {
	v.log.mu.Lock()
	defer v.log.mu.Unlock()

	if v.openGen != v.log.header.Generation {
		v.openGen = v.log.header.Generation
		return true
	}
	return false
}

func (v *mmapView) MaxTailOffset() uint64 {
	v.log.mu.Lock()
	defer v.log.mu.Unlock()
	return v.log.header.MaxTailOffset
}

func (v *mmapView) Close() error {
	return nil
}

var _ Reader = (*MmapLog)(nil)
var _ View = (*mmapView)(nil)
