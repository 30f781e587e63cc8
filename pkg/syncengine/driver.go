package syncengine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/marmos91/mailidx/pkg/extension"
	"github.com/marmos91/mailidx/pkg/fsck"
	"github.com/marmos91/mailidx/pkg/indexmap"
	"github.com/marmos91/mailidx/pkg/modseq"
	"github.com/marmos91/mailidx/pkg/recordmap"
	"github.com/marmos91/mailidx/pkg/txlog"
)

const entryHeaderWireSize = 8

// entryFrameSize is the physical on-log size of entry: an 8-byte
// header plus its payload padded to a 4-byte boundary.
func entryFrameSize(e txlog.Entry) uint64 {
	return uint64(entryHeaderWireSize) + uint64(extension.Align4(uint32(len(e.Payload))))
}

// DriveResult reports what a single Driver.Run pass observed, for the
// caller to act on (advisory rewrite hint, corruption, fsck outcome).
type DriveResult struct {
	WantsRewrite bool
	Corrupted    bool
	FsckInvoked  bool
	LostLog      bool
	CommitResult *CommitResult
}

// Driver is the Sync Driver (C6): it orchestrates one full replay of a
// transaction log view onto a Map, producing the new Map the caller
// should install in place of the one it passed in.
type Driver struct {
	Reader   txlog.Reader
	Registry *extension.Registry
	Tracker  modseq.Tracker
	Repairer fsck.Repairer
	Keywords KeywordEngine

	ExpungeHandlers []ExpungeHandler

	Logger  *slog.Logger
	Metrics SyncMetrics

	// WantsRewriteRatio: the loop marks the index "wants rewrite" when
	// unread log bytes exceed this multiple of the index's current
	// on-disk size.
	WantsRewriteRatio float64
}

// NewDriver creates a Driver with the default wants-rewrite ratio.
func NewDriver(reader txlog.Reader, registry *extension.Registry, tracker modseq.Tracker, repairer fsck.Repairer, logger *slog.Logger) *Driver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Driver{
		Reader:            reader,
		Registry:          registry,
		Tracker:           tracker,
		Repairer:          repairer,
		Logger:            logger,
		WantsRewriteRatio: 2.0,
	}
}

// Run replays the log onto m (of the given sync kind) and returns the
// resulting Map to install, which may be m itself, a privately
// promoted copy, or a freshly allocated Map if the log reported reset.
func (d *Driver) Run(ctx context.Context, m *indexmap.Map, kind txlog.SyncKind) (*indexmap.Map, *DriveResult, error) {
	result := &DriveResult{}

	var startOffset uint64
	if kind == txlog.SyncFile {
		startOffset = m.Header.LogFileTailOffset
	} else {
		startOffset = m.Header.LogFileHeadOffset
	}

	view, err := d.Reader.OpenView(ctx, m.Header.LogFileSeq, startOffset)
	resetNeeded := false
	if errors.Is(err, txlog.ErrLogNotFound) {
		resetNeeded = true
		result.LostLog = true
	} else if err != nil {
		return nil, nil, fmt.Errorf("syncengine: open log view: %w", err)
	} else if view.Reset() {
		resetNeeded = true
		result.LostLog = true
	}

	if view != nil {
		if tail := view.MaxTailOffset(); tail > startOffset {
			unread := tail - startOffset
			indexSize := uint64(m.Header.RecordsCount)*uint64(m.Header.RecordSize) + uint64(m.Header.HeaderSize)
			if indexSize == 0 || float64(unread) > d.WantsRewriteRatio*float64(indexSize) {
				result.WantsRewrite = true
			}
		}
	}

	wasDirty := m.Header.HaveDirty()
	m.Header.SetHaveDirty(false)

	working := m

	if resetNeeded {
		currentSeq, seqErr := d.Reader.CurrentLogFileSeq(ctx)
		if seqErr != nil {
			return nil, nil, fmt.Errorf("syncengine: resolve current log sequence after reset: %w", seqErr)
		}

		fresh := indexmap.NewMap(m.Header.RecordSize)
		if m.Header.Fsckd() {
			fresh.Header.Flags |= indexmap.FlagFsckd
		}
		fresh.Header.LogFileSeq = currentSeq
		fresh.Header.LogFileTailOffset = 0
		working = fresh

		view, err = d.Reader.OpenView(ctx, working.Header.LogFileSeq, 0)
		if err != nil {
			return nil, nil, fmt.Errorf("syncengine: reopen log view after reset: %w", err)
		}
		startOffset = 0
	}

	sc := NewContext(working, d.Registry, d.Tracker, kind, d.Logger)
	sc.Keywords = d.Keywords
	sc.ExpungeHandlers = d.ExpungeHandlers
	sc.CommitResult = &CommitResult{}
	result.CommitResult = sc.CommitResult

	lastOffset := startOffset
	sawCorruption := false
	applied := 0

	for {
		entry, ok, err := view.Next(ctx)
		if err != nil {
			sc.Deinit()
			_ = view.Close()
			return nil, nil, fmt.Errorf("syncengine: read log entry: %w", err)
		}
		if !ok {
			break
		}

		if kind == txlog.SyncFile && entry.Offset < working.Header.LogFileHeadOffset {
			continue // already applied on a prior pass
		}

		if err := sc.Apply(ctx, entry); err != nil {
			sawCorruption = true
			d.Logger.WarnContext(ctx, "sync corruption", "error", err)
		}
		applied++
		working = sc.Map
		lastOffset = entry.Offset + entryFrameSize(entry)
	}

	if wasDirty {
		working.Header.SetHaveDirty(anyRecordDirty(working.Records))
	}

	sc.Deinit()

	atEOL := lastOffset >= view.MaxTailOffset()
	headOffset := lastOffset
	if !atEOL {
		if _, start, end, valid := sc.LastIntroEndOffset(); valid && end == headOffset {
			headOffset = start
		}
	}
	working.Header.LogFileHeadOffset = headOffset

	if tail := view.MaxTailOffset(); tail > working.Header.LogFileTailOffset {
		working.Header.LogFileTailOffset = tail
	}

	if err := working.SyncHdrCopyBufFromHeader(); err != nil {
		_ = view.Close()
		return nil, nil, err
	}

	result.Corrupted = sawCorruption
	if consistencyErr := working.CheckConsistency(); consistencyErr != nil || sawCorruption {
		result.Corrupted = true
		if d.Repairer != nil {
			repaired, repairErr := d.Repairer.Repair(ctx, working)
			if repairErr == nil && repaired != nil {
				working = repaired
				result.FsckInvoked = true
			}
		}
	}

	if err := view.Close(); err != nil {
		return nil, nil, fmt.Errorf("syncengine: close log view: %w", err)
	}

	if d.Metrics != nil {
		d.Metrics.RecordsApplied(applied)
		if result.Corrupted {
			d.Metrics.CorruptionEvent()
		}
		if result.FsckInvoked {
			d.Metrics.FsckInvoked()
		}
		if working.Header.LogFileTailOffset > working.Header.LogFileHeadOffset {
			d.Metrics.SetHeadOffsetLag(working.Header.LogFileTailOffset - working.Header.LogFileHeadOffset)
		} else {
			d.Metrics.SetHeadOffsetLag(0)
		}
	}

	return working, result, nil
}

func anyRecordDirty(rm *recordmap.Map) bool {
	n := rm.Len()
	for seq := uint32(1); seq <= n; seq++ {
		if rm.RecordAt(seq).Has(recordmap.FlagDirty) {
			return true
		}
	}
	return false
}
