// Package syncengine implements the Sync Context (C5) and Sync Driver
// (C6): replaying a transaction log view onto a private Map copy,
// dispatching each record type per its own mutation rules, and
// producing a final consistent Map whose log_file_head_offset sits
// exactly past the last applied record.
package syncengine

import (
	"context"
	"log/slog"

	"github.com/marmos91/mailidx/pkg/extension"
	"github.com/marmos91/mailidx/pkg/indexmap"
	"github.com/marmos91/mailidx/pkg/modseq"
	"github.com/marmos91/mailidx/pkg/txlog"
)

// extInfo tracks one extension's negotiated schema across a sync pass,
// indexed by the position it was first introduced at.
type extInfo struct {
	name       string
	recordSize uint16
	ignore     bool
}

// intro is the last applied EXT_INTRO's log position, used by the
// driver to implement the extension-intro back-up rule when
// finalizing log_file_head_offset.
type intro struct {
	logFileSeq uint32
	offset     uint64
	endOffset  uint64
	valid      bool
}

// CommitResult accumulates counters the caller inspects after a sync
// pass, mirroring sync_commit_result's ignored_modseq_changes field.
type CommitResult struct {
	IgnoredModseqChanges int
}

// Context is the Sync Context: the live state one Apply loop mutates
// while replaying a view's transactions onto a Map.
type Context struct {
	Map      *indexmap.Map
	SyncKind txlog.SyncKind

	Registry *extension.Registry
	Tracker  modseq.Tracker
	Keywords KeywordEngine

	ExpungeHandlers []ExpungeHandler

	LogFileSeq uint32
	LogOffset  uint64

	Corrupted    bool
	CommitResult *CommitResult

	Logger *slog.Logger

	modseqCtx context.Context
	exts      []extInfo
	lastIntro intro

	// unknownExtScratch is allocated per pass and released by Deinit.
	// Nothing writes to it: EXT_HDR_UPDATE/EXT_REC_UPDATE bytes for
	// extensions with no registered Handler are skipped, not kept.
	unknownExtScratch map[string][]byte
}

// NewContext creates a Sync Context over m, ready for one sync pass.
func NewContext(m *indexmap.Map, registry *extension.Registry, tracker modseq.Tracker, kind txlog.SyncKind, logger *slog.Logger) *Context {
	if logger == nil {
		logger = slog.Default()
	}
	sc := &Context{
		Map:               m,
		SyncKind:          kind,
		Registry:          registry,
		Tracker:           tracker,
		Logger:            logger,
		unknownExtScratch: make(map[string][]byte),
	}
	if tracker != nil {
		sc.modseqCtx = tracker.Begin(context.Background(), m)
	}
	return sc
}

// Apply is the central dispatch: it routes entry to the handler for
// its record type, promoting the working Map to a private copy first
// whenever the type mutates anything.
func (sc *Context) Apply(ctx context.Context, entry txlog.Entry) error {
	sc.LogFileSeq = entry.LogFileSeq
	sc.LogOffset = entry.Offset

	switch entry.Header.RecordType() {
	case txlog.TypeAppend:
		return sc.applyAppend(ctx, entry)
	case txlog.TypeExpunge, txlog.TypeExpungeGuid:
		return sc.applyExpunge(ctx, entry)
	case txlog.TypeFlagUpdate:
		return sc.applyFlagUpdate(ctx, entry)
	case txlog.TypeHeaderUpdate:
		return sc.applyHeaderUpdate(ctx, entry)
	case txlog.TypeExtIntro:
		return sc.applyExtIntro(ctx, entry)
	case txlog.TypeExtReset:
		return sc.applyExtReset(ctx, entry)
	case txlog.TypeExtHdrUpdate:
		return sc.applyExtHdrUpdate(ctx, entry, false)
	case txlog.TypeExtHdrUpdate32:
		return sc.applyExtHdrUpdate(ctx, entry, true)
	case txlog.TypeExtRecUpdate:
		return sc.applyExtRecUpdate(ctx, entry)
	case txlog.TypeExtAtomicInc:
		return sc.applyExtAtomicInc(ctx, entry)
	case txlog.TypeKeywordUpdate:
		return sc.applyKeywordUpdate(ctx, entry)
	case txlog.TypeKeywordReset:
		return sc.applyKeywordReset(ctx, entry)
	case txlog.TypeModseqUpdate:
		return sc.applyModseqUpdate(ctx, entry)
	case txlog.TypeIndexDeleted:
		sc.promote()
		if !entry.Header.External() {
			sc.Map.DeleteRequested = true
		}
		return nil
	case txlog.TypeIndexUndeleted:
		sc.promote()
		sc.Map.DeleteRequested = false
		return nil
	case txlog.TypeBoundary, txlog.TypeAttributeUpdate:
		return nil
	default:
		return newSyncError(ErrUnknownType, sc.LogFileSeq, sc.LogOffset, "unrecognized record type %d", uint32(entry.Header.RecordType()))
	}
}

// promote ensures sc.Map is exclusively owned, reassigning it in
// place when PromoteToPrivate had to split off a private copy.
func (sc *Context) promote() {
	sc.Map = sc.Map.PromoteToPrivate()
}

// LastIntroEndOffset reports the end offset of the last applied
// EXT_INTRO and whether one was applied at all, for the driver's
// finalize-time back-up rule.
func (sc *Context) LastIntroEndOffset() (logFileSeq uint32, start, end uint64, ok bool) {
	return sc.lastIntro.logFileSeq, sc.lastIntro.offset, sc.lastIntro.endOffset, sc.lastIntro.valid
}

// Deinit releases every resource the Sync Context acquired: the
// modseq sub-context, the expunge handler array, and the
// unknown-extension scratch buffer.
func (sc *Context) Deinit() {
	if sc.Tracker != nil && sc.modseqCtx != nil {
		sc.Tracker.End(sc.modseqCtx)
	}
	sc.ExpungeHandlers = nil
	sc.unknownExtScratch = nil
}
