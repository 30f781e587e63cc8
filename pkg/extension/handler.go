// Package extension implements the Extension Engine component (C4):
// dispatch of extension intro/reset/per-record-update/atomic-inc/
// header-update records to whichever Handler a Registry has bound for
// that extension, plus the Registry itself.
package extension

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// Descriptor identifies one extension's schema as introduced by an
// EXT_INTRO record: its name, its declared per-record payload size,
// and its declared header payload size.
type Descriptor struct {
	// ID is an optional identity for this introduction. The Sync
	// Context does not assign one: every Descriptor it passes to Intro
	// carries the zero UUID.
	ID uuid.UUID

	Name       string
	RecordSize uint16
	HdrSize    uint32

	// ResetID is the reset generation this introduction carries, used
	// by Handler.Reset to recognize a reset that has already been
	// applied.
	ResetID uint32
}

// Handler is the capability set an extension implementation exposes.
// A Registry looks one up by name and dispatches every record type
// that mentions "the current extension" to it.
type Handler interface {
	// Intro is called once per EXT_INTRO sub-record naming this
	// extension, including re-introductions that only change ResetID
	// or declared sizes.
	Intro(ctx context.Context, desc Descriptor) error

	// Reset is called for an EXT_RESET record, given the new reset ID
	// the log wants installed.
	Reset(ctx context.Context, newResetID uint32) error

	// RecUpdate is called once per padded-stride entry inside an
	// EXT_REC_UPDATE payload whose uid resolves to a record in the map,
	// given that record's 1-based sequence number and the raw update
	// payload. Entries whose uid is not in the map are skipped.
	RecUpdate(ctx context.Context, seq uint32, payload []byte) error

	// AtomicInc is called once per entry inside an EXT_ATOMIC_INC
	// payload whose uid resolves to a record in the map: add delta
	// (which may be negative) to the counter of the record at the given
	// 1-based sequence number.
	AtomicInc(ctx context.Context, seq uint32, delta int32) error

	// HdrUpdate is called once per length-prefixed sub-record inside an
	// EXT_HDR_UPDATE or EXT_HDR_UPDATE32 payload.
	HdrUpdate(ctx context.Context, offset uint32, data []byte) error
}

// ErrUnknownExtension is returned by Registry.Lookup when no handler
// has been registered for a name the log references. Callers treat
// this as the "unrecognized extension" case whose updates are skipped
// (indexmap.Map.SetCurExt with ignore=true), not a corruption.
var ErrUnknownExtension = errors.New("extension: no handler registered")
