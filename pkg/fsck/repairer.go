// Package fsck defines the out-of-scope fsck/repair collaborator the
// Sync Driver invokes when a sync pass ends with reported corruption
// or a failed consistency check.
package fsck

import (
	"context"

	"github.com/marmos91/mailidx/pkg/indexmap"
)

// Repairer is the single method the driver calls on corruption.
type Repairer interface {
	Repair(ctx context.Context, m *indexmap.Map) (*indexmap.Map, error)
}

// NullRepairer is a reference Repairer that performs no repair and
// returns the map unchanged, used where no real fsck implementation is
// wired in (tests, or a driver configured to surface corruption to the
// caller instead of auto-repairing).
type NullRepairer struct{}

// Repair returns m unchanged.
func (NullRepairer) Repair(_ context.Context, m *indexmap.Map) (*indexmap.Map, error) {
	return m, nil
}
