package syncengine

import (
	"context"

	"github.com/marmos91/mailidx/pkg/recordmap"
)

// ExpungeHandler is one extension's hook into the compact-expunge
// path: called once per expunged record, only during FILE syncs, with
// a view over that record's extension-owned bytes starting at
// RecordOffset.
type ExpungeHandler struct {
	RecordOffset uint32
	Fn           func(ctx context.Context, rec recordmap.Record, handlerCtx any) error
	HandlerCtx   any
}
