package commands

import (
	"context"

	"github.com/marmos91/mailidx/internal/logger"
	"github.com/marmos91/mailidx/pkg/extension"
	"github.com/marmos91/mailidx/pkg/fsck"
	"github.com/marmos91/mailidx/pkg/indexmap"
	"github.com/marmos91/mailidx/pkg/modseq"
	"github.com/marmos91/mailidx/pkg/syncengine"
	"github.com/marmos91/mailidx/pkg/txlog"
)

// runReplay opens the mmap-backed log at logDir/logSeq and replays it
// from scratch onto a fresh Map, the rebuild-from-log path used when no
// persisted index is available (or it is being rebuilt by fsck).
func runReplay(ctx context.Context, logDir string, logSeq uint32, recordSize uint16, repairer fsck.Repairer) (*indexmap.Map, *syncengine.DriveResult, error) {
	log, err := txlog.NewMmapLog(logDir, logSeq)
	if err != nil {
		return nil, nil, err
	}
	defer log.Close()

	driver := syncengine.NewDriver(log, extension.NewRegistry(), modseq.NewMemTracker(), repairer, logger.With("component", "mailidxctl"))

	m := indexmap.NewMap(recordSize)
	m.Header.LogFileSeq = logSeq

	return driver.Run(ctx, m, txlog.SyncFile)
}
