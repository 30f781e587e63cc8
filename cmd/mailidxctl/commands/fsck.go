package commands

import (
	"fmt"

	"github.com/marmos91/mailidx/pkg/fsck"
	"github.com/spf13/cobra"
)

var (
	fsckLogDir     string
	fsckLogSeq     uint32
	fsckRecordSize uint16
)

var fsckCmd = &cobra.Command{
	Use:   "fsck",
	Short: "Replay a transaction log and repair the resulting index if needed",
	Long: "Fsck runs the same replay as replay, but reports whether the pass " +
		"found corruption and whether the configured repairer was invoked. " +
		"With no repairer wired into the build, it falls back to a no-op " +
		"repairer that only surfaces the corruption.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		m, result, err := runReplay(ctx, fsckLogDir, fsckLogSeq, fsckRecordSize, fsck.NullRepairer{})
		if err != nil {
			return fmt.Errorf("fsck: %w", err)
		}

		if !result.Corrupted {
			cmd.Printf("clean: no corruption detected, records=%d\n", m.Header.RecordsCount)
			return nil
		}

		cmd.Printf("corruption detected during replay\n")
		cmd.Printf("fsck_invoked=%t\n", result.FsckInvoked)

		if consistencyErr := m.CheckConsistency(); consistencyErr != nil {
			cmd.Printf("post-repair consistency: FAIL: %v\n", consistencyErr)
			return fmt.Errorf("fsck: index still inconsistent after repair")
		}

		cmd.Printf("post-repair consistency: OK\n")
		return nil
	},
}

func init() {
	fsckCmd.Flags().StringVar(&fsckLogDir, "log-dir", "", "directory containing the transaction log")
	fsckCmd.Flags().Uint32Var(&fsckLogSeq, "log-seq", 1, "transaction log file sequence number")
	fsckCmd.Flags().Uint16Var(&fsckRecordSize, "record-size", 0, "fixed record size in bytes for the rebuilt index")
	_ = fsckCmd.MarkFlagRequired("log-dir")
	_ = fsckCmd.MarkFlagRequired("record-size")
}
