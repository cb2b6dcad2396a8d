package command

import (
	"github.com/spf13/cobra"

	"github.com/iteebz/spaceos/internal/lifecycle"
)

// NewWakeCmd opens a session for --as and prints its orientation
// payload.
func NewWakeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "wake",
		Short: "start a session and surface orientation context",
		RunE: func(cmd *cobra.Command, args []string) error {
			k, err := GetKernel(cmd)
			if err != nil {
				return writeCommandError(cmd, false, false, err)
			}
			defer k.Close()

			identityName, err := k.RequireIdentity()
			if err != nil {
				return writeCommandError(cmd, k.JSONMode, k.Quiet, err)
			}

			orientation, err := lifecycle.Wake(k.Registry, k.Events, k.Bridge, k.Memory, identityName)
			if err != nil {
				return writeCommandError(cmd, k.JSONMode, k.Quiet, err)
			}

			return emit(cmd, k.JSONMode, k.Quiet, orientation, func() {
				if orientation.FirstBoot {
					printf(cmd, "welcome, %s. first boot.\n", identityName)
				} else {
					printf(cmd, "welcome back, %s. (%d prior sleeps)\n", identityName, orientation.PriorSleepCount)
				}
				if orientation.LastCheckpoint != nil {
					printf(cmd, "last checkpoint: %s\n", orientation.LastCheckpoint.Message)
				}
				for _, entry := range orientation.CoreMemories {
					printf(cmd, "core %s: %s\n", entry.Topic, entry.Message)
				}
				for _, ch := range orientation.UnreadChannels {
					printf(cmd, "unread #%s (%d)\n", ch.Name, ch.UnreadCount)
				}
			})
		},
	}
	return cmd
}

// NewSleepCmd checkpoints active channels, git status, and memory
// gaps for --as, optionally as a dry run.
func NewSleepCmd() *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "sleep",
		Short: "checkpoint before compaction and print the pre-exit checklist",
		RunE: func(cmd *cobra.Command, args []string) error {
			k, err := GetKernel(cmd)
			if err != nil {
				return writeCommandError(cmd, false, false, err)
			}
			defer k.Close()

			identityName, err := k.RequireIdentity()
			if err != nil {
				return writeCommandError(cmd, k.JSONMode, k.Quiet, err)
			}

			summary, err := lifecycle.Sleep(k.Registry, k.Events, k.Bridge, k.Memory, k.Workspace, identityName, dryRun)
			if err != nil {
				return writeCommandError(cmd, k.JSONMode, k.Quiet, err)
			}

			return emit(cmd, k.JSONMode, k.Quiet, summary, func() {
				printf(cmd, "checkpointed %d active channel(s) for %s\n", len(summary.ActiveChannels), identityName)
				if summary.GitStatus != "" {
					printf(cmd, "uncommitted changes detected\n")
				}
				if summary.MemoryGap {
					printf(cmd, "no memory entries found — logged a gap checkpoint\n")
				}
				printf(cmd, "\n%s\n", lifecycle.Checklist)
			})
		},
	}
	cmd.Flags().BoolVar(&dryRun, "check", false, "preview without persisting checkpoints")
	return cmd
}
