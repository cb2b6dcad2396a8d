package command

import (
	"github.com/spf13/cobra"

	"github.com/iteebz/spaceos/internal/stats"
)

// NewStatsCmd reports per-agent usage counters across every store.
func NewStatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "per-agent usage counters across every store",
		RunE: func(cmd *cobra.Command, args []string) error {
			k, err := GetKernel(cmd)
			if err != nil {
				return writeCommandError(cmd, false, false, err)
			}
			defer k.Close()

			rows, err := stats.Aggregate(k.Registry, k.Events, k.Bridge, k.Memory, k.Knowledge)
			if err != nil {
				return writeCommandError(cmd, k.JSONMode, k.Quiet, err)
			}

			return emit(cmd, k.JSONMode, k.Quiet, rows, func() {
				printf(cmd, "%-20s %6s %6s %6s %6s %6s\n", "agent", "msgs", "mems", "knows", "events", "spawns")
				for _, r := range rows {
					name := r.Name
					if name == "" {
						name = r.AgentID
					}
					printf(cmd, "%-20s %6d %6d %6d %6d %6d\n", name, r.Msgs, r.Mems, r.Knows, r.Events, r.Spawns)
				}
			})
		},
	}
	return cmd
}
