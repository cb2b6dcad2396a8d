package command

import (
	"github.com/spf13/cobra"

	"github.com/iteebz/spaceos/internal/stats"
)

// NewContextCmd assembles a topic-scoped timeline, current state, and
// matching canon docs, optionally scoped to a single identity.
func NewContextCmd() *cobra.Command {
	var identity string
	cmd := &cobra.Command{
		Use:   "context <topic>",
		Short: "assemble timeline, current state, and canon matches for topic",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			k, err := GetKernel(cmd)
			if err != nil {
				return writeCommandError(cmd, false, false, err)
			}
			defer k.Close()

			ctx, err := stats.GetContext(k.Registry, k.Events, k.Bridge, k.Memory, k.Knowledge, k.Workspace, args[0], identity)
			if err != nil {
				return writeCommandError(cmd, k.JSONMode, k.Quiet, err)
			}

			return emit(cmd, k.JSONMode, k.Quiet, ctx, func() {
				printf(cmd, "timeline:\n")
				for _, t := range ctx.Timeline {
					printf(cmd, "  [%s] %s %s: %s\n", t.Source, t.Type, t.Identity, t.Data)
				}
				printf(cmd, "current state:\n")
				for _, m := range ctx.CurrentState.Memory {
					printf(cmd, "  memory %s %s: %s\n", m.Identity, m.Topic, m.Message)
				}
				for _, kn := range ctx.CurrentState.Knowledge {
					printf(cmd, "  knowledge %s %s: %s\n", kn.Contributor, kn.Domain, kn.Content)
				}
				for _, b := range ctx.CurrentState.Bridge {
					printf(cmd, "  bridge #%s %s: %s\n", b.Channel, b.Sender, b.Content)
				}
				for name := range ctx.CanonDocs {
					printf(cmd, "canon: %s\n", name)
				}
			})
		},
	}
	cmd.Flags().StringVar(&identity, "identity", "", "scope to a single identity")
	return cmd
}
