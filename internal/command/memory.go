package command

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/iteebz/spaceos/internal/core"
)

// NewMemoryCmd groups the per-agent memory verbs: add, list, get,
// search, archive, restore, core, related, replace, chain.
func NewMemoryCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "memory", Short: "per-agent memory with supersession"}
	cmd.AddCommand(
		newMemoryAddCmd(),
		newMemoryListCmd(),
		newMemoryGetCmd(),
		newMemorySearchCmd(),
		newMemoryArchiveCmd(),
		newMemoryRestoreCmd(),
		newMemoryCoreCmd(),
		newMemoryRelatedCmd(),
		newMemoryReplaceCmd(),
		newMemoryChainCmd(),
	)
	return cmd
}

func newMemoryAddCmd() *cobra.Command {
	var isCore bool
	var channel, anchors string
	cmd := &cobra.Command{
		Use:   "add <topic> <message>",
		Short: "add a memory entry for --as",
		Args:  cobra.ExactArgs(2),
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
			agentID, err := k.Registry.EnsureAgent(identityName)
			if err != nil {
				return writeCommandError(cmd, k.JSONMode, k.Quiet, err)
			}

			id, err := k.Memory.AddEntry(agentID, args[0], args[1], isCore, "manual", channel, anchors)
			if err != nil {
				return writeCommandError(cmd, k.JSONMode, k.Quiet, err)
			}
			if _, err := k.Events.Emit("memory", "add", agentID, args[0]); err != nil {
				return writeCommandError(cmd, k.JSONMode, k.Quiet, err)
			}

			return emit(cmd, k.JSONMode, k.Quiet, map[string]any{"memory_id": id, "topic": args[0]}, func() {
				printf(cmd, "[%s] %s: %s\n", highlight(core.Short(id)), args[0], args[1])
			})
		},
	}
	cmd.Flags().BoolVar(&isCore, "core", false, "flag this entry as core")
	cmd.Flags().StringVar(&channel, "channel", "", "bridge channel this entry is anchored to")
	cmd.Flags().StringVar(&anchors, "anchors", "", "code anchors for this entry")
	return cmd
}

func newMemoryListCmd() *cobra.Command {
	var topic string
	var includeArchived bool
	var limit int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "list --as's memory entries, newest first",
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
			agentID, err := k.Registry.EnsureAgent(identityName)
			if err != nil {
				return writeCommandError(cmd, k.JSONMode, k.Quiet, err)
			}

			entries, err := k.Memory.GetMemories(agentID, topic, includeArchived, limit)
			if err != nil {
				return writeCommandError(cmd, k.JSONMode, k.Quiet, err)
			}
			return emit(cmd, k.JSONMode, k.Quiet, entries, func() {
				for _, e := range entries {
					printf(cmd, "[%s] %s: %s\n", highlight(core.Short(e.MemoryID)), e.Topic, e.Message)
				}
			})
		},
	}
	cmd.Flags().StringVar(&topic, "topic", "", "scope to a topic")
	cmd.Flags().BoolVar(&includeArchived, "all", false, "include archived entries")
	cmd.Flags().IntVar(&limit, "limit", 0, "max entries (0 = unbounded)")
	return cmd
}

func newMemoryGetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get <id>",
		Short: "fetch a memory entry by short or full id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			k, err := GetKernel(cmd)
			if err != nil {
				return writeCommandError(cmd, false, false, err)
			}
			defer k.Close()

			entry, err := k.Memory.GetByMemoryID(args[0])
			if err != nil {
				return writeCommandError(cmd, k.JSONMode, k.Quiet, err)
			}
			return emit(cmd, k.JSONMode, k.Quiet, entry, func() {
				printf(cmd, "%s: %s\n", entry.Topic, entry.Message)
			})
		},
	}
	return cmd
}

func newMemorySearchCmd() *cobra.Command {
	var includeArchived bool
	var global bool
	cmd := &cobra.Command{
		Use:   "search <keyword>",
		Short: "search memory entries by topic/message substring",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			k, err := GetKernel(cmd)
			if err != nil {
				return writeCommandError(cmd, false, false, err)
			}
			defer k.Close()

			if global {
				results, err := k.Memory.SearchAllEntries(args[0], k.AsFlag, includeArchived)
				if err != nil {
					return writeCommandError(cmd, k.JSONMode, k.Quiet, err)
				}
				return emit(cmd, k.JSONMode, k.Quiet, results, func() {
					for _, e := range results {
						printf(cmd, "[%s] %s: %s\n", highlight(core.Short(e.MemoryID)), e.Topic, e.Message)
					}
				})
			}

			identityName, err := k.RequireIdentity()
			if err != nil {
				return writeCommandError(cmd, k.JSONMode, k.Quiet, err)
			}
			agentID, err := k.Registry.EnsureAgent(identityName)
			if err != nil {
				return writeCommandError(cmd, k.JSONMode, k.Quiet, err)
			}
			results, err := k.Memory.SearchEntries(agentID, args[0], includeArchived)
			if err != nil {
				return writeCommandError(cmd, k.JSONMode, k.Quiet, err)
			}
			return emit(cmd, k.JSONMode, k.Quiet, results, func() {
				for _, e := range results {
					printf(cmd, "[%s] %s: %s\n", highlight(core.Short(e.MemoryID)), e.Topic, e.Message)
				}
			})
		},
	}
	cmd.Flags().BoolVar(&includeArchived, "all", false, "include archived entries")
	cmd.Flags().BoolVar(&global, "global", false, "search across every agent, not just --as")
	return cmd
}

func newMemoryArchiveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "archive <id>",
		Short: "archive a memory entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			k, err := GetKernel(cmd)
			if err != nil {
				return writeCommandError(cmd, false, false, err)
			}
			defer k.Close()

			fullID, err := k.Memory.ArchiveEntry(k.Events, args[0])
			if err != nil {
				return writeCommandError(cmd, k.JSONMode, k.Quiet, err)
			}
			return emit(cmd, k.JSONMode, k.Quiet, map[string]any{"memory_id": fullID}, func() {
				printf(cmd, "archived %s\n", highlight(core.Short(fullID)))
			})
		},
	}
	return cmd
}

func newMemoryRestoreCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "restore <id>",
		Short: "clear an explicit archive on a memory entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			k, err := GetKernel(cmd)
			if err != nil {
				return writeCommandError(cmd, false, false, err)
			}
			defer k.Close()

			fullID, err := k.Memory.RestoreEntry(k.Events, args[0])
			if err != nil {
				return writeCommandError(cmd, k.JSONMode, k.Quiet, err)
			}
			return emit(cmd, k.JSONMode, k.Quiet, map[string]any{"memory_id": fullID}, func() {
				printf(cmd, "restored %s\n", highlight(core.Short(fullID)))
			})
		},
	}
	return cmd
}

func newMemoryCoreCmd() *cobra.Command {
	var clear bool
	cmd := &cobra.Command{
		Use:   "core <id>",
		Short: "flag (or, with --clear, unflag) a memory entry as core",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			k, err := GetKernel(cmd)
			if err != nil {
				return writeCommandError(cmd, false, false, err)
			}
			defer k.Close()

			fullID, err := k.Memory.MarkCore(k.Events, args[0], !clear)
			if err != nil {
				return writeCommandError(cmd, k.JSONMode, k.Quiet, err)
			}
			return emit(cmd, k.JSONMode, k.Quiet, map[string]any{"memory_id": fullID, "core": !clear}, func() {
				printf(cmd, "%s core=%v\n", highlight(core.Short(fullID)), !clear)
			})
		},
	}
	cmd.Flags().BoolVar(&clear, "clear", false, "unflag instead of flag")
	return cmd
}

func newMemoryRelatedCmd() *cobra.Command {
	var limit int
	var includeArchived bool
	cmd := &cobra.Command{
		Use:   "related <id>",
		Short: "rank this agent's other entries by keyword overlap",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			k, err := GetKernel(cmd)
			if err != nil {
				return writeCommandError(cmd, false, false, err)
			}
			defer k.Close()

			related, err := k.Memory.FindRelated(args[0], limit, includeArchived)
			if err != nil {
				return writeCommandError(cmd, k.JSONMode, k.Quiet, err)
			}
			return emit(cmd, k.JSONMode, k.Quiet, related, func() {
				for _, r := range related {
					printf(cmd, "[%s] score=%d %s: %s\n", highlight(core.Short(r.Entry.MemoryID)), r.Score, r.Entry.Topic, r.Entry.Message)
				}
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 10, "max related entries")
	cmd.Flags().BoolVar(&includeArchived, "all", false, "include archived entries")
	return cmd
}

func newMemoryReplaceCmd() *cobra.Command {
	var note string
	cmd := &cobra.Command{
		Use:   "replace <old-ids-comma-separated> <new-message>",
		Short: "supersede one or more entries with a synthesized replacement",
		Args:  cobra.ExactArgs(2),
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
			agentID, err := k.Registry.EnsureAgent(identityName)
			if err != nil {
				return writeCommandError(cmd, k.JSONMode, k.Quiet, err)
			}

			oldShorts := strings.Split(args[0], ",")
			existing, err := k.Memory.GetByMemoryID(oldShorts[0])
			if err != nil {
				return writeCommandError(cmd, k.JSONMode, k.Quiet, err)
			}

			newID, err := k.Memory.ReplaceEntry(k.Events, oldShorts, agentID, existing.Topic, args[1], note)
			if err != nil {
				return writeCommandError(cmd, k.JSONMode, k.Quiet, err)
			}
			return emit(cmd, k.JSONMode, k.Quiet, map[string]any{"new_id": newID, "superseded": oldShorts}, func() {
				printf(cmd, "replaced %d entr(y/ies) with %s\n", len(oldShorts), highlight(core.Short(newID)))
			})
		},
	}
	cmd.Flags().StringVar(&note, "note", "", "synthesis note explaining the replacement")
	return cmd
}

func newMemoryChainCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chain <id>",
		Short: "show a memory entry's supersession predecessors and successors",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			k, err := GetKernel(cmd)
			if err != nil {
				return writeCommandError(cmd, false, false, err)
			}
			defer k.Close()

			chain, err := k.Memory.GetChain(args[0])
			if err != nil {
				return writeCommandError(cmd, k.JSONMode, k.Quiet, err)
			}
			return emit(cmd, k.JSONMode, k.Quiet, chain, func() {
				printf(cmd, "predecessors: %v\n", chain.Predecessors)
				printf(cmd, "successors: %v\n", chain.Successors)
			})
		},
	}
	return cmd
}
