package command

import (
	"strconv"

	"github.com/spf13/cobra"

	"github.com/iteebz/spaceos/internal/core"
)

// NewKnowledgeCmd groups the shared knowledge store verbs: write,
// domain, contributor, list, get, search, archive, restore.
func NewKnowledgeCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "knowledge", Short: "shared, domain-scoped knowledge store"}
	cmd.AddCommand(
		newKnowledgeWriteCmd(),
		newKnowledgeDomainCmd(),
		newKnowledgeContributorCmd(),
		newKnowledgeListCmd(),
		newKnowledgeGetCmd(),
		newKnowledgeSearchCmd(),
		newKnowledgeArchiveCmd(),
		newKnowledgeRestoreCmd(),
	)
	return cmd
}

func newKnowledgeWriteCmd() *cobra.Command {
	var confidenceStr string
	cmd := &cobra.Command{
		Use:   "write <domain> <content>",
		Short: "contribute an entry to domain, attributed to --as",
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

			var confidence *float64
			if confidenceStr != "" {
				v, err := strconv.ParseFloat(confidenceStr, 64)
				if err != nil {
					return writeCommandError(cmd, k.JSONMode, k.Quiet, err)
				}
				confidence = &v
			}

			id, err := k.Knowledge.WriteKnowledge(k.Events, args[0], agentID, args[1], confidence)
			if err != nil {
				return writeCommandError(cmd, k.JSONMode, k.Quiet, err)
			}
			return emit(cmd, k.JSONMode, k.Quiet, map[string]any{"knowledge_id": id, "domain": args[0]}, func() {
				printf(cmd, "[%s] %s: %s\n", highlight(core.Short(id)), args[0], args[1])
			})
		},
	}
	cmd.Flags().StringVar(&confidenceStr, "confidence", "", "confidence score, 0.0-1.0")
	return cmd
}

func newKnowledgeDomainCmd() *cobra.Command {
	var includeArchived bool
	cmd := &cobra.Command{
		Use:   "domain <domain>",
		Short: "list entries for domain, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			k, err := GetKernel(cmd)
			if err != nil {
				return writeCommandError(cmd, false, false, err)
			}
			defer k.Close()

			entries, err := k.Knowledge.QueryByDomain(args[0], includeArchived)
			if err != nil {
				return writeCommandError(cmd, k.JSONMode, k.Quiet, err)
			}
			return emit(cmd, k.JSONMode, k.Quiet, entries, func() {
				for _, e := range entries {
					printf(cmd, "[%s] %s: %s\n", highlight(core.Short(e.KnowledgeID)), e.AgentID, e.Content)
				}
			})
		},
	}
	cmd.Flags().BoolVar(&includeArchived, "all", false, "include archived entries")
	return cmd
}

func newKnowledgeContributorCmd() *cobra.Command {
	var includeArchived bool
	cmd := &cobra.Command{
		Use:   "contributor <name>",
		Short: "list entries contributed by an agent, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			k, err := GetKernel(cmd)
			if err != nil {
				return writeCommandError(cmd, false, false, err)
			}
			defer k.Close()

			agentID, err := k.Registry.GetAgentID(args[0])
			if err != nil {
				return writeCommandError(cmd, k.JSONMode, k.Quiet, err)
			}
			entries, err := k.Knowledge.QueryByAgent(agentID, includeArchived)
			if err != nil {
				return writeCommandError(cmd, k.JSONMode, k.Quiet, err)
			}
			return emit(cmd, k.JSONMode, k.Quiet, entries, func() {
				for _, e := range entries {
					printf(cmd, "[%s] %s: %s\n", highlight(core.Short(e.KnowledgeID)), e.Domain, e.Content)
				}
			})
		},
	}
	cmd.Flags().BoolVar(&includeArchived, "all", false, "include archived entries")
	return cmd
}

func newKnowledgeListCmd() *cobra.Command {
	var includeArchived bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "list every entry across every domain, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			k, err := GetKernel(cmd)
			if err != nil {
				return writeCommandError(cmd, false, false, err)
			}
			defer k.Close()

			entries, err := k.Knowledge.ListAll(includeArchived)
			if err != nil {
				return writeCommandError(cmd, k.JSONMode, k.Quiet, err)
			}
			return emit(cmd, k.JSONMode, k.Quiet, entries, func() {
				for _, e := range entries {
					printf(cmd, "[%s] %s/%s: %s\n", highlight(core.Short(e.KnowledgeID)), e.Domain, e.AgentID, e.Content)
				}
			})
		},
	}
	cmd.Flags().BoolVar(&includeArchived, "all", false, "include archived entries")
	return cmd
}

func newKnowledgeGetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get <id>",
		Short: "fetch a knowledge entry by short or full id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			k, err := GetKernel(cmd)
			if err != nil {
				return writeCommandError(cmd, false, false, err)
			}
			defer k.Close()

			entry, err := k.Knowledge.GetByID(args[0])
			if err != nil {
				return writeCommandError(cmd, k.JSONMode, k.Quiet, err)
			}
			return emit(cmd, k.JSONMode, k.Quiet, entry, func() {
				printf(cmd, "%s: %s\n", entry.Domain, entry.Content)
			})
		},
	}
	return cmd
}

func newKnowledgeSearchCmd() *cobra.Command {
	var includeArchived bool
	var contributor string
	cmd := &cobra.Command{
		Use:   "search <keyword>",
		Short: "search domain/content across the knowledge store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			k, err := GetKernel(cmd)
			if err != nil {
				return writeCommandError(cmd, false, false, err)
			}
			defer k.Close()

			agentID := ""
			if contributor != "" {
				agentID, err = k.Registry.GetAgentID(contributor)
				if err != nil {
					return writeCommandError(cmd, k.JSONMode, k.Quiet, err)
				}
			}

			entries, err := k.Knowledge.SearchEntries(args[0], agentID, includeArchived)
			if err != nil {
				return writeCommandError(cmd, k.JSONMode, k.Quiet, err)
			}
			return emit(cmd, k.JSONMode, k.Quiet, entries, func() {
				for _, e := range entries {
					printf(cmd, "[%s] %s/%s: %s\n", highlight(core.Short(e.KnowledgeID)), e.Domain, e.AgentID, e.Content)
				}
			})
		},
	}
	cmd.Flags().BoolVar(&includeArchived, "all", false, "include archived entries")
	cmd.Flags().StringVar(&contributor, "contributor", "", "scope to a single contributor")
	return cmd
}

func newKnowledgeArchiveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "archive <id>",
		Short: "archive a knowledge entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			k, err := GetKernel(cmd)
			if err != nil {
				return writeCommandError(cmd, false, false, err)
			}
			defer k.Close()

			fullID, err := k.Knowledge.ArchiveEntry(k.Events, args[0])
			if err != nil {
				return writeCommandError(cmd, k.JSONMode, k.Quiet, err)
			}
			return emit(cmd, k.JSONMode, k.Quiet, map[string]any{"knowledge_id": fullID}, func() {
				printf(cmd, "archived %s\n", highlight(core.Short(fullID)))
			})
		},
	}
	return cmd
}

func newKnowledgeRestoreCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "restore <id>",
		Short: "clear an archive on a knowledge entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			k, err := GetKernel(cmd)
			if err != nil {
				return writeCommandError(cmd, false, false, err)
			}
			defer k.Close()

			fullID, err := k.Knowledge.RestoreEntry(k.Events, args[0])
			if err != nil {
				return writeCommandError(cmd, k.JSONMode, k.Quiet, err)
			}
			return emit(cmd, k.JSONMode, k.Quiet, map[string]any{"knowledge_id": fullID}, func() {
				printf(cmd, "restored %s\n", highlight(core.Short(fullID)))
			})
		},
	}
	return cmd
}
