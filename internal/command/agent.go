package command

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/iteebz/spaceos/internal/identity"
)

// NewAgentCmd groups registry and identity verbs: ensure, whoami,
// alias, rename, describe, identify.
func NewAgentCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "agent", Short: "agent identity and registry"}
	cmd.AddCommand(
		newAgentEnsureCmd(),
		newAgentWhoamiCmd(),
		newAgentAliasCmd(),
		newAgentRenameCmd(),
		newAgentDescribeCmd(),
		newAgentIdentifyCmd(),
	)
	return cmd
}

func newAgentEnsureCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ensure <name>",
		Short: "ensure a registered agent exists for name, idempotently",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			k, err := GetKernel(cmd)
			if err != nil {
				return writeCommandError(cmd, false, false, err)
			}
			defer k.Close()

			id, err := k.Registry.EnsureAgent(args[0])
			if err != nil {
				return writeCommandError(cmd, k.JSONMode, k.Quiet, err)
			}
			return emit(cmd, k.JSONMode, k.Quiet, map[string]any{"agent_id": id, "name": args[0]}, func() {
				printf(cmd, "agent %s -> %s\n", args[0], highlight(id))
			})
		},
	}
	return cmd
}

func newAgentWhoamiCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "whoami",
		Short: "resolve --as to its registered agent id",
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
			id, err := k.Registry.GetAgentID(identityName)
			if err != nil {
				return writeCommandError(cmd, k.JSONMode, k.Quiet, err)
			}
			return emit(cmd, k.JSONMode, k.Quiet, map[string]any{"identity": identityName, "agent_id": id}, func() {
				printf(cmd, "%s -> %s\n", identityName, highlight(id))
			})
		},
	}
	return cmd
}

func newAgentAliasCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "alias <alias>",
		Short: "map alias to the --as identity's agent id",
		Args:  cobra.ExactArgs(1),
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
			if err := k.Registry.AddAlias(agentID, args[0]); err != nil {
				return writeCommandError(cmd, k.JSONMode, k.Quiet, err)
			}
			return emit(cmd, k.JSONMode, k.Quiet, map[string]any{"agent_id": agentID, "alias": args[0]}, func() {
				printf(cmd, "alias %s -> %s\n", args[0], highlight(agentID))
			})
		},
	}
	return cmd
}

func newAgentRenameCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rename <old> <new>",
		Short: "rename a registered agent, failing on name conflict",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			k, err := GetKernel(cmd)
			if err != nil {
				return writeCommandError(cmd, false, false, err)
			}
			defer k.Close()

			if err := k.Registry.RenameAgent(args[0], args[1]); err != nil {
				return writeCommandError(cmd, k.JSONMode, k.Quiet, err)
			}
			return emit(cmd, k.JSONMode, k.Quiet, map[string]any{"old": args[0], "new": args[1]}, func() {
				printf(cmd, "renamed %s -> %s\n", args[0], highlight(args[1]))
			})
		},
	}
	return cmd
}

func newAgentDescribeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "describe <description>",
		Short: "set the --as identity's self-description",
		Args:  cobra.ExactArgs(1),
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
			if err := k.Registry.SetSelfDescription(identityName, args[0]); err != nil {
				return writeCommandError(cmd, k.JSONMode, k.Quiet, err)
			}
			return emit(cmd, k.JSONMode, k.Quiet, map[string]any{"identity": identityName}, func() {
				printf(cmd, "description set for %s\n", identityName)
			})
		},
	}
	return cmd
}

func newAgentIdentifyCmd() *cobra.Command {
	var constitutionFile, modelName string
	cmd := &cobra.Command{
		Use:   "identify",
		Short: "assemble and materialise the --as identity's constitution",
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

			base := ""
			if constitutionFile != "" {
				content, err := os.ReadFile(constitutionFile)
				if err != nil {
					return writeCommandError(cmd, k.JSONMode, k.Quiet, err)
				}
				base = string(content)
			}

			hash, err := identity.Identify(k.Workspace, k.Registry, k.Events, identityName, base, modelName, "identify")
			if err != nil {
				return writeCommandError(cmd, k.JSONMode, k.Quiet, err)
			}
			return emit(cmd, k.JSONMode, k.Quiet, map[string]any{"identity": identityName, "hash": hash}, func() {
				printf(cmd, "identified %s (constitution %s)\n", identityName, highlight(hash))
			})
		},
	}
	cmd.Flags().StringVar(&constitutionFile, "constitution-file", "", "path to the base constitution text")
	cmd.Flags().StringVar(&modelName, "model", "", "model name shown in the self line")
	return cmd
}
