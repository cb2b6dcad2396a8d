package command

import (
	"github.com/spf13/cobra"

	"github.com/iteebz/spaceos/internal/core"
	"github.com/iteebz/spaceos/internal/model"
)

// NewOpsCmd groups the task-tree verbs: create, claim, complete,
// block, reduce, get, children, list.
func NewOpsCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "ops", Short: "hierarchical task tree"}
	cmd.AddCommand(
		newOpsCreateCmd(),
		newOpsClaimCmd(),
		newOpsCompleteCmd(),
		newOpsBlockCmd(),
		newOpsReduceCmd(),
		newOpsGetCmd(),
		newOpsChildrenCmd(),
		newOpsListCmd(),
	)
	return cmd
}

func newOpsCreateCmd() *cobra.Command {
	var parent, channel string
	cmd := &cobra.Command{
		Use:   "create <description>",
		Short: "create a task, optionally under a parent or tied to a channel",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			k, err := GetKernel(cmd)
			if err != nil {
				return writeCommandError(cmd, false, false, err)
			}
			defer k.Close()

			parentID := ""
			if parent != "" {
				parentTask, err := k.Ops.GetTask(parent)
				if err != nil {
					return writeCommandError(cmd, k.JSONMode, k.Quiet, err)
				}
				parentID = parentTask.TaskID
			}

			channelID := ""
			if channel != "" {
				channelID, err = k.Bridge.ResolveChannelID(channel)
				if err != nil {
					return writeCommandError(cmd, k.JSONMode, k.Quiet, err)
				}
			}

			id, err := k.Ops.CreateTask(args[0], parentID, channelID)
			if err != nil {
				return writeCommandError(cmd, k.JSONMode, k.Quiet, err)
			}
			if _, err := k.Events.Emit("ops", "task.create", k.AsFlag, args[0]); err != nil {
				return writeCommandError(cmd, k.JSONMode, k.Quiet, err)
			}
			return emit(cmd, k.JSONMode, k.Quiet, map[string]any{"task_id": id}, func() {
				printf(cmd, "[%s] %s\n", highlight(core.Short(id)), args[0])
			})
		},
	}
	cmd.Flags().StringVar(&parent, "parent", "", "parent task id")
	cmd.Flags().StringVar(&channel, "channel", "", "bridge channel this task is tied to")
	return cmd
}

func newOpsClaimCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "claim <id>",
		Short: "claim a task for --as",
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

			fullID, err := k.Ops.ClaimTask(args[0], agentID)
			if err != nil {
				return writeCommandError(cmd, k.JSONMode, k.Quiet, err)
			}
			if _, err := k.Events.Emit("ops", "task.claim", agentID, core.Short(fullID)); err != nil {
				return writeCommandError(cmd, k.JSONMode, k.Quiet, err)
			}
			return emit(cmd, k.JSONMode, k.Quiet, map[string]any{"task_id": fullID}, func() {
				printf(cmd, "claimed %s for %s\n", highlight(core.Short(fullID)), identityName)
			})
		},
	}
	return cmd
}

func newOpsCompleteCmd() *cobra.Command {
	var handover string
	cmd := &cobra.Command{
		Use:   "complete <id>",
		Short: "mark a task complete, with an optional handover note",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			k, err := GetKernel(cmd)
			if err != nil {
				return writeCommandError(cmd, false, false, err)
			}
			defer k.Close()

			fullID, err := k.Ops.CompleteTask(args[0], handover)
			if err != nil {
				return writeCommandError(cmd, k.JSONMode, k.Quiet, err)
			}
			if _, err := k.Events.Emit("ops", "task.complete", k.AsFlag, core.Short(fullID)); err != nil {
				return writeCommandError(cmd, k.JSONMode, k.Quiet, err)
			}
			return emit(cmd, k.JSONMode, k.Quiet, map[string]any{"task_id": fullID}, func() {
				printf(cmd, "completed %s\n", highlight(core.Short(fullID)))
			})
		},
	}
	cmd.Flags().StringVar(&handover, "handover", "", "handover note for the next agent")
	return cmd
}

func newOpsBlockCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "block <id> <reason>",
		Short: "mark a task blocked with a reason",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			k, err := GetKernel(cmd)
			if err != nil {
				return writeCommandError(cmd, false, false, err)
			}
			defer k.Close()

			fullID, err := k.Ops.BlockTask(args[0], args[1])
			if err != nil {
				return writeCommandError(cmd, k.JSONMode, k.Quiet, err)
			}
			if _, err := k.Events.Emit("ops", "task.block", k.AsFlag, core.Short(fullID)+":"+args[1]); err != nil {
				return writeCommandError(cmd, k.JSONMode, k.Quiet, err)
			}
			return emit(cmd, k.JSONMode, k.Quiet, map[string]any{"task_id": fullID}, func() {
				printf(cmd, "blocked %s: %s\n", highlight(core.Short(fullID)), args[1])
			})
		},
	}
	return cmd
}

func newOpsReduceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reduce <id>",
		Short: "complete a parent task once every child task is complete",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			k, err := GetKernel(cmd)
			if err != nil {
				return writeCommandError(cmd, false, false, err)
			}
			defer k.Close()

			fullID, err := k.Ops.ReduceTask(args[0])
			if err != nil {
				return writeCommandError(cmd, k.JSONMode, k.Quiet, err)
			}
			if _, err := k.Events.Emit("ops", "task.reduce", k.AsFlag, core.Short(fullID)); err != nil {
				return writeCommandError(cmd, k.JSONMode, k.Quiet, err)
			}
			return emit(cmd, k.JSONMode, k.Quiet, map[string]any{"task_id": fullID}, func() {
				printf(cmd, "reduced %s\n", highlight(core.Short(fullID)))
			})
		},
	}
	return cmd
}

func newOpsGetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get <id>",
		Short: "fetch a task by short or full id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			k, err := GetKernel(cmd)
			if err != nil {
				return writeCommandError(cmd, false, false, err)
			}
			defer k.Close()

			t, err := k.Ops.GetTask(args[0])
			if err != nil {
				return writeCommandError(cmd, k.JSONMode, k.Quiet, err)
			}
			return emit(cmd, k.JSONMode, k.Quiet, t, func() {
				printf(cmd, "[%s] %s (%s)\n", highlight(core.Short(t.TaskID)), t.Description, t.Status)
			})
		},
	}
	return cmd
}

func newOpsChildrenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "children <id>",
		Short: "list a task's direct children, creation order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			k, err := GetKernel(cmd)
			if err != nil {
				return writeCommandError(cmd, false, false, err)
			}
			defer k.Close()

			t, err := k.Ops.GetTask(args[0])
			if err != nil {
				return writeCommandError(cmd, k.JSONMode, k.Quiet, err)
			}
			children, err := k.Ops.GetChildren(t.TaskID)
			if err != nil {
				return writeCommandError(cmd, k.JSONMode, k.Quiet, err)
			}
			return emit(cmd, k.JSONMode, k.Quiet, children, func() {
				for _, c := range children {
					printf(cmd, "[%s] %s (%s)\n", highlight(core.Short(c.TaskID)), c.Description, c.Status)
				}
			})
		},
	}
	return cmd
}

func newOpsListCmd() *cobra.Command {
	var status, assignee string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "list tasks by status or assignee",
		RunE: func(cmd *cobra.Command, args []string) error {
			k, err := GetKernel(cmd)
			if err != nil {
				return writeCommandError(cmd, false, false, err)
			}
			defer k.Close()

			var tasks []model.Task
			switch {
			case assignee != "":
				agentID, err := k.Registry.GetAgentID(assignee)
				if err != nil {
					return writeCommandError(cmd, k.JSONMode, k.Quiet, err)
				}
				tasks, err = k.Ops.ListByAssignee(agentID)
				if err != nil {
					return writeCommandError(cmd, k.JSONMode, k.Quiet, err)
				}
			case status != "":
				tasks, err = k.Ops.ListByStatus(model.TaskStatus(status))
				if err != nil {
					return writeCommandError(cmd, k.JSONMode, k.Quiet, err)
				}
			default:
				tasks, err = k.Ops.ListByStatus(model.TaskOpen)
				if err != nil {
					return writeCommandError(cmd, k.JSONMode, k.Quiet, err)
				}
			}

			return emit(cmd, k.JSONMode, k.Quiet, tasks, func() {
				for _, t := range tasks {
					printf(cmd, "[%s] %s (%s)\n", highlight(core.Short(t.TaskID)), t.Description, t.Status)
				}
			})
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "filter by status: open, claimed, complete, blocked")
	cmd.Flags().StringVar(&assignee, "assignee", "", "filter by assigned agent")
	return cmd
}
