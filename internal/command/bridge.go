package command

import (
	"github.com/spf13/cobra"

	"github.com/iteebz/spaceos/internal/bridge"
	"github.com/iteebz/spaceos/internal/config"
	"github.com/iteebz/spaceos/internal/model"
)

// NewBridgeCmd groups the channel bus verbs: send, recv, channels,
// archive, rename, note, export.
func NewBridgeCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "bridge", Short: "channel message bus"}
	cmd.AddCommand(
		newBridgeSendCmd(),
		newBridgeRecvCmd(),
		newBridgeChannelsCmd(),
		newBridgeArchiveCmd(),
		newBridgeRenameCmd(),
		newBridgeNoteCmd(),
		newBridgeExportCmd(),
	)
	return cmd
}

func newBridgeSendCmd() *cobra.Command {
	var priority string
	cmd := &cobra.Command{
		Use:   "send <channel> <content>",
		Short: "post a message to a channel, creating it on first reference",
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

			channelName := args[0]
			channelID, err := k.Bridge.ResolveChannelID(channelName)
			if err != nil {
				return writeCommandError(cmd, k.JSONMode, k.Quiet, err)
			}

			p := model.PriorityNormal
			if priority == string(model.PriorityAlert) {
				p = model.PriorityAlert
			}

			cfg, _ := config.Load()
			messageID, err := k.Bridge.SendMessage(k.Events, channelID, channelName, agentID, args[1], p, cfg.WorkerTimeout, cfg.WorkerMaxBytes)
			if err != nil {
				return writeCommandError(cmd, k.JSONMode, k.Quiet, err)
			}

			return emit(cmd, k.JSONMode, k.Quiet, map[string]any{"message_id": messageID, "channel": channelName}, func() {
				printf(cmd, "[%s] posted to #%s\n", highlight(messageID), channelName)
			})
		},
	}
	cmd.Flags().StringVar(&priority, "priority", string(model.PriorityNormal), "normal or alert")
	return cmd
}

func newBridgeRecvCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "recv <channel>",
		Short: "read and bookmark new messages in a channel",
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

			channelID, err := k.Bridge.GetChannelID(args[0])
			if err != nil {
				return writeCommandError(cmd, k.JSONMode, k.Quiet, err)
			}

			messages, count, topic, participants, err := k.Bridge.RecvUpdates(channelID, agentID)
			if err != nil {
				return writeCommandError(cmd, k.JSONMode, k.Quiet, err)
			}

			payload := map[string]any{
				"channel": args[0], "topic": topic, "count": count,
				"participants": participants, "messages": messages,
			}
			return emit(cmd, k.JSONMode, k.Quiet, payload, func() {
				printf(cmd, "#%s (%d new)\n", args[0], count)
				for _, m := range messages {
					printf(cmd, "%s %s: %s\n", alertMarker(string(m.Priority)), m.AgentID, m.Content)
				}
			})
		},
	}
	return cmd
}

func newBridgeChannelsCmd() *cobra.Command {
	var includeArchived, unreadOnly bool
	cmd := &cobra.Command{
		Use:   "channels",
		Short: "list channels, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			k, err := GetKernel(cmd)
			if err != nil {
				return writeCommandError(cmd, false, false, err)
			}
			defer k.Close()

			agentID := ""
			if k.AsFlag != "" {
				agentID, err = k.Registry.GetAgentID(k.AsFlag)
				if err != nil {
					return writeCommandError(cmd, k.JSONMode, k.Quiet, err)
				}
			}

			views, err := k.Bridge.FetchChannels(agentID, includeArchived, unreadOnly)
			if err != nil {
				return writeCommandError(cmd, k.JSONMode, k.Quiet, err)
			}

			return emit(cmd, k.JSONMode, k.Quiet, views, func() {
				for _, v := range views {
					printf(cmd, "#%-20s %4d msgs  unread %d\n", v.Name, v.MessageCount, v.UnreadCount)
				}
			})
		},
	}
	cmd.Flags().BoolVar(&includeArchived, "all", false, "include archived channels")
	cmd.Flags().BoolVar(&unreadOnly, "unread", false, "only channels with unread messages (requires --as)")
	return cmd
}

func newBridgeArchiveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "archive <channel>",
		Short: "soft-delete a channel",
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

			channelID, err := k.Bridge.GetChannelID(args[0])
			if err != nil {
				return writeCommandError(cmd, k.JSONMode, k.Quiet, err)
			}
			if err := k.Bridge.ArchiveChannel(k.Events, agentID, channelID); err != nil {
				return writeCommandError(cmd, k.JSONMode, k.Quiet, err)
			}
			return emit(cmd, k.JSONMode, k.Quiet, map[string]any{"channel": args[0]}, func() {
				printf(cmd, "archived #%s\n", args[0])
			})
		},
	}
	return cmd
}

func newBridgeRenameCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rename <old> <new>",
		Short: "rename a channel, preserving its history",
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

			outcome, err := k.Bridge.RenameChannel(k.Events, agentID, args[0], args[1])
			if err != nil {
				return writeCommandError(cmd, k.JSONMode, k.Quiet, err)
			}
			switch outcome {
			case bridge.RenameNotFound:
				return writeCommandError(cmd, k.JSONMode, k.Quiet, kerrNotFound("bridge", "no active channel named "+args[0]))
			case bridge.RenameConflict, bridge.RenameConflictArchived:
				return writeCommandError(cmd, k.JSONMode, k.Quiet, kerrConflict("bridge", "channel name already in use: "+args[1]))
			}
			return emit(cmd, k.JSONMode, k.Quiet, map[string]any{"old": args[0], "new": args[1]}, func() {
				printf(cmd, "renamed #%s -> #%s\n", args[0], args[1])
			})
		},
	}
	return cmd
}

func newBridgeNoteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "note <channel> <content>",
		Short: "attach a channel-scoped annotation outside the message stream",
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
			channelID, err := k.Bridge.ResolveChannelID(args[0])
			if err != nil {
				return writeCommandError(cmd, k.JSONMode, k.Quiet, err)
			}
			noteID, err := k.Bridge.CreateNote(k.Events, channelID, identityName, args[1])
			if err != nil {
				return writeCommandError(cmd, k.JSONMode, k.Quiet, err)
			}
			return emit(cmd, k.JSONMode, k.Quiet, map[string]any{"note_id": noteID}, func() {
				printf(cmd, "noted in #%s\n", args[0])
			})
		},
	}
	return cmd
}

func newBridgeExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export <channel>",
		Short: "render a channel's full history, messages and notes interleaved by time",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			k, err := GetKernel(cmd)
			if err != nil {
				return writeCommandError(cmd, false, false, err)
			}
			defer k.Close()

			channelID, err := k.Bridge.GetChannelID(args[0])
			if err != nil {
				return writeCommandError(cmd, k.JSONMode, k.Quiet, err)
			}
			export, err := k.Bridge.GetExportData(channelID)
			if err != nil {
				return writeCommandError(cmd, k.JSONMode, k.Quiet, err)
			}

			return emit(cmd, k.JSONMode, k.Quiet, export, func() {
				printf(cmd, "# %s\n", export.Channel.Name)
				for _, e := range export.Entries {
					kind := "msg"
					if e.IsNote {
						kind = "note"
					}
					printf(cmd, "[%s] %s: %s\n", kind, e.AgentID, e.Content)
				}
			})
		},
	}
	return cmd
}
