package command

import (
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

const AppName = "space"

var logo = color.CyanString("space") + " — multi-agent coordination kernel"

// Version is overwritten at build time via -ldflags.
var Version = "dev"

// NewRootCmd builds the full space command tree.
func NewRootCmd(version string) *cobra.Command {
	cmd := &cobra.Command{
		Use:           AppName,
		Short:         "space - multi-agent coordination kernel CLI",
		Long:          logo,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cmd.Version = version
	cmd.SetVersionTemplate(AppName + " version {{.Version}}\n")
	cmd.SetOut(os.Stdout)
	cmd.SetErr(os.Stderr)

	cmd.PersistentFlags().String("space-home", "", "workspace root (overrides SPACE_HOME)")
	cmd.PersistentFlags().String("as", "", "identity to act as")
	cmd.PersistentFlags().Bool("json", false, "output in JSON format")
	cmd.PersistentFlags().BoolP("quiet", "q", false, "suppress output, keep exit code and events")

	cmd.AddCommand(
		NewAgentCmd(),
		NewWakeCmd(),
		NewSleepCmd(),
		NewBridgeCmd(),
		NewMemoryCmd(),
		NewKnowledgeCmd(),
		NewOpsCmd(),
		NewStatsCmd(),
		NewContextCmd(),
	)

	return cmd
}
