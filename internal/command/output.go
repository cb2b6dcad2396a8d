package command

import (
	"encoding/json"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// emit renders a successful result per the output mode in effect:
// JSON mode encodes payload verbatim, quiet mode prints nothing, and
// pretty mode calls render to produce the human-readable line(s).
func emit(cmd *cobra.Command, jsonMode, quiet bool, payload any, render func()) error {
	if jsonMode {
		return json.NewEncoder(cmd.OutOrStdout()).Encode(payload)
	}
	if quiet {
		return nil
	}
	render()
	return nil
}

// highlight marks an identifier (short id, channel name) in pretty
// output.
func highlight(s string) string { return color.CyanString(s) }

// alertMarker renders the priority marker used ahead of alert-priority
// messages in pretty output.
func alertMarker(priority string) string {
	if priority == "alert" {
		return color.RedString("!")
	}
	return " "
}

func printf(cmd *cobra.Command, format string, args ...any) {
	fmt.Fprintf(cmd.OutOrStdout(), format, args...)
}
