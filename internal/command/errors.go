package command

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/iteebz/spaceos/internal/kernelerr"
)

// writeCommandError renders err per the output mode in effect and
// returns it unchanged so RunE can propagate it to cobra for the exit
// code mapping in main.go. JSON mode always emits {status, message};
// quiet mode suppresses text entirely; pretty mode prints one
// warning-marked line.
func writeCommandError(cmd *cobra.Command, jsonMode, quiet bool, err error) error {
	if quiet {
		return err
	}
	if jsonMode {
		fmt.Fprintf(cmd.OutOrStdout(), "{\"status\":\"error\",\"message\":%q}\n", err.Error())
		return err
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "%s %s\n", color.YellowString("!"), err.Error())
	return err
}

// ExitCode maps a command error to the process exit code contract
// (spec.md §7): 0 success, 1 domain error, 124 timeout, 2 unexpected.
func ExitCode(err error) int {
	return kernelerr.ExitCode(err)
}

func kerrNotFound(source, message string) error { return kernelerr.NotFound(source, message) }
func kerrConflict(source, message string) error { return kernelerr.Conflict(source, message) }
