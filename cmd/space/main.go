package main

import (
	"os"

	"github.com/mattn/go-isatty"

	"github.com/iteebz/spaceos/internal/command"
	"github.com/iteebz/spaceos/internal/config"
)

var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		os.Exit(2)
	}
	logger := config.NewLogger(cfg, isatty.IsTerminal(os.Stderr.Fd()))

	root := command.NewRootCmd(version)
	err = root.Execute()
	if err != nil {
		logger.Error().Err(err).Msg("command failed")
	}
	os.Exit(command.ExitCode(err))
}
