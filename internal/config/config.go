// Package config loads kernel-wide settings from the environment and
// builds the structured logger used by the CLI entrypoint.
package config

import (
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog"
)

// Config holds process-wide settings read once from the environment.
type Config struct {
	SpaceHome      string        `envconfig:"SPACE_HOME"`
	WorkerTimeout  time.Duration `envconfig:"SPACE_WORKER_TIMEOUT" default:"10s"`
	LogLevel       string        `envconfig:"SPACE_LOG_LEVEL" default:"info"`
	WorkerMaxBytes int           `envconfig:"SPACE_WORKER_MAX_BYTES" default:"65536"`
}

// Load reads Config from the environment. main calls it at process
// start to build the logger, and the bridge send command calls it
// again for the worker timeout and output bound.
func Load() (Config, error) {
	var c Config
	if err := envconfig.Process("space", &c); err != nil {
		return Config{}, err
	}
	return c, nil
}

// NewLogger builds the process logger. pretty selects a human-readable
// console writer (CLI default); otherwise logs are newline-delimited
// JSON, composing with --json output mode.
func NewLogger(cfg Config, pretty bool) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}

	var out zerolog.Logger
	if pretty {
		writer := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}
		out = zerolog.New(writer).With().Timestamp().Logger()
	} else {
		out = zerolog.New(os.Stderr).With().Timestamp().Logger()
	}
	return out.Level(level)
}
