// Package logging configures the process-wide zerolog logger from
// config.Logging, grounded on the teacher's cmd/cryptorun/main.go bootstrap
// (zerolog.ConsoleWriter, RFC3339 timestamps) and cmd_health.go's structured
// call-chain logging idiom.
package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/edgegate/ticketgate/internal/config"
)

// Configure sets zerolog's global logger and level from cfg. When cfg.File
// is empty, logs go to stderr through a human-readable console writer;
// otherwise they're appended as plain JSON lines to the named file.
func Configure(cfg config.Logging) error {
	zerolog.TimeFieldFormat = time.RFC3339

	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	var out io.Writer
	if cfg.File == "" {
		out = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}
	} else {
		f, err := os.OpenFile(cfg.File, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return err
		}
		out = f
	}

	log.Logger = zerolog.New(out).With().Timestamp().Logger()
	return nil
}

// ForGate returns a logger pre-tagged with the given gate name. The serve
// command uses it for each gate's store; the validator and the workers are
// given the untagged global logger.
func ForGate(gate string) zerolog.Logger {
	return log.Logger.With().Str("gate", gate).Logger()
}
