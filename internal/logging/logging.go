// Package logging constructs the single structured logger threaded through
// the player, trainer, and protocol runner.
//
// The logger is passed in by the caller rather than kept as a package-level
// global, so tests and alternate entrypoints can redirect it freely.
package logging

import (
	"io"
	"os"

	"github.com/charmbracelet/log"
)

// Options configures the process-wide logger.
type Options struct {
	Level  string // "debug", "info", "warn", "error"
	Writer io.Writer
}

// New builds a *log.Logger from opts, defaulting to info level on stderr.
func New(opts Options) *log.Logger {
	w := opts.Writer
	if w == nil {
		w = os.Stderr
	}
	logger := log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05",
	})
	logger.SetLevel(parseLevel(opts.Level))
	return logger
}

func parseLevel(s string) log.Level {
	switch s {
	case "debug":
		return log.DebugLevel
	case "warn":
		return log.WarnLevel
	case "error":
		return log.ErrorLevel
	default:
		return log.InfoLevel
	}
}
