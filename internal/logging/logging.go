// Package logging configures the process-wide zerolog logger. Engine
// packages take a zerolog.Logger at construction so tests can silence or
// capture their output.
package logging

import (
	"io"
	"os"

	"github.com/rs/zerolog"
)

// Setup initializes the global log level and returns the root logger.
// Verbose enables debug-level output, which includes every state transition
// of the engine's state machines.
func Setup(verbose bool) zerolog.Logger {
	return SetupWriter(os.Stderr, verbose)
}

// SetupWriter is Setup with an explicit destination.
func SetupWriter(w io.Writer, verbose bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	console := zerolog.ConsoleWriter{Out: w, TimeFormat: "15:04:05.000"}
	return zerolog.New(console).Level(level).With().Timestamp().Logger()
}

// Discard returns a logger that drops everything. Used by tests and as the
// default when a component is constructed without a logger.
func Discard() zerolog.Logger {
	return zerolog.New(io.Discard).Level(zerolog.Disabled)
}
