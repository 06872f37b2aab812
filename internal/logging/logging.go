package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// New returns a console logger. Debug output is enabled outside production.
func New(environment string) zerolog.Logger {
	return NewWithWriter(environment, os.Stderr)
}

// NewWithWriter is New with an explicit destination.
func NewWithWriter(environment string, out io.Writer) zerolog.Logger {
	output := zerolog.ConsoleWriter{
		Out:        out,
		TimeFormat: time.RFC3339,
		NoColor:    environment == "PROD",
	}

	level := zerolog.DebugLevel
	if environment == "PROD" {
		level = zerolog.InfoLevel
	}

	return zerolog.New(output).Level(level).With().
		Timestamp().
		Str("env", environment).
		Logger()
}

// Discard returns a logger that drops everything, for tests and quiet mode.
func Discard() zerolog.Logger {
	return zerolog.Nop()
}
