package logging

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

var logger zerolog.Logger

func init() {
	logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		With().Timestamp().Logger()
}

// Logger returns the process logger.
func Logger() zerolog.Logger {
	return logger
}

// Setup replaces the process logger. format is "console" or "json".
func Setup(level, format string) error {
	return setup(os.Stderr, level, format)
}

func setup(out io.Writer, level, format string) error {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("log level %q: %w", level, err)
	}
	if lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	switch format {
	case "", "console":
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	case "json":
	default:
		return fmt.Errorf("unknown log format %q", format)
	}
	logger = zerolog.New(out).Level(lvl).With().Timestamp().Logger()
	return nil
}
