package main

import (
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"
)

// buildLogger constructs the CLI's top-level zerolog.Logger, grounded on
// internal/infrastructure/logging's Options-driven adapter construction:
// --log-format selects console (human, colorized) vs. JSON output; --log-level
// parses into a zerolog.Level.
func buildLogger(level, format string, w io.Writer) (zerolog.Logger, error) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return zerolog.Logger{}, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	var out io.Writer = w
	switch format {
	case "json":
		// zerolog's default encoding.
	case "console", "":
		out = zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}
	default:
		return zerolog.Logger{}, fmt.Errorf("invalid log format %q: want json or console", format)
	}

	return zerolog.New(out).Level(lvl).With().Timestamp().Logger(), nil
}
