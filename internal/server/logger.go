package server

import (
	"fmt"
	"io"

	"github.com/rs/zerolog"
)

const maxLoggedValue = 100

// NewLogger builds the server logger. console selects the human-readable
// writer; otherwise every line is a JSON object.
func NewLogger(out io.Writer, level string, console bool) (zerolog.Logger, error) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return zerolog.Nop(), fmt.Errorf("log level %q: %w", level, err)
	}

	if console {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: "2006-01-02 15:04:05.000"}
	}

	return zerolog.New(out).Level(lvl).With().Timestamp().Logger(), nil
}

// sanitize cuts client-controlled values before they reach the log.
func sanitize(s string) string {
	if len(s) > maxLoggedValue {
		return s[:maxLoggedValue] + "...[truncated]"
	}
	return s
}
