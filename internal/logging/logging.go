package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// New builds the process logger. console selects the human readable writer,
// otherwise entries are written as JSON. Unknown levels fall back to info.
func New(level string, console bool) zerolog.Logger {
	return NewWithWriter(os.Stderr, level, console)
}

// NewWithWriter is New writing to w
func NewWithWriter(w io.Writer, level string, console bool) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339

	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}

	out := w
	if console {
		out = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}

	return zerolog.New(out).Level(lvl).With().Timestamp().Str("service", "transferflow").Logger()
}
