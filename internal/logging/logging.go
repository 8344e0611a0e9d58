package logging

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

type Options struct {
	// Level is a zerolog level name. Empty means warn.
	Level string
	// Debug forces the debug level.
	Debug bool
	Out   io.Writer
	// NoColor disables ANSI colors in the console writer.
	NoColor bool
}

// New builds a console logger. Invalid level names fall back to warn.
func New(opts Options) zerolog.Logger {
	out := opts.Out
	if out == nil {
		out = os.Stderr
	}
	lvl := ParseLevel(opts.Level)
	if opts.Debug {
		lvl = zerolog.DebugLevel
	}
	w := zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339, NoColor: opts.NoColor}
	return zerolog.New(w).Level(lvl).With().Timestamp().Logger()
}

func ParseLevel(s string) zerolog.Level {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return zerolog.WarnLevel
	}
	lvl, err := zerolog.ParseLevel(s)
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.WarnLevel
	}
	return lvl
}

// OpenFile opens (appending) the log file used while the TUI owns the terminal.
func OpenFile(dir string) (*os.File, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, err
	}
	return os.OpenFile(filepath.Join(dir, "teamboard.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
}
