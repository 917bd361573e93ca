package logger

import (
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	mu          sync.RWMutex
	base        zerolog.Logger
	initialized bool
)

// Options controls the global logger.
type Options struct {
	// Level is one of debug|info|warn|error (default: info).
	Level string
	// Pretty switches to the human readable console writer.
	Pretty bool
	// Out is where log lines are written (default: os.Stderr).
	Out io.Writer
}

// Init configures the global JSON logger.
func Init(opts Options) {
	var w io.Writer = opts.Out
	if w == nil {
		w = os.Stderr
	}

	zerolog.TimeFieldFormat = time.RFC3339Nano
	if opts.Pretty {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339, NoColor: opts.Out != nil}
	}

	l := zerolog.New(w).With().Timestamp().Str("app", "tickerview").Logger().Level(parseLevel(opts.Level))

	mu.Lock()
	base = l
	initialized = true
	mu.Unlock()
}

// L returns a copy of the global logger. Without a prior Init it logs info and
// above to stderr. A later Init does not affect loggers already returned.
func L() *zerolog.Logger {
	mu.RLock()
	ok := initialized
	mu.RUnlock()
	if !ok {
		Init(Options{})
	}

	mu.RLock()
	l := base
	mu.RUnlock()
	return &l
}

// OpenFile opens path for appending log lines.
func OpenFile(path string) (*os.File, error) {
	return os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
}

func parseLevel(s string) zerolog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error", "err":
		return zerolog.ErrorLevel
	case "disabled", "off":
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}
