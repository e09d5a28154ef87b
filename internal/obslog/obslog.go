// Package obslog provides the daemon's structured logging, grounded on the
// teacher's pkg/log/log.go: a global zerolog.Logger configured once at
// startup, with contextual field helpers renamed to Dotlanth's domain
// vocabulary.
package obslog

import (
	"io"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Config controls the global logger, mirroring the teacher's log.Config.
type Config struct {
	Level      string // "debug", "info", "warn", "error"
	JSONOutput bool
	Output     io.Writer
}

var (
	mu     sync.RWMutex
	logger zerolog.Logger
)

func init() {
	logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).With().Timestamp().Logger()
}

// Init configures the global logger. Call once at process startup, matching
// the teacher's cobra.OnInitialize(initLogging) wiring.
func Init(cfg Config) {
	mu.Lock()
	defer mu.Unlock()

	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}

	var writer io.Writer = out
	if !cfg.JSONOutput {
		writer = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}

	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}

	logger = zerolog.New(writer).Level(level).With().Timestamp().Logger()
}

func current() zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return logger
}

// WithComponent returns a logger scoped to a named subsystem.
func WithComponent(name string) zerolog.Logger {
	return current().With().Str("component", name).Logger()
}

// WithDotID scopes log lines to a specific executing dot.
func WithDotID(id string) zerolog.Logger {
	return current().With().Str("dot_id", id).Logger()
}

// WithExecutionID scopes log lines to a specific bytecode execution.
func WithExecutionID(id string) zerolog.Logger {
	return current().With().Str("execution_id", id).Logger()
}

// WithArch scopes log lines to an architecture tier, taking a string so
// this package has no dependency on pkg/arch.
func WithArch(tier string) zerolog.Logger {
	return current().With().Str("arch", tier).Logger()
}

func Debug() *zerolog.Event { l := current(); return l.Debug() }
func Info() *zerolog.Event  { l := current(); return l.Info() }
func Warn() *zerolog.Event  { l := current(); return l.Warn() }
func Error() *zerolog.Event { l := current(); return l.Error() }

func Errorf(err error, format string, args ...interface{}) {
	current().Error().Err(err).Msgf(format, args...)
}

func Fatal() *zerolog.Event { l := current(); return l.Fatal() }
