// Package logger builds the zerolog loggers used by the directory service.
//
// main calls Init once; everything else receives a zerolog.Logger through
// its constructor, usually narrowed with Component.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
)

// Options controls how log entries are rendered.
type Options struct {
	// Level is the minimum level: trace, debug, info, warn, error. Empty
	// means info.
	Level string
	// Pretty switches from JSON lines to zerolog's console writer.
	Pretty bool
	// Output defaults to os.Stdout.
	Output io.Writer
	// Service and Version are attached to every entry when set.
	Service string
	Version string
}

// New builds a logger from opts without touching zerolog's globals.
func New(opts Options) (zerolog.Logger, error) {
	lvl, err := ParseLevel(opts.Level)
	if err != nil {
		return zerolog.Nop(), err
	}

	out := opts.Output
	if out == nil {
		out = os.Stdout
	}
	if opts.Pretty {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}

	ctx := zerolog.New(out).Level(lvl).With().Timestamp().Caller()
	if opts.Service != "" {
		ctx = ctx.Str("service", opts.Service)
	}
	if opts.Version != "" {
		ctx = ctx.Str("version", opts.Version)
	}
	return ctx.Logger(), nil
}

// Init builds the process logger and installs it as zerolog's global logger,
// including the global level and time format.
func Init(opts Options) (zerolog.Logger, error) {
	l, err := New(opts)
	if err != nil {
		return l, err
	}
	zerolog.TimeFieldFormat = time.RFC3339Nano
	zerolog.SetGlobalLevel(l.GetLevel())
	zlog.Logger = l
	return l, nil
}

// Component tags every entry of the returned logger with the subsystem that
// wrote it.
func Component(l zerolog.Logger, name string) zerolog.Logger {
	return l.With().Str("component", name).Logger()
}

// ParseLevel accepts zerolog's level names and "warning".
func ParseLevel(s string) (zerolog.Level, error) {
	switch v := strings.ToLower(strings.TrimSpace(s)); v {
	case "":
		return zerolog.InfoLevel, nil
	case "warning":
		return zerolog.WarnLevel, nil
	default:
		lvl, err := zerolog.ParseLevel(v)
		if err != nil {
			return zerolog.NoLevel, fmt.Errorf("log level %q: %w", s, err)
		}
		return lvl, nil
	}
}
