// Package sysutil configures process-wide concerns shared by every chatd
// subcommand.
package sysutil

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// LogOptions configures the global logger.
type LogOptions struct {
	Level   string // see ParseLevel
	Pretty  bool   // human-readable console output
	Service string
	Version string
	// Out defaults to os.Stderr.
	Out io.Writer
}

// ParseLevel maps a level name to a zerolog level, accepting "warning"
// for warn. Empty and unknown names mean info.
func ParseLevel(name string) zerolog.Level {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "warning" {
		name = "warn"
	}
	lvl, err := zerolog.ParseLevel(name)
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}

// ConfigureLogging sets the global level, installs the global logger with
// service and version fields, and returns it.
func ConfigureLogging(o LogOptions) zerolog.Logger {
	zerolog.SetGlobalLevel(ParseLevel(o.Level))
	zerolog.TimeFieldFormat = time.RFC3339Nano

	out := o.Out
	if out == nil {
		out = os.Stderr
	}
	if o.Pretty {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.Kitchen}
	}

	ctx := zerolog.New(out).With().Timestamp()
	if o.Service != "" {
		ctx = ctx.Str("service", o.Service)
	}
	if o.Version != "" {
		ctx = ctx.Str("version", o.Version)
	}
	log.Logger = ctx.Logger()
	return log.Logger
}
