// Package logging configures the zerolog logger used across bullpen and
// carries it on a context.Context.
//
//	log := logging.New(logging.Config{Level: "debug"})
//	ctx := logging.WithLogger(context.Background(), &log)
//	logging.FromContext(ctx).Info().Str("dataset", name).Msg("reconciled")
package logging

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
)

// Config holds logger configuration options.
type Config struct {
	// Level is the minimum level: trace, debug, info, warn, error.
	Level string

	// Format is console, json, or auto (console on a terminal).
	Format string

	// Output receives log lines. Defaults to os.Stderr.
	Output io.Writer

	// NoColor disables color in console mode.
	NoColor bool
}

// Nop discards everything.
var Nop = zerolog.Nop()

// New builds a logger from cfg.
func New(cfg Config) zerolog.Logger {
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}

	format := strings.ToLower(cfg.Format)
	if format == "" || format == "auto" {
		format = "json"
		if f, ok := out.(*os.File); ok && isatty.IsTerminal(f.Fd()) {
			format = "console"
		}
	}

	var w io.Writer = out
	if format == "console" || format == "pretty" {
		w = zerolog.ConsoleWriter{
			Out:        out,
			TimeFormat: time.Kitchen,
			NoColor:    cfg.NoColor || os.Getenv("NO_COLOR") != "",
		}
	}

	level := ParseLevel(cfg.Level)
	logger := zerolog.New(w).Level(level).With().Timestamp().Logger()
	if level <= zerolog.DebugLevel {
		logger = logger.With().Caller().Logger()
	}
	return logger
}

// ParseLevel maps a level name to a zerolog level, defaulting to info.
func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "warning":
		return zerolog.WarnLevel
	case "off", "none":
		return zerolog.Disabled
	}
	l, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || l == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return l
}

// ResolveLevel applies the level precedence:
// explicit level > verbose (debug) > quiet (warn) > LOG_LEVEL env > info.
// The warning is non-empty when the inputs conflict or the level is unknown.
func ResolveLevel(explicit string, verbose, quiet bool) (level string, warning string) {
	if explicit != "" {
		if _, err := zerolog.ParseLevel(strings.ToLower(explicit)); err != nil {
			return "info", fmt.Sprintf("invalid log level %q, using %q", explicit, "info")
		}
		return strings.ToLower(explicit), ""
	}
	if verbose && quiet {
		return "warn", "both --verbose and --quiet specified, using --quiet"
	}
	if verbose {
		return "debug", ""
	}
	if quiet {
		return "warn", ""
	}
	if env := os.Getenv("LOG_LEVEL"); env != "" {
		return strings.ToLower(env), ""
	}
	return "info", ""
}

type contextKey int

const loggerKey contextKey = iota

// WithLogger returns a copy of ctx carrying logger.
func WithLogger(ctx context.Context, logger *zerolog.Logger) context.Context {
	if logger == nil {
		logger = &Nop
	}
	return context.WithValue(ctx, loggerKey, logger)
}

// FromContext returns the logger carried by ctx, or Nop.
func FromContext(ctx context.Context) *zerolog.Logger {
	if ctx != nil {
		if l, ok := ctx.Value(loggerKey).(*zerolog.Logger); ok && l != nil {
			return l
		}
	}
	return &Nop
}
