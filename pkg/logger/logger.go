package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options configures the process logger.
type Options struct {
	Level      string // debug, info, warn, error
	Pretty     bool   // human-readable console output
	File       string // when set, JSON lines are also written to a rotating file
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// New creates a configured zerolog.Logger.
func New(opts Options) zerolog.Logger {
	var w io.Writer = os.Stdout

	if opts.Pretty {
		w = zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		}
	}

	if opts.File != "" {
		w = zerolog.MultiLevelWriter(w, &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    opts.MaxSizeMB,
			MaxBackups: opts.MaxBackups,
			MaxAge:     opts.MaxAgeDays,
			Compress:   true,
		})
	}

	return zerolog.New(w).
		Level(parseLevel(opts.Level)).
		With().
		Timestamp().
		Caller().
		Str("service", "settlement-gateway").
		Logger()
}

// NewWithWriter creates a logger writing to a custom writer (useful for testing).
func NewWithWriter(level string, w io.Writer) zerolog.Logger {
	return zerolog.New(w).
		Level(parseLevel(level)).
		With().
		Timestamp().
		Logger()
}

// Component returns a child logger tagged with the component name.
func Component(log zerolog.Logger, name string) zerolog.Logger {
	return log.With().Str("component", name).Logger()
}

func parseLevel(level string) zerolog.Level {
	switch level {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}
