package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Logger is the application logger instance
var Logger = zerolog.Nop()

// Options controls logger construction
type Options struct {
	Level  string
	Format string // json, console
	// Production clamps the level to info so request bodies logged at
	// debug level never reach the output.
	Production bool
	Out        io.Writer
}

// Init initializes the logger with the given configuration
func Init(opts Options) zerolog.Logger {
	logLevel := parseLogLevel(opts.Level)
	if opts.Production && logLevel < zerolog.InfoLevel {
		logLevel = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(logLevel)

	out := opts.Out
	if out == nil {
		// stdout belongs to command output
		out = os.Stderr
	}

	if strings.ToLower(opts.Format) == "json" {
		Logger = zerolog.New(out).With().
			Timestamp().
			Logger()
	} else {
		output := zerolog.ConsoleWriter{
			Out:        out,
			TimeFormat: time.RFC3339,
			NoColor:    false,
		}
		Logger = zerolog.New(output).With().
			Timestamp().
			Logger()
	}

	log.Logger = Logger
	return Logger
}

// parseLogLevel parses string log level to zerolog level
func parseLogLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "disabled", "off":
		return zerolog.Disabled
	default:
		return zerolog.WarnLevel
	}
}
