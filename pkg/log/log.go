package log

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

var (
	// Logger is the global logger instance
	Logger zerolog.Logger
)

// Level represents log level
type Level string

const (
	DebugLevel Level = "debug"
	InfoLevel  Level = "info"
	WarnLevel  Level = "warn"
	ErrorLevel Level = "error"
)

// Config holds logging configuration
type Config struct {
	Level      Level
	JSONOutput bool
	Output     io.Writer
}

// Init initializes the global logger
func Init(cfg Config) {
	// Set log level
	var level zerolog.Level
	switch cfg.Level {
	case DebugLevel:
		level = zerolog.DebugLevel
	case InfoLevel:
		level = zerolog.InfoLevel
	case WarnLevel:
		level = zerolog.WarnLevel
	case ErrorLevel:
		level = zerolog.ErrorLevel
	default:
		level = zerolog.InfoLevel
	}

	zerolog.SetGlobalLevel(level)

	// Configure output
	output := cfg.Output
	if output == nil {
		output = os.Stdout
	}

	// Use JSON or console output
	if cfg.JSONOutput {
		Logger = zerolog.New(output).With().Timestamp().Logger()
	} else {
		Logger = zerolog.New(zerolog.ConsoleWriter{
			Out:        output,
			TimeFormat: time.RFC3339,
		}).With().Timestamp().Logger()
	}
}

// WithComponent creates a child logger with component field
func WithComponent(component string) *zerolog.Logger {
	l := Logger.With().Str("component", component).Logger()
	return &l
}

// WithSubject creates a child logger tagged with the broker subject a
// message was received on or published to.
func WithSubject(subject string) *zerolog.Logger {
	l := Logger.With().Str("subject", subject).Logger()
	return &l
}

// WithStreamSeq creates a child logger tagged with a message's JetStream
// stream sequence number, for correlating redeliveries in logs.
func WithStreamSeq(seq uint64) *zerolog.Logger {
	l := Logger.With().Uint64("stream_seq", seq).Logger()
	return &l
}

// WithOriginalID creates a child logger tagged with an event's original_id,
// the identity that survives the pipeline from scrape to vector store.
func WithOriginalID(id string) *zerolog.Logger {
	l := Logger.With().Str("original_id", id).Logger()
	return &l
}

// WithMessageContext creates a child logger carrying the three fields every
// worker logs at an ack/nak transition: the subject a message arrived on,
// its JetStream stream sequence, and the event's original_id. Pass "" or 0
// for any field the caller doesn't have yet (e.g. before the payload is
// decoded, originalID is unknown).
func WithMessageContext(subject string, seq uint64, originalID string) *zerolog.Logger {
	ctx := Logger.With().Str("subject", subject).Uint64("stream_seq", seq)
	if originalID != "" {
		ctx = ctx.Str("original_id", originalID)
	}
	l := ctx.Logger()
	return &l
}

// Helper functions for common logging patterns
func Info(msg string) {
	Logger.Info().Msg(msg)
}

func Debug(msg string) {
	Logger.Debug().Msg(msg)
}

func Warn(msg string) {
	Logger.Warn().Msg(msg)
}

func Error(msg string) {
	Logger.Error().Msg(msg)
}

func Errorf(format string, err error) {
	Logger.Error().Err(err).Msg(format)
}

func Fatal(msg string) {
	Logger.Fatal().Msg(msg)
}
