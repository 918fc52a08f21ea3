package monitoring

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Logger provides structured logging with domain helpers
type Logger struct {
	zerolog.Logger
}

// LoggerOptions configures NewLogger.
type LoggerOptions struct {
	Level   string
	Console bool
	Out     io.Writer
}

// NewLogger creates a logger and installs it as the global zerolog logger.
// Console output is meant for the CLI, JSON for the server.
func NewLogger(opts LoggerOptions) *Logger {
	out := opts.Out
	if out == nil {
		out = os.Stderr
	}

	zerolog.TimeFieldFormat = time.RFC3339
	level, err := zerolog.ParseLevel(strings.ToLower(opts.Level))
	if err != nil || opts.Level == "" {
		level = zerolog.InfoLevel
	}

	var w io.Writer = out
	if opts.Console {
		w = zerolog.ConsoleWriter{Out: out, TimeFormat: "15:04:05"}
	}

	zl := zerolog.New(w).Level(level).With().Timestamp().Logger()
	log.Logger = zl
	return &Logger{Logger: zl}
}

// NewNopLogger discards everything.
func NewNopLogger() *Logger {
	return &Logger{Logger: zerolog.Nop()}
}

// RequestLogger logs HTTP request details
func (l *Logger) RequestLogger(requestID, method, path, ip, userAgent string, statusCode int, duration time.Duration) {
	var event *zerolog.Event
	switch {
	case statusCode >= 500:
		event = l.Error()
	case statusCode >= 400:
		event = l.Warn()
	default:
		event = l.Info()
	}
	event.
		Str("request_id", requestID).
		Str("method", method).
		Str("path", path).
		Str("ip", ip).
		Str("user_agent", userAgent).
		Int("status_code", statusCode).
		Int64("duration_ms", duration.Milliseconds()).
		Msg("HTTP Request")
}

// ModelLogger logs the model that was loaded and the schema it resolved to.
func (l *Logger) ModelLogger(path, kind, convention, schemaSource string, features int) {
	l.Info().
		Str("path", path).
		Str("kind", kind).
		Str("convention", convention).
		Str("schema_source", schemaSource).
		Int("features", features).
		Msg("Model loaded")
}

// DriftLogger reports a record whose features disagreed with the schema.
func (l *Logger) DriftLogger(index int, missing, dropped []string) {
	l.Warn().
		Int("record", index).
		Strs("missing", missing).
		Strs("dropped", dropped).
		Msg("Feature schema drift")
}

// RecordErrorLogger logs a record that could not be scored.
func (l *Logger) RecordErrorLogger(index int, employeeID string, err error) {
	l.Warn().
		Int("record", index).
		Str("employee_id", employeeID).
		Err(err).
		Msg("Record skipped")
}

// BatchLogger logs a finished batch.
func (l *Logger) BatchLogger(source string, total, burnout, failed int, duration time.Duration) {
	l.Info().
		Str("source", source).
		Int("total", total).
		Int("burnout", burnout).
		Int("failed", failed).
		Int64("duration_ms", duration.Milliseconds()).
		Msg("Batch scored")
}

// CacheLogger logs cache operations
func (l *Logger) CacheLogger(operation, key string, hit bool, itemCount int) {
	l.Debug().
		Str("operation", operation).
		Str("key", key).
		Bool("hit", hit).
		Int("cache_size", itemCount).
		Msg("Cache Operation")
}

// SystemLogger logs system-level events
func (l *Logger) SystemLogger(event, details string) {
	l.Info().
		Str("event", event).
		Str("details", details).
		Str("uptime", time.Since(startTime).String()).
		Msg("System Event")
}

var startTime = time.Now()
