package observability

import (
	"context"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
)

var defaultLogger zerolog.Logger
var loggerOnce sync.Once

// NewLogger creates the process logger. Development gets the human console
// writer; everything else emits JSON lines.
func NewLogger(serviceName, environment string, level zerolog.Level) zerolog.Logger {
	var out io.Writer = os.Stdout
	if environment == "development" {
		out = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}
	}
	return zerolog.New(out).With().
		Timestamp().
		Str("service", serviceName).
		Logger().
		Level(level)
}

// GetLogger returns the default logger instance
func GetLogger() zerolog.Logger {
	loggerOnce.Do(func() {
		serviceName := os.Getenv("SERVICE_NAME")
		if serviceName == "" {
			serviceName = "vitalsync-server"
		}
		defaultLogger = NewLogger(serviceName, os.Getenv("ENVIRONMENT"), ParseLevel(os.Getenv("LOG_LEVEL")))
	})
	return defaultLogger
}

// ParseLevel maps config strings onto zerolog levels, defaulting to info.
func ParseLevel(s string) zerolog.Level {
	switch strings.ToLower(s) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// WithTrace decorates the logger with the span identity from ctx so log
// lines can be joined to traces.
func WithTrace(ctx context.Context, log zerolog.Logger) zerolog.Logger {
	span := trace.SpanFromContext(ctx)
	if !span.SpanContext().IsValid() {
		return log
	}
	return log.With().
		Str("trace_id", span.SpanContext().TraceID().String()).
		Str("span_id", span.SpanContext().SpanID().String()).
		Logger()
}
