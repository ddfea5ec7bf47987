package logging

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/rs/zerolog"
)

// zerologBridge forwards zerolog JSON events into a slog.Logger so the
// components that log through zerolog share the slog sinks.
type zerologBridge struct {
	logger *slog.Logger
}

// NewZerolog returns a zerolog.Logger writing through logger.
func NewZerolog(logger *slog.Logger, component string) zerolog.Logger {
	return zerolog.New(zerologBridge{logger: logger}).
		Level(zerolog.TraceLevel).
		With().Str("component", component).Logger()
}

func (b zerologBridge) Write(p []byte) (int, error) {
	return b.WriteLevel(zerolog.NoLevel, p)
}

// WriteLevel implements zerolog.LevelWriter.
func (b zerologBridge) WriteLevel(level zerolog.Level, p []byte) (int, error) {
	var fields map[string]any
	if err := json.Unmarshal(p, &fields); err != nil {
		b.logger.Info(string(p))
		return len(p), nil
	}

	msg, _ := fields[zerolog.MessageFieldName].(string)
	delete(fields, zerolog.MessageFieldName)
	delete(fields, zerolog.LevelFieldName)
	delete(fields, zerolog.TimestampFieldName)

	attrs := make([]slog.Attr, 0, len(fields))
	for k, v := range fields {
		attrs = append(attrs, slog.Any(k, v))
	}
	b.logger.LogAttrs(context.Background(), slogLevel(level), msg, attrs...)
	return len(p), nil
}

func slogLevel(l zerolog.Level) slog.Level {
	switch l {
	case zerolog.TraceLevel, zerolog.DebugLevel:
		return slog.LevelDebug
	case zerolog.WarnLevel:
		return slog.LevelWarn
	case zerolog.ErrorLevel, zerolog.FatalLevel, zerolog.PanicLevel:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
