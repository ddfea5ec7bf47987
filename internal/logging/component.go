package logging

import (
	"io"
	"log/slog"
)

// ComponentLogger is a key-value logger tagged with the name of the
// subsystem writing through it. It satisfies dispatcher.Logger.
type ComponentLogger struct {
	logger *slog.Logger
}

// NewComponentLogger tags every record with component=name. A nil logger discards.
func NewComponentLogger(logger *slog.Logger, name string) *ComponentLogger {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &ComponentLogger{logger: logger.With("component", name)}
}

func (l *ComponentLogger) Debug(msg string, keysAndValues ...any) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l *ComponentLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Info(msg, keysAndValues...)
}

func (l *ComponentLogger) Warn(msg string, keysAndValues ...any) {
	l.logger.Warn(msg, keysAndValues...)
}

func (l *ComponentLogger) Error(msg string, keysAndValues ...any) {
	l.logger.Error(msg, keysAndValues...)
}
