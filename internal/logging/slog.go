package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/contrib/bridges/otelslog"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

// ServiceName identifies this extension in OTel and Graylog records.
const ServiceName = "siegelimit"

// swapped in tests
var (
	osStdout io.Writer = os.Stdout
	osPipe             = os.Pipe
)

// SlogManager manages slog-based logging with optional OTel and Graylog integration.
type SlogManager struct {
	mu     sync.RWMutex
	logger *slog.Logger

	// OTel provider for flushing
	logProvider *sdklog.LoggerProvider

	// Dynamic state callbacks, added to every record when set.
	GetSessionID    func() uint
	GetWorldName    func() string
	IsWorldReady    func() bool
	IsStatusRunning func() bool
}

// NewSlogManager creates a new slog-based logging manager.
func NewSlogManager() *SlogManager {
	return &SlogManager{}
}

// parseLevel converts a string log level to slog.Level.
func parseLevel(level string) slog.Level {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func handlerOptions(lvl slog.Level) *slog.HandlerOptions {
	// RFC3339 UTC timestamps everywhere
	return &slog.HandlerOptions{
		Level: lvl,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				if t, ok := a.Value.Any().(time.Time); ok {
					a.Value = slog.StringValue(t.UTC().Format(time.RFC3339))
				}
			}
			return a
		},
	}
}

// Setup initializes the logging system with file and optional OTel output.
// Without a file, records go to stdout. If provider is nil, OTel logging is disabled.
// Extra handlers (e.g. a GelfHandler) receive every record as well.
func (m *SlogManager) Setup(file io.Writer, level string, provider *sdklog.LoggerProvider, extra ...slog.Handler) {
	lvl := parseLevel(level)
	handlerOpts := handlerOptions(lvl)

	var handlers []slog.Handler

	if file != nil {
		handlers = append(handlers, slog.NewTextHandler(file, handlerOpts))
	} else {
		handlers = append(handlers, slog.NewTextHandler(osStdout, handlerOpts))
	}

	if provider != nil {
		otelHandler := otelslog.NewHandler(ServiceName, otelslog.WithLoggerProvider(provider))
		handlers = append(handlers, otelHandler)
	}

	handlers = append(handlers, extra...)

	logger := slog.New(newLiveHandler(NewFanout(handlers...), m.contextAttrs))

	m.mu.Lock()
	m.logProvider = provider
	m.logger = logger
	m.mu.Unlock()

	logger.Info("Logging initialized", "level", level)
}

// contextAttrs reports the live session state on every record.
func (m *SlogManager) contextAttrs() []slog.Attr {
	var attrs []slog.Attr
	if m.GetSessionID != nil {
		if id := m.GetSessionID(); id != 0 {
			attrs = append(attrs, slog.Uint64("sessionID", uint64(id)))
		}
	}
	if m.GetWorldName != nil {
		if name := m.GetWorldName(); name != "" {
			attrs = append(attrs, slog.String("world", name))
		}
	}
	if m.IsWorldReady != nil {
		attrs = append(attrs, slog.Bool("worldReady", m.IsWorldReady()))
	}
	if m.IsStatusRunning != nil {
		attrs = append(attrs, slog.Bool("statusMonitorActive", m.IsStatusRunning()))
	}
	return attrs
}

// Logger returns the configured slog.Logger.
func (m *SlogManager) Logger() *slog.Logger {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.logger == nil {
		// Return a default logger if Setup hasn't been called
		return slog.Default()
	}
	return m.logger
}

// Flush forces a flush of OTel logs if available.
func (m *SlogManager) Flush(ctx context.Context) error {
	m.mu.RLock()
	provider := m.logProvider
	m.mu.RUnlock()
	if provider != nil {
		return provider.ForceFlush(ctx)
	}
	return nil
}

// WriteLog writes a log entry with the specified function name, data, and level.
func (m *SlogManager) WriteLog(functionName, data, level string) {
	m.mu.RLock()
	logger := m.logger
	m.mu.RUnlock()
	if logger == nil {
		return
	}
	logger.Log(context.Background(), parseLevel(level), data, "function", functionName)
}
