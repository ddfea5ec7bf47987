package logging

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/Graylog2/go-gelf/gelf"
)

// GelfSender delivers a single GELF message. *gelf.Writer satisfies it.
type GelfSender interface {
	WriteMessage(m *gelf.Message) error
}

// GelfHandler is a slog.Handler that ships records to Graylog.
// Attributes become GELF additional fields ("_key").
type GelfHandler struct {
	sender GelfSender
	level  slog.Leveler
	host   string
	attrs  []slog.Attr
	group  string
}

// NewGelfWriter dials a Graylog UDP input.
func NewGelfWriter(address string) (*gelf.Writer, error) {
	w, err := gelf.NewWriter(address)
	if err != nil {
		return nil, fmt.Errorf("creating gelf writer: %w", err)
	}
	w.Facility = ServiceName
	return w, nil
}

// NewGelfHandler creates a handler sending records at or above level.
func NewGelfHandler(sender GelfSender, level string) *GelfHandler {
	host, err := os.Hostname()
	if err != nil {
		host = "unknown"
	}
	return &GelfHandler{
		sender: sender,
		level:  parseLevel(level),
		host:   host,
	}
}

// Enabled reports whether level is at or above the handler's level.
func (h *GelfHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

// Handle converts the record into a GELF message.
func (h *GelfHandler) Handle(_ context.Context, r slog.Record) error {
	extra := make(map[string]any, len(h.attrs)+r.NumAttrs())
	for _, a := range h.attrs {
		addGelfField(extra, "", a)
	}
	r.Attrs(func(a slog.Attr) bool {
		addGelfField(extra, h.group, a)
		return true
	})

	t := r.Time
	if t.IsZero() {
		t = time.Now()
	}

	return h.sender.WriteMessage(&gelf.Message{
		Version:  "1.1",
		Host:     h.host,
		Short:    r.Message,
		TimeUnix: float64(t.UnixNano()) / float64(time.Second),
		Level:    syslogLevel(r.Level),
		Facility: ServiceName,
		Extra:    extra,
	})
}

// WithAttrs returns a handler that adds attrs to every message.
func (h *GelfHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := *h
	next.attrs = make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	next.attrs = append(next.attrs, h.attrs...)
	for _, a := range attrs {
		if h.group != "" {
			a.Key = h.group + "." + a.Key
		}
		next.attrs = append(next.attrs, a)
	}
	return &next
}

// WithGroup prefixes subsequent attribute keys with name.
func (h *GelfHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	next := *h
	if h.group != "" {
		next.group = h.group + "." + name
	} else {
		next.group = name
	}
	return &next
}

func addGelfField(extra map[string]any, prefix string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	key := a.Key
	if prefix != "" {
		key = prefix + "." + key
	}
	if a.Value.Kind() == slog.KindGroup {
		for _, ga := range a.Value.Group() {
			addGelfField(extra, key, ga)
		}
		return
	}
	if key == "" || key == "id" {
		// "_id" is reserved by Graylog
		key = "field_" + key
	}
	switch a.Value.Kind() {
	case slog.KindString:
		extra["_"+key] = a.Value.String()
	case slog.KindInt64:
		extra["_"+key] = a.Value.Int64()
	case slog.KindUint64:
		extra["_"+key] = a.Value.Uint64()
	case slog.KindFloat64:
		extra["_"+key] = a.Value.Float64()
	case slog.KindBool:
		extra["_"+key] = a.Value.Bool()
	default:
		extra["_"+key] = a.Value.String()
	}
}

// syslogLevel maps slog levels to the syslog severities GELF uses.
func syslogLevel(l slog.Level) int32 {
	switch {
	case l >= slog.LevelError:
		return 3
	case l >= slog.LevelWarn:
		return 4
	case l >= slog.LevelInfo:
		return 6
	default:
		return 7
	}
}
