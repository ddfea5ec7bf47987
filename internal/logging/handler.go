package logging

import (
	"context"
	"errors"
	"log/slog"
)

// Fanout delivers each record to every handler enabled for its level.
type Fanout struct {
	handlers []slog.Handler
}

// NewFanout skips nil handlers.
func NewFanout(handlers ...slog.Handler) *Fanout {
	f := &Fanout{handlers: make([]slog.Handler, 0, len(handlers))}
	for _, h := range handlers {
		if h != nil {
			f.handlers = append(f.handlers, h)
		}
	}
	return f
}

func (f *Fanout) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range f.handlers {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

// Handle keeps going after a sink fails and returns the joined errors.
func (f *Fanout) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, h := range f.handlers {
		if !h.Enabled(ctx, r.Level) {
			continue
		}
		if err := h.Handle(ctx, r.Clone()); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (f *Fanout) WithAttrs(attrs []slog.Attr) slog.Handler {
	return f.each(func(h slog.Handler) slog.Handler { return h.WithAttrs(attrs) })
}

func (f *Fanout) WithGroup(name string) slog.Handler {
	if name == "" {
		return f
	}
	return f.each(func(h slog.Handler) slog.Handler { return h.WithGroup(name) })
}

func (f *Fanout) each(fn func(slog.Handler) slog.Handler) *Fanout {
	out := &Fanout{handlers: make([]slog.Handler, len(f.handlers))}
	for i, h := range f.handlers {
		out.handlers[i] = fn(h)
	}
	return out
}

// LiveAttrs returns attributes that change over the process lifetime,
// such as the active session ID.
type LiveAttrs func() []slog.Attr

// liveHandler evaluates LiveAttrs on every record.
type liveHandler struct {
	next  slog.Handler
	attrs LiveAttrs
}

func newLiveHandler(next slog.Handler, attrs LiveAttrs) slog.Handler {
	if attrs == nil {
		return next
	}
	return &liveHandler{next: next, attrs: attrs}
}

func (h *liveHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *liveHandler) Handle(ctx context.Context, r slog.Record) error {
	r.AddAttrs(h.attrs()...)
	return h.next.Handle(ctx, r)
}

func (h *liveHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &liveHandler{next: h.next.WithAttrs(attrs), attrs: h.attrs}
}

func (h *liveHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	return &liveHandler{next: h.next.WithGroup(name), attrs: h.attrs}
}
