package logging

import (
	"context"
	"log/slog"

	"github.com/nomis52/botcore/action"
)

// CapturingHandler records every log line for one action tag and passes
// the record on to the underlying handler.
type CapturingHandler struct {
	underlying slog.Handler
	store      *ActionLogs
	tag        action.Tag
	attrs      []slog.Attr
	group      string
}

// NewCapturingHandler wraps underlying so records are also stored in store
// under tag.
func NewCapturingHandler(underlying slog.Handler, store *ActionLogs, tag action.Tag) *CapturingHandler {
	return &CapturingHandler{underlying: underlying, store: store, tag: tag}
}

// Enabled admits every level the store captures, even when the underlying
// handler would drop it.
func (h *CapturingHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return level >= h.store.level || h.underlying.Enabled(ctx, level)
}

func (h *CapturingHandler) Handle(ctx context.Context, r slog.Record) error {
	if r.Level >= h.store.level {
		h.store.add(h.tag, h.entry(r))
	}
	if !h.underlying.Enabled(ctx, r.Level) {
		return nil
	}
	return h.underlying.Handle(ctx, r)
}

func (h *CapturingHandler) entry(r slog.Record) LogEntry {
	e := LogEntry{
		Time:       r.Time,
		Level:      r.Level.String(),
		Message:    r.Message,
		Attributes: make(map[string]any, r.NumAttrs()+len(h.attrs)),
	}
	for _, a := range h.attrs {
		e.Attributes[a.Key] = resolve(a.Value)
	}
	r.Attrs(func(a slog.Attr) bool {
		e.Attributes[h.key(a.Key)] = resolve(a.Value)
		return true
	})
	return e
}

func (h *CapturingHandler) key(k string) string {
	if h.group == "" {
		return k
	}
	return h.group + "." + k
}

// WithAttrs keeps capturing across logger.With chains.
func (h *CapturingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	cp := *h
	cp.underlying = h.underlying.WithAttrs(attrs)
	cp.attrs = make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	cp.attrs = append(cp.attrs, h.attrs...)
	for _, a := range attrs {
		cp.attrs = append(cp.attrs, slog.Attr{Key: h.key(a.Key), Value: a.Value})
	}
	return &cp
}

func (h *CapturingHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	cp := *h
	cp.underlying = h.underlying.WithGroup(name)
	cp.group = h.key(name)
	return &cp
}

// resolve converts a slog.Value into something encoding/json can emit.
func resolve(v slog.Value) any {
	v = v.Resolve()
	switch v.Kind() {
	case slog.KindDuration:
		return v.Duration().String()
	case slog.KindGroup:
		group := make(map[string]any, len(v.Group()))
		for _, a := range v.Group() {
			group[a.Key] = resolve(a.Value)
		}
		return group
	case slog.KindAny:
		if err, ok := v.Any().(error); ok {
			return err.Error()
		}
		if s, ok := v.Any().(interface{ String() string }); ok {
			return s.String()
		}
		return v.Any()
	default:
		return v.Any()
	}
}
