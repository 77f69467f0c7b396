package taper

import (
	"context"
	"log/slog"
	"slices"
)

// Handler adapts the engine to log/slog, so host code written against the
// standard structured logger emits through the same pipeline. Groups flatten
// into dotted keys; slog levels below Debug map to trace.
type Handler struct {
	e     *Engine
	tag   string
	group string
	attrs []any // pre-qualified alternating key/value pairs
}

// NewHandler returns a slog.Handler backed by e. tag, when non-empty,
// becomes the context tag of every record.
func NewHandler(e *Engine, tag string) *Handler {
	return &Handler{e: e, tag: tag}
}

func slogLevel(l slog.Level) Level {
	switch {
	case l >= slog.LevelError:
		return LevelError
	case l >= slog.LevelWarn:
		return LevelWarn
	case l >= slog.LevelInfo:
		return LevelInfo
	case l >= slog.LevelDebug:
		return LevelDebug
	}
	return LevelTrace
}

// Enabled consults the engine's global threshold.
func (h *Handler) Enabled(_ context.Context, level slog.Level) bool {
	return slogLevel(level) <= h.e.Config().Level
}

// Handle forwards the record, carrying the ambient correlation id from ctx.
func (h *Handler) Handle(ctx context.Context, r slog.Record) error {
	args := slices.Clone(h.attrs)
	r.Attrs(func(a slog.Attr) bool {
		args = appendAttr(args, h.qualify(a.Key), a.Value)
		return true
	})
	h.e.log(ctx, slogLevel(r.Level), r.Message, h.tag, "", args)
	return nil
}

// WithAttrs captures attrs under the current group.
func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	c := *h
	c.attrs = slices.Clip(h.attrs)
	for _, a := range attrs {
		c.attrs = appendAttr(c.attrs, c.qualify(a.Key), a.Value)
	}
	return &c
}

// WithGroup dots the group name onto subsequent keys.
func (h *Handler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	c := *h
	c.group = joinKey(c.group, name)
	return &c
}

func (h *Handler) qualify(key string) string {
	return joinKey(h.group, key)
}

func joinKey(prefix, key string) string {
	if prefix == "" {
		return key
	}
	if key == "" {
		return prefix
	}
	return prefix + "." + key
}

// appendAttr resolves v and appends it as key/value args, flattening group
// values into dotted keys.
func appendAttr(args []any, key string, v slog.Value) []any {
	v = v.Resolve()
	if v.Kind() == slog.KindGroup {
		for _, a := range v.Group() {
			args = appendAttr(args, joinKey(key, a.Key), a.Value)
		}
		return args
	}
	return append(args, key, v.Any())
}
