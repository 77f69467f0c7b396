package taper

import "context"

// Logger is a lightweight handle that stamps records with a context tag and
// an optional fixed correlation id. Handles share the engine's sinks and
// configuration; creating one allocates nothing else.
type Logger struct {
	e     *Engine
	tag   string
	fixed string
}

// ChildOption adjusts a child logger at creation.
type ChildOption func(*Logger)

// WithCorrelationID fixes the child's correlation id for every record it
// emits. A per-call correlationId metadata key still wins.
func WithCorrelationID(id string) ChildOption {
	return func(l *Logger) { l.fixed = id }
}

// Child creates a logger whose records carry tag under the context key.
func (e *Engine) Child(tag string, opts ...ChildOption) *Logger {
	l := &Logger{e: e, tag: tag}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Child creates a nested logger. Tags concatenate with a colon, so a child
// "auth" of "api" emits under "api:auth". The fixed correlation id is
// inherited unless an option overrides it.
func (l *Logger) Child(sub string, opts ...ChildOption) *Logger {
	tag := sub
	if l.tag != "" {
		tag = l.tag + ":" + sub
	}
	c := &Logger{e: l.e, tag: tag, fixed: l.fixed}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// WithCorrelation returns a logger with the same tag and the given fixed
// correlation id.
func (l *Logger) WithCorrelation(id string) *Logger {
	return &Logger{e: l.e, tag: l.tag, fixed: id}
}

// Tag returns the logger's context tag.
func (l *Logger) Tag() string { return l.tag }

// Error logs at the error level under the logger's tag.
func (l *Logger) Error(msg string, args ...any) { l.e.log(nil, LevelError, msg, l.tag, l.fixed, args) }

// Warn logs at the warn level under the logger's tag.
func (l *Logger) Warn(msg string, args ...any) { l.e.log(nil, LevelWarn, msg, l.tag, l.fixed, args) }

// Info logs at the info level under the logger's tag.
func (l *Logger) Info(msg string, args ...any) { l.e.log(nil, LevelInfo, msg, l.tag, l.fixed, args) }

// HTTP logs at the http level under the logger's tag.
func (l *Logger) HTTP(msg string, args ...any) { l.e.log(nil, LevelHTTP, msg, l.tag, l.fixed, args) }

// Debug logs at the debug level under the logger's tag.
func (l *Logger) Debug(msg string, args ...any) { l.e.log(nil, LevelDebug, msg, l.tag, l.fixed, args) }

// Trace logs at the trace level under the logger's tag.
func (l *Logger) Trace(msg string, args ...any) { l.e.log(nil, LevelTrace, msg, l.tag, l.fixed, args) }

// ErrorContext logs at the error level with the ambient correlation id,
// unless the logger carries a fixed id.
func (l *Logger) ErrorContext(ctx context.Context, msg string, args ...any) {
	l.e.log(ctx, LevelError, msg, l.tag, l.fixed, args)
}

// WarnContext logs at the warn level under the logger's tag.
func (l *Logger) WarnContext(ctx context.Context, msg string, args ...any) {
	l.e.log(ctx, LevelWarn, msg, l.tag, l.fixed, args)
}

// InfoContext logs at the info level under the logger's tag.
func (l *Logger) InfoContext(ctx context.Context, msg string, args ...any) {
	l.e.log(ctx, LevelInfo, msg, l.tag, l.fixed, args)
}

// HTTPContext logs at the http level under the logger's tag.
func (l *Logger) HTTPContext(ctx context.Context, msg string, args ...any) {
	l.e.log(ctx, LevelHTTP, msg, l.tag, l.fixed, args)
}

// DebugContext logs at the debug level under the logger's tag.
func (l *Logger) DebugContext(ctx context.Context, msg string, args ...any) {
	l.e.log(ctx, LevelDebug, msg, l.tag, l.fixed, args)
}

// TraceContext logs at the trace level under the logger's tag.
func (l *Logger) TraceContext(ctx context.Context, msg string, args ...any) {
	l.e.log(ctx, LevelTrace, msg, l.tag, l.fixed, args)
}

// Log logs at an arbitrary level under the logger's tag.
func (l *Logger) Log(level Level, msg string, args ...any) {
	l.e.log(nil, level, msg, l.tag, l.fixed, args)
}

// LogContext is Log with the ambient correlation id from ctx.
func (l *Logger) LogContext(ctx context.Context, level Level, msg string, args ...any) {
	l.e.log(ctx, level, msg, l.tag, l.fixed, args)
}
