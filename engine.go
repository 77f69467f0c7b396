package taper

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime/debug"
	"sync"
	"syscall"
	"time"

	"github.com/taperlog/taper/correlation"
)

// Engine is the process-wide logging engine. Construct one with New at the
// composition root, or let Default create it lazily. Logging calls never
// panic and never return errors; internal failures surface as stderr
// diagnostics so the engine cannot take the host down with it.
type Engine struct {
	mu     sync.RWMutex
	cfg    Config
	con    *ConsoleRenderer
	sink   *BufferedWriter
	closed bool

	stdout *os.File
	stderr *os.File

	now func() time.Time
}

var (
	engineMu sync.Mutex
	engine   *Engine
)

// New constructs the engine. Only one engine may be live per process; a
// second call fails with ErrAlreadyConstructed until Reset releases the
// first.
func New(cfg Config) (*Engine, error) {
	engineMu.Lock()
	defer engineMu.Unlock()
	if engine != nil {
		return nil, fmt.Errorf("taper: %w, call Reset before constructing another", ErrAlreadyConstructed)
	}
	engine = newEngine(cfg)
	return engine, nil
}

// NewDefault constructs the engine with DefaultConfig.
func NewDefault() (*Engine, error) {
	return New(DefaultConfig())
}

// Default returns the process engine, constructing it with defaults on
// first use.
func Default() *Engine {
	engineMu.Lock()
	defer engineMu.Unlock()
	if engine == nil {
		engine = newEngine(DefaultConfig())
	}
	return engine
}

// Reset tears down the process engine, draining and closing it, so a fresh
// one can be constructed. Meant for tests and controlled restarts.
func Reset() {
	engineMu.Lock()
	e := engine
	engine = nil
	engineMu.Unlock()
	if e != nil {
		e.Close()
	}
}

func newEngine(cfg Config) *Engine {
	e := &Engine{
		cfg:    cfg,
		stdout: os.Stdout,
		stderr: os.Stderr,
		now:    time.Now,
	}
	e.con = NewConsoleRenderer(cfg.Console, e.stdout)
	if cfg.File.Enabled {
		e.sink = NewBufferedWriter(cfg.Dir, cfg.Prefix, cfg.Rotation, cfg.Performance)
	}
	return e
}

// Configure applies a partial configuration and returns the engine for
// chaining. Invalid values are skipped per key with a diagnostic while the
// rest of the patch lands; an empty patch is a no-op. Changes to the file,
// rotation, or performance keys re-plumb the sink after draining the old
// one.
func (e *Engine) Configure(p Patch) *Engine {
	e.mu.Lock()
	old := e.cfg
	for _, err := range e.cfg.apply(p) {
		diagf("%v", err)
	}
	cfg := e.cfg

	if old.Console != cfg.Console {
		e.con = NewConsoleRenderer(cfg.Console, e.stdout)
	}

	var retired *BufferedWriter
	sinkChanged := old.Dir != cfg.Dir || old.Prefix != cfg.Prefix ||
		old.Rotation != cfg.Rotation || old.Performance != cfg.Performance ||
		old.File.Enabled != cfg.File.Enabled
	if sinkChanged && !e.closed {
		retired = e.sink
		e.sink = nil
		if cfg.File.Enabled {
			e.sink = NewBufferedWriter(cfg.Dir, cfg.Prefix, cfg.Rotation, cfg.Performance)
		}
	}
	e.mu.Unlock()

	if retired != nil {
		retired.Close()
	}
	return e
}

// Config returns a copy of the current configuration.
func (e *Engine) Config() Config {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.cfg
}

// Error logs at the error level. args are alternating key/value metadata
// pairs; see Log.
func (e *Engine) Error(msg string, args ...any) { e.log(nil, LevelError, msg, "", "", args) }

// Warn logs at the warn level.
func (e *Engine) Warn(msg string, args ...any) { e.log(nil, LevelWarn, msg, "", "", args) }

// Info logs at the info level.
func (e *Engine) Info(msg string, args ...any) { e.log(nil, LevelInfo, msg, "", "", args) }

// HTTP logs at the http level, between info and debug, for request traffic.
func (e *Engine) HTTP(msg string, args ...any) { e.log(nil, LevelHTTP, msg, "", "", args) }

// Debug logs at the debug level.
func (e *Engine) Debug(msg string, args ...any) { e.log(nil, LevelDebug, msg, "", "", args) }

// Trace logs at the trace level, the most verbose.
func (e *Engine) Trace(msg string, args ...any) { e.log(nil, LevelTrace, msg, "", "", args) }

// ErrorContext logs at the error level with the ambient correlation id from
// ctx, if one is bound.
func (e *Engine) ErrorContext(ctx context.Context, msg string, args ...any) {
	e.log(ctx, LevelError, msg, "", "", args)
}

// WarnContext logs at the warn level with the ambient correlation id.
func (e *Engine) WarnContext(ctx context.Context, msg string, args ...any) {
	e.log(ctx, LevelWarn, msg, "", "", args)
}

// InfoContext logs at the info level with the ambient correlation id.
func (e *Engine) InfoContext(ctx context.Context, msg string, args ...any) {
	e.log(ctx, LevelInfo, msg, "", "", args)
}

// HTTPContext logs at the http level with the ambient correlation id.
func (e *Engine) HTTPContext(ctx context.Context, msg string, args ...any) {
	e.log(ctx, LevelHTTP, msg, "", "", args)
}

// DebugContext logs at the debug level with the ambient correlation id.
func (e *Engine) DebugContext(ctx context.Context, msg string, args ...any) {
	e.log(ctx, LevelDebug, msg, "", "", args)
}

// TraceContext logs at the trace level with the ambient correlation id.
func (e *Engine) TraceContext(ctx context.Context, msg string, args ...any) {
	e.log(ctx, LevelTrace, msg, "", "", args)
}

// Log logs at an arbitrary level. args alternate keys and values; a
// correlationId key overrides every other id source for this record, and a
// context key overrides the child tag. An unknown level is reported and the
// record dropped.
func (e *Engine) Log(level Level, msg string, args ...any) {
	e.log(nil, level, msg, "", "", args)
}

// LogContext is Log with the ambient correlation id from ctx.
func (e *Engine) LogContext(ctx context.Context, level Level, msg string, args ...any) {
	e.log(ctx, level, msg, "", "", args)
}

// log is the single dispatch path for every record.
func (e *Engine) log(ctx context.Context, level Level, msg, tag, fixedID string, args []any) {
	if !level.valid() {
		diagf("unknown level %d, dropping record %q", int(level), msg)
		return
	}

	e.mu.RLock()
	cfg := e.cfg
	con := e.con
	sink := e.sink
	closed := e.closed
	stdout, stderr := e.stdout, e.stderr
	e.mu.RUnlock()

	if closed {
		diagf("log after close, dropping record %q", msg)
		return
	}
	if level > cfg.Level {
		return
	}

	ambient := ""
	if ctx != nil {
		if id, ok := correlation.FromContext(ctx); ok {
			ambient = id
		}
	}
	rec := newRecord(e.now(), level, msg, tag, fixedID, ambient, args)

	if cfg.Console.Enabled && level <= cfg.Console.Level {
		out := stdout
		if level <= LevelWarn {
			out = stderr
		}
		fmt.Fprintln(out, con.Render(rec))
	}
	if cfg.File.Enabled && sink != nil {
		sink.Append(rec.Line(cfg.File.PrettyPrint, cfg.File.Timestamps))
	}
}

// Drain synchronously flushes buffered records without closing anything.
func (e *Engine) Drain() {
	e.mu.RLock()
	sink := e.sink
	e.mu.RUnlock()
	if sink != nil {
		sink.Drain()
	}
}

// Close drains buffered records and releases the file sink. Idempotent. The
// construction guard stays held until Reset.
func (e *Engine) Close() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	sink := e.sink
	e.sink = nil
	e.mu.Unlock()

	if sink != nil {
		return sink.Close()
	}
	return nil
}

// HandleSignals installs a best-effort handler that drains the engine and
// exits with the shell convention 128+N when one of the signals arrives.
// With no arguments it covers SIGINT and SIGTERM.
func (e *Engine) HandleSignals(sigs ...os.Signal) {
	if len(sigs) == 0 {
		sigs = []os.Signal{syscall.SIGINT, syscall.SIGTERM}
	}
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, sigs...)
	go func() {
		s := <-ch
		signal.Stop(ch)
		e.Drain()
		os.Exit(exitStatus(s))
	}()
}

func exitStatus(s os.Signal) int {
	if n, ok := s.(syscall.Signal); ok {
		return 128 + int(n)
	}
	return 1
}

// ExitOnPanic is deferred at the top of main: a panic is logged at the
// error level with its stack, buffers drain, and the process exits with
// status 1. A normal return only drains.
func (e *Engine) ExitOnPanic() {
	if r := recover(); r != nil {
		e.Error("unrecovered panic", "value", fmt.Sprintf("%v", r), "stack", string(debug.Stack()))
		e.Drain()
		os.Exit(1)
	}
	e.Drain()
}

// Package-level helpers operating on the Default engine.

// Configure applies a patch to the default engine.
func Configure(p Patch) *Engine { return Default().Configure(p) }

// Error logs at the error level through the default engine.
func Error(msg string, args ...any) { Default().Error(msg, args...) }

// Warn logs at the warn level through the default engine.
func Warn(msg string, args ...any) { Default().Warn(msg, args...) }

// Info logs at the info level through the default engine.
func Info(msg string, args ...any) { Default().Info(msg, args...) }

// HTTP logs at the http level through the default engine.
func HTTP(msg string, args ...any) { Default().HTTP(msg, args...) }

// Debug logs at the debug level through the default engine.
func Debug(msg string, args ...any) { Default().Debug(msg, args...) }

// Trace logs at the trace level through the default engine.
func Trace(msg string, args ...any) { Default().Trace(msg, args...) }

// Log logs at an arbitrary level through the default engine.
func Log(level Level, msg string, args ...any) { Default().Log(level, msg, args...) }
