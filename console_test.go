package taper

import (
	"strings"
	"testing"
	"time"
)

func plainRenderer(t *testing.T, cfg ConsoleConfig) *ConsoleRenderer {
	t.Helper()
	clearColorEnv(t)
	cfg.Colors = false
	return NewConsoleRenderer(cfg, nil)
}

func TestConsoleRenderPlain(t *testing.T) {
	r := plainRenderer(t, ConsoleConfig{Enabled: true, Timestamps: true, Level: LevelTrace})
	rec := Record{
		Time:          time.Date(2026, 1, 2, 12, 30, 45, 123_000_000, time.UTC),
		Level:         LevelInfo,
		CorrelationID: "mdzp3f2k-9f86d081",
		Context:       "api:auth",
		Message:       "user created",
		Meta:          map[string]any{"code": 201},
	}
	got := r.Render(rec)
	want := "12:30:45.123 INFO  [api:auth] (9f86d081) user created code=201"
	if got != want {
		t.Errorf("Render = %q, want %q", got, want)
	}
}

func TestConsoleRenderMinimal(t *testing.T) {
	r := plainRenderer(t, ConsoleConfig{Enabled: true, Timestamps: false, Level: LevelTrace})
	got := r.Render(Record{Level: LevelWarn, Message: "heads up"})
	want := "WARN  heads up"
	if got != want {
		t.Errorf("Render = %q, want %q", got, want)
	}
}

func TestConsoleRenderColored(t *testing.T) {
	clearColorEnv(t)
	t.Setenv("FORCE_COLOR", "1")
	r := NewConsoleRenderer(ConsoleConfig{Enabled: true, Colors: true, Timestamps: false, Level: LevelTrace}, nil)
	got := r.Render(Record{Level: LevelError, Message: "boom"})
	if !strings.Contains(got, "\x1b[") {
		t.Errorf("expected ANSI sequences in %q", got)
	}
	if !strings.Contains(got, "ERROR") {
		t.Errorf("expected level label in %q", got)
	}
}

func TestConsoleRenderMachine(t *testing.T) {
	clearColorEnv(t)
	t.Setenv("APP_ENV", "production")
	r := NewConsoleRenderer(ConsoleConfig{Enabled: true, Colors: true, Timestamps: true, Level: LevelTrace}, nil)
	rec := Record{
		Time:    time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		Level:   LevelInfo,
		Context: "api",
		Message: "hello",
	}
	got := r.Render(rec)
	want := strings.TrimRight(string(rec.Line(false, true)), "\n")
	if got != want {
		t.Errorf("machine render = %q, want the file form %q", got, want)
	}
	if strings.Contains(got, "\x1b[") {
		t.Errorf("machine render must not carry ANSI sequences: %q", got)
	}
}

func TestConsoleRenderUnknownLevel(t *testing.T) {
	r := plainRenderer(t, ConsoleConfig{Enabled: true, Level: LevelTrace})
	got := r.Render(Record{Level: Level(42), Message: "odd"})
	if !strings.Contains(got, "LEVEL(42)") {
		t.Errorf("unknown level should keep its label: %q", got)
	}
}

func TestLevelLabelWidth(t *testing.T) {
	for l := LevelError; l <= LevelTrace; l++ {
		if got := levelLabel(l); len(got) != 5 {
			t.Errorf("levelLabel(%v) = %q, want width 5", l, got)
		}
	}
}

func TestShortID(t *testing.T) {
	tests := []struct{ in, want string }{
		{"mdzp3f2k-9f86d081", "9f86d081"},
		{"abcd1234", "abcd1234"},
		{"ab", "ab"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := shortID(tt.in); got != tt.want {
			t.Errorf("shortID(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestCompactMeta(t *testing.T) {
	got := compactMeta(map[string]any{
		"zeta":  1,
		"alpha": "raw string",
		"user":  map[string]any{"id": 7},
	})
	want := `alpha=raw string user={"id":7} zeta=1`
	if got != want {
		t.Errorf("compactMeta = %q, want %q", got, want)
	}
}
