package taper

import "testing"

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    Level
		wantErr bool
	}{
		{"error", LevelError, false},
		{"warn", LevelWarn, false},
		{"warning", LevelWarn, false},
		{"info", LevelInfo, false},
		{"http", LevelHTTP, false},
		{"debug", LevelDebug, false},
		{"trace", LevelTrace, false},
		{"ERROR", LevelError, false},
		{" Info ", LevelInfo, false},
		{"fatal", 0, true},
		{"", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseLevel(%q) expected error, got %v", tt.in, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseLevel(%q) error = %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestLevelString(t *testing.T) {
	tests := []struct {
		level Level
		want  string
	}{
		{LevelError, "error"},
		{LevelWarn, "warn"},
		{LevelInfo, "info"},
		{LevelHTTP, "http"},
		{LevelDebug, "debug"},
		{LevelTrace, "trace"},
		{Level(42), "level(42)"},
		{Level(-1), "level(-1)"},
	}
	for _, tt := range tests {
		if got := tt.level.String(); got != tt.want {
			t.Errorf("Level(%d).String() = %q, want %q", int(tt.level), got, tt.want)
		}
	}
}

func TestLevelOrdering(t *testing.T) {
	ordered := []Level{LevelError, LevelWarn, LevelInfo, LevelHTTP, LevelDebug, LevelTrace}
	for i := 1; i < len(ordered); i++ {
		if ordered[i-1] >= ordered[i] {
			t.Errorf("%v should order before %v", ordered[i-1], ordered[i])
		}
	}
	if LevelError != 0 {
		t.Errorf("LevelError = %d, want 0", int(LevelError))
	}
	if LevelTrace != 5 {
		t.Errorf("LevelTrace = %d, want 5", int(LevelTrace))
	}
}

func TestLevelTextRoundTrip(t *testing.T) {
	for l := LevelError; l <= LevelTrace; l++ {
		text, err := l.MarshalText()
		if err != nil {
			t.Fatalf("MarshalText(%v) error = %v", l, err)
		}
		var back Level
		if err := back.UnmarshalText(text); err != nil {
			t.Fatalf("UnmarshalText(%q) error = %v", text, err)
		}
		if back != l {
			t.Errorf("round trip %v came back as %v", l, back)
		}
	}
	if _, err := Level(9).MarshalText(); err == nil {
		t.Error("MarshalText on an unknown level should fail")
	}
}
