package taper

import (
	"fmt"
	"strings"
)

// Level orders records by severity. Lower values are more severe, and a
// record is admitted when its level does not exceed the active threshold.
type Level int

const (
	LevelError Level = iota
	LevelWarn
	LevelInfo
	LevelHTTP
	LevelDebug
	LevelTrace
)

var levelNames = [...]string{"error", "warn", "info", "http", "debug", "trace"}

// String returns the lowercase wire label.
func (l Level) String() string {
	if !l.valid() {
		return fmt.Sprintf("level(%d)", int(l))
	}
	return levelNames[l]
}

func (l Level) valid() bool {
	return l >= LevelError && l <= LevelTrace
}

// ParseLevel converts a label such as "warn" into its Level. Matching is
// case-insensitive; "warning" is accepted as an alias.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "error":
		return LevelError, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "info":
		return LevelInfo, nil
	case "http":
		return LevelHTTP, nil
	case "debug":
		return LevelDebug, nil
	case "trace":
		return LevelTrace, nil
	}
	return LevelInfo, fmt.Errorf("unknown level %q", s)
}

// MarshalText renders the wire label.
func (l Level) MarshalText() ([]byte, error) {
	if !l.valid() {
		return nil, fmt.Errorf("unknown level %d", int(l))
	}
	return []byte(l.String()), nil
}

// UnmarshalText parses a wire label.
func (l *Level) UnmarshalText(text []byte) error {
	parsed, err := ParseLevel(string(text))
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}
