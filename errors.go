package taper

import (
	"errors"
	"fmt"
	"os"
)

// Sentinel errors returned by the engine lifecycle.
var (
	// ErrAlreadyConstructed is returned by New when a live engine already
	// exists in this process. Call Reset to tear it down first.
	ErrAlreadyConstructed = errors.New("engine already constructed")

	// ErrClosed is returned when an operation reaches an engine after Close.
	ErrClosed = errors.New("engine closed")
)

// ConfigError reports a configuration value that was rejected during a
// Configure call. The remaining keys of the patch that produced it still
// apply.
type ConfigError struct {
	Key    string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config key %q: %s", e.Key, e.Reason)
}

// diagf reports an internal failure on stderr. The engine cannot log through
// itself once a sink is broken, so diagnostics bypass the pipeline entirely.
func diagf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "taper: "+format+"\n", args...)
}
