package taper

import (
	"fmt"
	"strings"
	"time"
)

// Defaults applied by DefaultConfig and by constructors handed partial
// values.
const (
	DefaultDir           = "logs"
	DefaultPrefix        = "app"
	DefaultMaxSize       = 10 * 1024 * 1024
	DefaultMaxFiles      = 5
	DefaultMaxAge        = 7 * 24 * time.Hour
	DefaultBatchSize     = 10
	DefaultFlushInterval = 5 * time.Second
)

// Config holds the full engine configuration. Zero values are not useful on
// their own; start from DefaultConfig and adjust.
type Config struct {
	// Level is the global admission threshold. Records above it are dropped
	// before reaching any sink.
	Level       Level
	Dir         string
	Prefix      string
	Rotation    RotationConfig
	Console     ConsoleConfig
	File        FileConfig
	Performance PerformanceConfig
}

// RotationConfig bounds the growth of persisted log files.
type RotationConfig struct {
	Enabled  bool
	MaxSize  int64         // bytes before the active file is rotated
	MaxFiles int           // numbered backups kept per base name
	MaxAge   time.Duration // retention horizon for the sweep
	Compress bool          // gzip rotated backups
}

// ConsoleConfig shapes terminal output.
type ConsoleConfig struct {
	Enabled    bool
	Colors     bool
	Timestamps bool
	// Level narrows console output below the global threshold. It never
	// widens it: a record must pass both gates.
	Level Level
}

// FileConfig shapes persisted output.
type FileConfig struct {
	Enabled     bool
	PrettyPrint bool // indented JSON blocks instead of one line per record
	Timestamps  bool
}

// PerformanceConfig tunes the buffered file sink.
type PerformanceConfig struct {
	BatchSize     int
	FlushInterval time.Duration
	AsyncWrite    bool
}

// DefaultConfig returns the configuration a fresh engine starts with.
func DefaultConfig() Config {
	return Config{
		Level:  LevelInfo,
		Dir:    DefaultDir,
		Prefix: DefaultPrefix,
		Rotation: RotationConfig{
			Enabled:  true,
			MaxSize:  DefaultMaxSize,
			MaxFiles: DefaultMaxFiles,
			MaxAge:   DefaultMaxAge,
		},
		Console: ConsoleConfig{
			Enabled:    true,
			Colors:     true,
			Timestamps: true,
			Level:      LevelTrace,
		},
		File: FileConfig{
			Enabled:    true,
			Timestamps: true,
		},
		Performance: PerformanceConfig{
			BatchSize:     DefaultBatchSize,
			FlushInterval: DefaultFlushInterval,
			AsyncWrite:    true,
		},
	}
}

// Patch is a partial configuration. Nil fields keep the current value, so a
// zero Patch changes nothing. Invalid values are rejected per key; the rest
// of the patch still applies.
type Patch struct {
	Level       *Level
	Dir         *string
	Prefix      *string
	Rotation    *RotationPatch
	Console     *ConsolePatch
	File        *FilePatch
	Performance *PerformancePatch
}

// RotationPatch is the partial form of RotationConfig.
type RotationPatch struct {
	Enabled  *bool
	MaxSize  *int64
	MaxFiles *int
	MaxAge   *time.Duration
	Compress *bool
}

// ConsolePatch is the partial form of ConsoleConfig.
type ConsolePatch struct {
	Enabled    *bool
	Colors     *bool
	Timestamps *bool
	Level      *Level
}

// FilePatch is the partial form of FileConfig.
type FilePatch struct {
	Enabled     *bool
	PrettyPrint *bool
	Timestamps  *bool
}

// PerformancePatch is the partial form of PerformanceConfig.
type PerformancePatch struct {
	BatchSize     *int
	FlushInterval *time.Duration
	AsyncWrite    *bool
}

// apply copies non-nil patch fields onto c, validating each leaf. A rejected
// leaf keeps its current value and is reported as a ConfigError; the rest of
// the patch still lands. Diagnostic key names follow the config file layout.
func (c *Config) apply(p Patch) []error {
	var errs []error
	reject := func(key, reason string) {
		errs = append(errs, &ConfigError{Key: key, Reason: reason})
	}

	if p.Level != nil {
		if p.Level.valid() {
			c.Level = *p.Level
		} else {
			reject("level", fmt.Sprintf("unknown level %d", int(*p.Level)))
		}
	}
	if p.Dir != nil {
		if *p.Dir != "" {
			c.Dir = *p.Dir
		} else {
			reject("dir", "must not be empty")
		}
	}
	if p.Prefix != nil {
		if *p.Prefix != "" && !strings.ContainsAny(*p.Prefix, `/\`) {
			c.Prefix = *p.Prefix
		} else {
			reject("prefix", "must be a bare file name prefix")
		}
	}

	if p.Rotation != nil {
		if v := p.Rotation.Enabled; v != nil {
			c.Rotation.Enabled = *v
		}
		if v := p.Rotation.MaxSize; v != nil {
			if *v > 0 {
				c.Rotation.MaxSize = *v
			} else {
				reject("rotation.maxSize", "must be positive")
			}
		}
		if v := p.Rotation.MaxFiles; v != nil {
			if *v >= 1 {
				c.Rotation.MaxFiles = *v
			} else {
				reject("rotation.maxFiles", "must be at least 1")
			}
		}
		if v := p.Rotation.MaxAge; v != nil {
			if *v > 0 {
				c.Rotation.MaxAge = *v
			} else {
				reject("rotation.maxAge", "must be positive")
			}
		}
		if v := p.Rotation.Compress; v != nil {
			c.Rotation.Compress = *v
		}
	}

	if p.Console != nil {
		if v := p.Console.Enabled; v != nil {
			c.Console.Enabled = *v
		}
		if v := p.Console.Colors; v != nil {
			c.Console.Colors = *v
		}
		if v := p.Console.Timestamps; v != nil {
			c.Console.Timestamps = *v
		}
		if v := p.Console.Level; v != nil {
			if v.valid() {
				c.Console.Level = *v
			} else {
				reject("console.level", fmt.Sprintf("unknown level %d", int(*v)))
			}
		}
	}

	if p.File != nil {
		if v := p.File.Enabled; v != nil {
			c.File.Enabled = *v
		}
		if v := p.File.PrettyPrint; v != nil {
			c.File.PrettyPrint = *v
		}
		if v := p.File.Timestamps; v != nil {
			c.File.Timestamps = *v
		}
	}

	if p.Performance != nil {
		if v := p.Performance.BatchSize; v != nil {
			if *v >= 1 {
				c.Performance.BatchSize = *v
			} else {
				reject("performance.batchSize", "must be at least 1")
			}
		}
		if v := p.Performance.FlushInterval; v != nil {
			if *v > 0 {
				c.Performance.FlushInterval = *v
			} else {
				reject("performance.flushInterval", "must be positive")
			}
		}
		if v := p.Performance.AsyncWrite; v != nil {
			c.Performance.AsyncWrite = *v
		}
	}

	return errs
}
