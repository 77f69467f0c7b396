package taper

import (
	"bytes"
	"encoding/json"
	"fmt"
	"maps"
	"os"
	"slices"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// consoleTimeLayout keeps interactive lines short; the full date lives in
// the file sink.
const consoleTimeLayout = "15:04:05.000"

// ConsoleRenderer formats records for terminal display. Interactive mode
// renders styled single lines; machine mode (production environments)
// renders the same single-line JSON the file sink persists.
type ConsoleRenderer struct {
	machine    bool
	timestamps bool
	styles     consoleStyles
}

type consoleStyles struct {
	timestamp   lipgloss.Style
	context     lipgloss.Style
	correlation lipgloss.Style
	meta        lipgloss.Style
	errMessage  lipgloss.Style
	levels      [LevelTrace + 1]lipgloss.Style
}

// NewConsoleRenderer resolves terminal capability for stream and returns a
// renderer honoring the config and environment signals (NO_COLOR,
// FORCE_COLOR, CLICOLOR_FORCE, CI providers, production mode).
func NewConsoleRenderer(cfg ConsoleConfig, stream *os.File) *ConsoleRenderer {
	return &ConsoleRenderer{
		machine:    productionMode(),
		timestamps: cfg.Timestamps,
		styles:     newConsoleStyles(stream, colorEnabled(stream, cfg.Colors)),
	}
}

// newConsoleStyles builds the style set on an explicit renderer so the
// profile follows the capability decision rather than lipgloss's own
// stdout sniffing. Basic ANSI keeps the palette stable everywhere.
func newConsoleStyles(stream *os.File, colored bool) consoleStyles {
	if stream == nil {
		stream = os.Stdout
	}
	lr := lipgloss.NewRenderer(stream)
	if colored {
		lr.SetColorProfile(termenv.ANSI)
	} else {
		lr.SetColorProfile(termenv.Ascii)
	}

	s := consoleStyles{
		timestamp:   lr.NewStyle().Faint(true),
		context:     lr.NewStyle().Foreground(lipgloss.Color("6")),
		correlation: lr.NewStyle().Faint(true),
		meta:        lr.NewStyle().Faint(true),
		errMessage:  lr.NewStyle().Foreground(lipgloss.Color("1")),
	}
	level := func(color string) lipgloss.Style {
		return lr.NewStyle().Bold(true).Foreground(lipgloss.Color(color))
	}
	s.levels[LevelError] = level("1")
	s.levels[LevelWarn] = level("3")
	s.levels[LevelInfo] = level("2")
	s.levels[LevelHTTP] = level("5")
	s.levels[LevelDebug] = level("4")
	s.levels[LevelTrace] = level("8")
	return s
}

// Render returns the display line for rec, without a trailing newline.
func (c *ConsoleRenderer) Render(rec Record) string {
	if c.machine {
		return string(bytes.TrimRight(rec.Line(false, c.timestamps), "\n"))
	}

	parts := make([]string, 0, 6)
	if c.timestamps && !rec.Time.IsZero() {
		parts = append(parts, c.styles.timestamp.Render(rec.Time.Format(consoleTimeLayout)))
	}
	parts = append(parts, c.styles.levels[clampLevel(rec.Level)].Render(levelLabel(rec.Level)))
	if rec.Context != "" {
		parts = append(parts, c.styles.context.Render("["+rec.Context+"]"))
	}
	if rec.CorrelationID != "" {
		parts = append(parts, c.styles.correlation.Render("("+shortID(rec.CorrelationID)+")"))
	}
	if rec.Level == LevelError {
		parts = append(parts, c.styles.errMessage.Render(rec.Message))
	} else {
		parts = append(parts, rec.Message)
	}
	if len(rec.Meta) > 0 {
		parts = append(parts, c.styles.meta.Render(compactMeta(rec.Meta)))
	}
	return strings.Join(parts, " ")
}

func clampLevel(l Level) Level {
	if !l.valid() {
		return LevelInfo
	}
	return l
}

// levelLabel is the uppercase label padded to the widest label so messages
// line up.
func levelLabel(l Level) string {
	return fmt.Sprintf("%-5s", strings.ToUpper(l.String()))
}

// shortID keeps the last eight characters, enough to eyeball matches
// against the full id in the file.
func shortID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[len(id)-8:]
}

// compactMeta renders metadata as space-joined key=value pairs in sorted
// key order. Non-scalar values are JSON-encoded.
func compactMeta(meta map[string]any) string {
	var b strings.Builder
	for i, k := range slices.Sorted(maps.Keys(meta)) {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(metaValue(meta[k]))
	}
	return b.String()
}

func metaValue(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}
