package taper

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// Entry is one persisted record read back from a log file.
type Entry struct {
	Timestamp     time.Time      `json:"timestamp"`
	Level         Level          `json:"level"`
	CorrelationID string         `json:"correlationId,omitempty"`
	Context       string         `json:"context,omitempty"`
	Message       string         `json:"message"`
	Meta          map[string]any `json:"meta,omitempty"`
	File          string         `json:"file,omitempty"`
}

// UnmarshalJSON lifts the known keys and keeps everything else in Meta,
// mirroring how records are written.
func (e *Entry) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	e.Level = LevelInfo
	if s, ok := raw[FieldTimestamp].(string); ok {
		if t, err := time.Parse(time.RFC3339, s); err == nil {
			e.Timestamp = t
		}
		delete(raw, FieldTimestamp)
	}
	if s, ok := raw[FieldLevel].(string); ok {
		if l, err := ParseLevel(s); err == nil {
			e.Level = l
		}
		delete(raw, FieldLevel)
	}
	if s, ok := raw[FieldCorrelationID].(string); ok {
		e.CorrelationID = s
		delete(raw, FieldCorrelationID)
	}
	if s, ok := raw[FieldContext].(string); ok {
		e.Context = s
		delete(raw, FieldContext)
	}
	if s, ok := raw[FieldMessage].(string); ok {
		e.Message = s
		delete(raw, FieldMessage)
	}
	if len(raw) > 0 {
		e.Meta = raw
	}
	return nil
}

// Record converts a read-back entry into a renderable record.
func (e Entry) Record() Record {
	return Record{
		Time:          e.Timestamp,
		Level:         e.Level,
		CorrelationID: e.CorrelationID,
		Context:       e.Context,
		Message:       e.Message,
		Meta:          e.Meta,
	}
}

// maxEntryBytes bounds a single record while scanning, matching the largest
// block a reasonable pretty-printed record can reach.
const maxEntryBytes = 1 << 20

// ReadEntries parses a stream of records, one JSON object per line or
// pretty-printed across several. Malformed segments are skipped and
// scanning resumes at the next object.
func ReadEntries(r io.Reader) ([]Entry, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxEntryBytes)

	var out []Entry
	var block []byte
	flush := func() {
		var e Entry
		if json.Unmarshal(block, &e) == nil {
			out = append(out, e)
		}
		block = block[:0]
	}
	for scanner.Scan() {
		line := bytes.TrimRight(scanner.Bytes(), " \t\r")
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		// A fresh top-level object abandons any unfinished block, so one
		// corrupt segment cannot poison the rest of the file.
		if len(block) > 0 && line[0] == '{' && !json.Valid(block) {
			block = block[:0]
		}
		block = append(block, line...)
		if json.Valid(block) {
			flush()
			continue
		}
		if len(block) > maxEntryBytes {
			block = block[:0]
		}
	}
	if len(block) > 0 && json.Valid(block) {
		flush()
	}
	return out, scanner.Err()
}

// ReadFile parses every record in one log file. Gzipped backups are
// decompressed transparently.
func ReadFile(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		zr, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", path, err)
		}
		defer zr.Close()
		r = zr
	}
	entries, err := ReadEntries(r)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	name := filepath.Base(path)
	for i := range entries {
		entries[i].File = name
	}
	return entries, nil
}

// ReadDir aggregates every log file for prefix under dir, active and
// rotated alike, ordered by timestamp.
func ReadDir(dir, prefix string) ([]Entry, error) {
	g, err := logPattern(prefix)
	if err != nil {
		return nil, err
	}
	dirEntries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var out []Entry
	for _, de := range dirEntries {
		if de.IsDir() || !g.Match(de.Name()) {
			continue
		}
		entries, err := ReadFile(filepath.Join(dir, de.Name()))
		if err != nil {
			diagf("aggregate %s: %v", de.Name(), err)
			continue
		}
		out = append(out, entries...)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	return out, nil
}

// Filter selects entries. Zero fields match everything.
type Filter struct {
	Level         *Level    // admit severities at or above (priority <=)
	Since         time.Time // zero means unbounded
	Until         time.Time
	CorrelationID string
	Context       string // matches the tag and its children: "api" covers "api:auth"
	Contains      string // case-insensitive message substring
}

// Match reports whether the entry passes every set criterion.
func (f Filter) Match(e Entry) bool {
	if f.Level != nil && e.Level > *f.Level {
		return false
	}
	if !f.Since.IsZero() && e.Timestamp.Before(f.Since) {
		return false
	}
	if !f.Until.IsZero() && e.Timestamp.After(f.Until) {
		return false
	}
	if f.CorrelationID != "" && e.CorrelationID != f.CorrelationID {
		return false
	}
	if f.Context != "" && e.Context != f.Context && !strings.HasPrefix(e.Context, f.Context+":") {
		return false
	}
	if f.Contains != "" && !strings.Contains(strings.ToLower(e.Message), strings.ToLower(f.Contains)) {
		return false
	}
	return true
}

// FilterEntries returns the entries matching f, preserving order.
func FilterEntries(entries []Entry, f Filter) []Entry {
	var out []Entry
	for _, e := range entries {
		if f.Match(e) {
			out = append(out, e)
		}
	}
	return out
}

// ExportFormat selects an encoding for WriteEntries.
type ExportFormat string

const (
	ExportJSON ExportFormat = "json"
	ExportText ExportFormat = "text"
	ExportCSV  ExportFormat = "csv"
)

// WriteEntries writes entries to w in the given format: an indented JSON
// array, aligned plain text, or CSV with a header row.
func WriteEntries(w io.Writer, entries []Entry, format ExportFormat) error {
	switch format {
	case ExportJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)

	case ExportText:
		bw := bufio.NewWriter(w)
		for _, e := range entries {
			fmt.Fprintf(bw, "%s %s", e.Timestamp.UTC().Format(timeLayout), levelLabel(e.Level))
			if e.Context != "" {
				fmt.Fprintf(bw, " [%s]", e.Context)
			}
			if e.CorrelationID != "" {
				fmt.Fprintf(bw, " (%s)", e.CorrelationID)
			}
			fmt.Fprintf(bw, " %s", e.Message)
			if len(e.Meta) > 0 {
				fmt.Fprintf(bw, " %s", compactMeta(e.Meta))
			}
			fmt.Fprintln(bw)
		}
		return bw.Flush()

	case ExportCSV:
		cw := csv.NewWriter(w)
		if err := cw.Write([]string{"timestamp", "level", "correlationId", "context", "message", "meta"}); err != nil {
			return err
		}
		for _, e := range entries {
			meta := ""
			if len(e.Meta) > 0 {
				data, err := json.Marshal(e.Meta)
				if err == nil {
					meta = string(data)
				}
			}
			row := []string{
				e.Timestamp.UTC().Format(timeLayout),
				e.Level.String(),
				e.CorrelationID,
				e.Context,
				e.Message,
				meta,
			}
			if err := cw.Write(row); err != nil {
				return err
			}
		}
		cw.Flush()
		return cw.Error()
	}
	return fmt.Errorf("unknown export format %q", format)
}
