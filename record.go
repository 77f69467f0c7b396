package taper

import (
	"bytes"
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"time"
)

// Reserved record keys. Metadata passed under FieldCorrelationID or
// FieldContext is lifted onto the record itself instead of riding with the
// rest of the metadata.
const (
	FieldTimestamp     = "timestamp"
	FieldLevel         = "level"
	FieldCorrelationID = "correlationId"
	FieldContext       = "context"
	FieldMessage       = "message"
)

// badKey labels a dangling metadata argument, following the log/slog
// convention.
const badKey = "!BADKEY"

// timeLayout is ISO-8601 with millisecond precision. Records carry UTC so
// files from different hosts interleave cleanly.
const timeLayout = "2006-01-02T15:04:05.000Z07:00"

// Record is one structured log event as dispatched to the sinks.
type Record struct {
	Time          time.Time
	Level         Level
	CorrelationID string
	Context       string
	Message       string
	Meta          map[string]any
}

// newRecord assembles a record from alternating key/value metadata args.
// A per-call correlationId key beats the fixed id, which beats the ambient
// id; the same precedence applies to a per-call context key over the tag.
func newRecord(now time.Time, level Level, msg, tag, fixedID, ambientID string, args []any) Record {
	rec := Record{Time: now, Level: level, Message: msg, Context: tag}
	meta := metaFromArgs(args)

	if v, ok := meta[FieldCorrelationID]; ok {
		delete(meta, FieldCorrelationID)
		if s, ok := v.(string); ok && s != "" {
			rec.CorrelationID = s
		}
	}
	if rec.CorrelationID == "" {
		rec.CorrelationID = fixedID
	}
	if rec.CorrelationID == "" {
		rec.CorrelationID = ambientID
	}

	if v, ok := meta[FieldContext]; ok {
		delete(meta, FieldContext)
		if s, ok := v.(string); ok && s != "" {
			rec.Context = s
		}
	}

	if len(meta) > 0 {
		rec.Meta = meta
	}
	return rec
}

// metaFromArgs pairs up alternating keys and values. A non-string key is
// stringified; a dangling value is kept under badKey.
func metaFromArgs(args []any) map[string]any {
	if len(args) == 0 {
		return nil
	}
	meta := make(map[string]any, (len(args)+1)/2)
	for i := 0; i < len(args); i += 2 {
		if i+1 >= len(args) {
			meta[badKey] = args[i]
			break
		}
		key, ok := args[i].(string)
		if !ok {
			key = fmt.Sprint(args[i])
		}
		meta[key] = args[i+1]
	}
	return meta
}

// Line encodes the record for the file sink: a compact JSON object plus
// newline, or an indented block when pretty is set. Key order is fixed:
// timestamp, level, correlationId, context, message, then metadata sorted
// by key.
func (r Record) Line(pretty, timestamps bool) []byte {
	var buf bytes.Buffer
	r.appendJSON(&buf, timestamps)
	if pretty {
		var out bytes.Buffer
		if err := json.Indent(&out, buf.Bytes(), "", "  "); err == nil {
			out.WriteByte('\n')
			return out.Bytes()
		}
	}
	buf.WriteByte('\n')
	return buf.Bytes()
}

func (r Record) appendJSON(buf *bytes.Buffer, timestamps bool) {
	buf.WriteByte('{')
	first := true
	field := func(key string, value any) {
		if !first {
			buf.WriteByte(',')
		}
		first = false
		k, _ := json.Marshal(key)
		buf.Write(k)
		buf.WriteByte(':')
		v, err := json.Marshal(value)
		if err != nil {
			v, _ = json.Marshal(fmt.Sprintf("%v", value))
		}
		buf.Write(v)
	}

	if timestamps && !r.Time.IsZero() {
		field(FieldTimestamp, r.Time.UTC().Format(timeLayout))
	}
	field(FieldLevel, r.Level.String())
	if r.CorrelationID != "" {
		field(FieldCorrelationID, r.CorrelationID)
	}
	if r.Context != "" {
		field(FieldContext, r.Context)
	}
	field(FieldMessage, r.Message)
	for _, k := range slices.Sorted(maps.Keys(r.Meta)) {
		if reservedField(k) {
			continue
		}
		field(k, r.Meta[k])
	}
	buf.WriteByte('}')
}

// reservedField guards the fixed keys against duplication by stray metadata.
func reservedField(key string) bool {
	switch key {
	case FieldTimestamp, FieldLevel, FieldCorrelationID, FieldContext, FieldMessage:
		return true
	}
	return false
}
