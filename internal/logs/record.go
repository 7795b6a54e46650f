package logs

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"accession/internal/logging"
)

// Record is one decoded JSON log line.
type Record struct {
	Time    time.Time
	Level   string
	Message string
	Fields  map[string]any
}

// ParseRecord decodes a JSON log line. Lines that are not JSON objects are
// returned as a message-only record with ok=false.
func ParseRecord(line string) (Record, bool) {
	var raw map[string]any
	if err := json.Unmarshal([]byte(line), &raw); err != nil || raw == nil {
		return Record{Message: line}, false
	}
	rec := Record{Fields: make(map[string]any, len(raw))}
	for key, value := range raw {
		switch key {
		case "ts":
			if s, ok := value.(string); ok {
				rec.Time, _ = time.Parse(time.RFC3339Nano, s)
			}
		case "level":
			rec.Level, _ = value.(string)
		case "msg":
			rec.Message, _ = value.(string)
		default:
			rec.Fields[key] = value
		}
	}
	return rec, true
}

// Filter selects records. Zero values match everything.
type Filter struct {
	MinLevel string
	EntryID  int64
}

var levelRank = map[string]int{"debug": 0, "info": 1, "warn": 2, "error": 3}

// Match reports whether rec passes the filter.
func (f Filter) Match(rec Record) bool {
	if f.MinLevel != "" {
		want, ok := levelRank[strings.ToLower(f.MinLevel)]
		if ok && levelRank[strings.ToLower(rec.Level)] < want {
			return false
		}
	}
	if f.EntryID > 0 {
		id, ok := rec.Fields[logging.FieldEntryID].(float64)
		if !ok || int64(id) != f.EntryID {
			return false
		}
	}
	return true
}

// Format renders rec on one line: time, level, component, message, then the
// remaining fields sorted by key.
func (r Record) Format() string {
	var b strings.Builder
	if !r.Time.IsZero() {
		b.WriteString(r.Time.Local().Format("2006-01-02 15:04:05"))
		b.WriteByte(' ')
	}
	if r.Level != "" {
		fmt.Fprintf(&b, "%-5s ", strings.ToUpper(r.Level))
	}
	if component, ok := r.Fields[logging.FieldComponent].(string); ok && component != "" {
		fmt.Fprintf(&b, "[%s] ", component)
	}
	b.WriteString(r.Message)

	keys := make([]string, 0, len(r.Fields))
	for key := range r.Fields {
		if key != logging.FieldComponent {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	for _, key := range keys {
		fmt.Fprintf(&b, " %s=%v", key, formatField(r.Fields[key]))
	}
	return b.String()
}

func formatField(value any) any {
	if f, ok := value.(float64); ok && f == float64(int64(f)) {
		return int64(f)
	}
	return value
}
