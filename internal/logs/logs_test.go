package logs_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"accession/internal/logs"
)

func TestLastReturnsTrailingLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "accessiond.log")
	if err := os.WriteFile(path, []byte("a\nb\nc\n"), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}

	lines, offset, err := logs.Last(path, 2)
	if err != nil {
		t.Fatalf("Last: %v", err)
	}
	if len(lines) != 2 || lines[0] != "b" || lines[1] != "c" {
		t.Fatalf("unexpected lines: %#v", lines)
	}
	if offset != 6 {
		t.Fatalf("expected offset 6, got %d", offset)
	}
}

func TestLastMissingFile(t *testing.T) {
	lines, offset, err := logs.Last(filepath.Join(t.TempDir(), "missing.log"), 10)
	if err != nil || lines != nil || offset != 0 {
		t.Fatalf("expected empty result, got %v %d %v", lines, offset, err)
	}
}

func TestFollowDeliversAppendedLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "accessiond.log")
	if err := os.WriteFile(path, []byte("start\n"), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}
	_, offset, err := logs.Last(path, 1)
	if err != nil {
		t.Fatalf("Last: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	got := make(chan string, 4)
	done := make(chan error, 1)
	go func() {
		done <- logs.Follow(ctx, path, offset, 10*time.Millisecond, func(line string) { got <- line })
	}()

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("open log: %v", err)
	}
	if _, err := f.WriteString("later\npart"); err != nil {
		t.Fatalf("append: %v", err)
	}
	f.Close()

	select {
	case line := <-got:
		if line != "later" {
			t.Fatalf("unexpected line %q", line)
		}
	case <-ctx.Done():
		t.Fatal("timed out waiting for followed line")
	}

	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	select {
	case line := <-got:
		t.Fatalf("partial line delivered: %q", line)
	default:
	}
}

func TestParseAndFilterRecords(t *testing.T) {
	line := `{"ts":"2026-03-04T10:06:07.5Z","level":"warn","msg":"insert failed","component":"insertion","entry_id":12,"error_kind":"validation"}`
	rec, ok := logs.ParseRecord(line)
	if !ok {
		t.Fatal("expected JSON record")
	}
	if rec.Level != "warn" || rec.Message != "insert failed" || rec.Time.IsZero() {
		t.Fatalf("unexpected record %#v", rec)
	}

	tests := []struct {
		name   string
		filter logs.Filter
		want   bool
	}{
		{name: "empty", filter: logs.Filter{}, want: true},
		{name: "level below", filter: logs.Filter{MinLevel: "info"}, want: true},
		{name: "level above", filter: logs.Filter{MinLevel: "error"}, want: false},
		{name: "entry match", filter: logs.Filter{EntryID: 12}, want: true},
		{name: "entry mismatch", filter: logs.Filter{EntryID: 13}, want: false},
	}
	for _, tt := range tests {
		if got := tt.filter.Match(rec); got != tt.want {
			t.Fatalf("%s: expected %v, got %v", tt.name, tt.want, got)
		}
	}

	formatted := rec.Format()
	for _, want := range []string{"WARN", "[insertion]", "insert failed", "entry_id=12", "error_kind=validation"} {
		if !strings.Contains(formatted, want) {
			t.Fatalf("expected %q in %q", want, formatted)
		}
	}
}

func TestParseRecordPlainText(t *testing.T) {
	rec, ok := logs.ParseRecord("not json")
	if ok || rec.Message != "not json" {
		t.Fatalf("unexpected record %#v %v", rec, ok)
	}
}
