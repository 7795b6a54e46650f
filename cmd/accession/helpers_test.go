package main

import (
	"bytes"
	"testing"
)

func TestParseAssignments(t *testing.T) {
	doc, err := parseAssignments([]string{"publisher = Tin House", "publication_year=2019", "edition=2nd"})
	if err != nil {
		t.Fatalf("parseAssignments: %v", err)
	}
	if doc["publisher"] != "Tin House" || doc["publication_year"] != 2019 || doc["edition"] != "2nd" {
		t.Fatalf("unexpected document %#v", doc)
	}
	for _, bad := range []string{"publisher", "=value"} {
		if _, err := parseAssignments([]string{bad}); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
}

func TestFormatValue(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{in: nil, want: ""},
		{in: "Tin House", want: "Tin House"},
		{in: float64(2019), want: "2019"},
		{in: 1.5, want: "1.5"},
		{in: []any{"A. Walker", "B. Rivera"}, want: "A. Walker; B. Rivera"},
		{in: true, want: "true"},
	}
	for _, tt := range tests {
		if got := formatValue(tt.in); got != tt.want {
			t.Fatalf("formatValue(%#v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestRenderStatusPlainWhenNotTerminal(t *testing.T) {
	var buf bytes.Buffer
	if colorEnabled(&buf) {
		t.Fatal("buffers are never terminals")
	}
	if got := renderStatus("failed", false); got != "failed" {
		t.Fatalf("expected plain status, got %q", got)
	}
	if got := renderStatus("failed", true); got == "failed" {
		t.Fatal("expected escape codes when colorized")
	}
}

func TestRenderTablePadsShortRows(t *testing.T) {
	out := renderTable([]string{"ID", "Title"}, [][]string{{"1"}}, []columnAlignment{alignRight})
	requireContains(t, out, "ID")
	requireContains(t, out, "Title")
	if renderTable(nil, nil, nil) != "" {
		t.Fatal("expected empty output without headers")
	}
}
