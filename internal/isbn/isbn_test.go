package isbn_test

import (
	"testing"

	"accession/internal/isbn"
)

func TestNormalize(t *testing.T) {
	cases := []struct {
		raw  string
		want string
		ok   bool
	}{
		{"978-0-13-235088-4", "9780132350884", true},
		{"0-13-235088-2", "0132350882", true},
		{"not-an-isbn", "", false},
		{" 0 8044 2957 x ", "080442957X", true},
		{"080442957x", "080442957X", true},
		{"97801323508", "", false},
		{"X801323508", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, ok := isbn.Normalize(tc.raw)
		if ok != tc.ok || got != tc.want {
			t.Fatalf("Normalize(%q) = %q, %v; want %q, %v", tc.raw, got, ok, tc.want, tc.ok)
		}
	}
}

func TestClassify(t *testing.T) {
	if got := isbn.Classify("0132350882"); got != isbn.ISBN10 {
		t.Fatalf("expected isbn10, got %s", got)
	}
	if got := isbn.Classify("9780132350884"); got != isbn.ISBN13 {
		t.Fatalf("expected isbn13, got %s", got)
	}
	if got := isbn.Classify("12345"); got != isbn.Unknown {
		t.Fatalf("expected unknown, got %s", got)
	}
}

func TestFromFieldsPrefersDedicatedSlots(t *testing.T) {
	pair, rejected := isbn.FromFields("0-13-235088-2", "978-0-13-235088-4", "9999999999999")
	if pair.ISBN10 != "0132350882" || pair.ISBN13 != "9780132350884" {
		t.Fatalf("unexpected pair %+v", pair)
	}
	if len(rejected) != 0 {
		t.Fatalf("unexpected rejected %v", rejected)
	}
	if pair.Canonical() != "9780132350884" {
		t.Fatalf("expected canonical to prefer isbn13, got %q", pair.Canonical())
	}
}

func TestFromFieldsGenericFallback(t *testing.T) {
	pair, _ := isbn.FromFields("", "", "0-13-235088-2")
	if pair.ISBN10 != "0132350882" || pair.ISBN13 != "" {
		t.Fatalf("expected generic value in isbn10 slot, got %+v", pair)
	}
	pair, _ = isbn.FromFields("", "", "978-0-13-235088-4")
	if pair.ISBN13 != "9780132350884" || pair.ISBN10 != "" {
		t.Fatalf("expected generic value in isbn13 slot, got %+v", pair)
	}
	if pair.Canonical() != "9780132350884" {
		t.Fatalf("unexpected canonical %q", pair.Canonical())
	}
}

func TestFromFieldsMovesMisfiledValue(t *testing.T) {
	pair, _ := isbn.FromFields("9780132350884", "", "")
	if pair.ISBN13 != "9780132350884" || pair.ISBN10 != "" {
		t.Fatalf("expected misfiled isbn13 to move, got %+v", pair)
	}
}

func TestFromFieldsReportsRejected(t *testing.T) {
	pair, rejected := isbn.FromFields("bogus", "", "")
	if !pair.Empty() {
		t.Fatalf("expected empty pair, got %+v", pair)
	}
	if len(rejected) != 1 || rejected[0] != "bogus" {
		t.Fatalf("unexpected rejected %v", rejected)
	}
	pair, _ = isbn.FromFields("bogus", "", "0132350882")
	if pair.ISBN10 != "0132350882" {
		t.Fatalf("expected generic fallback after rejected slot, got %+v", pair)
	}
}
