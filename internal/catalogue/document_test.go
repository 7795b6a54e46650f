package catalogue_test

import (
	"errors"
	"testing"

	"accession/internal/catalogue"
	"accession/internal/services"
)

func TestDocumentValidate(t *testing.T) {
	cases := []struct {
		name    string
		doc     catalogue.Document
		wantErr bool
	}{
		{"nil", nil, false},
		{"well formed", catalogue.Document{"title": "Dune", "authors": []string{"Frank Herbert"}, "total_copies": 2}, false},
		{"unknown keys pass", catalogue.Document{"shelf": map[string]any{"row": 3}}, false},
		{"title wrong type", catalogue.Document{"title": 42}, true},
		{"zero copies", catalogue.Document{"total_copies": 0}, true},
		{"fractional copies", catalogue.Document{"total_copies": 1.5}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.doc.Validate()
			if tc.wantErr && !errors.Is(err, services.ErrValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestDocumentStrings(t *testing.T) {
	doc := catalogue.Document{
		"list":   []any{" Ada ", "Grace"},
		"json":   `["Ada","Grace"]`,
		"single": "Ada Lovelace",
		"empty":  "  ",
	}
	if got := doc.Strings("list"); len(got) != 2 || got[0] != "Ada" {
		t.Fatalf("unexpected list %v", got)
	}
	if got := doc.Strings("json"); len(got) != 2 || got[1] != "Grace" {
		t.Fatalf("unexpected json list %v", got)
	}
	if got := doc.Strings("single"); len(got) != 1 || got[0] != "Ada Lovelace" {
		t.Fatalf("unexpected single %v", got)
	}
	if got := doc.Strings("empty"); got != nil {
		t.Fatalf("expected nil for blank string, got %v", got)
	}
}

func TestDocumentMergeDoesNotMutate(t *testing.T) {
	base := catalogue.Document{"title": "Old", "edition": "1st"}
	merged := base.Merge(catalogue.Document{"title": "New"})
	if base.String("title") != "Old" {
		t.Fatalf("merge mutated receiver: %v", base)
	}
	if merged.String("title") != "New" || merged.String("edition") != "1st" {
		t.Fatalf("unexpected merge result %v", merged)
	}
}

func TestDocumentInt(t *testing.T) {
	doc := catalogue.Document{"a": float64(3), "b": "4", "c": 2.5, "d": "x"}
	if n, ok := doc.Int("a"); !ok || n != 3 {
		t.Fatalf("a: %d %v", n, ok)
	}
	if n, ok := doc.Int("b"); !ok || n != 4 {
		t.Fatalf("b: %d %v", n, ok)
	}
	if _, ok := doc.Int("c"); ok {
		t.Fatal("c: expected fractional value to be rejected")
	}
	if _, ok := doc.Int("d"); ok {
		t.Fatal("d: expected non-numeric value to be rejected")
	}
}
