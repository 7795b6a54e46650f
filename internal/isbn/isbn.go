// Package isbn canonicalizes raw ISBN strings and classifies them as ISBN-10
// or ISBN-13. The canonical form is the identity key used to deduplicate
// canonical books.
package isbn

import (
	"regexp"
	"strings"
)

// Kind classifies a normalized ISBN by length.
type Kind int

const (
	Unknown Kind = iota
	ISBN10
	ISBN13
)

func (k Kind) String() string {
	switch k {
	case ISBN10:
		return "isbn_10"
	case ISBN13:
		return "isbn_13"
	default:
		return "unknown"
	}
}

var shape = regexp.MustCompile(`^(?:\d{13}|\d{9}[\dX])$`)

var stripper = strings.NewReplacer("-", "", " ", "")

// Normalize strips hyphens and spaces, uppercases the check character and
// validates the shape. The boolean is false when raw is not an ISBN; callers
// treat that as absent.
func Normalize(raw string) (string, bool) {
	cleaned := strings.ToUpper(stripper.Replace(strings.TrimSpace(raw)))
	if !shape.MatchString(cleaned) {
		return "", false
	}
	return cleaned, true
}

// Classify reports the kind of an already normalized ISBN.
func Classify(normalized string) Kind {
	switch len(normalized) {
	case 10:
		return ISBN10
	case 13:
		return ISBN13
	default:
		return Unknown
	}
}

// Pair holds the two identity slots of a book. Empty means absent.
type Pair struct {
	ISBN10 string
	ISBN13 string
}

// Empty reports whether neither slot is set.
func (p Pair) Empty() bool {
	return p.ISBN10 == "" && p.ISBN13 == ""
}

// Canonical returns the legacy single-field form, preferring ISBN-13.
func (p Pair) Canonical() string {
	if p.ISBN13 != "" {
		return p.ISBN13
	}
	return p.ISBN10
}

// Rejected lists raw inputs that were present but failed normalization.
type Rejected []string

// FromFields normalizes the dedicated ISBN-10 and ISBN-13 values
// independently. A value whose length belongs to the other slot is moved
// there. The generic value is only consulted when both slots are still empty
// and is placed by its length. Values that fail normalization are returned in
// Rejected so callers can log them.
func FromFields(raw10, raw13, generic string) (Pair, Rejected) {
	var pair Pair
	var rejected Rejected
	place := func(raw string) {
		if strings.TrimSpace(raw) == "" {
			return
		}
		normalized, ok := Normalize(raw)
		if !ok {
			rejected = append(rejected, raw)
			return
		}
		switch Classify(normalized) {
		case ISBN10:
			if pair.ISBN10 == "" {
				pair.ISBN10 = normalized
			}
		case ISBN13:
			if pair.ISBN13 == "" {
				pair.ISBN13 = normalized
			}
		}
	}
	place(raw13)
	place(raw10)
	if pair.Empty() {
		place(generic)
	}
	return pair, rejected
}
