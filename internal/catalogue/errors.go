package catalogue

import (
	"errors"
	"fmt"
	"strings"

	"accession/internal/services"
)

// StateError reports an operation attempted on an entry outside the statuses
// that permit it. It matches services.ErrInvalidState and services.ErrValidation.
type StateError struct {
	EntryID   int64
	Operation string
	Current   Status
	Expected  []Status
}

func (e *StateError) Error() string {
	expected := make([]string, len(e.Expected))
	for i, status := range e.Expected {
		expected[i] = string(status)
	}
	return fmt.Sprintf("cannot %s entry %d with status %q (expected %s)",
		e.Operation, e.EntryID, e.Current, strings.Join(expected, " or "))
}

func (e *StateError) Is(target error) bool {
	return target == services.ErrInvalidState || target == services.ErrValidation
}

// NotFoundError reports an unknown pending entry id.
type NotFoundError struct {
	EntryID int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("pending entry %d not found", e.EntryID)
}

func (e *NotFoundError) Is(target error) bool {
	return target == services.ErrNotFound
}

// ValidationError reports bad input or a missing mandatory field on an entry.
type ValidationError struct {
	EntryID int64
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.EntryID > 0 {
		return fmt.Sprintf("entry %d: %s: %s", e.EntryID, e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Is(target error) bool {
	return target == services.ErrValidation
}

// AsStateError extracts a StateError from err.
func AsStateError(err error) (*StateError, bool) {
	var stateErr *StateError
	if errors.As(err, &stateErr) {
		return stateErr, true
	}
	return nil, false
}
