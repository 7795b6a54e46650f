package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrValidation   = errors.New("validation error")
	ErrNotFound     = errors.New("not found")
	ErrInvalidState = errors.New("invalid state")
	ErrStorage      = errors.New("storage error")
	ErrExternal     = errors.New("external dependency error")
	ErrConflict     = errors.New("conflict")
)

// Kind labels used in audit payloads, API error codes and metrics.
const (
	KindValidation   = "validation"
	KindInvalidState = "invalid_state"
	KindNotFound     = "not_found"
	KindStorage      = "storage"
	KindExternal     = "external"
	KindConflict     = "conflict"
)

// Wrap builds an error message that includes component context while tagging it
// with the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrStorage
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Kind classifies err into one of the Kind* labels. Invalid-state errors are
// checked before validation because they match both markers.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidState):
		return KindInvalidState
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrValidation):
		return KindValidation
	case errors.Is(err, ErrConflict):
		return KindConflict
	case errors.Is(err, ErrExternal):
		return KindExternal
	default:
		return KindStorage
	}
}

// IsClientFault reports whether err was caused by the caller rather than by
// the system. Client faults are never retried automatically.
func IsClientFault(err error) bool {
	switch Kind(err) {
	case KindValidation, KindInvalidState, KindNotFound, KindConflict:
		return true
	default:
		return false
	}
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
