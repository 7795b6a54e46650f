package catalogue

import (
	"fmt"
	"strings"
)

// Status represents the lifecycle of a pending catalogue entry.
type Status string

const (
	StatusPending              Status = "pending"
	StatusAwaitingConfirmation Status = "awaiting_confirmation"
	StatusFailed               Status = "failed"
	StatusApproved             Status = "approved"
	StatusRejected             Status = "rejected"
	StatusCompleted            Status = "completed"
)

var allStatuses = []Status{
	StatusPending,
	StatusAwaitingConfirmation,
	StatusFailed,
	StatusApproved,
	StatusRejected,
	StatusCompleted,
}

// transitions lists the statuses reachable from each status. No status leads
// back to pending.
var transitions = map[Status][]Status{
	StatusPending:              {StatusAwaitingConfirmation, StatusFailed},
	StatusAwaitingConfirmation: {StatusApproved, StatusRejected},
	StatusFailed:               {StatusApproved, StatusRejected},
	StatusApproved:             {StatusCompleted},
}

// ConfirmableStatuses are the statuses a librarian may approve or reject from.
var ConfirmableStatuses = []Status{StatusAwaitingConfirmation, StatusFailed}

// ReviewStatuses is the default librarian work list.
var ReviewStatuses = []Status{StatusAwaitingConfirmation, StatusFailed}

// AllStatuses returns every known status in lifecycle order.
func AllStatuses() []Status {
	return append([]Status(nil), allStatuses...)
}

// ParseStatus converts a string into a Status.
func ParseStatus(value string) (Status, error) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized.Valid() {
		return normalized, nil
	}
	return "", fmt.Errorf("unknown status %q", value)
}

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	for _, candidate := range allStatuses {
		if s == candidate {
			return true
		}
	}
	return false
}

// CanTransitionTo reports whether next is directly reachable from s.
func (s Status) CanTransitionTo(next Status) bool {
	for _, candidate := range transitions[s] {
		if candidate == next {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transitions are possible.
func (s Status) IsTerminal() bool {
	return s.Valid() && len(transitions[s]) == 0
}

// Editable reports whether field edits are accepted in this status.
func (s Status) Editable() bool {
	return s != StatusApproved && s != StatusCompleted
}

// Confirmable reports whether a librarian decision is accepted in this status.
func (s Status) Confirmable() bool {
	return s == StatusAwaitingConfirmation || s == StatusFailed
}

// HasOutput reports whether entries in this status carry a finalized output document.
func (s Status) HasOutput() bool {
	return s == StatusApproved || s == StatusCompleted
}

// EditableStatuses returns the statuses that accept edits.
func EditableStatuses() []Status {
	out := make([]Status, 0, len(allStatuses))
	for _, status := range allStatuses {
		if status.Editable() {
			out = append(out, status)
		}
	}
	return out
}
