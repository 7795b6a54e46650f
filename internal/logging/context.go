package logging

import (
	"context"
	"log/slog"

	"accession/internal/services"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldEntryID is the standardized structured logging key for pending entry identifiers.
	FieldEntryID = "entry_id"
	// FieldBookID is the standardized structured logging key for canonical book identifiers.
	FieldBookID = "book_id"
	// FieldStatus carries a pending entry status.
	FieldStatus = "status"
	// FieldAction carries an audit action tag.
	FieldAction = "action"
	// FieldActor carries the human or system acting on an entry.
	FieldActor = "actor"
	// FieldEventType classifies a log line for filtering (for example "insert_failed").
	FieldEventType = "event_type"
	// FieldErrorKind carries the classification from services.Kind.
	FieldErrorKind = "error_kind"
	// FieldCorrelationID is the standardized structured logging key for request correlation identifiers.
	FieldCorrelationID = "correlation_id"
)

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 3)
	if id, ok := services.EntryIDFromContext(ctx); ok {
		fields = append(fields, slog.Int64(FieldEntryID, id))
	}
	if actor, ok := services.ActorFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldActor, actor))
	}
	if rid, ok := services.RequestIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldCorrelationID, rid))
	}
	return fields
}

// WithContext returns a logger augmented with structured fields derived from the supplied context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(attrsToArgs(fields)...)
}
