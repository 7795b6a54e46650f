package workflow

import (
	"context"
	"log/slog"
	"time"

	"accession/internal/catalogue"
	"accession/internal/logging"
	"accession/internal/metadata"
)

// Manager drives pending entries through intake, librarian edits and
// confirmation. Every mutation runs in one catalogue transaction together
// with its audit entry.
type Manager struct {
	store   *catalogue.Store
	fetcher metadata.Fetcher
	logger  *slog.Logger
	timeout time.Duration
}

// ManagerOption configures optional Manager behavior.
type ManagerOption func(*Manager)

// WithFetcher sets the metadata collaborator used by Intake. Without one,
// new entries go straight to failed for manual metadata entry.
func WithFetcher(fetcher metadata.Fetcher) ManagerOption {
	return func(m *Manager) {
		m.fetcher = fetcher
	}
}

// WithFetchTimeout bounds the metadata step of Intake.
func WithFetchTimeout(timeout time.Duration) ManagerOption {
	return func(m *Manager) {
		m.timeout = timeout
	}
}

// NewManager constructs a workflow manager.
func NewManager(store *catalogue.Store, logger *slog.Logger, opts ...ManagerOption) *Manager {
	m := &Manager{
		store:  store,
		logger: logging.NewComponentLogger(logger, "workflow"),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Get returns one entry.
func (m *Manager) Get(ctx context.Context, id int64) (*catalogue.Entry, error) {
	entry, err := m.store.GetEntry(ctx, id)
	if err != nil {
		return nil, storageError("get", err)
	}
	if entry == nil {
		return nil, &catalogue.NotFoundError{EntryID: id}
	}
	return entry, nil
}

// ListPending returns entries oldest first. With no statuses it returns the
// librarian work list: awaiting_confirmation and failed.
func (m *Manager) ListPending(ctx context.Context, statuses ...catalogue.Status) ([]*catalogue.Entry, error) {
	if len(statuses) == 0 {
		statuses = catalogue.ReviewStatuses
	}
	entries, err := m.store.ListEntries(ctx, statuses...)
	if err != nil {
		return nil, storageError("list", err)
	}
	return entries, nil
}

// AuditTrail returns an entry's history oldest first.
func (m *Manager) AuditTrail(ctx context.Context, id int64) ([]catalogue.AuditEntry, error) {
	if _, err := m.Get(ctx, id); err != nil {
		return nil, err
	}
	trail, err := m.store.AuditTrail(ctx, id)
	if err != nil {
		return nil, storageError("audit trail", err)
	}
	return trail, nil
}

// Stats returns entry counts per status.
func (m *Manager) Stats(ctx context.Context) (map[catalogue.Status]int, error) {
	stats, err := m.store.Stats(ctx)
	if err != nil {
		return nil, storageError("stats", err)
	}
	return stats, nil
}
