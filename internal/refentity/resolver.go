package refentity

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"

	"accession/internal/logging"
)

// Querier is the subset of a transaction the resolver needs. catalogue.Tx
// satisfies it.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Resolver maps publisher and author names to stable ids, creating rows on
// first use. It never modifies an existing row.
type Resolver struct {
	now    func() time.Time
	logger *slog.Logger
}

// Option customizes a Resolver.
type Option func(*Resolver)

// WithClock overrides the time source used for created_at and placeholder names.
func WithClock(now func() time.Time) Option {
	return func(r *Resolver) {
		if now != nil {
			r.now = now
		}
	}
}

// WithLogger attaches a logger for entity creation events.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Resolver) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewResolver constructs a Resolver.
func NewResolver(opts ...Option) *Resolver {
	r := &Resolver{
		now:    time.Now,
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = logging.NewComponentLogger(r.logger, "refentity")
	return r
}

// NormalizeName trims, collapses internal whitespace and applies Unicode NFC
// so visually identical names share one row.
func NormalizeName(name string) string {
	return norm.NFC.String(strings.Join(strings.Fields(name), " "))
}

// ResolvePublisher returns the id for name. An empty name resolves to no
// publisher and reports false.
func (r *Resolver) ResolvePublisher(ctx context.Context, q Querier, name string) (int64, bool, error) {
	normalized := NormalizeName(name)
	if normalized == "" {
		return 0, false, nil
	}
	id, err := r.resolve(ctx, q, entityTable{
		kind:   "publisher",
		table:  "publishers",
		column: "name",
	}, normalized)
	if err != nil {
		return 0, false, err
	}
	return id, true, nil
}

// ResolveAuthor returns the id for name. A blank name is replaced with a
// placeholder unique to this call so unattributed works are not merged.
func (r *Resolver) ResolveAuthor(ctx context.Context, q Querier, name string) (int64, error) {
	normalized := NormalizeName(name)
	if normalized == "" {
		normalized = "Unknown Author " + r.now().UTC().Format(time.RFC3339Nano)
	}
	return r.resolve(ctx, q, entityTable{
		kind:   "author",
		table:  "authors",
		column: "full_name",
	}, normalized)
}

// ResolveAuthors resolves each name in order.
func (r *Resolver) ResolveAuthors(ctx context.Context, q Querier, names []string) ([]int64, error) {
	ids := make([]int64, 0, len(names))
	for _, name := range names {
		id, err := r.ResolveAuthor(ctx, q, name)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

type entityTable struct {
	kind   string
	table  string
	column string
}

// resolve looks the name up, inserts it absorbing any uniqueness conflict,
// then reads it back. The read-back sees either this call's row or the row
// a concurrent caller committed first.
func (r *Resolver) resolve(ctx context.Context, q Querier, t entityTable, name string) (int64, error) {
	id, found, err := lookup(ctx, q, t, name)
	if err != nil {
		return 0, err
	}
	if found {
		return id, nil
	}

	res, err := q.ExecContext(ctx,
		"INSERT INTO "+t.table+" ("+t.column+", created_at) VALUES (?, ?) ON CONFLICT ("+t.column+") DO NOTHING",
		name, r.now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return 0, fmt.Errorf("insert %s %q: %w", t.kind, name, err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected > 0 {
		r.logger.Debug("reference entity created",
			logging.String("entity", t.kind),
			logging.String("name", name),
		)
	}

	id, found, err = lookup(ctx, q, t, name)
	if err != nil {
		return 0, err
	}
	if !found {
		return 0, fmt.Errorf("resolve %s %q: row missing after insert", t.kind, name)
	}
	return id, nil
}

func lookup(ctx context.Context, q Querier, t entityTable, name string) (int64, bool, error) {
	var id int64
	err := q.QueryRowContext(ctx, "SELECT id FROM "+t.table+" WHERE "+t.column+" = ?", name).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("lookup %s %q: %w", t.kind, name, err)
	}
	return id, true, nil
}
