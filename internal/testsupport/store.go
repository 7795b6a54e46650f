package testsupport

import (
	"context"
	"testing"

	"accession/internal/catalogue"
	"accession/internal/config"
)

// MustOpenStore opens a catalogue.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config, opts ...catalogue.Option) *catalogue.Store {
	t.Helper()

	store, err := catalogue.Open(cfg, opts...)
	if err != nil {
		t.Fatalf("catalogue.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// NewEntry inserts a pending entry with the given status and metadata and
// returns it. Output is filled in automatically for approved and completed.
func NewEntry(t testing.TB, store *catalogue.Store, status catalogue.Status, metadata catalogue.Document) *catalogue.Entry {
	t.Helper()

	entry := &catalogue.Entry{
		Title:       metadata.String(catalogue.KeyTitle),
		Authors:     metadata.Strings(catalogue.KeyAuthors),
		ISBN:        metadata.String(catalogue.KeyISBN),
		ISBN10:      metadata.String(catalogue.KeyISBN10),
		ISBN13:      metadata.String(catalogue.KeyISBN13),
		TotalCopies: 1,
		Metadata:    metadata,
		Status:      status,
	}
	if copies, ok := metadata.Int(catalogue.KeyTotalCopies); ok && copies > 0 {
		entry.TotalCopies = copies
	}
	if status.HasOutput() {
		entry.Output = metadata.Clone()
	}
	err := store.WithTx(context.Background(), func(tx *catalogue.Tx) error {
		return tx.CreateEntry(context.Background(), entry)
	})
	if err != nil {
		t.Fatalf("create entry: %v", err)
	}
	return entry
}
