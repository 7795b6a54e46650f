package metadata

import (
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"accession/internal/catalogue"
)

const cacheKeyPrefix = "isbn:"

// Cache stores merged lookups keyed by normalized ISBN. Entries expire after
// the configured TTL. Title-only queries are never cached.
type Cache struct {
	db  *badger.DB
	ttl time.Duration
}

// OpenCache opens or creates the cache directory.
func OpenCache(dir string, ttl time.Duration) (*Cache, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open metadata cache: %w", err)
	}
	return &Cache{db: db, ttl: ttl}, nil
}

// Close closes the underlying database.
func (c *Cache) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	return c.db.Close()
}

func cacheKey(q Query) []byte {
	code := q.NormalizedISBN()
	if code == "" {
		return nil
	}
	return []byte(cacheKeyPrefix + code)
}

// Get returns a cached document for q.
func (c *Cache) Get(q Query) (catalogue.Document, bool) {
	key := cacheKey(q)
	if key == nil {
		return nil, false
	}
	var doc catalogue.Document
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &doc)
		})
	})
	if err != nil {
		return nil, false
	}
	return doc, true
}

// Put stores doc for q. Queries without an ISBN are ignored.
func (c *Cache) Put(q Query, doc catalogue.Document) error {
	key := cacheKey(q)
	if key == nil || doc == nil {
		return nil
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode cached metadata: %w", err)
	}
	return c.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry(key, data)
		if c.ttl > 0 {
			entry = entry.WithTTL(c.ttl)
		}
		return txn.SetEntry(entry)
	})
}

// Invalidate drops the cached document for q, if any.
func (c *Cache) Invalidate(q Query) error {
	key := cacheKey(q)
	if key == nil {
		return nil
	}
	return c.db.Update(func(txn *badger.Txn) error {
		if err := txn.Delete(key); err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		return nil
	})
}
