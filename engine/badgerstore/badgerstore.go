// Package badgerstore implements an engine.Engine backed by an embedded
// dgraph-io/badger/v4 key-value store, grounded on the pack's
// keyValStore wrapper around badger.DB transactions.
package badgerstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/oklog/ulid/v2"

	"github.com/cardvault/cardvault/cerr"
	"github.com/cardvault/cardvault/engine"
	"github.com/cardvault/cardvault/engine/page"
	"github.com/cardvault/cardvault/gtime"
)

const (
	cardPrefix = "card:"
	seqPrefix  = "seq:"
)

// record is the JSON body stored under the card: key; the hash itself
// lives in the key, seq: entries give insertion order since badger
// iterates keys in byte-sorted order rather than write order.
type record struct {
	GTime   string `json:"g_time"`
	Content []byte `json:"content"`
}

// Store is a badger-backed engine.Engine.
type Store struct {
	db *badger.DB
}

// New opens (or creates) a badger database at path.
func New(path string) (*Store, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("badgerstore: open: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying badger database.
func (s *Store) Close() error {
	return s.db.Close()
}

func cardKey(hash string) []byte { return []byte(cardPrefix + hash) }

func (s *Store) Add(ctx context.Context, row engine.Row) error {
	return s.db.Update(func(txn *badger.Txn) error {
		key := cardKey(row.Hash)
		if _, err := txn.Get(key); err == nil {
			return engine.ErrHashConflict
		} else if err != badger.ErrKeyNotFound {
			return fmt.Errorf("badgerstore: add: %w", err)
		}

		body, err := json.Marshal(record{GTime: string(row.GTime), Content: row.Content})
		if err != nil {
			return fmt.Errorf("badgerstore: marshal: %w", err)
		}
		if err := txn.Set(key, body); err != nil {
			return fmt.Errorf("badgerstore: set: %w", err)
		}

		seqKey := []byte(seqPrefix + ulid.Make().String())
		return txn.Set(seqKey, []byte(row.Hash))
	})
}

func (s *Store) Get(ctx context.Context, hash string) (engine.Row, bool, error) {
	var row engine.Row
	found := false
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(cardKey(hash))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		body, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		var rec record
		if err := json.Unmarshal(body, &rec); err != nil {
			return fmt.Errorf("badgerstore: unmarshal: %w", err)
		}
		row = engine.Row{Hash: hash, GTime: gtime.GTime(rec.GTime), Content: rec.Content}
		found = true
		return nil
	})
	if err != nil {
		return engine.Row{}, false, fmt.Errorf("badgerstore: get: %w", err)
	}
	return row, found, nil
}

func (s *Store) Delete(ctx context.Context, hash string) (bool, error) {
	deleted := false
	err := s.db.Update(func(txn *badger.Txn) error {
		key := cardKey(hash)
		if _, err := txn.Get(key); err == badger.ErrKeyNotFound {
			return nil
		} else if err != nil {
			return err
		}
		if err := txn.Delete(key); err != nil {
			return err
		}
		deleted = true

		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		prefix := []byte(seqPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			val, err := it.Item().ValueCopy(nil)
			if err != nil {
				return err
			}
			if string(val) == hash {
				return txn.Delete(it.Item().KeyCopy(nil))
			}
		}
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("badgerstore: delete: %w", err)
	}
	return deleted, nil
}

func (s *Store) Update(ctx context.Context, hash string, newContent []byte) error {
	return s.db.Update(func(txn *badger.Txn) error {
		key := cardKey(hash)
		item, err := txn.Get(key)
		if err == badger.ErrKeyNotFound {
			return engine.ErrNotFound
		}
		if err != nil {
			return err
		}
		body, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		var rec record
		if err := json.Unmarshal(body, &rec); err != nil {
			return fmt.Errorf("badgerstore: unmarshal: %w", err)
		}
		rec.Content = newContent
		updated, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("badgerstore: marshal: %w", err)
		}
		return txn.Set(key, updated)
	})
}

func (s *Store) Count(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		prefix := []byte(cardPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			n++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("badgerstore: count: %w", err)
	}
	return n, nil
}

func (s *Store) Clear(ctx context.Context) error {
	return s.db.DropAll()
}

// orderedHashes walks the seq: namespace in key order (which is ULID
// order, hence insertion order) and returns the hashes it references.
func (s *Store) orderedHashes(txn *badger.Txn) ([]string, error) {
	var hashes []string
	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = true
	it := txn.NewIterator(opts)
	defer it.Close()
	prefix := []byte(seqPrefix)
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		val, err := it.Item().ValueCopy(nil)
		if err != nil {
			return nil, err
		}
		hashes = append(hashes, string(val))
	}
	return hashes, nil
}

func (s *Store) GetPage(ctx context.Context, pageNumber, pageSize int) (page.Page[engine.Row], error) {
	return s.queryPage(ctx, "", pageNumber, pageSize)
}

func (s *Store) SearchByContent(ctx context.Context, q string, pageNumber, pageSize int) (page.Page[engine.Row], error) {
	return s.queryPage(ctx, q, pageNumber, pageSize)
}

func (s *Store) queryPage(ctx context.Context, contains string, pageNumber, pageSize int) (page.Page[engine.Row], error) {
	var matched []engine.Row
	err := s.db.View(func(txn *badger.Txn) error {
		hashes, err := s.orderedHashes(txn)
		if err != nil {
			return err
		}
		for _, hash := range hashes {
			item, err := txn.Get(cardKey(hash))
			if err == badger.ErrKeyNotFound {
				continue
			}
			if err != nil {
				return err
			}
			body, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			var rec record
			if err := json.Unmarshal(body, &rec); err != nil {
				return fmt.Errorf("badgerstore: unmarshal: %w", err)
			}
			if contains != "" && !bytes.Contains(rec.Content, []byte(contains)) {
				continue
			}
			matched = append(matched, engine.Row{Hash: hash, GTime: gtime.GTime(rec.GTime), Content: rec.Content})
		}
		return nil
	})
	if err != nil {
		return page.Page[engine.Row]{}, fmt.Errorf("badgerstore: query page: %w", err)
	}

	total := int64(len(matched))
	var totalPages int64
	if total > 0 && pageSize > 0 {
		totalPages = (total + int64(pageSize) - 1) / int64(pageSize)
	}
	if total > 0 && int64(pageNumber) > totalPages {
		return page.Page[engine.Row]{}, cerr.New(cerr.PageOutOfRange, "page_number exceeds total_pages")
	}

	start := (pageNumber - 1) * pageSize
	end := start + pageSize
	if start > len(matched) {
		start = len(matched)
	}
	if end > len(matched) {
		end = len(matched)
	}

	return page.New(matched[start:end], total, pageNumber, pageSize), nil
}
