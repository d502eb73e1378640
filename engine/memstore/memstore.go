// Package memstore implements an in-memory engine.Engine, intended for
// tests and development.
package memstore

import (
	"context"
	"strings"
	"sync"

	"github.com/cardvault/cardvault/cerr"
	"github.com/cardvault/cardvault/engine"
	"github.com/cardvault/cardvault/engine/page"
)

// entry wraps a row as stored in the map; it exists as a pointer-identity
// anchor so Delete can find and remove the matching slot in ordered
// without a linear hash comparison.
type entry struct {
	row engine.Row
}

// Store is an in-memory engine.Engine backed by a map keyed on hash and an
// insertion-ordered slice of entries, protected by a single RWMutex.
type Store struct {
	mu      sync.RWMutex
	byHash  map[string]*entry
	ordered []*entry
}

// New returns an empty in-memory engine.
func New() *Store {
	return &Store{byHash: make(map[string]*entry)}
}

func (s *Store) Add(ctx context.Context, row engine.Row) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byHash[row.Hash]; exists {
		return engine.ErrHashConflict
	}

	e := &entry{row: row}
	s.byHash[row.Hash] = e
	s.ordered = append(s.ordered, e)
	return nil
}

func (s *Store) Get(ctx context.Context, hash string) (engine.Row, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.byHash[hash]
	if !ok {
		return engine.Row{}, false, nil
	}
	return e.row, true, nil
}

func (s *Store) Delete(ctx context.Context, hash string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.byHash[hash]
	if !ok {
		return false, nil
	}
	delete(s.byHash, hash)
	for i, other := range s.ordered {
		if other == e {
			s.ordered = append(s.ordered[:i], s.ordered[i+1:]...)
			break
		}
	}
	return true, nil
}

func (s *Store) Update(ctx context.Context, hash string, newContent []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.byHash[hash]
	if !ok {
		return engine.ErrNotFound
	}
	e.row.Content = newContent
	return nil
}

func (s *Store) Count(ctx context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.ordered)), nil
}

func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byHash = make(map[string]*entry)
	s.ordered = nil
	return nil
}

func (s *Store) GetPage(ctx context.Context, pageNumber, pageSize int) (page.Page[engine.Row], error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return paginate(s.ordered, pageNumber, pageSize, func(*entry) bool { return true })
}

func (s *Store) SearchByContent(ctx context.Context, q string, pageNumber, pageSize int) (page.Page[engine.Row], error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return paginate(s.ordered, pageNumber, pageSize, func(e *entry) bool {
		return strings.Contains(string(e.row.Content), q)
	})
}

func paginate(ordered []*entry, pageNumber, pageSize int, keep func(*entry) bool) (page.Page[engine.Row], error) {
	matched := make([]*entry, 0, len(ordered))
	for _, e := range ordered {
		if keep(e) {
			matched = append(matched, e)
		}
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

	items := make([]engine.Row, 0, end-start)
	for _, e := range matched[start:end] {
		items = append(items, e.row)
	}

	return page.New(items, total, pageNumber, pageSize), nil
}
