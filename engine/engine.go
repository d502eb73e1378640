// Package engine defines the storage engine contract the collection relies
// on, and the sentinel errors every implementation must surface.
package engine

import (
	"context"
	"errors"

	"github.com/cardvault/cardvault/engine/page"
	"github.com/cardvault/cardvault/gtime"
)

// Row is the persisted form of a card: the engine never sees a card.Card
// directly, only its three persisted fields.
type Row struct {
	Hash    string
	GTime   gtime.GTime
	Content []byte
}

// ErrNotFound is returned by Update when no row is bound to the hash. Get
// and Delete report a missing row through their bool return instead.
var ErrNotFound = errors.New("engine: row not found")

// ErrHashConflict is returned by Add when hash already exists. Detecting
// and resolving a conflict is the collection's job, not the engine's; the
// engine's only responsibility is to never silently overwrite a row.
var ErrHashConflict = errors.New("engine: hash already exists")

// Engine is the narrow persistence interface the collection is polymorphic
// over. Every method may suspend on I/O; pure computation (digesting,
// timestamping, classification) never crosses this boundary.
type Engine interface {
	// Add inserts (hash, g_time, content). Returns ErrHashConflict if hash
	// already exists.
	Add(ctx context.Context, row Row) error

	// Get returns the row for hash, or ok=false if no such row exists.
	Get(ctx context.Context, hash string) (row Row, ok bool, err error)

	// Delete removes the row for hash. Idempotent: deleting a missing hash
	// returns (false, nil), not an error.
	Delete(ctx context.Context, hash string) (bool, error)

	// Update replaces the content bytes bound to hash. The digest is not
	// re-verified by the engine.
	Update(ctx context.Context, hash string, newContent []byte) error

	// Count returns the exact number of stored rows.
	Count(ctx context.Context) (int64, error)

	// Clear removes every row.
	Clear(ctx context.Context) error

	// GetPage returns an insertion-ordered page of rows. pageNumber is
	// 1-based. Returns a PageOutOfRange error (via cerr) if pageNumber
	// exceeds the total page count while rows exist.
	GetPage(ctx context.Context, pageNumber, pageSize int) (page.Page[Row], error)

	// SearchByContent returns a page of rows whose content, interpreted as
	// UTF-8 with lossy fallback, contains q as a substring.
	SearchByContent(ctx context.Context, q string, pageNumber, pageSize int) (page.Page[Row], error)
}
