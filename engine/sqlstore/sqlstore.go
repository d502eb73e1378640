// Package sqlstore implements an engine.Engine backed by SQLite via the
// pure-Go modernc.org/sqlite driver, grounded on the pack's
// database/sql-over-sqlite pattern (no cgo dependency required).
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/cardvault/cardvault/cerr"
	"github.com/cardvault/cardvault/engine"
	"github.com/cardvault/cardvault/engine/page"
	"github.com/cardvault/cardvault/gtime"
)

// Store is a SQLite-backed engine.Engine.
type Store struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS card (
	hash        TEXT PRIMARY KEY,
	g_time      TEXT NOT NULL,
	content     BLOB NOT NULL,
	inserted_at INTEGER
);
`

// New opens (or creates) the SQLite database file at path and ensures
// the card table exists.
func New(path string) (*Store, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: open: %w", err)
	}
	if _, err := conn.Exec("PRAGMA journal_mode = WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlstore: pragma: %w", err)
	}
	if _, err := conn.Exec(schema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlstore: init schema: %w", err)
	}
	return &Store{db: conn}, nil
}

// Close closes the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Add(ctx context.Context, row engine.Row) error {
	const query = `INSERT INTO card (hash, g_time, content, inserted_at)
		VALUES (?, ?, ?, (SELECT COALESCE(MAX(inserted_at), 0) + 1 FROM card))`
	_, err := s.db.ExecContext(ctx, query, row.Hash, string(row.GTime), row.Content)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return engine.ErrHashConflict
		}
		return fmt.Errorf("sqlstore: add: %w", err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, hash string) (engine.Row, bool, error) {
	const query = `SELECT hash, g_time, content FROM card WHERE hash = ?`
	var row engine.Row
	var g string
	err := s.db.QueryRowContext(ctx, query, hash).Scan(&row.Hash, &g, &row.Content)
	if errors.Is(err, sql.ErrNoRows) {
		return engine.Row{}, false, nil
	}
	if err != nil {
		return engine.Row{}, false, fmt.Errorf("sqlstore: get: %w", err)
	}
	row.GTime = gtime.GTime(g)
	return row, true, nil
}

func (s *Store) Delete(ctx context.Context, hash string) (bool, error) {
	const query = `DELETE FROM card WHERE hash = ?`
	result, err := s.db.ExecContext(ctx, query, hash)
	if err != nil {
		return false, fmt.Errorf("sqlstore: delete: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("sqlstore: rows affected: %w", err)
	}
	return n > 0, nil
}

func (s *Store) Update(ctx context.Context, hash string, newContent []byte) error {
	const query = `UPDATE card SET content = ? WHERE hash = ?`
	result, err := s.db.ExecContext(ctx, query, newContent, hash)
	if err != nil {
		return fmt.Errorf("sqlstore: update: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlstore: rows affected: %w", err)
	}
	if n == 0 {
		return engine.ErrNotFound
	}
	return nil
}

func (s *Store) Count(ctx context.Context) (int64, error) {
	const query = `SELECT COUNT(*) FROM card`
	var n int64
	if err := s.db.QueryRowContext(ctx, query).Scan(&n); err != nil {
		return 0, fmt.Errorf("sqlstore: count: %w", err)
	}
	return n, nil
}

func (s *Store) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM card`); err != nil {
		return fmt.Errorf("sqlstore: clear: %w", err)
	}
	return nil
}

func (s *Store) GetPage(ctx context.Context, pageNumber, pageSize int) (page.Page[engine.Row], error) {
	return s.queryPage(ctx, "", pageNumber, pageSize)
}

func (s *Store) SearchByContent(ctx context.Context, q string, pageNumber, pageSize int) (page.Page[engine.Row], error) {
	return s.queryPage(ctx, q, pageNumber, pageSize)
}

func (s *Store) queryPage(ctx context.Context, contains string, pageNumber, pageSize int) (page.Page[engine.Row], error) {
	var total int64
	var err error
	if contains == "" {
		err = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM card`).Scan(&total)
	} else {
		err = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM card WHERE CAST(content AS TEXT) LIKE '%' || ? || '%'`, contains).Scan(&total)
	}
	if err != nil {
		return page.Page[engine.Row]{}, fmt.Errorf("sqlstore: count for page: %w", err)
	}

	var totalPages int64
	if total > 0 && pageSize > 0 {
		totalPages = (total + int64(pageSize) - 1) / int64(pageSize)
	}
	if total > 0 && int64(pageNumber) > totalPages {
		return page.Page[engine.Row]{}, cerr.New(cerr.PageOutOfRange, "page_number exceeds total_pages")
	}

	offset := (pageNumber - 1) * pageSize

	var rows *sql.Rows
	if contains == "" {
		rows, err = s.db.QueryContext(ctx, `SELECT hash, g_time, content FROM card ORDER BY inserted_at ASC LIMIT ? OFFSET ?`, pageSize, offset)
	} else {
		rows, err = s.db.QueryContext(ctx, `SELECT hash, g_time, content FROM card WHERE CAST(content AS TEXT) LIKE '%' || ? || '%' ORDER BY inserted_at ASC LIMIT ? OFFSET ?`, contains, pageSize, offset)
	}
	if err != nil {
		return page.Page[engine.Row]{}, fmt.Errorf("sqlstore: query page: %w", err)
	}
	defer rows.Close()

	var items []engine.Row
	for rows.Next() {
		var row engine.Row
		var g string
		if err := rows.Scan(&row.Hash, &g, &row.Content); err != nil {
			return page.Page[engine.Row]{}, fmt.Errorf("sqlstore: scan: %w", err)
		}
		row.GTime = gtime.GTime(g)
		items = append(items, row)
	}
	if err := rows.Err(); err != nil {
		return page.Page[engine.Row]{}, fmt.Errorf("sqlstore: iterate: %w", err)
	}

	return page.New(items, total, pageNumber, pageSize), nil
}
