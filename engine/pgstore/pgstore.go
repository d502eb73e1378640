// Package pgstore implements an engine.Engine backed by PostgreSQL.
package pgstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cardvault/cardvault/cerr"
	"github.com/cardvault/cardvault/engine"
	"github.com/cardvault/cardvault/engine/page"
	"github.com/cardvault/cardvault/gtime"
)

const uniqueViolation = "23505"

// Store is a PostgreSQL-backed engine.Engine.
type Store struct {
	db *pgxpool.Pool
}

// New opens a connection pool to dsn and ensures the card table exists.
func New(ctx context.Context, dsn string) (*Store, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("pgstore: invalid dsn: %w", err)
	}

	config.MaxConns = 20
	config.MinConns = 5
	config.MaxConnLifetime = time.Hour
	config.MaxConnIdleTime = 30 * time.Minute
	config.HealthCheckPeriod = time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("pgstore: connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("pgstore: ping: %w", err)
	}
	if err := initSchema(ctx, pool); err != nil {
		return nil, fmt.Errorf("pgstore: init schema: %w", err)
	}

	return &Store{db: pool}, nil
}

func initSchema(ctx context.Context, db *pgxpool.Pool) error {
	const schema = `
		CREATE TABLE IF NOT EXISTS card (
			hash       TEXT PRIMARY KEY,
			g_time     TEXT NOT NULL,
			content    BYTEA NOT NULL,
			inserted_at BIGSERIAL
		);
		CREATE INDEX IF NOT EXISTS idx_card_inserted_at ON card(inserted_at);
	`
	_, err := db.Exec(ctx, schema)
	return err
}

// Close releases the underlying connection pool.
func (s *Store) Close() {
	s.db.Close()
}

func (s *Store) Add(ctx context.Context, row engine.Row) error {
	const query = `INSERT INTO card (hash, g_time, content) VALUES ($1, $2, $3)`
	_, err := s.db.Exec(ctx, query, row.Hash, string(row.GTime), row.Content)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return engine.ErrHashConflict
		}
		return fmt.Errorf("pgstore: add: %w", err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, hash string) (engine.Row, bool, error) {
	const query = `SELECT hash, g_time, content FROM card WHERE hash = $1`
	var row engine.Row
	var g string
	err := s.db.QueryRow(ctx, query, hash).Scan(&row.Hash, &g, &row.Content)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return engine.Row{}, false, nil
		}
		return engine.Row{}, false, fmt.Errorf("pgstore: get: %w", err)
	}
	row.GTime = gtime.GTime(g)
	return row, true, nil
}

func (s *Store) Delete(ctx context.Context, hash string) (bool, error) {
	const query = `DELETE FROM card WHERE hash = $1`
	tag, err := s.db.Exec(ctx, query, hash)
	if err != nil {
		return false, fmt.Errorf("pgstore: delete: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (s *Store) Update(ctx context.Context, hash string, newContent []byte) error {
	const query = `UPDATE card SET content = $1 WHERE hash = $2`
	tag, err := s.db.Exec(ctx, query, newContent, hash)
	if err != nil {
		return fmt.Errorf("pgstore: update: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return engine.ErrNotFound
	}
	return nil
}

func (s *Store) Count(ctx context.Context) (int64, error) {
	const query = `SELECT COUNT(*) FROM card`
	var n int64
	if err := s.db.QueryRow(ctx, query).Scan(&n); err != nil {
		return 0, fmt.Errorf("pgstore: count: %w", err)
	}
	return n, nil
}

func (s *Store) Clear(ctx context.Context) error {
	const query = `TRUNCATE TABLE card`
	_, err := s.db.Exec(ctx, query)
	if err != nil {
		return fmt.Errorf("pgstore: clear: %w", err)
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
		err = s.db.QueryRow(ctx, `SELECT COUNT(*) FROM card`).Scan(&total)
	} else {
		err = s.db.QueryRow(ctx, `SELECT COUNT(*) FROM card WHERE position($1::bytea in content) > 0`, contains).Scan(&total)
	}
	if err != nil {
		return page.Page[engine.Row]{}, fmt.Errorf("pgstore: count for page: %w", err)
	}

	var totalPages int64
	if total > 0 && pageSize > 0 {
		totalPages = (total + int64(pageSize) - 1) / int64(pageSize)
	}
	if total > 0 && int64(pageNumber) > totalPages {
		return page.Page[engine.Row]{}, cerr.New(cerr.PageOutOfRange, "page_number exceeds total_pages")
	}

	offset := (pageNumber - 1) * pageSize

	var rows pgx.Rows
	if contains == "" {
		rows, err = s.db.Query(ctx, `SELECT hash, g_time, content FROM card ORDER BY inserted_at ASC LIMIT $1 OFFSET $2`, pageSize, offset)
	} else {
		rows, err = s.db.Query(ctx, `SELECT hash, g_time, content FROM card WHERE position($1::bytea in content) > 0 ORDER BY inserted_at ASC LIMIT $2 OFFSET $3`, contains, pageSize, offset)
	}
	if err != nil {
		return page.Page[engine.Row]{}, fmt.Errorf("pgstore: query page: %w", err)
	}
	defer rows.Close()

	var items []engine.Row
	for rows.Next() {
		var row engine.Row
		var g string
		if err := rows.Scan(&row.Hash, &g, &row.Content); err != nil {
			return page.Page[engine.Row]{}, fmt.Errorf("pgstore: scan: %w", err)
		}
		row.GTime = gtime.GTime(g)
		items = append(items, row)
	}
	if err := rows.Err(); err != nil {
		return page.Page[engine.Row]{}, fmt.Errorf("pgstore: iterate: %w", err)
	}

	return page.New(items, total, pageNumber, pageSize), nil
}
