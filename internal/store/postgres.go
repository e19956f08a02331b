package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	pgUniqueViolation = "23505"

	pgSchema = `CREATE TABLE IF NOT EXISTS records (
	timestamp  BIGINT      NOT NULL,
	message_id VARCHAR(32) NOT NULL,
	record     TEXT,
	PRIMARY KEY (timestamp, message_id)
)`

	pgInsert = `INSERT INTO records (timestamp, message_id, record) VALUES ($1, $2, $3)`

	pgListFrom = `SELECT timestamp, message_id, record FROM records
	WHERE timestamp >= $1 AND message_id >= $2
	ORDER BY timestamp, message_id LIMIT $3`

	pgListAll = `SELECT timestamp, message_id, record FROM records
	ORDER BY timestamp, message_id LIMIT $1`
)

// PostgresStore keeps records in a Postgres table with a compound primary
// key. The database's unique constraint is the concurrency-correctness
// mechanism: concurrent duplicate inserts surface as SQLSTATE 23505.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore connects to dsn, ensures the schema, and returns the store.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres ping: %w", err)
	}
	if _, err := pool.Exec(ctx, pgSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres schema: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

// Insert persists r, mapping unique-key violations to ErrDuplicate.
func (s *PostgresStore) Insert(ctx context.Context, r Record) error {
	_, err := s.pool.Exec(ctx, pgInsert, r.Timestamp, r.MessageID, r.Data)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return ErrDuplicate
		}
		return fmt.Errorf("postgres insert: %w", err)
	}
	return nil
}

// List runs the range query with the same filter as the Pebble backend.
func (s *PostgresStore) List(ctx context.Context, cursor *Cursor, limit int) ([]Record, error) {
	if limit <= 0 {
		return nil, nil
	}
	var (
		rows pgx.Rows
		err  error
	)
	if cursor != nil {
		rows, err = s.pool.Query(ctx, pgListFrom, cursor.Timestamp, cursor.MessageID, limit)
	} else {
		rows, err = s.pool.Query(ctx, pgListAll, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("postgres list: %w", err)
	}
	defer rows.Close()

	out := make([]Record, 0, limit)
	for rows.Next() {
		var r Record
		if err := rows.Scan(&r.Timestamp, &r.MessageID, &r.Data); err != nil {
			return nil, fmt.Errorf("postgres scan: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres rows: %w", err)
	}
	return out, nil
}

// Ping checks database connectivity.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close releases the connection pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
