package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const createTable = `
	CREATE TABLE IF NOT EXISTS allowed_account_ids (
		account_id TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)
`

// Tables created before created_at existed get the column added in place.
const addCreatedAt = `
	ALTER TABLE allowed_account_ids
		ADD COLUMN IF NOT EXISTS created_at TIMESTAMPTZ NOT NULL DEFAULT now()
`

// Store provides Postgres persistence for the allow-list.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

// Ping checks connectivity and creates the allow-list table if missing.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return err
	}
	if _, err := s.pool.Exec(ctx, createTable); err != nil {
		return fmt.Errorf("create table: %w", err)
	}
	if _, err := s.pool.Exec(ctx, addCreatedAt); err != nil {
		return fmt.Errorf("migrate table: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	if s.pool != nil {
		s.pool.Close()
	}
	return nil
}

// List returns all persisted account ids in insertion order.
func (s *Store) List(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT account_id FROM allowed_account_ids ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

func (s *Store) Exists(ctx context.Context, accountID string) (bool, error) {
	var exists bool
	row := s.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM allowed_account_ids WHERE account_id=$1)`, accountID)
	if err := row.Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func (s *Store) Insert(ctx context.Context, accountID string) error {
	_, err := s.pool.Exec(ctx, `INSERT INTO allowed_account_ids (account_id) VALUES ($1)`, accountID)
	return err
}
