package mysql

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/go-sql-driver/mysql"
)

const createTable = `
	CREATE TABLE IF NOT EXISTS allowed_account_ids (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		account_id VARCHAR(128) NOT NULL,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)
`

// Store keeps the allow-list in a MySQL table.
type Store struct {
	db *sql.DB
}

func NewStore(dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("mysql dsn is required")
	}
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open mysql connection: %w", err)
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	return &Store{db: db}, nil
}

// Ping checks connectivity and creates the allow-list table if missing.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, createTable); err != nil {
		return fmt.Errorf("create table: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) List(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT account_id FROM allowed_account_ids ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *Store) Exists(ctx context.Context, accountID string) (bool, error) {
	var exists bool
	row := s.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM allowed_account_ids WHERE account_id = ?)`, accountID)
	if err := row.Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func (s *Store) Insert(ctx context.Context, accountID string) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO allowed_account_ids (account_id) VALUES (?)`, accountID)
	return err
}
