package rangecache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/HerbHall/rangeping/internal/store"
)

// Compile-time interface guard.
var _ KV = (*SQLiteKV)(nil)

// SQLiteKV stores cache entries in the range_cache table.
type SQLiteKV struct {
	db *sql.DB
}

// NewSQLiteKV creates a KV on s and runs the range_cache migrations.
func NewSQLiteKV(ctx context.Context, s *store.SQLiteStore) (*SQLiteKV, error) {
	if err := s.Migrate(ctx, "rangecache", migrations); err != nil {
		return nil, fmt.Errorf("rangecache migrations: %w", err)
	}
	return &SQLiteKV{db: s.DB()}, nil
}

func (k *SQLiteKV) Get(ctx context.Context, key string) ([]byte, error) {
	var value string
	err := k.db.QueryRowContext(ctx,
		`SELECT value FROM range_cache WHERE identifier = ?`, key,
	).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get %q: %w", key, err)
	}
	return []byte(value), nil
}

func (k *SQLiteKV) Put(ctx context.Context, key string, value []byte) error {
	_, err := k.db.ExecContext(ctx, `
		INSERT INTO range_cache (identifier, value, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT (identifier) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, string(value), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("put %q: %w", key, err)
	}
	return nil
}

// Keys lists every stored identifier in sorted order.
func (k *SQLiteKV) Keys(ctx context.Context) ([]string, error) {
	rows, err := k.db.QueryContext(ctx, `SELECT identifier FROM range_cache ORDER BY identifier`)
	if err != nil {
		return nil, fmt.Errorf("list identifiers: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan identifier: %w", err)
		}
		keys = append(keys, id)
	}
	return keys, rows.Err()
}

var migrations = []store.Migration{
	{
		Version:     1,
		Description: "create range_cache table",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`
				CREATE TABLE range_cache (
					identifier TEXT PRIMARY KEY,
					value      TEXT NOT NULL,
					updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
				)`)
			return err
		},
	},
}
