package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite" // registers the pure-Go "sqlite" driver

	"github.com/pkordes/pueblos-core/internal/domain"
)

// sqliteKVStore is the SQLite implementation of KVStore.
type sqliteKVStore struct {
	db *sql.DB
}

// NewSQLiteKV constructs a KVStore backed by an already-migrated SQLite database.
func NewSQLiteKV(db *sql.DB) KVStore {
	return &sqliteKVStore{db: db}
}

// OpenSQLite opens or creates the SQLite database at path and applies all
// pending migrations. Pass ":memory:" for a throwaway database.
func OpenSQLite(ctx context.Context, path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("repo.OpenSQLite: open: %w", err)
	}
	// SQLite serialises writers; one connection avoids SQLITE_BUSY and keeps
	// ":memory:" databases from splitting across connections.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("repo.OpenSQLite: ping: %w", err)
	}
	if _, err := db.ExecContext(ctx, `PRAGMA journal_mode = WAL`); err != nil {
		db.Close()
		return nil, fmt.Errorf("repo.OpenSQLite: journal mode: %w", err)
	}
	if err := Migrate(ctx, db, goose.DialectSQLite3); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func (r *sqliteKVStore) Get(ctx context.Context, key string) (string, error) {
	const q = `SELECT value FROM kv_entries WHERE storage_key = ?`

	var value string
	err := r.db.QueryRowContext(ctx, q, key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", fmt.Errorf("repo.sqliteKVStore.Get: %q: %w", key, domain.ErrNotFound)
		}
		return "", fmt.Errorf("repo.sqliteKVStore.Get: %w", err)
	}
	return value, nil
}

func (r *sqliteKVStore) Set(ctx context.Context, key, value string) error {
	const q = `
		INSERT INTO kv_entries (storage_key, value, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT (storage_key) DO UPDATE
		SET value = excluded.value, updated_at = CURRENT_TIMESTAMP`

	if _, err := r.db.ExecContext(ctx, q, key, value); err != nil {
		return fmt.Errorf("repo.sqliteKVStore.Set: %w", err)
	}
	return nil
}

func (r *sqliteKVStore) Remove(ctx context.Context, key string) error {
	const q = `DELETE FROM kv_entries WHERE storage_key = ?`

	if _, err := r.db.ExecContext(ctx, q, key); err != nil {
		return fmt.Errorf("repo.sqliteKVStore.Remove: %w", err)
	}
	return nil
}
