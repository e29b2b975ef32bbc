package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/pkordes/pueblos-core/internal/domain"
)

// db is the minimal interface satisfied by *pgxpool.Pool, pgx.Conn, and pgx.Tx.
// Accepting this interface instead of *pgxpool.Pool directly allows integration
// tests to pass a transaction that is rolled back after each test.
type db interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// pgKVStore is the Postgres implementation of KVStore.
type pgKVStore struct {
	db db
}

// NewPostgresKV constructs a KVStore backed by the provided db connection.
// In production pass *pgxpool.Pool; in tests pass a pgx.Tx for rollback isolation.
func NewPostgresKV(db db) KVStore {
	return &pgKVStore{db: db}
}

func (r *pgKVStore) Get(ctx context.Context, key string) (string, error) {
	const q = `SELECT value FROM kv_entries WHERE storage_key = @key`

	var value string
	err := r.db.QueryRow(ctx, q, pgx.NamedArgs{"key": key}).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", fmt.Errorf("repo.pgKVStore.Get: %q: %w", key, domain.ErrNotFound)
		}
		return "", fmt.Errorf("repo.pgKVStore.Get: %w", err)
	}
	return value, nil
}

// Set upserts the row; updated_at tracks the last write for diagnostics.
func (r *pgKVStore) Set(ctx context.Context, key, value string) error {
	const q = `
		INSERT INTO kv_entries (storage_key, value, updated_at)
		VALUES (@key, @value, now())
		ON CONFLICT (storage_key) DO UPDATE
		SET value = EXCLUDED.value, updated_at = now()`

	if _, err := r.db.Exec(ctx, q, pgx.NamedArgs{"key": key, "value": value}); err != nil {
		return fmt.Errorf("repo.pgKVStore.Set: %w", err)
	}
	return nil
}

func (r *pgKVStore) Remove(ctx context.Context, key string) error {
	const q = `DELETE FROM kv_entries WHERE storage_key = @key`

	if _, err := r.db.Exec(ctx, q, pgx.NamedArgs{"key": key}); err != nil {
		return fmt.Errorf("repo.pgKVStore.Remove: %w", err)
	}
	return nil
}
