package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/pkordes/pueblos-core/internal/config"
	"github.com/pkordes/pueblos-core/internal/repo"
)

// openStore opens the configured durable key-value store, applying
// migrations first, and returns it with a function that releases it.
func openStore(ctx context.Context, cfg config.Config, log *slog.Logger) (repo.KVStore, func(), error) {
	switch cfg.StorageDriver {
	case config.StorageMemory:
		log.Warn("using in-memory storage; cart and notification marker are not persisted")
		return repo.NewMemoryKV(), func() {}, nil

	case config.StoragePostgres:
		// pgxpool.New does not open connections immediately; Ping does.
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("create database pool: %w", err)
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("connect to database: %w", err)
		}

		// goose drives database/sql, so run migrations over a *sql.DB view
		// of the same pool.
		sqlDB := stdlib.OpenDBFromPool(pool)
		err = repo.Migrate(ctx, sqlDB, goose.DialectPostgres)
		sqlDB.Close()
		if err != nil {
			pool.Close()
			return nil, nil, err
		}
		log.Info("database connection established", "driver", cfg.StorageDriver)
		return repo.NewPostgresKV(pool), pool.Close, nil

	default:
		if dir := filepath.Dir(cfg.StoragePath); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, nil, fmt.Errorf("create storage directory: %w", err)
			}
		}
		db, err := repo.OpenSQLite(ctx, cfg.StoragePath)
		if err != nil {
			return nil, nil, err
		}
		log.Info("database opened", "driver", cfg.StorageDriver, "path", cfg.StoragePath)
		return repo.NewSQLiteKV(db), func() { db.Close() }, nil
	}
}
