package db

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/geocoder89/tasklist/internal/db/migrations"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

// MigratePostgres applies the embedded postgres migrations through a
// database/sql view of the pool.
func MigratePostgres(ctx context.Context, pool *pgxpool.Pool, log *slog.Logger) error {
	sqlDB := stdlib.OpenDBFromPool(pool)
	defer sqlDB.Close()

	return migrate(ctx, goose.DialectPostgres, sqlDB, migrations.Postgres, "postgres", log)
}

func MigrateSQLite(ctx context.Context, sqlDB *sql.DB, log *slog.Logger) error {
	return migrate(ctx, goose.DialectSQLite3, sqlDB, migrations.SQLite, "sqlite", log)
}

func migrate(ctx context.Context, dialect goose.Dialect, sqlDB *sql.DB, fsys fs.FS, dir string, log *slog.Logger) error {
	sub, err := fs.Sub(fsys, dir)

	if err != nil {
		return fmt.Errorf("migrations fs: %w", err)
	}

	// a provider keeps dialect and fs local instead of goose's package globals
	provider, err := goose.NewProvider(dialect, sqlDB, sub)

	if err != nil {
		return fmt.Errorf("goose provider: %w", err)
	}

	results, err := provider.Up(ctx)

	if err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}

	for _, r := range results {
		log.Info("migration applied", "dialect", string(dialect), "version", r.Source.Version, "duration", r.Duration)
	}

	return nil
}
