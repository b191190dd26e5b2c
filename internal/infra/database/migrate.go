package database

import (
	"context"
	"fmt"
	"io/fs"
	"sort"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
)

// migrationLockID is the advisory lock key serialising concurrent migrators.
const migrationLockID int64 = 0x6361645f6d6967

const bootstrapSQL = `CREATE SCHEMA IF NOT EXISTS cad;
CREATE TABLE IF NOT EXISTS cad.schema_migrations (
    version    TEXT PRIMARY KEY,
    applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// MigrationDB is the subset of *pgxpool.Pool the migrator needs.
type MigrationDB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Migrate applies every *.sql file of files in lexical order, each in its own
// transaction. Versions already recorded in cad.schema_migrations are skipped.
// It returns the versions applied by this call.
func Migrate(ctx context.Context, db MigrationDB, files fs.FS, log *zap.Logger) ([]string, error) {
	if log == nil {
		log = zap.NewNop()
	}

	names, err := fs.Glob(files, "*.sql")
	if err != nil {
		return nil, fmt.Errorf("list migrations: %w", err)
	}
	sort.Strings(names)

	if _, err := db.Exec(ctx, bootstrapSQL); err != nil {
		return nil, fmt.Errorf("prepare migration table: %w", err)
	}

	var applied []string
	for _, name := range names {
		body, err := fs.ReadFile(files, name)
		if err != nil {
			return applied, fmt.Errorf("read migration %s: %w", name, err)
		}

		ran, err := applyMigration(ctx, db, name, string(body))
		if err != nil {
			return applied, err
		}
		if ran {
			log.Info("migration applied", zap.String("version", name))
			applied = append(applied, name)
		}
	}
	return applied, nil
}

func applyMigration(ctx context.Context, db MigrationDB, version, body string) (bool, error) {
	tx, err := db.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("begin migration %s: %w", version, err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, "SELECT pg_advisory_xact_lock($1)", migrationLockID); err != nil {
		return false, fmt.Errorf("lock migrations: %w", err)
	}

	tag, err := tx.Exec(ctx,
		"INSERT INTO cad.schema_migrations (version) VALUES ($1) ON CONFLICT (version) DO NOTHING", version)
	if err != nil {
		return false, fmt.Errorf("record migration %s: %w", version, err)
	}
	if tag.RowsAffected() == 0 {
		return false, nil
	}

	if _, err := tx.Exec(ctx, body); err != nil {
		return false, fmt.Errorf("apply migration %s: %w", version, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("commit migration %s: %w", version, err)
	}
	return true, nil
}
