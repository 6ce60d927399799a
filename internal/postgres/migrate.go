package postgres

import (
	"context"
	"embed"
	"io/fs"
	"sort"

	ierr "github.com/flexprice/ispbilling/internal/errors"
	"github.com/samber/lo"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// Migrate applies every embedded migration that is not yet recorded in
// schema_migrations, each inside its own transaction.
func (db *DB) Migrate(ctx context.Context) ([]string, error) {
	pending, err := db.PendingMigrations(ctx)
	if err != nil {
		return nil, err
	}

	var applied []string
	for _, name := range pending {
		body, err := migrationFS.ReadFile(name)
		if err != nil {
			return applied, ierr.WithError(err).
				WithHintf("Failed to read migration %s", name).
				Mark(ierr.ErrSystem)
		}

		err = db.WithTx(ctx, func(ctx context.Context) error {
			q := db.GetQuerier(ctx)
			if _, err := q.ExecContext(ctx, string(body)); err != nil {
				return ClassifyError(err, "Failed to apply migration "+name)
			}
			if _, err := q.ExecContext(ctx, `INSERT INTO schema_migrations (version) VALUES ($1)`, name); err != nil {
				return ClassifyError(err, "Failed to record migration "+name)
			}
			return nil
		})
		if err != nil {
			return applied, err
		}

		db.logger.Infow("applied migration", "version", name)
		applied = append(applied, name)
	}
	return applied, nil
}

// PendingMigrations lists the embedded migrations not yet applied, in order
func (db *DB) PendingMigrations(ctx context.Context) ([]string, error) {
	if _, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version    VARCHAR(255) PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`); err != nil {
		return nil, ClassifyError(err, "Failed to create schema_migrations table")
	}

	names, err := fs.Glob(migrationFS, "migrations/*.sql")
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to list embedded migrations").
			Mark(ierr.ErrSystem)
	}
	sort.Strings(names)

	var applied []string
	if err := db.SelectContext(ctx, &applied, `SELECT version FROM schema_migrations`); err != nil {
		return nil, ClassifyError(err, "Failed to read migration state")
	}

	return lo.Without(names, applied...), nil
}

// MigrationSQL returns the body of an embedded migration
func MigrationSQL(name string) (string, error) {
	body, err := migrationFS.ReadFile(name)
	if err != nil {
		return "", ierr.WithError(err).
			WithHintf("Failed to read migration %s", name).
			Mark(ierr.ErrSystem)
	}
	return string(body), nil
}
