package migration

import (
	"context"

	"deview/internal/errors"

	"github.com/jmoiron/sqlx"
)

// Migrator defines the interface for database migration operations
type Migrator interface {
	Run(ctx context.Context, db *sqlx.DB) error
	Version() string
}

// MigrationRunner creates the upload catalog schema. Statements are
// idempotent and written for both postgres and sqlite.
type MigrationRunner struct {
	version string
	driver  string
}

// NewRunner creates a new migration runner for the named sql driver.
func NewRunner(driver string) *MigrationRunner {
	return &MigrationRunner{version: "1.0.0", driver: driver}
}

// Version returns the migration version
func (r *MigrationRunner) Version() string {
	return r.version
}

// Run executes all database migrations in the correct order
func (r *MigrationRunner) Run(ctx context.Context, db *sqlx.DB) error {
	if err := r.createUploadsTable(ctx, db); err != nil {
		return errors.DatabaseError("failed to create uploads table", err)
	}
	if err := r.createIndexes(ctx, db); err != nil {
		return errors.DatabaseError("failed to create indexes", err)
	}
	return nil
}

func (r *MigrationRunner) timestampType() string {
	if r.driver == "postgres" {
		return "TIMESTAMP WITH TIME ZONE"
	}
	return "TIMESTAMP"
}

func (r *MigrationRunner) createUploadsTable(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS uploads (
			id VARCHAR(64) PRIMARY KEY,
			session_id VARCHAR(64) NOT NULL,
			name TEXT NOT NULL,
			storage_key TEXT NOT NULL DEFAULT '',
			content_hash VARCHAR(64) NOT NULL,
			size_bytes BIGINT NOT NULL DEFAULT 0,
			row_count INTEGER NOT NULL DEFAULT 0,
			created_at `+r.timestampType()+` NOT NULL
		)
	`)
	return err
}

func (r *MigrationRunner) createIndexes(ctx context.Context, db *sqlx.DB) error {
	for _, stmt := range []string{
		`CREATE INDEX IF NOT EXISTS idx_uploads_session ON uploads(session_id, created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_uploads_hash ON uploads(content_hash)`,
		`CREATE INDEX IF NOT EXISTS idx_uploads_created ON uploads(created_at)`,
	} {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
