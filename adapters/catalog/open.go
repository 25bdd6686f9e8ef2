// Package catalog records uploaded results files so they can be listed and
// reopened. Postgres (lib/pq) and embedded sqlite back it when DATABASE_URL
// is set; otherwise an in-memory repository is used.
package catalog

import (
	"context"
	"log"

	"deview/internal/config"
	"deview/internal/errors"
	"deview/internal/migration"
	"deview/ports"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Catalog bundles the repository with the connection it owns.
type Catalog struct {
	Uploads ports.UploadRepository
	Driver  string
	db      *sqlx.DB
}

// Open connects to the configured database, runs migrations and returns the
// catalog. The memory driver needs no connection.
func Open(ctx context.Context, cfg config.DatabaseConfig) (*Catalog, error) {
	if cfg.Driver == "" || cfg.Driver == config.DriverMemory {
		return &Catalog{Uploads: NewMemoryRepository(), Driver: config.DriverMemory}, nil
	}

	db, err := sqlx.ConnectContext(ctx, cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, errors.DatabaseError("failed to connect to catalog database", err)
	}
	if cfg.Driver == config.DriverSQLite {
		// sqlite allows a single writer.
		db.SetMaxOpenConns(1)
	}

	if err := migration.NewRunner(cfg.Driver).Run(ctx, db); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to migrate catalog database")
	}
	log.Printf("[Catalog] Connected to %s catalog", cfg.Driver)

	return &Catalog{Uploads: NewUploadRepository(db), Driver: cfg.Driver, db: db}, nil
}

// Ping checks the database connection; the memory catalog is always healthy.
func (c *Catalog) Ping(ctx context.Context) error {
	if c.db == nil {
		return nil
	}
	return c.db.PingContext(ctx)
}

// Close releases the database connection if there is one.
func (c *Catalog) Close() error {
	if c.db == nil {
		return nil
	}
	return c.db.Close()
}
