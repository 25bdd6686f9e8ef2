package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"deview/domain/core"
	"deview/domain/upload"
	"deview/ports"

	"github.com/jmoiron/sqlx"
)

const uploadColumns = `id, session_id, name, storage_key, content_hash, size_bytes, row_count, created_at`

// uploadRepository implements ports.UploadRepository over sqlx. Queries use
// ? placeholders and are rebound for the connected driver.
type uploadRepository struct {
	db *sqlx.DB
}

// NewUploadRepository creates a new sql-backed upload repository
func NewUploadRepository(db *sqlx.DB) ports.UploadRepository {
	return &uploadRepository{db: db}
}

// Create inserts a new upload record
func (r *uploadRepository) Create(ctx context.Context, u *upload.Upload) error {
	query := `INSERT INTO uploads (` + uploadColumns + `) VALUES (
		:id, :session_id, :name, :storage_key, :content_hash, :size_bytes, :row_count, :created_at
	)`
	if _, err := r.db.NamedExecContext(ctx, query, u); err != nil {
		return fmt.Errorf("failed to create upload: %w", err)
	}
	return nil
}

// GetByID retrieves an upload by its ID
func (r *uploadRepository) GetByID(ctx context.Context, id core.UploadID) (*upload.Upload, error) {
	var u upload.Upload
	query := r.db.Rebind(`SELECT ` + uploadColumns + ` FROM uploads WHERE id = ?`)
	if err := r.db.GetContext(ctx, &u, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", core.ErrUploadNotFound, id)
		}
		return nil, fmt.Errorf("failed to get upload: %w", err)
	}
	return &u, nil
}

// FindByHash returns the newest upload with the given content hash
func (r *uploadRepository) FindByHash(ctx context.Context, hash core.Hash) (*upload.Upload, error) {
	var u upload.Upload
	query := r.db.Rebind(`SELECT ` + uploadColumns + ` FROM uploads WHERE content_hash = ? ORDER BY created_at DESC LIMIT 1`)
	if err := r.db.GetContext(ctx, &u, query, hash); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: hash %s", core.ErrUploadNotFound, hash.Short())
		}
		return nil, fmt.Errorf("failed to find upload by hash: %w", err)
	}
	return &u, nil
}

// ListRecent returns the newest uploads across all sessions
func (r *uploadRepository) ListRecent(ctx context.Context, limit int) ([]*upload.Upload, error) {
	uploads := []*upload.Upload{}
	query := r.db.Rebind(`SELECT ` + uploadColumns + ` FROM uploads ORDER BY created_at DESC, id DESC LIMIT ?`)
	if err := r.db.SelectContext(ctx, &uploads, query, normalizeLimit(limit)); err != nil {
		return nil, fmt.Errorf("failed to list uploads: %w", err)
	}
	return uploads, nil
}

// ListBySession returns the newest uploads of one session
func (r *uploadRepository) ListBySession(ctx context.Context, session core.SessionID, limit int) ([]*upload.Upload, error) {
	uploads := []*upload.Upload{}
	query := r.db.Rebind(`SELECT ` + uploadColumns + ` FROM uploads WHERE session_id = ? ORDER BY created_at DESC, id DESC LIMIT ?`)
	if err := r.db.SelectContext(ctx, &uploads, query, session, normalizeLimit(limit)); err != nil {
		return nil, fmt.Errorf("failed to list session uploads: %w", err)
	}
	return uploads, nil
}

// Delete removes an upload record
func (r *uploadRepository) Delete(ctx context.Context, id core.UploadID) error {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM uploads WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("failed to delete upload: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", core.ErrUploadNotFound, id)
	}
	return nil
}

// DefaultListLimit caps listings when the caller passes no limit.
const DefaultListLimit = 50

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultListLimit
	}
	return limit
}
