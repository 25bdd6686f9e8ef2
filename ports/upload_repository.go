package ports

import (
	"context"

	"deview/domain/core"
	"deview/domain/upload"
)

// UploadRepository defines the interface for upload catalog operations
type UploadRepository interface {
	Create(ctx context.Context, u *upload.Upload) error
	GetByID(ctx context.Context, id core.UploadID) (*upload.Upload, error)
	// FindByHash returns the most recent upload with identical content.
	FindByHash(ctx context.Context, hash core.Hash) (*upload.Upload, error)
	// ListRecent returns uploads newest first; ListBySession restricts them to one session.
	ListRecent(ctx context.Context, limit int) ([]*upload.Upload, error)
	ListBySession(ctx context.Context, session core.SessionID, limit int) ([]*upload.Upload, error)
	Delete(ctx context.Context, id core.UploadID) error
}
