// Package upload describes a results file a user has loaded, as recorded in
// the upload catalog.
package upload

import (
	"time"

	"deview/domain/core"
)

// Upload is the provenance record of one stored results file.
type Upload struct {
	ID         core.UploadID  `db:"id" json:"id"`
	SessionID  core.SessionID `db:"session_id" json:"-"`
	Name       string         `db:"name" json:"name"`
	StorageKey string         `db:"storage_key" json:"storage_key"`
	Hash       core.Hash      `db:"content_hash" json:"content_hash"`
	Size       int64          `db:"size_bytes" json:"size_bytes"`
	Rows       int            `db:"row_count" json:"row_count"`
	CreatedAt  time.Time      `db:"created_at" json:"created_at"`
}

// New builds a record for content just parsed into a table of rows rows.
func New(session core.SessionID, name, key string, content []byte, rows int) *Upload {
	return &Upload{
		ID:         core.UploadID(core.NewID()),
		SessionID:  session,
		Name:       name,
		StorageKey: key,
		Hash:       core.NewHash(content),
		Size:       int64(len(content)),
		Rows:       rows,
		CreatedAt:  time.Now().UTC(),
	}
}
