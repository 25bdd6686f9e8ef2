// Package storage keeps uploaded results files so a session can reopen them.
// Only input files are stored; views and plots are always recomputed.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"deview/domain/core"
)

// StorageProvider represents different storage backends
type StorageProvider string

const (
	ProviderLocal StorageProvider = "local"
	ProviderS3    StorageProvider = "s3"
)

// ErrBlobNotFound is returned when a key has no stored object.
var ErrBlobNotFound = errors.New("blob not found")

// BlobStore is the interface for blob storage operations, implemented over
// the local filesystem and S3.
type BlobStore interface {
	StoreBlob(ctx context.Context, key string, r io.Reader, contentType string) (*BlobMetadata, error)
	GetBlob(ctx context.Context, key string) (io.ReadCloser, error)
	DeleteBlob(ctx context.Context, key string) error
	BlobExists(ctx context.Context, key string) (bool, error)
	ListBlobs(ctx context.Context, prefix string) ([]string, error)
	Provider() StorageProvider
}

// BlobMetadata represents metadata for stored blobs
type BlobMetadata struct {
	Key          string          `json:"key"`
	Size         int64           `json:"size"`
	ContentType  string          `json:"content_type"`
	ETag         string          `json:"etag,omitempty"`
	LastModified time.Time       `json:"last_modified"`
	Provider     StorageProvider `json:"provider"`
}

// UploadPrefix is the key prefix shared by every stored upload.
const UploadPrefix = "uploads/"

// UploadKey is the object key of an uploaded results file:
// uploads/<upload id>/<base name>.
func UploadKey(id core.UploadID, name string) string {
	return path.Join("uploads", id.String(), sanitizeName(name))
}

func sanitizeName(name string) string {
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	out := strings.Trim(b.String(), ".")
	if out == "" {
		return "results"
	}
	return out
}

func validateKey(key string) error {
	if key == "" || strings.HasPrefix(key, "/") {
		return fmt.Errorf("invalid blob key %q", key)
	}
	for _, part := range strings.Split(key, "/") {
		if part == ".." {
			return fmt.Errorf("invalid blob key %q", key)
		}
	}
	return nil
}
