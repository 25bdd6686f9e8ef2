package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// LocalBlobStore implements BlobStore on the local filesystem. Keys map to
// paths below basePath.
type LocalBlobStore struct {
	basePath string
}

// NewLocalBlobStore creates a new local blob store
func NewLocalBlobStore(basePath string) (*LocalBlobStore, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}
	return &LocalBlobStore{basePath: basePath}, nil
}

// Provider returns the storage provider type
func (lbs *LocalBlobStore) Provider() StorageProvider {
	return ProviderLocal
}

// StoreBlob writes r to the key's path through a temporary file so readers
// never observe a partial blob.
func (lbs *LocalBlobStore) StoreBlob(ctx context.Context, key string, r io.Reader, contentType string) (*BlobMetadata, error) {
	if err := validateKey(key); err != nil {
		return nil, err
	}
	filePath := lbs.keyToPath(key)
	dir := filepath.Dir(filePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".upload-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	size, err := io.Copy(tmp, contextReader{ctx: ctx, r: r})
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return nil, fmt.Errorf("failed to write blob %s: %w", key, err)
	}
	if err := os.Rename(tmp.Name(), filePath); err != nil {
		return nil, fmt.Errorf("failed to move blob into place: %w", err)
	}

	stat, err := os.Stat(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat blob: %w", err)
	}
	return &BlobMetadata{
		Key:          key,
		Size:         size,
		ContentType:  contentType,
		LastModified: stat.ModTime(),
		Provider:     ProviderLocal,
	}, nil
}

// GetBlob retrieves data from local filesystem
func (lbs *LocalBlobStore) GetBlob(ctx context.Context, key string) (io.ReadCloser, error) {
	if err := validateKey(key); err != nil {
		return nil, err
	}
	file, err := os.Open(lbs.keyToPath(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrBlobNotFound, key)
		}
		return nil, fmt.Errorf("failed to open blob %s: %w", key, err)
	}
	return file, nil
}

// DeleteBlob removes a blob; deleting a missing key is not an error.
func (lbs *LocalBlobStore) DeleteBlob(ctx context.Context, key string) error {
	if err := validateKey(key); err != nil {
		return err
	}
	if err := os.Remove(lbs.keyToPath(key)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete blob %s: %w", key, err)
	}
	return nil
}

// BlobExists checks if a blob exists
func (lbs *LocalBlobStore) BlobExists(ctx context.Context, key string) (bool, error) {
	if err := validateKey(key); err != nil {
		return false, err
	}
	_, err := os.Stat(lbs.keyToPath(key))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, fmt.Errorf("failed to check blob existence: %w", err)
}

// ListBlobs lists blob keys with the given prefix in lexical order.
func (lbs *LocalBlobStore) ListBlobs(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	err := filepath.WalkDir(lbs.basePath, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || strings.HasPrefix(d.Name(), ".upload-") {
			return nil
		}
		rel, err := filepath.Rel(lbs.basePath, p)
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list blobs: %w", err)
	}
	sort.Strings(keys)
	return keys, nil
}

func (lbs *LocalBlobStore) keyToPath(key string) string {
	return filepath.Join(lbs.basePath, filepath.FromSlash(key))
}

// contextReader stops a copy once ctx is done.
type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (c contextReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
