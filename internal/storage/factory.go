package storage

import (
	"context"
	"fmt"

	"deview/internal/config"
	"deview/internal/errors"
)

// Open builds the blob store selected by cfg. The "none" driver returns a
// nil store; callers then skip persisting uploads.
func Open(ctx context.Context, cfg config.StorageConfig) (BlobStore, error) {
	switch cfg.Driver {
	case config.StorageLocal:
		store, err := NewLocalBlobStore(cfg.Path)
		if err != nil {
			return nil, errors.StorageError("failed to open local storage", err)
		}
		return store, nil
	case config.StorageS3:
		store, err := NewS3BlobStore(ctx, S3Config{
			Bucket:    cfg.S3.Bucket,
			Region:    cfg.S3.Region,
			Endpoint:  cfg.S3.Endpoint,
			PathStyle: cfg.S3.PathStyle,
		})
		if err != nil {
			return nil, errors.ExternalServiceError("s3", err)
		}
		return store, nil
	case config.StorageNone, "":
		return nil, nil
	default:
		return nil, errors.ConfigInvalid(fmt.Sprintf("unknown storage driver %q", cfg.Driver))
	}
}
