package blob

import (
	"context"
	"fmt"

	"deckhistory/internal/config"
	fsstore "deckhistory/internal/infra/blob/fs"
	memorystore "deckhistory/internal/infra/blob/memory"
	s3store "deckhistory/internal/infra/blob/s3"
)

// Open builds the artifact store selected by cfg.Driver (memory, fs or s3).
func Open(ctx context.Context, cfg config.BlobConfig) (Store, error) {
	switch Driver(cfg.Driver) {
	case "", DriverMemory:
		return memorystore.New(), nil
	case DriverFilesystem:
		return fsstore.New(cfg.FSRoot)
	case DriverS3:
		return s3store.New(ctx, s3store.Config{
			Bucket:          cfg.S3.Bucket,
			Region:          cfg.S3.Region,
			Endpoint:        cfg.S3.Endpoint,
			PathStyle:       cfg.S3.PathStyle,
			AccessKeyID:     cfg.S3.AccessKeyID,
			SecretAccessKey: cfg.S3.SecretAccessKey,
		})
	default:
		return nil, fmt.Errorf("unknown blob driver %s", cfg.Driver)
	}
}

// NewMemory returns an in-memory Store.
func NewMemory() Store { return memorystore.New() }
