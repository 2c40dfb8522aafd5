package storage

import (
	"context"
	"fmt"

	"image-analyzer/internal/config"
	"image-analyzer/internal/repository/image/cloud/minio"
	"image-analyzer/internal/repository/image/cloud/s3"
	"image-analyzer/internal/repository/image/fs"

	"github.com/wb-go/wbf/retry"
	"github.com/wb-go/wbf/zlog"
)

// Gateway is the storage abstraction boundary: save bytes under a key, load
// them back by the returned handle. The pipeline never branches on which
// backend sits behind it.
type Gateway interface {
	Save(ctx context.Context, key string, data []byte, contentType string) (string, error)
	Load(ctx context.Context, path string) ([]byte, error)
	Delete(ctx context.Context, path string) error
}

// New selects the backend from configuration.
func New(ctx context.Context, cfg *config.Config, retries retry.Strategy, logger *zlog.Zerolog) (Gateway, error) {
	switch cfg.Storage.Mode {
	case "local":
		return fs.NewFileRepository(cfg.Storage.Local.Dir)
	case "minio":
		return minio.NewFileRepository(cfg.Storage.Minio, retries, logger)
	case "s3":
		return s3.NewFileRepository(ctx, cfg.Storage.S3)
	default:
		return nil, fmt.Errorf("unknown storage mode %q", cfg.Storage.Mode)
	}
}
