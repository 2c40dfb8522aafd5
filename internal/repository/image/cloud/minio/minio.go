package minio

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"image-analyzer/internal/config"
	repoimage "image-analyzer/internal/repository/image"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/wb-go/wbf/retry"
	"github.com/wb-go/wbf/zlog"
)

// FileRepository stores raw image bytes in a MinIO bucket. Saves are
// idempotent per key: PutObject overwrites an existing object.
type FileRepository struct {
	client  *minio.Client
	bucket  string
	retries retry.Strategy
	logger  *zlog.Zerolog
}

func NewFileRepository(cfg config.MinioConfig, retries retry.Strategy, logger *zlog.Zerolog) (*FileRepository, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	repo := &FileRepository{
		client:  client,
		bucket:  cfg.Bucket,
		retries: retries,
		logger:  logger,
	}

	if err := repo.ensureBucket(context.Background()); err != nil {
		return nil, err
	}

	return repo, nil
}

func (r *FileRepository) ensureBucket(ctx context.Context) error {
	exists, err := r.client.BucketExists(ctx, r.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket %q: %w", r.bucket, err)
	}
	if exists {
		return nil
	}

	if err := r.client.MakeBucket(ctx, r.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("failed to create bucket %q: %w", r.bucket, err)
	}

	r.logger.Info().Str("bucket", r.bucket).Msg("Created storage bucket")
	return nil
}

func (r *FileRepository) Save(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	_, err := r.client.PutObject(ctx, r.bucket, key, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return "", fmt.Errorf("%w: failed to save object %q: %v", repoimage.ErrStorageError, key, err)
	}

	return key, nil
}

func (r *FileRepository) Load(ctx context.Context, path string) ([]byte, error) {
	obj, err := r.client.GetObject(ctx, r.bucket, path, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to get object %q: %v", repoimage.ErrStorageError, path, err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		// GetObject defers the existence check to the first read.
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, fmt.Errorf("%w: %s", repoimage.ErrFileNotFound, path)
		}
		return nil, fmt.Errorf("%w: failed to read object %q: %v", repoimage.ErrStorageError, path, err)
	}

	return data, nil
}

func (r *FileRepository) Delete(ctx context.Context, path string) error {
	if err := r.client.RemoveObject(ctx, r.bucket, path, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("%w: failed to delete object %q: %v", repoimage.ErrStorageError, path, err)
	}
	return nil
}
