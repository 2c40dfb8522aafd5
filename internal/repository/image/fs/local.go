package fs

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	repoimage "image-analyzer/internal/repository/image"
)

// FileRepository stores raw image bytes on the local filesystem, for
// single-node deployments and tests. The location handle is the key
// relative to the base directory.
type FileRepository struct {
	dir string
}

func NewFileRepository(dir string) (*FileRepository, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage dir %q: %w", dir, err)
	}
	return &FileRepository{dir: dir}, nil
}

// Save writes the bytes under key, overwriting any previous object at the
// same key.
func (r *FileRepository) Save(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	path := filepath.Join(r.dir, filepath.Base(key))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("%w: failed to write %q: %v", repoimage.ErrStorageError, key, err)
	}
	return filepath.Base(key), nil
}

func (r *FileRepository) Load(ctx context.Context, path string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(r.dir, filepath.Base(path)))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", repoimage.ErrFileNotFound, path)
		}
		return nil, fmt.Errorf("%w: failed to read %q: %v", repoimage.ErrStorageError, path, err)
	}
	return data, nil
}

func (r *FileRepository) Delete(ctx context.Context, path string) error {
	if err := os.Remove(filepath.Join(r.dir, filepath.Base(path))); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("%w: failed to delete %q: %v", repoimage.ErrStorageError, path, err)
	}
	return nil
}
