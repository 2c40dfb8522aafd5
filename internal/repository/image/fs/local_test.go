package fs

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"testing"

	repoimage "image-analyzer/internal/repository/image"
)

func newTestRepo(t *testing.T) *FileRepository {
	t.Helper()

	repo, err := NewFileRepository(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileRepository() error = %v", err)
	}
	return repo
}

func TestSaveAndLoad(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	path, err := repo.Save(ctx, "abc123.png", []byte("payload"), "image/png")
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if path != "abc123.png" {
		t.Errorf("Save() path = %q, want %q", path, "abc123.png")
	}

	data, err := repo.Load(ctx, path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !bytes.Equal(data, []byte("payload")) {
		t.Errorf("Load() = %q, want %q", data, "payload")
	}
}

func TestSaveOverwrites(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	if _, err := repo.Save(ctx, "abc123.png", []byte("first"), "image/png"); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if _, err := repo.Save(ctx, "abc123.png", []byte("second"), "image/png"); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	data, err := repo.Load(ctx, "abc123.png")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if string(data) != "second" {
		t.Errorf("Load() = %q, want %q", data, "second")
	}
}

func TestLoadMissing(t *testing.T) {
	repo := newTestRepo(t)

	_, err := repo.Load(context.Background(), "nope.png")
	if !errors.Is(err, repoimage.ErrFileNotFound) {
		t.Fatalf("Load() error = %v, want ErrFileNotFound", err)
	}
}

func TestDeleteIsIdempotent(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	if _, err := repo.Save(ctx, "abc123.png", []byte("payload"), "image/png"); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if err := repo.Delete(ctx, "abc123.png"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := repo.Delete(ctx, "abc123.png"); err != nil {
		t.Fatalf("Delete() second call error = %v", err)
	}

	if _, err := repo.Load(ctx, "abc123.png"); !errors.Is(err, repoimage.ErrFileNotFound) {
		t.Fatalf("Load() after delete error = %v, want ErrFileNotFound", err)
	}
}

func TestKeyIsSanitized(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	// Traversal components are stripped; only the base name is used.
	path, err := repo.Save(ctx, "../../etc/abc123.png", []byte("payload"), "image/png")
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if path != "abc123.png" {
		t.Errorf("Save() path = %q, want %q", path, "abc123.png")
	}
	if filepath.Dir(path) != "." {
		t.Errorf("Save() path escapes the base dir: %q", path)
	}
}
