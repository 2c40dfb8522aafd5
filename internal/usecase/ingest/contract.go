package ingest

import (
	"context"

	"image-analyzer/internal/domain"
	"image-analyzer/internal/validation"
)

type recordStore interface {
	Create(ctx context.Context, rec *domain.ImageRecord) error
	GetByID(ctx context.Context, id string) (*domain.ImageRecord, error)
	List(ctx context.Context, limit, offset int) ([]domain.ImageRecord, error)
	Count(ctx context.Context) (int, error)
}

type fileStore interface {
	Save(ctx context.Context, key string, data []byte, contentType string) (string, error)
	Delete(ctx context.Context, path string) error
}

type remoteFetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

type imageValidator interface {
	Validate(data []byte, filename string) (*validation.Result, error)
}

type jobProducer interface {
	Enqueue(ctx context.Context, imageID string) error
}
