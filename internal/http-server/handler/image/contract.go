package image

import (
	"context"

	"image-analyzer/internal/domain"
)

type ingestUsecase interface {
	IngestFile(ctx context.Context, data []byte, filename string) (*domain.ImageRecord, error)
	IngestURL(ctx context.Context, url string) (*domain.ImageRecord, error)
	GetImage(ctx context.Context, id string) (*domain.ImageRecord, error)
	ListImages(ctx context.Context, limit, offset int) ([]domain.ImageRecord, int, error)
}
