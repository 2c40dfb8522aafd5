package analysis

import (
	"context"

	"image-analyzer/internal/domain"
)

type recordStore interface {
	GetByID(ctx context.Context, id string) (*domain.ImageRecord, error)
	MarkProcessing(ctx context.Context, id string) error
	CompleteAnalysis(ctx context.Context, id string, res *domain.AnalysisResult) error
	MarkFailed(ctx context.Context, id string, msg string) error
	ListEmbeddings(ctx context.Context, excludeID string, limit int) ([]domain.EmbeddingRef, error)
}

type fileStore interface {
	Load(ctx context.Context, path string) ([]byte, error)
}
