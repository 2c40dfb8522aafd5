package ingest

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"path"
	"time"

	"image-analyzer/internal/domain"
	"image-analyzer/internal/fetcher"
	"image-analyzer/internal/validation"

	"github.com/google/uuid"
	"github.com/wb-go/wbf/zlog"
)

// Service orchestrates upload-or-fetch -> validate -> store -> create record
// -> enqueue as one operation from the caller's point of view. Rejected
// uploads leave no partial state behind.
type Service struct {
	records   recordStore
	files     fileStore
	fetcher   remoteFetcher
	validator imageValidator
	producer  jobProducer
	logger    *zlog.Zerolog
}

func NewService(records recordStore, files fileStore, f remoteFetcher, v imageValidator, producer jobProducer, logger *zlog.Zerolog) *Service {
	return &Service{
		records:   records,
		files:     files,
		fetcher:   f,
		validator: v,
		producer:  producer,
		logger:    logger,
	}
}

func (s *Service) IngestFile(ctx context.Context, data []byte, filename string) (*domain.ImageRecord, error) {
	return s.ingest(ctx, data, filename, domain.MethodFile, nil)
}

func (s *Service) IngestURL(ctx context.Context, rawURL string) (*domain.ImageRecord, error) {
	data, err := s.fetcher.Fetch(ctx, rawURL)
	if err != nil {
		if errors.Is(err, fetcher.ErrUnsafeURL) || errors.Is(err, fetcher.ErrRedirectBlocked) {
			return nil, &RejectionError{Problems: []string{err.Error()}}
		}
		return nil, fmt.Errorf("failed to fetch remote image: %w", err)
	}

	return s.ingest(ctx, data, filenameFromURL(rawURL), domain.MethodURL, &rawURL)
}

func (s *Service) ingest(ctx context.Context, data []byte, filename string, method domain.UploadMethod, sourceURL *string) (*domain.ImageRecord, error) {
	res, err := s.validator.Validate(data, filename)
	if err != nil {
		if errors.Is(err, validation.ErrUndecodable) {
			return nil, &RejectionError{Problems: []string{err.Error()}}
		}
		return nil, fmt.Errorf("validation failed: %w", err)
	}
	if !res.Valid() {
		return nil, &RejectionError{Problems: res.Problems}
	}

	// Storage write precedes record creation so a record never points at
	// bytes that do not exist.
	key := uuid.New().String() + "." + res.Format
	storagePath, err := s.files.Save(ctx, key, data, "image/"+res.Format)
	if err != nil {
		return nil, fmt.Errorf("failed to store image: %w", err)
	}

	now := time.Now()
	rec := &domain.ImageRecord{
		ID:                 uuid.New().String(),
		Filename:           filename,
		SourceURL:          sourceURL,
		UploadMethod:       method,
		StoragePath:        storagePath,
		SizeBytes:          res.SizeBytes,
		Width:              res.Width,
		Height:             res.Height,
		Format:             res.Format,
		AspectRatio:        res.AspectRatio,
		Status:             domain.StatusPending,
		ValidationPassed:   true,
		ValidationWarnings: res.Warnings,
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	if err := s.records.Create(ctx, rec); err != nil {
		if delErr := s.files.Delete(ctx, storagePath); delErr != nil {
			s.logger.Error().Err(delErr).Str("path", storagePath).Msg("Failed to clean up stored bytes")
		}
		return nil, fmt.Errorf("failed to create image record: %w", err)
	}

	if err := s.producer.Enqueue(ctx, rec.ID); err != nil {
		// The record stays pending and eligible for an operator re-enqueue;
		// losing the enqueue must not lose the record.
		s.logger.Warn().Err(err).Str("image_id", rec.ID).Msg("Enqueue failed, record left pending for re-enqueue")
		return rec, nil
	}

	s.logger.Info().
		Str("image_id", rec.ID).
		Str("filename", rec.Filename).
		Str("method", string(method)).
		Int("warnings", len(rec.ValidationWarnings)).
		Msg("Image ingested and queued for analysis")

	return rec, nil
}

func (s *Service) GetImage(ctx context.Context, id string) (*domain.ImageRecord, error) {
	return s.records.GetByID(ctx, id)
}

// ListImages returns a page of records ordered by creation time descending,
// plus the total count.
func (s *Service) ListImages(ctx context.Context, limit, offset int) ([]domain.ImageRecord, int, error) {
	if limit <= 0 {
		limit = domain.DefaultListLimit
	}
	if limit > domain.MaxListLimit {
		limit = domain.MaxListLimit
	}
	if offset < 0 {
		offset = 0
	}

	records, err := s.records.List(ctx, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list images: %w", err)
	}

	total, err := s.records.Count(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count images: %w", err)
	}

	return records, total, nil
}

func filenameFromURL(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil || path.Base(parsed.Path) == "/" || path.Base(parsed.Path) == "." {
		return "remote-image"
	}
	return path.Base(parsed.Path)
}
