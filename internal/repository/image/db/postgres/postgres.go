package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"image-analyzer/internal/domain"
	"image-analyzer/internal/repository/image"

	"github.com/wb-go/wbf/dbpg"
	"github.com/wb-go/wbf/retry"
)

type ImagesRepository struct {
	db      *dbpg.DB
	retries retry.Strategy
}

func NewImagesRepository(db *dbpg.DB, retries retry.Strategy) *ImagesRepository {
	return &ImagesRepository{
		db:      db,
		retries: retries,
	}
}

const imageColumns = `
	id, filename, source_url, upload_method, storage_path, size_bytes,
	width, height, format, aspect_ratio, status,
	validation_passed, validation_warnings,
	quality_score, quality_reasons, is_compliant, compliance_flags,
	is_duplicate, duplicate_of_id, similarity_score, cluster_id, embedding,
	error_message, created_at, updated_at, processed_at
`

func (r *ImagesRepository) Create(ctx context.Context, rec *domain.ImageRecord) error {
	query := `
		INSERT INTO images (
			id, filename, source_url, upload_method, storage_path, size_bytes,
			width, height, format, aspect_ratio, status,
			validation_passed, validation_warnings, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`

	warnings, err := marshalStrings(rec.ValidationWarnings)
	if err != nil {
		return fmt.Errorf("failed to encode validation warnings: %w", err)
	}

	_, err = r.db.ExecWithRetry(ctx, r.retries, query,
		rec.ID,
		rec.Filename,
		rec.SourceURL,
		rec.UploadMethod,
		rec.StoragePath,
		rec.SizeBytes,
		rec.Width,
		rec.Height,
		rec.Format,
		rec.AspectRatio,
		rec.Status,
		rec.ValidationPassed,
		warnings,
		rec.CreatedAt,
		rec.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create image record: %w", err)
	}

	return nil
}

func (r *ImagesRepository) GetByID(ctx context.Context, id string) (*domain.ImageRecord, error) {
	query := `SELECT ` + imageColumns + ` FROM images WHERE id = $1`

	row, err := r.db.QueryRowWithRetry(ctx, r.retries, query, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query image: %w", err)
	}

	rec, err := scanImage(row.Scan)
	if err == sql.ErrNoRows {
		return nil, image.ErrImageNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan image: %w", err)
	}

	return rec, nil
}

func (r *ImagesRepository) List(ctx context.Context, limit, offset int) ([]domain.ImageRecord, error) {
	query := `SELECT ` + imageColumns + ` FROM images ORDER BY created_at DESC LIMIT $1 OFFSET $2`

	rows, err := r.db.QueryWithRetry(ctx, r.retries, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query images: %w", err)
	}
	defer rows.Close()

	var records []domain.ImageRecord
	for rows.Next() {
		rec, err := scanImage(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan image: %w", err)
		}
		records = append(records, *rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating images: %w", err)
	}

	return records, nil
}

func (r *ImagesRepository) Count(ctx context.Context) (int, error) {
	row, err := r.db.QueryRowWithRetry(ctx, r.retries, `SELECT COUNT(*) FROM images`)
	if err != nil {
		return 0, fmt.Errorf("failed to count images: %w", err)
	}

	var count int
	if err := row.Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to scan count: %w", err)
	}

	return count, nil
}

// MarkProcessing is the per-record lease: the transition only succeeds from
// pending, so a duplicate job delivery for the same record is rejected
// instead of double-processed.
func (r *ImagesRepository) MarkProcessing(ctx context.Context, id string) error {
	query := `UPDATE images SET status = $1, updated_at = $2 WHERE id = $3 AND status = $4`

	result, err := r.db.ExecWithRetry(ctx, r.retries, query,
		domain.StatusProcessing, time.Now(), id, domain.StatusPending)
	if err != nil {
		return fmt.Errorf("failed to mark image processing: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}

	if affected == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
		return image.ErrNotPending
	}

	return nil
}

// CompleteAnalysis writes every analysis field plus the terminal status and
// processed_at in one commit. Guarded on processing so a terminal record is
// never overwritten.
func (r *ImagesRepository) CompleteAnalysis(ctx context.Context, id string, res *domain.AnalysisResult) error {
	query := `
		UPDATE images SET
			status = $1,
			quality_score = $2,
			quality_reasons = $3,
			is_compliant = $4,
			compliance_flags = $5,
			is_duplicate = $6,
			duplicate_of_id = $7,
			similarity_score = $8,
			cluster_id = $9,
			embedding = $10,
			processed_at = $11,
			updated_at = $11
		WHERE id = $12 AND status = $13
	`

	reasons, err := marshalStrings(res.QualityReasons)
	if err != nil {
		return fmt.Errorf("failed to encode quality reasons: %w", err)
	}
	flags, err := marshalStrings(res.ComplianceFlags)
	if err != nil {
		return fmt.Errorf("failed to encode compliance flags: %w", err)
	}
	embedding, err := json.Marshal(res.Embedding)
	if err != nil {
		return fmt.Errorf("failed to encode embedding: %w", err)
	}

	result, err := r.db.ExecWithRetry(ctx, r.retries, query,
		domain.StatusCompleted,
		res.QualityScore,
		reasons,
		res.IsCompliant,
		flags,
		res.IsDuplicate,
		res.DuplicateOfID,
		res.SimilarityScore,
		res.ClusterID,
		embedding,
		time.Now(),
		id,
		domain.StatusProcessing,
	)
	if err != nil {
		return fmt.Errorf("failed to commit analysis result: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}

	if affected == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
		return image.ErrNotProcessing
	}

	return nil
}

// MarkFailed records the terminal failure outcome; analysis fields stay null.
func (r *ImagesRepository) MarkFailed(ctx context.Context, id string, msg string) error {
	query := `UPDATE images SET status = $1, error_message = $2, updated_at = $3 WHERE id = $4 AND status = $5`

	result, err := r.db.ExecWithRetry(ctx, r.retries, query,
		domain.StatusFailed, msg, time.Now(), id, domain.StatusProcessing)
	if err != nil {
		return fmt.Errorf("failed to mark image failed: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}

	if affected == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
		return image.ErrNotProcessing
	}

	return nil
}

// ListEmbeddings returns a bounded, newest-first sample of stored embeddings
// for duplicate detection, never including the excluded record itself.
func (r *ImagesRepository) ListEmbeddings(ctx context.Context, excludeID string, limit int) ([]domain.EmbeddingRef, error) {
	query := `
		SELECT id, embedding
		FROM images
		WHERE id != $1 AND embedding IS NOT NULL
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := r.db.QueryWithRetry(ctx, r.retries, query, excludeID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query embeddings: %w", err)
	}
	defer rows.Close()

	var refs []domain.EmbeddingRef
	for rows.Next() {
		var ref domain.EmbeddingRef
		var raw []byte
		if err := rows.Scan(&ref.ID, &raw); err != nil {
			return nil, fmt.Errorf("failed to scan embedding: %w", err)
		}
		if err := json.Unmarshal(raw, &ref.Embedding); err != nil {
			return nil, fmt.Errorf("failed to decode embedding for %s: %w", ref.ID, err)
		}
		refs = append(refs, ref)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating embeddings: %w", err)
	}

	return refs, nil
}

func scanImage(scan func(dest ...any) error) (*domain.ImageRecord, error) {
	var (
		rec             domain.ImageRecord
		sourceURL       sql.NullString
		warnings        []byte
		qualityScore    sql.NullFloat64
		qualityReasons  []byte
		isCompliant     sql.NullBool
		complianceFlags []byte
		isDuplicate     sql.NullBool
		duplicateOfID   sql.NullString
		similarityScore sql.NullFloat64
		clusterID       sql.NullString
		embedding       []byte
		errorMessage    sql.NullString
		processedAt     sql.NullTime
	)

	err := scan(
		&rec.ID,
		&rec.Filename,
		&sourceURL,
		&rec.UploadMethod,
		&rec.StoragePath,
		&rec.SizeBytes,
		&rec.Width,
		&rec.Height,
		&rec.Format,
		&rec.AspectRatio,
		&rec.Status,
		&rec.ValidationPassed,
		&warnings,
		&qualityScore,
		&qualityReasons,
		&isCompliant,
		&complianceFlags,
		&isDuplicate,
		&duplicateOfID,
		&similarityScore,
		&clusterID,
		&embedding,
		&errorMessage,
		&rec.CreatedAt,
		&rec.UpdatedAt,
		&processedAt,
	)
	if err != nil {
		return nil, err
	}

	if sourceURL.Valid {
		rec.SourceURL = &sourceURL.String
	}
	if qualityScore.Valid {
		rec.QualityScore = &qualityScore.Float64
	}
	if isCompliant.Valid {
		rec.IsCompliant = &isCompliant.Bool
	}
	if isDuplicate.Valid {
		rec.IsDuplicate = &isDuplicate.Bool
	}
	if duplicateOfID.Valid {
		rec.DuplicateOfID = &duplicateOfID.String
	}
	if similarityScore.Valid {
		rec.SimilarityScore = &similarityScore.Float64
	}
	if clusterID.Valid {
		rec.ClusterID = &clusterID.String
	}
	if errorMessage.Valid {
		rec.ErrorMessage = &errorMessage.String
	}
	if processedAt.Valid {
		rec.ProcessedAt = &processedAt.Time
	}

	if err := unmarshalStrings(warnings, &rec.ValidationWarnings); err != nil {
		return nil, err
	}
	if err := unmarshalStrings(qualityReasons, &rec.QualityReasons); err != nil {
		return nil, err
	}
	if err := unmarshalStrings(complianceFlags, &rec.ComplianceFlags); err != nil {
		return nil, err
	}
	if len(embedding) > 0 {
		if err := json.Unmarshal(embedding, &rec.Embedding); err != nil {
			return nil, err
		}
	}

	return &rec, nil
}

func marshalStrings(values []string) ([]byte, error) {
	if values == nil {
		values = []string{}
	}
	return json.Marshal(values)
}

func unmarshalStrings(raw []byte, dest *[]string) error {
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, dest)
}
