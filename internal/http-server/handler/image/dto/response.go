package dto

import (
	"time"

	"image-analyzer/internal/domain"
)

type UploadResponse struct {
	ID       string   `json:"id"`
	Filename string   `json:"filename"`
	Status   string   `json:"status"`
	Warnings []string `json:"warnings,omitempty"`
}

type ImageResponse struct {
	ID                 string     `json:"id"`
	Filename           string     `json:"filename"`
	SourceURL          *string    `json:"source_url,omitempty"`
	UploadMethod       string     `json:"upload_method"`
	SizeBytes          int64      `json:"size_bytes"`
	Width              int        `json:"width"`
	Height             int        `json:"height"`
	Format             string     `json:"format"`
	AspectRatio        float64    `json:"aspect_ratio"`
	Status             string     `json:"status"`
	ValidationPassed   bool       `json:"validation_passed"`
	ValidationWarnings []string   `json:"validation_warnings,omitempty"`
	QualityScore       *float64   `json:"quality_score,omitempty"`
	QualityReasons     []string   `json:"quality_reasons,omitempty"`
	IsCompliant        *bool      `json:"is_compliant,omitempty"`
	ComplianceFlags    []string   `json:"compliance_flags,omitempty"`
	IsDuplicate        *bool      `json:"is_duplicate,omitempty"`
	DuplicateOfID      *string    `json:"duplicate_of_id,omitempty"`
	SimilarityScore    *float64   `json:"similarity_score,omitempty"`
	ClusterID          *string    `json:"cluster_id,omitempty"`
	ErrorMessage       *string    `json:"error_message,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
	ProcessedAt        *time.Time `json:"processed_at,omitempty"`
}

type ListResponse struct {
	Images []ImageResponse `json:"images"`
	Total  int             `json:"total"`
	Limit  int             `json:"limit"`
	Offset int             `json:"offset"`
}

type ConfigResponse struct {
	MaxFileSizeMB      int      `json:"max_file_size_mb"`
	MinWidth           int      `json:"min_width"`
	MinHeight          int      `json:"min_height"`
	MaxWidth           int      `json:"max_width"`
	MaxHeight          int      `json:"max_height"`
	AllowedFormats     []string `json:"allowed_formats"`
	MinAspectRatio     float64  `json:"min_aspect_ratio"`
	MaxAspectRatio     float64  `json:"max_aspect_ratio"`
	DuplicateThreshold float64  `json:"duplicate_threshold"`
	MinQualityScore    float64  `json:"min_quality_score"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// RejectionResponse carries the ordered validation problem list for a
// rejected upload.
type RejectionResponse struct {
	Error    string   `json:"error"`
	Problems []string `json:"problems"`
}

func FromRecord(rec *domain.ImageRecord) ImageResponse {
	return ImageResponse{
		ID:                 rec.ID,
		Filename:           rec.Filename,
		SourceURL:          rec.SourceURL,
		UploadMethod:       string(rec.UploadMethod),
		SizeBytes:          rec.SizeBytes,
		Width:              rec.Width,
		Height:             rec.Height,
		Format:             rec.Format,
		AspectRatio:        rec.AspectRatio,
		Status:             string(rec.Status),
		ValidationPassed:   rec.ValidationPassed,
		ValidationWarnings: rec.ValidationWarnings,
		QualityScore:       rec.QualityScore,
		QualityReasons:     rec.QualityReasons,
		IsCompliant:        rec.IsCompliant,
		ComplianceFlags:    rec.ComplianceFlags,
		IsDuplicate:        rec.IsDuplicate,
		DuplicateOfID:      rec.DuplicateOfID,
		SimilarityScore:    rec.SimilarityScore,
		ClusterID:          rec.ClusterID,
		ErrorMessage:       rec.ErrorMessage,
		CreatedAt:          rec.CreatedAt,
		UpdatedAt:          rec.UpdatedAt,
		ProcessedAt:        rec.ProcessedAt,
	}
}
