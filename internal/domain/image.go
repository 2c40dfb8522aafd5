package domain

import "time"

// ImageRecord is the central entity: one row per ingested image, carrying
// the ingestion-time metadata, the lifecycle status and the analysis results.
type ImageRecord struct {
	ID           string
	Filename     string
	SourceURL    *string
	UploadMethod UploadMethod

	// Set once at ingestion, never mutated afterwards.
	StoragePath string
	SizeBytes   int64
	Width       int
	Height      int
	Format      string
	AspectRatio float64

	Status Status

	ValidationPassed   bool
	ValidationWarnings []string

	// Analysis outcome. All-or-nothing: nil until the record reaches
	// StatusCompleted, all populated afterwards. On failure they stay nil
	// and only ErrorMessage is set.
	QualityScore    *float64
	QualityReasons  []string
	IsCompliant     *bool
	ComplianceFlags []string
	IsDuplicate     *bool
	DuplicateOfID   *string
	SimilarityScore *float64
	ClusterID       *string
	Embedding       []float64

	ErrorMessage *string

	CreatedAt   time.Time
	UpdatedAt   time.Time
	ProcessedAt *time.Time
}

type Status string

// Status transitions are monotonic:
// pending -> processing -> {completed | failed}.
const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

type UploadMethod string

const (
	MethodFile UploadMethod = "file"
	MethodURL  UploadMethod = "url"
)

// ImageMeta is the decoded-property subset handed to analyzers.
type ImageMeta struct {
	Width       int
	Height      int
	Format      string
	AspectRatio float64
}

func (r *ImageRecord) Meta() ImageMeta {
	return ImageMeta{
		Width:       r.Width,
		Height:      r.Height,
		Format:      r.Format,
		AspectRatio: r.AspectRatio,
	}
}
