package analysis

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"image-analyzer/internal/analyzer"
	"image-analyzer/internal/domain"
	repoimage "image-analyzer/internal/repository/image"

	"github.com/wb-go/wbf/zlog"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

// Pipeline is the worker-side orchestrator: it leases a pending record,
// runs the analyzer stages in sequence and commits the outcome. It owns
// every status transition from processing onward.
type Pipeline struct {
	records     recordStore
	files       fileStore
	quality     analyzer.Quality
	compliance  analyzer.Compliance
	embedding   analyzer.Embedding
	duplicate   analyzer.Duplicate
	sampleLimit int
	logger      *zlog.Zerolog
}

func NewPipeline(
	records recordStore,
	files fileStore,
	quality analyzer.Quality,
	compliance analyzer.Compliance,
	embedding analyzer.Embedding,
	duplicate analyzer.Duplicate,
	sampleLimit int,
	logger *zlog.Zerolog,
) *Pipeline {
	return &Pipeline{
		records:     records,
		files:       files,
		quality:     quality,
		compliance:  compliance,
		embedding:   embedding,
		duplicate:   duplicate,
		sampleLimit: sampleLimit,
		logger:      logger,
	}
}

// Run executes the analysis for one record. A per-record failure becomes a
// terminal failed status and a normal return; it never propagates as a
// panic into the job runtime. The returned error is reserved for job-level
// conditions (record missing, lease conflict, commit failure) that the
// worker logs and moves past.
func (p *Pipeline) Run(ctx context.Context, imageID string) (outcome *domain.AnalysisOutcome, err error) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error().Str("image_id", imageID).Interface("panic", r).Msg("Analyzer panicked")
			outcome = p.fail(ctx, imageID, fmt.Sprintf("analyzer panic: %v", r))
			err = nil
		}
	}()

	rec, err := p.records.GetByID(ctx, imageID)
	if err != nil {
		return nil, fmt.Errorf("failed to load record: %w", err)
	}

	// Lease: committed before any analyzer runs, so a crash mid-pipeline
	// leaves an observable processing record, and a duplicate delivery of
	// the same job is rejected here instead of double-processed.
	if err := p.records.MarkProcessing(ctx, imageID); err != nil {
		if errors.Is(err, repoimage.ErrNotPending) {
			p.logger.Warn().Str("image_id", imageID).Str("status", string(rec.Status)).Msg("Record not pending, skipping job")
		}
		return nil, err
	}

	data, err := p.files.Load(ctx, rec.StoragePath)
	if err != nil {
		return p.fail(ctx, imageID, fmt.Sprintf("failed to load stored image: %v", err)), nil
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return p.fail(ctx, imageID, fmt.Sprintf("failed to decode stored image: %v", err)), nil
	}

	score, reasons, err := p.quality.Analyze(img)
	if err != nil {
		return p.fail(ctx, imageID, fmt.Sprintf("quality analysis failed: %v", err)), nil
	}
	score = clamp01(score)

	compliant, flags, err := p.compliance.Check(img, rec.Meta())
	if err != nil {
		return p.fail(ctx, imageID, fmt.Sprintf("compliance check failed: %v", err)), nil
	}

	embedding, err := p.embedding.Compute(img)
	if err != nil {
		return p.fail(ctx, imageID, fmt.Sprintf("embedding computation failed: %v", err)), nil
	}

	refs, err := p.records.ListEmbeddings(ctx, imageID, p.sampleLimit)
	if err != nil {
		return p.fail(ctx, imageID, fmt.Sprintf("failed to load prior embeddings: %v", err)), nil
	}

	verdict, err := p.duplicate.Find(embedding, withoutSelf(refs, imageID))
	if err != nil {
		return p.fail(ctx, imageID, fmt.Sprintf("duplicate detection failed: %v", err)), nil
	}

	result := &domain.AnalysisResult{
		QualityScore:    score,
		QualityReasons:  reasons,
		IsCompliant:     compliant,
		ComplianceFlags: flags,
		IsDuplicate:     verdict.IsDuplicate,
		DuplicateOfID:   verdict.DuplicateOfID,
		SimilarityScore: verdict.Similarity,
		ClusterID:       verdict.ClusterID,
		Embedding:       embedding,
	}

	if err := p.records.CompleteAnalysis(ctx, imageID, result); err != nil {
		return nil, fmt.Errorf("failed to commit analysis result: %w", err)
	}

	p.logger.Info().
		Str("image_id", imageID).
		Float64("quality_score", score).
		Bool("compliant", compliant).
		Bool("duplicate", verdict.IsDuplicate).
		Str("cluster_id", verdict.ClusterID).
		Msg("Analysis completed")

	return &domain.AnalysisOutcome{
		ImageID:      imageID,
		Status:       domain.StatusCompleted,
		QualityScore: score,
		IsCompliant:  compliant,
		IsDuplicate:  verdict.IsDuplicate,
	}, nil
}

func (p *Pipeline) fail(ctx context.Context, imageID, msg string) *domain.AnalysisOutcome {
	p.logger.Error().Str("image_id", imageID).Str("reason", msg).Msg("Analysis failed")

	// A job that died to a timeout still has to reach the failed state.
	if ctx.Err() != nil {
		ctx = context.Background()
	}

	if err := p.records.MarkFailed(ctx, imageID, msg); err != nil {
		p.logger.Error().Err(err).Str("image_id", imageID).Msg("Failed to mark record failed")
	}

	return &domain.AnalysisOutcome{
		ImageID: imageID,
		Status:  domain.StatusFailed,
		Error:   msg,
	}
}

// withoutSelf drops the record's own entry from the sample; a record must
// never be reported as a duplicate of itself.
func withoutSelf(refs []domain.EmbeddingRef, id string) []domain.EmbeddingRef {
	out := refs[:0]
	for _, ref := range refs {
		if ref.ID != id {
			out = append(out, ref)
		}
	}
	return out
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
