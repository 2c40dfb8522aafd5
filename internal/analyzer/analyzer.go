// Package analyzer defines the pluggable analysis stage contracts and the
// default deterministic implementations. Real models replace these behind
// the same interfaces; tests substitute fixed-output fakes.
package analyzer

import (
	"image"

	"image-analyzer/internal/domain"
)

// Quality scores an image in [0, 1] with a non-empty ordered reason list.
type Quality interface {
	Analyze(img image.Image) (float64, []string, error)
}

// Compliance checks an image against content guidelines, returning a
// pass/fail verdict and an ordered flag list (possibly empty).
type Compliance interface {
	Check(img image.Image, meta domain.ImageMeta) (bool, []string, error)
}

// Embedding computes an opaque feature vector used for similarity search.
type Embedding interface {
	Compute(img image.Image) ([]float64, error)
}

// Duplicate decides whether the new embedding duplicates one of the prior
// records and assigns a cluster identifier in every case.
type Duplicate interface {
	Find(embedding []float64, prior []domain.EmbeddingRef) (*domain.DuplicateVerdict, error)
}
