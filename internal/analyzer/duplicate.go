package analyzer

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"

	"image-analyzer/internal/domain"
)

// CosineDuplicate is the default duplicate analyzer: exhaustive cosine
// similarity over the supplied (already bounded) sample of prior embeddings.
// A vector index replaces this behind the same interface.
type CosineDuplicate struct {
	Threshold float64
}

func NewCosineDuplicate(threshold float64) *CosineDuplicate {
	return &CosineDuplicate{Threshold: threshold}
}

func (a *CosineDuplicate) Find(embedding []float64, prior []domain.EmbeddingRef) (*domain.DuplicateVerdict, error) {
	verdict := &domain.DuplicateVerdict{
		ClusterID: clusterID(embedding),
	}

	var bestID string
	bestSim := -1.0
	for _, ref := range prior {
		if len(ref.Embedding) == 0 {
			continue
		}
		sim := cosineSimilarity(embedding, ref.Embedding)
		if sim > bestSim {
			bestSim = sim
			bestID = ref.ID
		}
	}

	if bestID != "" && bestSim >= a.Threshold {
		verdict.IsDuplicate = true
		verdict.DuplicateOfID = &bestID
		verdict.Similarity = &bestSim
	}

	return verdict, nil
}

func cosineSimilarity(a, b []float64) float64 {
	n := min(len(a), len(b))
	var dot, normA, normB float64
	for i := 0; i < n; i++ {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// clusterID derives a stable label from the average-hash bits of the
// embedding, grouping visually similar images under the same prefix.
func clusterID(embedding []float64) string {
	n := gridSize * gridSize
	if n > len(embedding) {
		n = len(embedding)
	}

	var mean float64
	for i := 0; i < n; i++ {
		mean += embedding[i]
	}
	if n > 0 {
		mean /= float64(n)
	}

	bits := make([]byte, n)
	for i := 0; i < n; i++ {
		if embedding[i] > mean {
			bits[i] = '1'
		} else {
			bits[i] = '0'
		}
	}

	sum := sha256.Sum256(bits)
	return fmt.Sprintf("cluster_%s", hex.EncodeToString(sum[:])[:8])
}
