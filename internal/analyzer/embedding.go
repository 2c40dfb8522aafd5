package analyzer

import (
	"image"
	"image/color"
)

const (
	gridSize     = 8
	EmbeddingDim = 128
)

// GrayscaleEmbedding is the default embedding analyzer: an 8x8 block-averaged
// grayscale vector, zero-padded to EmbeddingDim. It is a perceptual-hash
// placeholder for a real feature extractor; same pixels always produce the
// same vector.
type GrayscaleEmbedding struct{}

func NewGrayscaleEmbedding() *GrayscaleEmbedding {
	return &GrayscaleEmbedding{}
}

func (a *GrayscaleEmbedding) Compute(img image.Image) ([]float64, error) {
	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	embedding := make([]float64, EmbeddingDim)

	for gy := 0; gy < gridSize; gy++ {
		for gx := 0; gx < gridSize; gx++ {
			x0 := bounds.Min.X + gx*width/gridSize
			x1 := bounds.Min.X + (gx+1)*width/gridSize
			y0 := bounds.Min.Y + gy*height/gridSize
			y1 := bounds.Min.Y + (gy+1)*height/gridSize
			embedding[gy*gridSize+gx] = averageGray(img, x0, y0, x1, y1)
		}
	}

	return embedding, nil
}

// averageGray samples the block on a bounded stride so the cost stays flat
// for arbitrarily large images.
func averageGray(img image.Image, x0, y0, x1, y1 int) float64 {
	stepX := max(1, (x1-x0)/16)
	stepY := max(1, (y1-y0)/16)

	var sum, count float64
	for y := y0; y < y1; y += stepY {
		for x := x0; x < x1; x += stepX {
			g := color.GrayModel.Convert(img.At(x, y)).(color.Gray)
			sum += float64(g.Y) / 255.0
			count++
		}
	}
	if count == 0 {
		return 0
	}
	return sum / count
}
