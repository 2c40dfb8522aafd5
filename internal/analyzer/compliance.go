package analyzer

import (
	"fmt"
	"image"

	"image-analyzer/internal/domain"
)

const (
	recommendedMinSize = 800
	minSquareRatio     = 0.8
	maxSquareRatio     = 1.2
)

// EcommerceCompliance is the default compliance analyzer: basic product-image
// guideline checks standing in for a real content-policy classifier.
type EcommerceCompliance struct{}

func NewEcommerceCompliance() *EcommerceCompliance {
	return &EcommerceCompliance{}
}

func (a *EcommerceCompliance) Check(img image.Image, meta domain.ImageMeta) (bool, []string, error) {
	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	var flags []string

	if width < recommendedMinSize || height < recommendedMinSize {
		flags = append(flags, fmt.Sprintf("Below recommended e-commerce size (%dx%d)", recommendedMinSize, recommendedMinSize))
	}

	if height > 0 {
		ratio := float64(width) / float64(height)
		if ratio < minSquareRatio || ratio > maxSquareRatio {
			flags = append(flags, "Non-square aspect ratio (recommended: 1:1)")
		}
	}

	if o, ok := img.(interface{ Opaque() bool }); ok && !o.Opaque() {
		flags = append(flags, "Contains transparency (may need white background)")
	}

	return len(flags) == 0, flags, nil
}
