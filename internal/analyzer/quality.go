package analyzer

import "image"

// ResolutionQuality is the default quality analyzer: a resolution-tier
// heuristic standing in for a real IQA model. Deterministic per image.
type ResolutionQuality struct {
	MinResolution int
}

func NewResolutionQuality(minResolution int) *ResolutionQuality {
	return &ResolutionQuality{MinResolution: minResolution}
}

func (a *ResolutionQuality) Analyze(img image.Image) (float64, []string, error) {
	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()
	totalPixels := width * height

	var reasons []string

	if a.MinResolution > 0 && totalPixels < a.MinResolution*a.MinResolution {
		reasons = append(reasons, "Low resolution")
	}
	if width < 500 || height < 500 {
		reasons = append(reasons, "Small dimensions")
	}

	var score float64
	switch {
	case totalPixels >= 2000*2000:
		score = 0.9
		reasons = append(reasons, "High resolution")
	case totalPixels >= 1000*1000:
		score = 0.75
		reasons = append(reasons, "Good resolution")
	case totalPixels >= 500*500:
		score = 0.6
		reasons = append(reasons, "Acceptable resolution")
	default:
		score = 0.4
	}

	if len(reasons) == 0 {
		reasons = append(reasons, "Basic quality checks passed")
	}

	return score, reasons, nil
}
