package validation

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"path/filepath"
	"strings"

	"image-analyzer/internal/config"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

// ErrUndecodable is a hard failure: the bytes are not an image at all,
// distinct from policy violations on a decodable one.
var ErrUndecodable = errors.New("image cannot be decoded")

// Result carries the decoded metadata plus two ordered problem lists:
// Problems block ingestion, Warnings are advisory and recorded on the record.
type Result struct {
	Width       int
	Height      int
	Format      string
	SizeBytes   int64
	AspectRatio float64
	Problems    []string
	Warnings    []string
}

func (r *Result) Valid() bool {
	return len(r.Problems) == 0
}

type Validator struct {
	cfg config.ValidationConfig
}

func New(cfg config.ValidationConfig) *Validator {
	return &Validator{cfg: cfg}
}

// Validate decodes the buffer and evaluates every policy check, never
// short-circuiting, so the caller gets the full problem list in one pass.
func (v *Validator) Validate(data []byte, filename string) (*Result, error) {
	decoded, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUndecodable, err)
	}

	res := &Result{
		Width:     decoded.Width,
		Height:    decoded.Height,
		Format:    strings.ToLower(format),
		SizeBytes: int64(len(data)),
	}
	if decoded.Height > 0 {
		res.AspectRatio = float64(decoded.Width) / float64(decoded.Height)
	}

	v.checkSize(res)
	v.checkFormat(res, filename)
	v.checkDimensions(res)
	v.checkAspectRatio(res)

	return res, nil
}

func (v *Validator) checkSize(res *Result) {
	if res.SizeBytes > v.cfg.MaxBytes() {
		sizeMB := float64(res.SizeBytes) / (1 << 20)
		res.Problems = append(res.Problems,
			fmt.Sprintf("file size (%.2f MB) exceeds maximum allowed size (%d MB)", sizeMB, v.cfg.MaxFileSizeMB))
	}
}

// checkFormat accepts the image when either the decoder-reported format or
// the filename extension is in the allow-set, case-insensitively.
func (v *Validator) checkFormat(res *Result, filename string) {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), ".")

	if v.formatAllowed(res.Format) || v.formatAllowed(ext) {
		return
	}

	res.Problems = append(res.Problems,
		fmt.Sprintf("invalid image format %q (allowed: %s)", res.Format, strings.Join(v.cfg.AllowedFormats, ", ")))
}

func (v *Validator) formatAllowed(format string) bool {
	if format == "" {
		return false
	}
	for _, allowed := range v.cfg.AllowedFormats {
		if strings.EqualFold(allowed, format) {
			return true
		}
	}
	return false
}

func (v *Validator) checkDimensions(res *Result) {
	if res.Width < v.cfg.MinWidth || res.Height < v.cfg.MinHeight {
		res.Problems = append(res.Problems,
			fmt.Sprintf("image dimensions %dx%d below minimum %dx%d",
				res.Width, res.Height, v.cfg.MinWidth, v.cfg.MinHeight))
	}
	if res.Width > v.cfg.MaxWidth || res.Height > v.cfg.MaxHeight {
		res.Problems = append(res.Problems,
			fmt.Sprintf("image dimensions %dx%d exceed maximum %dx%d",
				res.Width, res.Height, v.cfg.MaxWidth, v.cfg.MaxHeight))
	}
}

// Aspect ratio is advisory only: an extreme ratio is recorded as a warning
// but never invalidates the image.
func (v *Validator) checkAspectRatio(res *Result) {
	if res.AspectRatio < v.cfg.MinAspectRatio || res.AspectRatio > v.cfg.MaxAspectRatio {
		res.Warnings = append(res.Warnings,
			fmt.Sprintf("unusual aspect ratio: %.2f (recommended range %.1f-%.1f)",
				res.AspectRatio, v.cfg.MinAspectRatio, v.cfg.MaxAspectRatio))
	}
}
