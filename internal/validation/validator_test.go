package validation

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"strings"
	"testing"

	"image-analyzer/internal/config"
)

func testConfig() config.ValidationConfig {
	return config.ValidationConfig{
		MaxFileSizeMB:  10,
		MinWidth:       100,
		MinHeight:      100,
		MaxWidth:       8000,
		MaxHeight:      8000,
		AllowedFormats: []string{"jpg", "jpeg", "png", "webp", "gif"},
		MinAspectRatio: 0.2,
		MaxAspectRatio: 5.0,
	}
}

func encodePNG(t *testing.T, width, height int) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{R: 200, G: 200, B: 200, A: 255})
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png.Encode() error = %v", err)
	}
	return buf.Bytes()
}

func TestValidate_Undecodable(t *testing.T) {
	v := New(testConfig())

	_, err := v.Validate([]byte("definitely not an image"), "photo.png")
	if !errors.Is(err, ErrUndecodable) {
		t.Fatalf("Validate() error = %v, want ErrUndecodable", err)
	}
}

func TestValidate_OK(t *testing.T) {
	v := New(testConfig())
	data := encodePNG(t, 400, 300)

	res, err := v.Validate(data, "photo.png")
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}

	if !res.Valid() {
		t.Fatalf("Valid() = false, problems = %v", res.Problems)
	}
	if res.Width != 400 || res.Height != 300 {
		t.Errorf("dimensions = %dx%d, want 400x300", res.Width, res.Height)
	}
	if res.Format != "png" {
		t.Errorf("Format = %q, want %q", res.Format, "png")
	}
	if res.SizeBytes != int64(len(data)) {
		t.Errorf("SizeBytes = %d, want %d", res.SizeBytes, len(data))
	}
	if res.AspectRatio < 1.33 || res.AspectRatio > 1.34 {
		t.Errorf("AspectRatio = %v, want ~1.333", res.AspectRatio)
	}
	if len(res.Warnings) != 0 {
		t.Errorf("Warnings = %v, want none", res.Warnings)
	}
}

func TestValidate_TooSmall(t *testing.T) {
	v := New(testConfig())

	res, err := v.Validate(encodePNG(t, 50, 50), "tiny.png")
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}

	if res.Valid() {
		t.Fatal("Valid() = true, want false for 50x50 image")
	}
	if len(res.Problems) != 1 || !strings.Contains(res.Problems[0], "below minimum") {
		t.Errorf("Problems = %v, want single dimension problem", res.Problems)
	}
}

func TestValidate_TooLarge(t *testing.T) {
	cfg := testConfig()
	cfg.MaxWidth = 300
	cfg.MaxHeight = 300
	v := New(cfg)

	res, err := v.Validate(encodePNG(t, 400, 200), "wide.png")
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}

	if res.Valid() {
		t.Fatal("Valid() = true, want false for oversized image")
	}
	if len(res.Problems) != 1 || !strings.Contains(res.Problems[0], "exceed maximum") {
		t.Errorf("Problems = %v, want single dimension problem", res.Problems)
	}
}

func TestValidate_FormatNotAllowed(t *testing.T) {
	cfg := testConfig()
	cfg.AllowedFormats = []string{"jpg", "jpeg"}
	v := New(cfg)

	res, err := v.Validate(encodePNG(t, 400, 300), "photo.png")
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}

	if res.Valid() {
		t.Fatal("Valid() = true, want false for disallowed format")
	}
	if len(res.Problems) != 1 || !strings.Contains(res.Problems[0], "invalid image format") {
		t.Errorf("Problems = %v, want format problem", res.Problems)
	}
}

func TestValidate_ExtensionRescuesFormat(t *testing.T) {
	// The decoder reports "png" which is not in the allow-set, but the
	// filename extension is, so the image passes the format check.
	cfg := testConfig()
	cfg.AllowedFormats = []string{"bmp"}
	v := New(cfg)

	res, err := v.Validate(encodePNG(t, 400, 300), "photo.BMP")
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}

	if !res.Valid() {
		t.Fatalf("Valid() = false, problems = %v", res.Problems)
	}
}

func TestValidate_SizeExceeded(t *testing.T) {
	cfg := testConfig()
	cfg.MaxFileSizeMB = 0
	v := New(cfg)

	res, err := v.Validate(encodePNG(t, 400, 300), "photo.png")
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}

	if res.Valid() {
		t.Fatal("Valid() = true, want false for oversized file")
	}
	if len(res.Problems) != 1 || !strings.Contains(res.Problems[0], "exceeds maximum allowed size") {
		t.Errorf("Problems = %v, want size problem", res.Problems)
	}
}

func TestValidate_AspectRatioIsAdvisory(t *testing.T) {
	v := New(testConfig())

	// 1200x150 -> ratio 8.0, well above the 5.0 ceiling.
	res, err := v.Validate(encodePNG(t, 1200, 150), "banner.png")
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}

	if !res.Valid() {
		t.Fatalf("Valid() = false, problems = %v; aspect ratio must not block", res.Problems)
	}
	if len(res.Warnings) != 1 || !strings.Contains(res.Warnings[0], "unusual aspect ratio") {
		t.Errorf("Warnings = %v, want aspect ratio warning", res.Warnings)
	}
}

func TestValidate_CollectsAllProblems(t *testing.T) {
	cfg := testConfig()
	cfg.AllowedFormats = []string{"jpg"}
	v := New(cfg)

	res, err := v.Validate(encodePNG(t, 50, 50), "tiny.png")
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}

	if len(res.Problems) != 2 {
		t.Fatalf("len(Problems) = %d, want 2 (format and dimensions): %v", len(res.Problems), res.Problems)
	}
}
