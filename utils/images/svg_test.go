package images

import (
	"testing"
)

const testSVG = `<svg viewBox="0 0 100 50" xmlns="http://www.w3.org/2000/svg">
  <rect x="10" y="10" width="80" height="30" fill="black"/>
</svg>`

func TestRasterizeSVG(t *testing.T) {
	t.Run("intrinsic size", func(t *testing.T) {
		img, err := RasterizeSVG([]byte(testSVG), 0)
		if err != nil {
			t.Fatalf("rasterize: %v", err)
		}
		b := img.Bounds()
		if b.Dx() != 100 || b.Dy() != 50 {
			t.Fatalf("expected 100x50, got %dx%d", b.Dx(), b.Dy())
		}
	})

	t.Run("target width keeps aspect ratio", func(t *testing.T) {
		img, err := RasterizeSVG([]byte(testSVG), 200)
		if err != nil {
			t.Fatalf("rasterize: %v", err)
		}
		b := img.Bounds()
		if b.Dx() != 200 || b.Dy() != 100 {
			t.Fatalf("expected 200x100, got %dx%d", b.Dx(), b.Dy())
		}
	})

	t.Run("huge viewBox is clamped", func(t *testing.T) {
		huge := `<svg viewBox="0 0 100000 100000" xmlns="http://www.w3.org/2000/svg"></svg>`
		img, err := RasterizeSVG([]byte(huge), 0)
		if err != nil {
			t.Fatalf("rasterize: %v", err)
		}
		b := img.Bounds()
		if b.Dx() > 8192 || b.Dy() > 8192 {
			t.Fatalf("dimensions not clamped: %dx%d", b.Dx(), b.Dy())
		}
	})

	t.Run("invalid svg", func(t *testing.T) {
		if _, err := RasterizeSVG([]byte("not an svg"), 0); err == nil {
			t.Fatal("expected error for invalid svg")
		}
	})
}
