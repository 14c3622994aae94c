// Package images holds image helpers for the export attachment pipeline.
package images

import (
	"bytes"
	"image"
	"image/color"
	"image/draw"
	"math"

	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
)

// defaultSVGSize is used when the SVG viewBox carries no usable dimensions.
const defaultSVGSize = 1024

// maxRasterDim caps rasterization output (width or height) so a document
// with an enormous viewBox cannot allocate gigabytes for the RGBA buffer.
const maxRasterDim = 8192

// RasterizeSVG renders SVG bytes into an RGBA image on white background.
// When targetW is positive the output is scaled to that width keeping the
// aspect ratio, otherwise the intrinsic viewBox size is used.
func RasterizeSVG(svgData []byte, targetW int) (image.Image, error) {
	icon, err := oksvg.ReadIconStream(bytes.NewReader(svgData))
	if err != nil {
		return nil, err
	}

	w := int(math.Ceil(icon.ViewBox.W))
	h := int(math.Ceil(icon.ViewBox.H))
	if w <= 0 {
		w = defaultSVGSize
	}
	if h <= 0 {
		h = defaultSVGSize
	}
	if targetW > 0 && targetW != w {
		h = max(int(math.Round(float64(targetW)*float64(h)/float64(w))), 1)
		w = targetW
	}
	if w > maxRasterDim || h > maxRasterDim {
		s := min(float64(maxRasterDim)/float64(w), float64(maxRasterDim)/float64(h))
		w = max(int(math.Round(float64(w)*s)), 1)
		h = max(int(math.Round(float64(h)*s)), 1)
	}

	icon.SetTarget(0, 0, float64(w), float64(h))

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(dst, dst.Bounds(), &image.Uniform{C: color.RGBA{255, 255, 255, 255}}, image.Point{}, draw.Src)

	scanner := rasterx.NewScannerGV(w, h, dst, dst.Bounds())
	icon.Draw(rasterx.NewDasher(w, h, scanner), 1.0)
	return dst, nil
}
