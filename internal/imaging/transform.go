package imaging

import (
	"image"
	"math"

	"golang.org/x/image/draw"
	"golang.org/x/image/math/f64"
)

// Resize scales img to exactly w×h using Catmull-Rom resampling.
func Resize(img image.Image, w, h int) *image.NRGBA {
	w, h = max(w, 1), max(h, 1)
	out := image.NewNRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(out, out.Bounds(), img, img.Bounds(), draw.Src, nil)
	return out
}

// FitSize returns the largest w×h with the aspect ratio of src that fits in maxW×maxH.
func FitSize(src image.Rectangle, maxW, maxH int) (int, int) {
	sw, sh := src.Dx(), src.Dy()
	if sw == 0 || sh == 0 || maxW <= 0 || maxH <= 0 {
		return 0, 0
	}
	scale := math.Min(float64(maxW)/float64(sw), float64(maxH)/float64(sh))
	return max(int(math.Round(float64(sw)*scale)), 1), max(int(math.Round(float64(sh)*scale)), 1)
}

// Fit scales img to fit within maxW×maxH, preserving aspect ratio.
func Fit(img image.Image, maxW, maxH int) *image.NRGBA {
	w, h := FitSize(img.Bounds(), maxW, maxH)
	return Resize(img, w, h)
}

// Cover scales img to fill w×h, preserving aspect ratio and cropping the overflow centrally.
func Cover(img image.Image, w, h int) *image.NRGBA {
	b := img.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 {
		return image.NewNRGBA(image.Rect(0, 0, max(w, 1), max(h, 1)))
	}
	scale := math.Max(float64(w)/float64(b.Dx()), float64(h)/float64(b.Dy()))
	cw := int(math.Round(float64(w) / scale))
	ch := int(math.Round(float64(h) / scale))
	x0 := b.Min.X + (b.Dx()-cw)/2
	y0 := b.Min.Y + (b.Dy()-ch)/2
	crop := image.Rect(x0, y0, x0+cw, y0+ch).Intersect(b)

	out := image.NewNRGBA(image.Rect(0, 0, max(w, 1), max(h, 1)))
	draw.CatmullRom.Scale(out, out.Bounds(), img, crop, draw.Src, nil)
	return out
}

// RotatedSize returns the bounding box of a w×h rectangle rotated by degrees.
func RotatedSize(w, h int, degrees float64) (int, int) {
	rad := degrees * math.Pi / 180
	sin, cos := math.Abs(math.Sin(rad)), math.Abs(math.Cos(rad))
	fw, fh := float64(w), float64(h)
	// Trim float noise so that 90° turns do not gain a pixel.
	const eps = 1e-9
	return int(math.Ceil(fw*cos + fh*sin - eps)), int(math.Ceil(fw*sin + fh*cos - eps))
}

// Rotate returns img rotated counter-clockwise by degrees on a transparent
// canvas just large enough to hold it.
func Rotate(img image.Image, degrees float64) *image.NRGBA {
	b := img.Bounds()
	if degrees == 0 {
		return ToNRGBA(img)
	}
	w, h := RotatedSize(b.Dx(), b.Dy(), degrees)
	out := image.NewNRGBA(image.Rect(0, 0, w, h))

	rad := degrees * math.Pi / 180
	sin, cos := math.Sin(rad), math.Cos(rad)
	scx := float64(b.Min.X) + float64(b.Dx())/2
	scy := float64(b.Min.Y) + float64(b.Dy())/2
	dcx, dcy := float64(w)/2, float64(h)/2

	// Source-to-destination: translate to origin, rotate, translate to canvas centre.
	s2d := f64.Aff3{
		cos, sin, dcx - (cos*scx + sin*scy),
		-sin, cos, dcy - (-sin*scx + cos*scy),
	}
	draw.BiLinear.Transform(out, s2d, img, b, draw.Over, nil)
	return out
}
