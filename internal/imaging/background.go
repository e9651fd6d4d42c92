package imaging

import (
	"image"
)

// Luminance returns the Rec.601 luma of an 8-bit RGB triple.
func Luminance(r, g, b uint8) float64 {
	return 0.299*float64(r) + 0.587*float64(g) + 0.114*float64(b)
}

// RemoveBackground makes every pixel whose luminance exceeds threshold fully
// transparent; every other pixel becomes fully opaque.
func RemoveBackground(img image.Image, threshold uint8) *image.NRGBA {
	out := ToNRGBA(img)
	limit := float64(threshold)
	pix := out.Pix
	for i := 0; i+3 < len(pix); i += 4 {
		if Luminance(pix[i], pix[i+1], pix[i+2]) > limit {
			pix[i+3] = 0
		} else {
			pix[i+3] = 255
		}
	}
	return out
}

// ContentBounds returns the tightest rectangle containing non-transparent
// pixels. ok is false when the image is fully transparent.
func ContentBounds(img image.Image) (r image.Rectangle, ok bool) {
	b := img.Bounds()
	minX, minY, maxX, maxY := b.Max.X, b.Max.Y, b.Min.X-1, b.Min.Y-1

	nrgba, isNRGBA := img.(*image.NRGBA)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			var a uint32
			if isNRGBA {
				a = uint32(nrgba.Pix[nrgba.PixOffset(x, y)+3])
			} else {
				_, _, _, a = img.At(x, y).RGBA()
			}
			if a == 0 {
				continue
			}
			minX = min(minX, x)
			minY = min(minY, y)
			maxX = max(maxX, x)
			maxY = max(maxY, y)
		}
	}
	if maxX < minX {
		return image.Rectangle{}, false
	}
	return image.Rect(minX, minY, maxX+1, maxY+1), true
}

// AutoCrop crops to the content bounds expanded by padding on each side and
// clamped to the image. A fully transparent image is returned unchanged.
func AutoCrop(img image.Image, padding int) image.Image {
	content, ok := ContentBounds(img)
	if !ok {
		return img
	}
	if padding < 0 {
		padding = 0
	}
	box := content.Inset(-padding).Intersect(img.Bounds())

	out := image.NewNRGBA(image.Rect(0, 0, box.Dx(), box.Dy()))
	for y := 0; y < box.Dy(); y++ {
		for x := 0; x < box.Dx(); x++ {
			out.Set(x, y, img.At(box.Min.X+x, box.Min.Y+y))
		}
	}
	return out
}
