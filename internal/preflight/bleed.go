package preflight

import (
	"image"
	"image/draw"
)

// ApplyBleed returns img enlarged by bleed pixels on every side, filling the
// new area by replicating the nearest edge pixel. The original occupies
// TrimBox of the result. CMYK input stays CMYK; anything else becomes NRGBA.
func ApplyBleed(img image.Image, bleed int) image.Image {
	bleed = max(bleed, 0)
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	dst := image.Rect(0, 0, w+2*bleed, h+2*bleed)

	var srcPix, dstPix []byte
	var srcStride, dstStride int
	var out image.Image
	switch src := img.(type) {
	case *image.CMYK:
		d := image.NewCMYK(dst)
		srcPix, srcStride, dstPix, dstStride = src.Pix[src.PixOffset(b.Min.X, b.Min.Y):], src.Stride, d.Pix, d.Stride
		out = d
	default:
		n := image.NewNRGBA(image.Rect(0, 0, w, h))
		draw.Draw(n, n.Bounds(), img, b.Min, draw.Src)
		d := image.NewNRGBA(dst)
		srcPix, srcStride, dstPix, dstStride = n.Pix, n.Stride, d.Pix, d.Stride
		out = d
	}
	if w == 0 || h == 0 {
		return out
	}

	// Both layouts store four bytes per pixel.
	for y := 0; y < h+2*bleed; y++ {
		sy := min(max(y-bleed, 0), h-1)
		row := srcPix[sy*srcStride : sy*srcStride+w*4]
		drow := dstPix[y*dstStride : y*dstStride+(w+2*bleed)*4]
		for x := 0; x < bleed; x++ {
			copy(drow[x*4:x*4+4], row[:4])
			copy(drow[(bleed+w+x)*4:(bleed+w+x)*4+4], row[(w-1)*4:])
		}
		copy(drow[bleed*4:], row)
	}
	return out
}

// TrimBox is the position of the trimmed page inside a bled image.
func TrimBox(w, h, bleed int) image.Rectangle {
	return image.Rect(bleed, bleed, bleed+w, bleed+h)
}
