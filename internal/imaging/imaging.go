// Package imaging turns raw generated images into stickers: background
// removal, auto-crop and optional borders, plus the scaling and rotation
// primitives used by the page compositor.
package imaging

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	"image/png"

	// Registered decoders for provider output.
	_ "image/jpeg"

	_ "golang.org/x/image/webp"
)

// Decode reads a PNG, JPEG or WebP image.
func Decode(data []byte) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	return img, nil
}

// EncodePNG encodes img as PNG.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	enc := png.Encoder{CompressionLevel: png.BestSpeed}
	if err := enc.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// ToNRGBA returns img as an *image.NRGBA with its origin at (0,0).
// The result is always a copy.
func ToNRGBA(img image.Image) *image.NRGBA {
	b := img.Bounds()
	out := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(out, out.Bounds(), img, b.Min, draw.Src)
	return out
}
