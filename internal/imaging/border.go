package imaging

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
)

// BorderStyle selects how AddBorder draws.
type BorderStyle string

const (
	// BorderFrame draws a rectangular frame around the whole image.
	BorderFrame BorderStyle = "frame"
	// BorderOutline draws a die-cut sticker outline following the silhouette.
	BorderOutline BorderStyle = "outline"
)

// ParseBorderStyle validates a configured border style.
func ParseBorderStyle(s string) (BorderStyle, error) {
	switch BorderStyle(s) {
	case BorderFrame, BorderOutline:
		return BorderStyle(s), nil
	case "":
		return BorderOutline, nil
	}
	return "", fmt.Errorf("unknown border style %q", s)
}

// AddBorder grows the canvas by width on every side and paints an opaque
// border of colour c. With BorderFrame the border is a rectangle around the
// post-crop box; with BorderOutline it hugs the non-transparent pixels.
func AddBorder(img image.Image, width int, style BorderStyle, c color.Color) *image.NRGBA {
	src := ToNRGBA(img)
	if width <= 0 {
		return src
	}
	w, h := src.Bounds().Dx(), src.Bounds().Dy()
	out := image.NewNRGBA(image.Rect(0, 0, w+2*width, h+2*width))
	fill := color.NRGBAModel.Convert(c).(color.NRGBA)
	fill.A = 255

	switch style {
	case BorderFrame:
		draw.Draw(out, out.Bounds(), &image.Uniform{C: fill}, image.Point{}, draw.Src)
		draw.Draw(out, image.Rect(width, width, width+w, width+h), src, image.Point{}, draw.Src)
	default:
		outline(out, src, width, fill)
		draw.Draw(out, image.Rect(width, width, width+w, width+h), src, image.Point{}, draw.Over)
	}
	return out
}

// outline paints fill on every canvas pixel within radius of an opaque source pixel.
func outline(dst, src *image.NRGBA, radius int, fill color.NRGBA) {
	w, h := src.Bounds().Dx(), src.Bounds().Dy()
	r2 := radius * radius

	// Precompute disc offsets once.
	type offset struct{ dx, dy int }
	var disc []offset
	for dy := -radius; dy <= radius; dy++ {
		for dx := -radius; dx <= radius; dx++ {
			if dx*dx+dy*dy <= r2 {
				disc = append(disc, offset{dx, dy})
			}
		}
	}

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if src.Pix[src.PixOffset(x, y)+3] == 0 || !isEdge(src, x, y) {
				continue
			}
			for _, o := range disc {
				px, py := x+radius+o.dx, y+radius+o.dy
				dst.SetNRGBA(px, py, fill)
			}
		}
	}
}

// isEdge reports whether an opaque pixel touches transparency or the image border.
func isEdge(img *image.NRGBA, x, y int) bool {
	b := img.Bounds()
	for _, d := range [4][2]int{{1, 0}, {-1, 0}, {0, 1}, {0, -1}} {
		nx, ny := x+d[0], y+d[1]
		if nx < b.Min.X || ny < b.Min.Y || nx >= b.Max.X || ny >= b.Max.Y {
			return true
		}
		if img.Pix[img.PixOffset(nx, ny)+3] == 0 {
			return true
		}
	}
	return false
}
