package preflight

import (
	"fmt"
	"image"
	"image/color"
	"math"
)

// Profile is a parametric RGB to CMYK separation.
type Profile struct {
	// BlackGeneration is the share of the common grey component moved to the
	// K channel, 0 (none) to 1 (full).
	BlackGeneration float64
	// TotalInkLimit caps C+M+Y+K coverage in percent (100-400).
	TotalInkLimit float64
}

// DefaultProfile matches common coated-stock print requirements.
var DefaultProfile = Profile{BlackGeneration: 1, TotalInkLimit: 300}

// Validate checks the profile ranges.
func (p Profile) Validate() error {
	if p.BlackGeneration < 0 || p.BlackGeneration > 1 {
		return fmt.Errorf("black generation %.2f out of range [0,1]", p.BlackGeneration)
	}
	if p.TotalInkLimit < 100 || p.TotalInkLimit > 400 {
		return fmt.Errorf("total ink limit %.0f%% out of range [100,400]", p.TotalInkLimit)
	}
	return nil
}

// Separate converts one opaque RGB colour to CMYK.
func (p Profile) Separate(r, g, b uint8) color.CMYK {
	c := 1 - float64(r)/255
	m := 1 - float64(g)/255
	y := 1 - float64(b)/255
	k := min(c, m, y) * p.BlackGeneration
	c, m, y = c-k, m-k, y-k

	limit := p.TotalInkLimit / 100
	if k > limit {
		k = limit
	}
	if sum := c + m + y; sum+k > limit && sum > 0 {
		scale := max(limit-k, 0) / sum
		c, m, y = c*scale, m*scale, y*scale
	}
	return color.CMYK{C: channel(c), M: channel(m), Y: channel(y), K: channel(k)}
}

func channel(v float64) uint8 {
	return uint8(math.Round(math.Min(math.Max(v, 0), 1) * 255))
}

// ConvertToCMYK separates img with p. Transparent pixels are composited
// over white paper first. The conversion is deterministic.
func ConvertToCMYK(img image.Image, p Profile) *image.CMYK {
	b := img.Bounds()
	out := image.NewCMYK(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			// Premultiplied components plus the uncovered share of white.
			r, g, bl, a := img.At(x, y).RGBA()
			white := 0xffff - a
			c := p.Separate(uint8((r+white)>>8), uint8((g+white)>>8), uint8((bl+white)>>8))
			out.SetCMYK(x-b.Min.X, y-b.Min.Y, c)
		}
	}
	return out
}

// InkCoverage returns the C+M+Y+K coverage of c in percent.
func InkCoverage(c color.CMYK) float64 {
	return (float64(c.C) + float64(c.M) + float64(c.Y) + float64(c.K)) / 255 * 100
}
