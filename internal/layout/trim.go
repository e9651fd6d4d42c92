package layout

import (
	"fmt"
	"strings"
)

// PointsPerInch converts inches to PDF points.
const PointsPerInch = 72.0

// Trim is a finished page size in points.
type Trim struct {
	Name   string  `json:"name"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Supported trim sizes.
var (
	Letter    = Trim{Name: "letter", Width: 612, Height: 792}
	Square    = Trim{Name: "square", Width: 612, Height: 612}
	Landscape = Trim{Name: "landscape", Width: 792, Height: 612}
)

// DefaultTrim is used when no trim size is configured.
var DefaultTrim = Letter

// Trims lists the supported trim sizes.
func Trims() []Trim {
	return []Trim{Letter, Square, Landscape}
}

// ParseTrim looks up a trim size by name. An empty name yields DefaultTrim.
func ParseTrim(name string) (Trim, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return DefaultTrim, nil
	}
	for _, t := range Trims() {
		if t.Name == name {
			return t, nil
		}
	}
	return Trim{}, fmt.Errorf("unknown trim size %q (want letter, square or landscape)", name)
}

// Portrait reports whether the page is taller than it is wide.
func (t Trim) Portrait() bool {
	return t.Height > t.Width
}

// Rect returns the full page rectangle.
func (t Trim) Rect() Rect {
	return Rect{W: t.Width, H: t.Height}
}

// Pixels returns the page size in pixels at dpi.
func (t Trim) Pixels(dpi int) (int, int) {
	return PointsToPixels(t.Width, dpi), PointsToPixels(t.Height, dpi)
}

// PointsToPixels converts a length in points to whole pixels at dpi.
func PointsToPixels(pt float64, dpi int) int {
	return int(pt*float64(dpi)/PointsPerInch + 0.5)
}

// Rect is an axis-aligned box in points with a top-left origin.
type Rect struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

func (r Rect) Right() float64  { return r.X + r.W }
func (r Rect) Bottom() float64 { return r.Y + r.H }

// Inset shrinks r by d on every side.
func (r Rect) Inset(d float64) Rect {
	return Rect{X: r.X + d, Y: r.Y + d, W: max(r.W-2*d, 0), H: max(r.H-2*d, 0)}
}

// Contains reports whether o lies entirely inside r.
func (r Rect) Contains(o Rect) bool {
	const eps = 1e-6
	return o.X >= r.X-eps && o.Y >= r.Y-eps && o.Right() <= r.Right()+eps && o.Bottom() <= r.Bottom()+eps
}

// Empty reports whether r has no area.
func (r Rect) Empty() bool {
	return r.W <= 0 || r.H <= 0
}
