package layout

import "fmt"

// Template names the arrangement used for a story page.
type Template string

const (
	TemplateFull       Template = "full"
	TemplateStacked    Template = "stacked"
	TemplateSideBySide Template = "side_by_side"
	TemplateTriangle   Template = "triangle"
)

// MaxImagesPerPage is the largest image count a template arranges.
const MaxImagesPerPage = 3

// TemplateFor picks the template for n images on trim.
func TemplateFor(n int, trim Trim) (Template, error) {
	switch n {
	case 1:
		return TemplateFull, nil
	case 2:
		if trim.Portrait() {
			return TemplateStacked, nil
		}
		return TemplateSideBySide, nil
	case 3:
		return TemplateTriangle, nil
	default:
		return "", fmt.Errorf("no template for %d images (want 1-%d)", n, MaxImagesPerPage)
	}
}

// slot is one image position within a template.
type slot struct {
	rect  Rect
	bleed bool
}

// slots positions the template's images. band is the edge-to-edge art band
// and area is the same band inside the page margins.
func (t Template) slots(band, area Rect, gap float64) []slot {
	switch t {
	case TemplateFull:
		return []slot{{rect: band, bleed: true}}
	case TemplateStacked:
		h := (area.H - gap) / 2
		return []slot{
			{rect: Rect{X: area.X, Y: area.Y, W: area.W, H: h}},
			{rect: Rect{X: area.X, Y: area.Y + h + gap, W: area.W, H: h}},
		}
	case TemplateSideBySide:
		w := (area.W - gap) / 2
		return []slot{
			{rect: Rect{X: area.X, Y: area.Y, W: w, H: area.H}},
			{rect: Rect{X: area.X + w + gap, Y: area.Y, W: w, H: area.H}},
		}
	case TemplateTriangle:
		w := (area.W - gap) / 2
		h := (area.H - gap) / 2
		return []slot{
			{rect: Rect{X: area.X, Y: area.Y, W: w, H: h}},
			{rect: Rect{X: area.X + w + gap, Y: area.Y, W: w, H: h}},
			{rect: Rect{X: area.X + (area.W-w)/2, Y: area.Y + h + gap, W: w, H: h}},
		}
	}
	return nil
}
