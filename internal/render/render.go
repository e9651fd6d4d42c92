// Package render rasterises composed layout pages and assembles them into
// PDF files with pdfcpu.
package render

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"log/slog"
	"math"
	"os"

	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"

	"github.com/guillermopickman-spec/story-booker/internal/imaging"
	"github.com/guillermopickman-spec/story-booker/internal/layout"
)

// DefaultDPI is used when Config.DPI is zero.
const DefaultDPI = 150

// stickerFill is the share of a slot a non-bleed image may occupy.
const stickerFill = 0.9

var (
	paper     = color.NRGBA{0xff, 0xff, 0xff, 0xff}
	coverBack = color.NRGBA{0xff, 0xf8, 0xe7, 0xff}
	ink       = color.NRGBA{0x22, 0x22, 0x22, 0xff}
	bandFill  = color.NRGBA{0xff, 0xff, 0xff, 0xd8}
)

// Config controls rasterisation.
type Config struct {
	DPI    int
	Logger *slog.Logger
}

// Renderer draws layout pages into RGB images.
type Renderer struct {
	dpi    int
	logger *slog.Logger
	load   func(path string) (image.Image, error)
}

// NewRenderer creates a renderer that reads images from disk.
func NewRenderer(cfg Config) *Renderer {
	if cfg.DPI <= 0 {
		cfg.DPI = DefaultDPI
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Renderer{dpi: cfg.DPI, logger: cfg.Logger, load: loadFile}
}

// DPI returns the raster resolution.
func (r *Renderer) DPI() int {
	return r.dpi
}

func loadFile(path string) (image.Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return imaging.Decode(data)
}

// Render rasterises every page of doc.
func (r *Renderer) Render(doc *layout.Document) ([]*image.NRGBA, error) {
	images := make(map[string]image.Image)
	get := func(path string) (image.Image, error) {
		if img, ok := images[path]; ok {
			return img, nil
		}
		img, err := r.load(path)
		if err != nil {
			return nil, fmt.Errorf("load image %s: %w", path, err)
		}
		images[path] = img
		return img, nil
	}

	out := make([]*image.NRGBA, 0, len(doc.Pages))
	for i, p := range doc.Pages {
		page, err := r.renderPage(doc.Trim, p, get)
		if err != nil {
			return nil, fmt.Errorf("render page %d (%s): %w", i+1, p.Kind, err)
		}
		out = append(out, page)
	}
	return out, nil
}

func (r *Renderer) renderPage(trim layout.Trim, p layout.Page, get func(string) (image.Image, error)) (*image.NRGBA, error) {
	w, h := trim.Pixels(r.dpi)
	dst := image.NewNRGBA(image.Rect(0, 0, w, h))
	bg := paper
	if p.Kind != layout.PageStory {
		bg = coverBack
	}
	draw.Draw(dst, dst.Bounds(), image.NewUniform(bg), image.Point{}, draw.Src)

	for _, pl := range p.Placements {
		img, err := get(pl.Path)
		if err != nil {
			return nil, err
		}
		r.place(dst, img, pl)
	}
	for _, t := range p.Text {
		if err := r.text(dst, t); err != nil {
			return nil, err
		}
	}
	return dst, nil
}

func (r *Renderer) px(pt float64) int {
	return layout.PointsToPixels(pt, r.dpi)
}

func (r *Renderer) rect(rc layout.Rect) image.Rectangle {
	return image.Rect(r.px(rc.X), r.px(rc.Y), r.px(rc.Right()), r.px(rc.Bottom()))
}

// place draws img into the placement box. Bleed placements fill the box and
// are clipped to it; others fit inside it with a small margin.
func (r *Renderer) place(dst *image.NRGBA, img image.Image, pl layout.Placement) {
	box := r.rect(pl.Rect).Intersect(dst.Bounds())
	if box.Empty() {
		return
	}
	var scaled *image.NRGBA
	if pl.Bleed {
		scaled = imaging.Cover(img, box.Dx(), box.Dy())
	} else {
		scaled = imaging.Fit(img, int(float64(box.Dx())*stickerFill), int(float64(box.Dy())*stickerFill))
	}
	if math.Abs(pl.Rotation) > 0.1 {
		scaled = imaging.Rotate(scaled, pl.Rotation)
		if !pl.Bleed && (scaled.Bounds().Dx() > box.Dx() || scaled.Bounds().Dy() > box.Dy()) {
			scaled = imaging.Fit(scaled, int(float64(box.Dx())*stickerFill), int(float64(box.Dy())*stickerFill))
		}
	}
	sb := scaled.Bounds()
	at := image.Pt(box.Min.X+(box.Dx()-sb.Dx())/2, box.Min.Y+(box.Dy()-sb.Dy())/2)
	clip := dst.SubImage(box).(*image.NRGBA)
	draw.Draw(clip, sb.Add(at), scaled, sb.Min, draw.Over)
}

// text draws a wrapped block line by line from the top of its box.
func (r *Renderer) text(dst *image.NRGBA, t layout.TextBlock) error {
	if len(t.Lines) == 0 {
		return nil
	}
	face, err := layout.NewFace(t.Bold, t.Size, r.dpi)
	if err != nil {
		return err
	}
	defer face.Close()

	if t.Band {
		used := layout.Rect{X: t.Rect.X, Y: t.Rect.Y, W: t.Rect.W, H: min(t.Rect.H, float64(len(t.Lines))*t.LineHeight)}
		pad := t.Size / 3
		band := r.rect(layout.Rect{X: used.X - pad, Y: used.Y - pad, W: used.W + 2*pad, H: used.H + 2*pad})
		draw.Draw(dst, band.Intersect(dst.Bounds()), image.NewUniform(bandFill), image.Point{}, draw.Over)
	}

	d := &font.Drawer{Dst: dst, Src: image.NewUniform(ink), Face: face}
	ascent := face.Metrics().Ascent
	box := r.rect(t.Rect)
	for i, line := range t.Lines {
		top := t.Rect.Y + float64(i)*t.LineHeight
		// Centre the glyph height within the line.
		lead := (t.LineHeight - t.Size) / 2
		y := fixed.I(r.px(top+lead)) + ascent
		width := d.MeasureString(line)
		x := fixed.I(box.Min.X)
		switch t.Align {
		case layout.AlignCenter:
			x += (fixed.I(box.Dx()) - width) / 2
		case layout.AlignRight:
			x += fixed.I(box.Dx()) - width
		}
		d.Dot = fixed.Point26_6{X: x, Y: y}
		d.DrawString(line)
	}
	return nil
}
