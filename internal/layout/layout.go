// Package layout composes storybook pages: template placement, rotation
// jitter, text wrapping and the cover and back cover. It works purely in
// points and image paths; internal/render turns a Document into pixels.
package layout

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"strconv"
	"strings"

	"github.com/guillermopickman-spec/story-booker/internal/book"
)

// PageKind distinguishes cover, story and back-cover pages.
type PageKind string

const (
	PageCover     PageKind = "cover"
	PageStory     PageKind = "story"
	PageBackCover PageKind = "back_cover"
)

// Align is horizontal text alignment within a block.
type Align string

const (
	AlignLeft   Align = "left"
	AlignCenter Align = "center"
	AlignRight  Align = "right"
)

// Placement is one image positioned on a page.
type Placement struct {
	Path     string  `json:"path"`
	Rect     Rect    `json:"rect"`
	Rotation float64 `json:"rotation"` // Degrees, counter-clockwise
	Bleed    bool    `json:"bleed"`    // Fills Rect edge to edge instead of fitting inside it
}

// TextBlock is wrapped text inside a box.
type TextBlock struct {
	Rect       Rect     `json:"rect"`
	Lines      []string `json:"lines"`
	Size       float64  `json:"size"`
	LineHeight float64  `json:"line_height"`
	Bold       bool     `json:"bold,omitempty"`
	Align      Align    `json:"align"`
	Band       bool     `json:"band,omitempty"` // Draw a backing panel behind the text
	Truncated  bool     `json:"truncated,omitempty"`
}

// Page is a composed page.
type Page struct {
	Kind       PageKind    `json:"kind"`
	Number     int         `json:"number,omitempty"` // Story page number, 1-based
	Template   Template    `json:"template,omitempty"`
	Placements []Placement `json:"placements,omitempty"`
	Text       []TextBlock `json:"text,omitempty"`
}

// Document is a composed book ready for rendering.
type Document struct {
	Trim     Trim   `json:"trim"`
	Title    string `json:"title"`
	Language string `json:"language"`
	Pages    []Page `json:"pages"`
}

// TruncatedPages returns the numbers of story pages whose text was cut.
func (d *Document) TruncatedPages() []int {
	var out []int
	for _, p := range d.Pages {
		for _, t := range p.Text {
			if t.Truncated && p.Kind == PageStory {
				out = append(out, p.Number)
				break
			}
		}
	}
	return out
}

// Input is everything needed to compose one language edition.
type Input struct {
	Book  *book.StoryBook
	Cover string // Cover image path; empty for a text-only cover
	// Images maps a beat index to its image paths in slot order.
	Images map[int][]string
	Blurb  string
	// Seed fixes the rotation sequence. The same seed yields the same rotations.
	Seed uint64
}

// Config tunes page geometry.
type Config struct {
	Trim        Trim
	Margin      float64 // Points; applies to text and non-bleed images
	Gap         float64 // Points between images and bands
	RotationMin float64 // Degrees
	RotationMax float64
	BodySize    float64 // Story text size in points
	TitleSize   float64 // Cover title size in points
	ArtFraction float64 // Share of page height taken by the art band
	Logger      *slog.Logger
}

// DefaultConfig returns letter-size geometry with ±10° jitter.
func DefaultConfig() Config {
	return Config{
		Trim:        DefaultTrim,
		Margin:      36,
		Gap:         12,
		RotationMin: -10,
		RotationMax: 10,
		BodySize:    14,
		TitleSize:   36,
		ArtFraction: 0.62,
	}
}

// Engine composes documents.
type Engine struct {
	cfg    Config
	logger *slog.Logger
}

// NewEngine creates an engine, filling zero fields from DefaultConfig.
func NewEngine(cfg Config) (*Engine, error) {
	def := DefaultConfig()
	if cfg.Trim.Width == 0 || cfg.Trim.Height == 0 {
		cfg.Trim = def.Trim
	}
	if cfg.Margin == 0 {
		cfg.Margin = def.Margin
	}
	if cfg.Gap == 0 {
		cfg.Gap = def.Gap
	}
	if cfg.BodySize == 0 {
		cfg.BodySize = def.BodySize
	}
	if cfg.TitleSize == 0 {
		cfg.TitleSize = def.TitleSize
	}
	if cfg.ArtFraction == 0 {
		cfg.ArtFraction = def.ArtFraction
	}
	if cfg.Margin < 0 || cfg.Gap < 0 {
		return nil, fmt.Errorf("margin and gap must not be negative")
	}
	if cfg.ArtFraction <= 0 || cfg.ArtFraction >= 1 {
		return nil, fmt.Errorf("art fraction %.2f out of range (0,1)", cfg.ArtFraction)
	}
	if cfg.RotationMin > cfg.RotationMax {
		return nil, fmt.Errorf("rotation min %.1f exceeds max %.1f", cfg.RotationMin, cfg.RotationMax)
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if err := loadFonts(); err != nil {
		return nil, err
	}
	return &Engine{cfg: cfg, logger: cfg.Logger}, nil
}

// Config returns the effective configuration.
func (e *Engine) Config() Config {
	return e.cfg
}

// Compose lays out the cover, one page per beat and the back cover.
func (e *Engine) Compose(in Input) (*Document, error) {
	if in.Book == nil || len(in.Book.Beats) == 0 {
		return nil, errors.New("book has no beats")
	}
	m := newMeasurer()
	defer m.close()

	rng := rand.New(rand.NewPCG(in.Seed, in.Seed^0x9e3779b97f4a7c15))
	doc := &Document{Trim: e.cfg.Trim, Title: in.Book.Title, Language: in.Book.Language}

	cover, err := e.cover(m, in)
	if err != nil {
		return nil, err
	}
	doc.Pages = append(doc.Pages, cover)

	for i, beat := range in.Book.Beats {
		key := beat.Index
		if key == 0 {
			key = i + 1
		}
		page, err := e.storyPage(m, rng, in.Book.Title, i+1, beat, in.Images[key])
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", i+1, err)
		}
		if page.Text[len(page.Text)-1].Truncated {
			e.logger.Warn("story text truncated", "page", page.Number, "language", in.Book.Language)
		}
		doc.Pages = append(doc.Pages, page)
	}

	back, err := e.backCover(m, in)
	if err != nil {
		return nil, err
	}
	doc.Pages = append(doc.Pages, back)
	return doc, nil
}

func (e *Engine) rotation(rng *rand.Rand) float64 {
	lo, hi := e.cfg.RotationMin, e.cfg.RotationMax
	if lo == hi {
		return lo
	}
	return lo + rng.Float64()*(hi-lo)
}

const headerSize = 12

func headerHeight() float64 {
	return math.Ceil(headerSize * 1.4)
}

// ArtBand returns the edge-to-edge illustration band of a story page.
func (e *Engine) ArtBand() Rect {
	top := e.cfg.Margin + headerHeight() + e.cfg.Gap/2
	bottom := math.Round(e.cfg.Trim.Height * e.cfg.ArtFraction)
	return Rect{X: 0, Y: top, W: e.cfg.Trim.Width, H: bottom - top}
}

// storyPage places the header, the art band and the story text.
func (e *Engine) storyPage(m *measurer, rng *rand.Rand, title string, number int, beat book.Beat, images []string) (Page, error) {
	tmpl, err := TemplateFor(len(images), e.cfg.Trim)
	if err != nil {
		return Page{}, err
	}
	page := Page{Kind: PageStory, Number: number, Template: tmpl}
	trim, mg, gap := e.cfg.Trim, e.cfg.Margin, e.cfg.Gap

	headerH := headerHeight()
	num := strconv.Itoa(number)
	numBlock, err := e.block(m, Rect{X: mg, Y: mg, W: trim.Width - 2*mg, H: headerH}, num, headerSize, false, AlignRight)
	if err != nil {
		return Page{}, err
	}
	numWidth, err := m.widthFunc(false, headerSize)
	if err != nil {
		return Page{}, err
	}
	titleRect := Rect{X: mg, Y: mg, W: max(trim.Width-2*mg-numWidth(num)-gap, 0), H: headerH}
	titleBlock, err := e.block(m, titleRect, title, headerSize, true, AlignLeft)
	if err != nil {
		return Page{}, err
	}

	band := e.ArtBand()
	artBottom := band.Bottom()
	area := Rect{X: mg, Y: band.Y, W: trim.Width - 2*mg, H: band.H}
	for i, s := range tmpl.slots(band, area, gap) {
		page.Placements = append(page.Placements, Placement{
			Path:     images[i],
			Rect:     s.rect,
			Rotation: e.rotation(rng),
			Bleed:    s.bleed,
		})
	}

	textRect := Rect{X: mg, Y: artBottom + gap, W: trim.Width - 2*mg, H: trim.Height - mg - artBottom - gap}
	body, err := e.block(m, textRect, beat.Text, e.cfg.BodySize, false, AlignLeft)
	if err != nil {
		return Page{}, err
	}
	page.Text = []TextBlock{titleBlock, numBlock, body}
	return page, nil
}

// cover places the cover image full page with a title band in the top margin box.
func (e *Engine) cover(m *measurer, in Input) (Page, error) {
	trim, mg := e.cfg.Trim, e.cfg.Margin
	page := Page{Kind: PageCover}
	if in.Cover != "" {
		page.Placements = []Placement{{Path: in.Cover, Rect: trim.Rect(), Bleed: true}}
	}
	bandH := math.Ceil(e.cfg.TitleSize*1.4*2 + e.cfg.Gap)
	title, err := e.block(m, Rect{X: mg, Y: mg, W: trim.Width - 2*mg, H: bandH}, in.Book.Title, e.cfg.TitleSize, true, AlignCenter)
	if err != nil {
		return Page{}, err
	}
	title.Band = true
	page.Text = []TextBlock{title}
	return page, nil
}

// backCover centres the title with the optional blurb below it.
func (e *Engine) backCover(m *measurer, in Input) (Page, error) {
	trim, mg, gap := e.cfg.Trim, e.cfg.Margin, e.cfg.Gap
	page := Page{Kind: PageBackCover}
	size := math.Round(e.cfg.TitleSize * 0.75)
	titleRect := Rect{X: mg, Y: trim.Height * 0.25, W: trim.Width - 2*mg, H: math.Ceil(size * 1.4 * 2)}
	title, err := e.block(m, titleRect, in.Book.Title, size, true, AlignCenter)
	if err != nil {
		return Page{}, err
	}
	page.Text = []TextBlock{title}
	if blurb := strings.TrimSpace(in.Blurb); blurb != "" {
		blurbRect := Rect{X: mg * 2, Y: titleRect.Bottom() + gap*2, W: trim.Width - 4*mg, H: trim.Height*0.75 - titleRect.Bottom() - gap*2}
		b, err := e.block(m, blurbRect, blurb, e.cfg.BodySize, false, AlignCenter)
		if err != nil {
			return Page{}, err
		}
		page.Text = append(page.Text, b)
	}
	return page, nil
}

// block wraps text into r, truncating what does not fit.
func (e *Engine) block(m *measurer, r Rect, text string, size float64, isBold bool, align Align) (TextBlock, error) {
	width, err := m.widthFunc(isBold, size)
	if err != nil {
		return TextBlock{}, err
	}
	lh := math.Round(size*1.35*100) / 100
	maxLines := int(math.Floor((r.H + 1e-9) / lh))
	lines, truncated := Truncate(width, Wrap(width, text, r.W), maxLines, r.W)
	return TextBlock{
		Rect:       r,
		Lines:      lines,
		Size:       size,
		LineHeight: lh,
		Bold:       isBold,
		Align:      align,
		Truncated:  truncated,
	}, nil
}
