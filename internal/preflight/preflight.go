// Package preflight prepares rendered pages for print-on-demand: CMYK
// separation, bleed and safe-zone checks.
package preflight

import (
	"bytes"
	"fmt"
	"image"
	"log/slog"
	"strings"

	"github.com/hhrutter/tiff"

	"github.com/guillermopickman-spec/story-booker/internal/layout"
	"github.com/guillermopickman-spec/story-booker/internal/render"
)

// Print geometry in points.
const (
	Bleed     = 0.125 * layout.PointsPerInch
	SafeInset = 0.25 * layout.PointsPerInch
)

// SafeZone returns the area of trim that text must stay inside.
func SafeZone(trim layout.Trim) layout.Rect {
	return trim.Rect().Inset(SafeInset)
}

// Violation is one text block outside the safe zone.
type Violation struct {
	Page int // Zero-based page index in the document
	Kind layout.PageKind
	Text string
	Rect layout.Rect
}

// SafeZoneError reports cover text that would be trimmed or sit too close to the edge.
type SafeZoneError struct {
	Safe       layout.Rect
	Violations []Violation
}

func (e *SafeZoneError) Error() string {
	parts := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		parts[i] = fmt.Sprintf("%s page %d text %q at (%.1f,%.1f %.1fx%.1f)", v.Kind, v.Page+1, v.Text, v.Rect.X, v.Rect.Y, v.Rect.W, v.Rect.H)
	}
	return fmt.Sprintf("text outside safe zone (%.1f,%.1f %.1fx%.1f): %s",
		e.Safe.X, e.Safe.Y, e.Safe.W, e.Safe.H, strings.Join(parts, "; "))
}

// Validate checks that every cover and back-cover text block lies inside the safe zone.
func Validate(doc *layout.Document) error {
	safe := SafeZone(doc.Trim)
	var violations []Violation
	for i, p := range doc.Pages {
		if p.Kind == layout.PageStory {
			continue
		}
		for _, t := range p.Text {
			if len(t.Lines) == 0 || safe.Contains(t.Rect) {
				continue
			}
			violations = append(violations, Violation{Page: i, Kind: p.Kind, Text: strings.Join(t.Lines, " "), Rect: t.Rect})
		}
	}
	if len(violations) > 0 {
		return &SafeZoneError{Safe: safe, Violations: violations}
	}
	return nil
}

// Config controls page preparation.
type Config struct {
	Profile Profile
	DPI     int
	Logger  *slog.Logger
}

// Preparer turns rendered RGB pages into bled CMYK TIFF pages.
type Preparer struct {
	profile Profile
	dpi     int
	logger  *slog.Logger
}

// NewPreparer validates cfg. A zero profile means DefaultProfile.
func NewPreparer(cfg Config) (*Preparer, error) {
	if cfg.Profile == (Profile{}) {
		cfg.Profile = DefaultProfile
	}
	if err := cfg.Profile.Validate(); err != nil {
		return nil, err
	}
	if cfg.DPI <= 0 {
		cfg.DPI = render.DefaultDPI
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Preparer{profile: cfg.Profile, dpi: cfg.DPI, logger: cfg.Logger}, nil
}

// BleedPixels is the bleed width at the preparer's resolution.
func (p *Preparer) BleedPixels() int {
	return layout.PointsToPixels(Bleed, p.dpi)
}

// PageSize is the PDF page size for trim plus bleed on every side.
func PageSize(trim layout.Trim) render.PageSize {
	return render.PageSize{Width: trim.Width + 2*Bleed, Height: trim.Height + 2*Bleed}
}

// Prepare validates doc and converts its rendered pages to CMYK TIFFs with bleed.
func (p *Preparer) Prepare(doc *layout.Document, pages []*image.NRGBA) ([][]byte, error) {
	if err := Validate(doc); err != nil {
		return nil, err
	}
	if len(pages) != len(doc.Pages) {
		return nil, fmt.Errorf("rendered %d pages for a %d page document", len(pages), len(doc.Pages))
	}
	bleed := p.BleedPixels()
	out := make([][]byte, len(pages))
	for i, page := range pages {
		cmyk := ConvertToCMYK(page, p.profile)
		data, err := EncodeTIFF(ApplyBleed(cmyk, bleed))
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", i+1, err)
		}
		out[i] = data
	}
	p.logger.Debug("pages prepared for print", "pages", len(out), "bleed_px", bleed, "ink_limit", p.profile.TotalInkLimit)
	return out, nil
}

// EncodeTIFF writes img as a deflate-compressed TIFF. CMYK images keep their
// separation.
func EncodeTIFF(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := tiff.Encode(&buf, img, &tiff.Options{Compression: tiff.Deflate}); err != nil {
		return nil, fmt.Errorf("encode tiff: %w", err)
	}
	return buf.Bytes(), nil
}
