package layout

import (
	"fmt"
	"strings"
	"testing"

	"github.com/guillermopickman-spec/story-booker/internal/book"
)

// runeWidth measures one point per rune.
func runeWidth(s string) float64 {
	return float64(len([]rune(s)))
}

func testBook(pages int, text string) *book.StoryBook {
	b := &book.StoryBook{Title: "Pip and the Moon", Language: "en"}
	for i := 1; i <= pages; i++ {
		b.Beats = append(b.Beats, book.Beat{Index: i, Text: text})
	}
	return b
}

func imagesFor(b *book.StoryBook, counts ...int) map[int][]string {
	out := make(map[int][]string)
	for i, beat := range b.Beats {
		n := counts[i%len(counts)]
		for s := 0; s < n; s++ {
			out[beat.Index] = append(out[beat.Index], fmt.Sprintf("beat_%02d_%d.png", beat.Index, s))
		}
	}
	return out
}

func TestParseTrim(t *testing.T) {
	tests := []struct {
		in      string
		want    Trim
		wantErr bool
	}{
		{"", Letter, false},
		{"letter", Letter, false},
		{" Square ", Square, false},
		{"LANDSCAPE", Landscape, false},
		{"a4", Trim{}, true},
	}
	for _, tt := range tests {
		got, err := ParseTrim(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseTrim(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseTrim(%q) = %+v, want %+v", tt.in, got, tt.want)
		}
	}
	if w, h := Letter.Pixels(150); w != 1275 || h != 1650 {
		t.Errorf("Letter.Pixels(150) = %dx%d, want 1275x1650", w, h)
	}
}

func TestTemplateFor(t *testing.T) {
	tests := []struct {
		n    int
		trim Trim
		want Template
	}{
		{1, Letter, TemplateFull},
		{2, Letter, TemplateStacked},
		{2, Square, TemplateSideBySide},
		{2, Landscape, TemplateSideBySide},
		{3, Letter, TemplateTriangle},
		{3, Landscape, TemplateTriangle},
	}
	for _, tt := range tests {
		got, err := TemplateFor(tt.n, tt.trim)
		if err != nil {
			t.Fatalf("TemplateFor(%d, %s): %v", tt.n, tt.trim.Name, err)
		}
		if got != tt.want {
			t.Errorf("TemplateFor(%d, %s) = %s, want %s", tt.n, tt.trim.Name, got, tt.want)
		}
	}
	for _, n := range []int{0, 4} {
		if _, err := TemplateFor(n, Letter); err == nil {
			t.Errorf("TemplateFor(%d) should fail", n)
		}
	}
}

func TestTemplateSlots(t *testing.T) {
	band := Rect{X: 0, Y: 60, W: 612, H: 400}
	area := Rect{X: 36, Y: 60, W: 540, H: 400}

	full := TemplateFull.slots(band, area, 12)
	if len(full) != 1 || full[0].rect != band || !full[0].bleed {
		t.Errorf("full slots = %+v", full)
	}

	stacked := TemplateStacked.slots(band, area, 12)
	if stacked[0].rect.X != stacked[1].rect.X || stacked[1].rect.Y <= stacked[0].rect.Bottom() {
		t.Errorf("stacked slots overlap or misalign: %+v", stacked)
	}

	side := TemplateSideBySide.slots(band, area, 12)
	if side[0].rect.Y != side[1].rect.Y || side[1].rect.X <= side[0].rect.Right() {
		t.Errorf("side-by-side slots overlap or misalign: %+v", side)
	}

	tri := TemplateTriangle.slots(band, area, 12)
	if tri[0].rect.Y != tri[1].rect.Y {
		t.Errorf("top row not aligned: %+v", tri)
	}
	if tri[2].rect.Y <= tri[0].rect.Bottom() {
		t.Errorf("bottom slot not below top row: %+v", tri)
	}
	centre := tri[2].rect.X + tri[2].rect.W/2
	if centre != area.X+area.W/2 {
		t.Errorf("bottom slot centre = %v, want %v", centre, area.X+area.W/2)
	}
	for _, s := range append(append(stacked, side...), tri...) {
		if !area.Contains(s.rect) {
			t.Errorf("slot %+v escapes area %+v", s.rect, area)
		}
	}
}

func TestWrap(t *testing.T) {
	t.Run("greedy", func(t *testing.T) {
		got := Wrap(runeWidth, "the quick brown fox jumps", 10)
		want := []string{"the quick", "brown fox", "jumps"}
		if strings.Join(got, "|") != strings.Join(want, "|") {
			t.Errorf("Wrap = %q, want %q", got, want)
		}
	})
	t.Run("paragraphs", func(t *testing.T) {
		got := Wrap(runeWidth, "one two\n\nthree", 20)
		want := []string{"one two", "", "three"}
		if strings.Join(got, "|") != strings.Join(want, "|") {
			t.Errorf("Wrap = %q, want %q", got, want)
		}
	})
	t.Run("long word", func(t *testing.T) {
		got := Wrap(runeWidth, "a abcdefghij b", 4)
		want := []string{"a", "abcd", "efgh", "ij b"}
		if strings.Join(got, "|") != strings.Join(want, "|") {
			t.Errorf("Wrap = %q, want %q", got, want)
		}
	})
	t.Run("empty", func(t *testing.T) {
		if got := Wrap(runeWidth, "   ", 10); len(got) != 0 {
			t.Errorf("Wrap(blank) = %q", got)
		}
	})
}

func TestTruncate(t *testing.T) {
	lines := []string{"the quick", "brown fox", "jumps"}

	got, truncated := Truncate(runeWidth, lines, 3, 10)
	if truncated || len(got) != 3 {
		t.Errorf("no truncation expected, got %q %v", got, truncated)
	}

	got, truncated = Truncate(runeWidth, lines, 2, 10)
	if !truncated {
		t.Fatal("expected truncation")
	}
	if got[1] != "brown fox"+Ellipsis {
		t.Errorf("last line = %q", got[1])
	}

	// A full line loses whole words until the ellipsis fits.
	got, _ = Truncate(runeWidth, []string{"aaa bbb ccc", "dd"}, 1, 11)
	if got[0] != "aaa bbb"+Ellipsis {
		t.Errorf("last line = %q, want word-boundary cut", got[0])
	}

	got, truncated = Truncate(runeWidth, lines, 0, 10)
	if got != nil || !truncated {
		t.Errorf("Truncate(0) = %q %v", got, truncated)
	}
}

func TestCompose(t *testing.T) {
	e, err := NewEngine(DefaultConfig())
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	b := testBook(3, "Pip the fox found a shiny stone by the river.")
	doc, err := e.Compose(Input{Book: b, Cover: "cover.png", Images: imagesFor(b, 1, 2, 3), Blurb: "A gentle tale.", Seed: 42})
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}

	if len(doc.Pages) != 5 {
		t.Fatalf("pages = %d, want 5", len(doc.Pages))
	}
	if doc.Pages[0].Kind != PageCover || doc.Pages[4].Kind != PageBackCover {
		t.Errorf("kinds = %s..%s", doc.Pages[0].Kind, doc.Pages[4].Kind)
	}
	if doc.Pages[0].Placements[0].Path != "cover.png" || !doc.Pages[0].Text[0].Band {
		t.Errorf("cover = %+v", doc.Pages[0])
	}
	if got := doc.Pages[4].Text; len(got) != 2 || got[1].Lines[0] != "A gentle tale." {
		t.Errorf("back cover text = %+v", got)
	}

	wantTemplates := []Template{TemplateFull, TemplateStacked, TemplateTriangle}
	safe := Letter.Rect().Inset(DefaultConfig().Margin)
	for i, p := range doc.Pages[1:4] {
		if p.Number != i+1 || p.Template != wantTemplates[i] || len(p.Placements) != i+1 {
			t.Errorf("page %d: number %d template %s placements %d", i+1, p.Number, p.Template, len(p.Placements))
		}
		for _, pl := range p.Placements {
			if pl.Rotation < -10 || pl.Rotation > 10 {
				t.Errorf("rotation %v out of range", pl.Rotation)
			}
			if !pl.Bleed && !safe.Contains(pl.Rect) {
				t.Errorf("placement %+v outside margins", pl.Rect)
			}
		}
		body := p.Text[len(p.Text)-1]
		if body.Truncated || strings.Join(body.Lines, " ") != b.Beats[i].Text {
			t.Errorf("page %d body = %q", i+1, body.Lines)
		}
		if !safe.Contains(body.Rect) {
			t.Errorf("text box %+v outside margins", body.Rect)
		}
	}
	if full := doc.Pages[1].Placements[0]; full.Rect.X != 0 || full.Rect.W != Letter.Width {
		t.Errorf("full template should span the page width: %+v", full.Rect)
	}
}

func TestComposeRotationReproducible(t *testing.T) {
	e, err := NewEngine(DefaultConfig())
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	b := testBook(4, "Luna flew over the hill.")
	images := imagesFor(b, 3)

	rotations := func(seed uint64) []float64 {
		doc, err := e.Compose(Input{Book: b, Images: images, Seed: seed})
		if err != nil {
			t.Fatalf("Compose: %v", err)
		}
		var out []float64
		for _, p := range doc.Pages {
			for _, pl := range p.Placements {
				out = append(out, pl.Rotation)
			}
		}
		return out
	}

	first, again, other := rotations(7), rotations(7), rotations(8)
	if len(first) != 12 {
		t.Fatalf("rotations = %d, want 12", len(first))
	}
	if fmt.Sprint(first) != fmt.Sprint(again) {
		t.Errorf("same seed gave different rotations:\n%v\n%v", first, again)
	}
	if fmt.Sprint(first) == fmt.Sprint(other) {
		t.Errorf("different seeds gave identical rotations")
	}
	distinct := map[float64]bool{}
	for _, r := range first {
		distinct[r] = true
	}
	if len(distinct) < 2 {
		t.Errorf("rotations are not independent: %v", first)
	}
}

func TestComposeFixedRotation(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RotationMin, cfg.RotationMax = 0, 0
	e, err := NewEngine(cfg)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	b := testBook(1, "Hi.")
	doc, err := e.Compose(Input{Book: b, Images: imagesFor(b, 2), Seed: 1})
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	for _, pl := range doc.Pages[1].Placements {
		if pl.Rotation != 0 {
			t.Errorf("rotation = %v, want 0", pl.Rotation)
		}
	}
}

func TestComposeTruncatesOverflow(t *testing.T) {
	e, err := NewEngine(Config{Trim: Landscape})
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	long := strings.Repeat("The little fox kept walking through the tall green grass. ", 80)
	b := testBook(2, "Short page.")
	b.Beats[1].Text = long
	doc, err := e.Compose(Input{Book: b, Images: imagesFor(b, 1)})
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}

	if got := doc.TruncatedPages(); len(got) != 1 || got[0] != 2 {
		t.Fatalf("TruncatedPages = %v, want [2]", got)
	}
	body := doc.Pages[2].Text[len(doc.Pages[2].Text)-1]
	last := body.Lines[len(body.Lines)-1]
	if !strings.HasSuffix(last, Ellipsis) {
		t.Errorf("last line %q lacks ellipsis", last)
	}
	if float64(len(body.Lines))*body.LineHeight > body.Rect.H {
		t.Errorf("%d lines overflow box height %v", len(body.Lines), body.Rect.H)
	}
	width, err := newMeasurer().widthFunc(false, body.Size)
	if err != nil {
		t.Fatal(err)
	}
	for _, l := range body.Lines {
		if width(l) > body.Rect.W {
			t.Errorf("line %q is %.1fpt wide, box is %.1fpt", l, width(l), body.Rect.W)
		}
	}
}

func TestComposeErrors(t *testing.T) {
	e, err := NewEngine(DefaultConfig())
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	if _, err := e.Compose(Input{Book: &book.StoryBook{Title: "x"}}); err == nil {
		t.Error("expected error for book without beats")
	}
	b := testBook(1, "text")
	if _, err := e.Compose(Input{Book: b}); err == nil {
		t.Error("expected error for beat without images")
	}
	if _, err := e.Compose(Input{Book: b, Images: imagesFor(b, 4)}); err == nil {
		t.Error("expected error for four images")
	}
}

func TestNewEngineValidation(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RotationMin, cfg.RotationMax = 5, -5
	if _, err := NewEngine(cfg); err == nil {
		t.Error("expected error for inverted rotation range")
	}
	cfg = DefaultConfig()
	cfg.ArtFraction = 1.5
	if _, err := NewEngine(cfg); err == nil {
		t.Error("expected error for art fraction above 1")
	}
}
