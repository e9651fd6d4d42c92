package imaging

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"math"
	"testing"
)

// squareOnWhite draws an opaque size×size square at (x,y) on a white w×h canvas.
func squareOnWhite(w, h, x, y, size int, c color.Color) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for py := 0; py < h; py++ {
		for px := 0; px < w; px++ {
			img.Set(px, py, color.White)
		}
	}
	for py := y; py < y+size; py++ {
		for px := x; px < x+size; px++ {
			img.Set(px, py, c)
		}
	}
	return img
}

func TestRemoveBackground(t *testing.T) {
	img := squareOnWhite(20, 20, 5, 5, 10, color.RGBA{R: 200, G: 30, B: 30, A: 255})
	// A light grey pixel just under the threshold stays opaque.
	img.Set(0, 0, color.RGBA{R: 230, G: 230, B: 230, A: 255})

	out := RemoveBackground(img, 240)

	if a := out.NRGBAAt(1, 1).A; a != 0 {
		t.Errorf("white background should be transparent, alpha=%d", a)
	}
	if a := out.NRGBAAt(10, 10).A; a != 255 {
		t.Errorf("subject should be opaque, alpha=%d", a)
	}
	if a := out.NRGBAAt(0, 0).A; a != 255 {
		t.Errorf("pixel below threshold should be opaque, alpha=%d", a)
	}
	if img.NRGBAAt(1, 1).A != 255 {
		t.Error("input image must not be modified")
	}
}

func TestRemoveBackgroundThenAutoCrop(t *testing.T) {
	tests := []struct {
		name    string
		x, y    int
		padding int
		want    image.Rectangle
	}{
		{"centered square padding 5", 45, 45, 5, image.Rect(0, 0, 20, 20)},
		{"near edge is clamped", 2, 2, 5, image.Rect(0, 0, 17, 17)},
		{"zero padding", 45, 45, 0, image.Rect(0, 0, 10, 10)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img := squareOnWhite(100, 100, tt.x, tt.y, 10, color.Black)
			out := AutoCrop(RemoveBackground(img, 240), tt.padding)
			if out.Bounds() != tt.want {
				t.Errorf("bounds = %v, want %v", out.Bounds(), tt.want)
			}
		})
	}

	t.Run("content keeps its position in the crop", func(t *testing.T) {
		img := squareOnWhite(100, 100, 45, 45, 10, color.Black)
		out := AutoCrop(RemoveBackground(img, 240), 5)
		content, ok := ContentBounds(out)
		if !ok {
			t.Fatal("expected content")
		}
		if content != image.Rect(5, 5, 15, 15) {
			t.Errorf("content bounds = %v, want (5,5)-(15,15)", content)
		}
	})
}

func TestAutoCrop_FullyTransparent(t *testing.T) {
	img := RemoveBackground(squareOnWhite(30, 30, 0, 0, 0, color.Black), 240)
	out := AutoCrop(img, 5)
	if out != image.Image(img) {
		t.Error("fully transparent image should be returned unchanged")
	}
}

func TestAddBorder(t *testing.T) {
	src := AutoCrop(RemoveBackground(squareOnWhite(50, 50, 20, 20, 10, color.Black), 240), 0)

	t.Run("frame", func(t *testing.T) {
		out := AddBorder(src, 3, BorderFrame, color.White)
		if out.Bounds() != image.Rect(0, 0, 16, 16) {
			t.Fatalf("bounds = %v, want 16x16", out.Bounds())
		}
		if c := out.NRGBAAt(0, 0); c.A != 255 || c.R != 255 {
			t.Errorf("frame corner should be opaque white, got %v", c)
		}
		if c := out.NRGBAAt(8, 8); c.R != 0 || c.A != 255 {
			t.Errorf("content should be preserved, got %v", c)
		}
	})

	t.Run("outline", func(t *testing.T) {
		out := AddBorder(src, 3, BorderOutline, color.White)
		if out.Bounds() != image.Rect(0, 0, 16, 16) {
			t.Fatalf("bounds = %v, want 16x16", out.Bounds())
		}
		// Directly beside the square: white outline.
		if c := out.NRGBAAt(1, 8); c.A != 255 || c.R != 255 {
			t.Errorf("outline pixel should be opaque white, got %v", c)
		}
		// Far corner is beyond the outline radius.
		if c := out.NRGBAAt(0, 0); c.A != 0 {
			t.Errorf("corner should stay transparent, got %v", c)
		}
		if c := out.NRGBAAt(8, 8); c.R != 0 || c.A != 255 {
			t.Errorf("content should be preserved, got %v", c)
		}
	})

	t.Run("zero width is a copy", func(t *testing.T) {
		out := AddBorder(src, 0, BorderFrame, color.White)
		if out.Bounds() != src.Bounds() {
			t.Errorf("bounds changed: %v", out.Bounds())
		}
	})
}

func TestParseBorderStyle(t *testing.T) {
	if s, err := ParseBorderStyle(""); err != nil || s != BorderOutline {
		t.Errorf("empty style should default to outline, got %q %v", s, err)
	}
	if _, err := ParseBorderStyle("zigzag"); err == nil {
		t.Error("expected error for unknown style")
	}
}

func TestProcess(t *testing.T) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, squareOnWhite(100, 100, 45, 45, 10, color.Black)); err != nil {
		t.Fatal(err)
	}

	t.Run("defaults", func(t *testing.T) {
		data, err := Process(buf.Bytes(), DefaultOptions())
		if err != nil {
			t.Fatalf("Process: %v", err)
		}
		img, err := png.Decode(bytes.NewReader(data))
		if err != nil {
			t.Fatalf("output is not PNG: %v", err)
		}
		if img.Bounds().Dx() != 30 || img.Bounds().Dy() != 30 {
			t.Errorf("expected 30x30 (10 + 2*10 padding), got %v", img.Bounds())
		}
	})

	t.Run("with border", func(t *testing.T) {
		opts := DefaultOptions()
		opts.Border = true
		data, err := Process(buf.Bytes(), opts)
		if err != nil {
			t.Fatalf("Process: %v", err)
		}
		img, _ := png.Decode(bytes.NewReader(data))
		if img.Bounds().Dx() != 36 {
			t.Errorf("expected 36 wide with 3px border, got %d", img.Bounds().Dx())
		}
	})

	t.Run("garbage input", func(t *testing.T) {
		if _, err := Process([]byte("nope"), DefaultOptions()); err == nil {
			t.Error("expected decode error")
		}
	})
}

func TestFitAndCover(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 200, 100))

	if w, h := FitSize(src.Bounds(), 50, 50); w != 50 || h != 25 {
		t.Errorf("FitSize = %dx%d, want 50x25", w, h)
	}
	if out := Fit(src, 40, 100); out.Bounds().Dx() != 40 || out.Bounds().Dy() != 20 {
		t.Errorf("Fit = %v, want 40x20", out.Bounds())
	}
	if out := Cover(src, 60, 60); out.Bounds() != image.Rect(0, 0, 60, 60) {
		t.Errorf("Cover = %v, want 60x60", out.Bounds())
	}
}

func TestRotate(t *testing.T) {
	src := squareOnWhite(40, 20, 0, 0, 0, color.Black)

	t.Run("zero degrees keeps size", func(t *testing.T) {
		if out := Rotate(src, 0); out.Bounds() != src.Bounds() {
			t.Errorf("bounds = %v", out.Bounds())
		}
	})

	t.Run("ninety degrees swaps dimensions", func(t *testing.T) {
		out := Rotate(src, 90)
		if out.Bounds().Dx() != 20 || out.Bounds().Dy() != 40 {
			t.Errorf("bounds = %v, want 20x40", out.Bounds())
		}
	})

	t.Run("rotated size grows", func(t *testing.T) {
		w, h := RotatedSize(100, 100, 10)
		expected := int(math.Ceil(100*math.Cos(10*math.Pi/180) + 100*math.Sin(10*math.Pi/180)))
		if w != expected || h != expected {
			t.Errorf("RotatedSize = %dx%d, want %d", w, h, expected)
		}
		out := Rotate(src, 10)
		if c := out.NRGBAAt(0, 0); c.A != 0 {
			t.Errorf("corner should be transparent after rotation, got %v", c)
		}
	})
}
