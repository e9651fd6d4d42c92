package layout

import (
	"fmt"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
)

var (
	fontsOnce sync.Once
	regular   *opentype.Font
	bold      *opentype.Font
	fontsErr  error
)

func loadFonts() error {
	fontsOnce.Do(func() {
		regular, fontsErr = opentype.Parse(goregular.TTF)
		if fontsErr != nil {
			fontsErr = fmt.Errorf("parse regular font: %w", fontsErr)
			return
		}
		bold, fontsErr = opentype.Parse(gobold.TTF)
		if fontsErr != nil {
			fontsErr = fmt.Errorf("parse bold font: %w", fontsErr)
		}
	})
	return fontsErr
}

// NewFace returns a Go font face of size points at dpi.
// Faces are not safe for concurrent use; create one per goroutine.
func NewFace(isBold bool, size float64, dpi int) (font.Face, error) {
	if err := loadFonts(); err != nil {
		return nil, err
	}
	f := regular
	if isBold {
		f = bold
	}
	return opentype.NewFace(f, &opentype.FaceOptions{
		Size:    size,
		DPI:     float64(dpi),
		Hinting: font.HintingNone,
	})
}

// measurer caches 72-DPI faces so widths come out in points.
type measurer struct {
	faces map[faceKey]font.Face
}

type faceKey struct {
	bold bool
	size float64
}

func newMeasurer() *measurer {
	return &measurer{faces: make(map[faceKey]font.Face)}
}

func (m *measurer) face(isBold bool, size float64) (font.Face, error) {
	k := faceKey{isBold, size}
	if f, ok := m.faces[k]; ok {
		return f, nil
	}
	f, err := NewFace(isBold, size, int(PointsPerInch))
	if err != nil {
		return nil, err
	}
	m.faces[k] = f
	return f, nil
}

func (m *measurer) close() {
	for _, f := range m.faces {
		f.Close()
	}
}

// widthFunc returns a function measuring strings in points.
func (m *measurer) widthFunc(isBold bool, size float64) (func(string) float64, error) {
	f, err := m.face(isBold, size)
	if err != nil {
		return nil, err
	}
	return func(s string) float64 {
		return float64(font.MeasureString(f, s)) / 64
	}, nil
}
