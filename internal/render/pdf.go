package render

import (
	"bytes"
	"fmt"
	"image"
	"io"
	"math"
	"sync"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"

	"github.com/guillermopickman-spec/story-booker/internal/imaging"
)

var configOnce sync.Once

func disableConfigDir() {
	configOnce.Do(api.DisableConfigDir)
}

// PageSize is a PDF page size in points.
type PageSize struct {
	Width  float64
	Height float64
}

// WritePDF writes one page per encoded image (PNG, JPEG or TIFF). Every page
// is exactly size; each image is centered and scaled to the page, so pixel
// dimensions only set the effective resolution.
func WritePDF(w io.Writer, pages [][]byte, size PageSize) error {
	if len(pages) == 0 {
		return fmt.Errorf("no pages to write")
	}
	disableConfigDir()

	imp, err := api.Import(fmt.Sprintf("dimensions:%.2f %.2f, position:c, scalefactor:1.0 rel", size.Width, size.Height), types.POINTS)
	if err != nil {
		return fmt.Errorf("import settings: %w", err)
	}
	readers := make([]io.Reader, len(pages))
	for i, p := range pages {
		readers[i] = bytes.NewReader(p)
	}
	if err := api.ImportImages(nil, w, readers, imp, nil); err != nil {
		return fmt.Errorf("assemble pdf: %w", err)
	}
	return nil
}

// EncodePNG encodes RGB pages for WritePDF.
func EncodePNG(pages []*image.NRGBA) ([][]byte, error) {
	out := make([][]byte, len(pages))
	for i, p := range pages {
		data, err := imaging.EncodePNG(p)
		if err != nil {
			return nil, fmt.Errorf("encode page %d: %w", i+1, err)
		}
		out[i] = data
	}
	return out, nil
}

// PageCount returns the number of pages in a PDF.
func PageCount(pdf []byte) (int, error) {
	disableConfigDir()
	n, err := api.PageCount(bytes.NewReader(pdf), nil)
	if err != nil {
		return 0, fmt.Errorf("read page count: %w", err)
	}
	return n, nil
}

// PageSizes returns the size of every page in a PDF.
func PageSizes(pdf []byte) ([]PageSize, error) {
	disableConfigDir()
	dims, err := api.PageDims(bytes.NewReader(pdf), nil)
	if err != nil {
		return nil, fmt.Errorf("read page dimensions: %w", err)
	}
	out := make([]PageSize, len(dims))
	for i, d := range dims {
		out[i] = PageSize{Width: d.Width, Height: d.Height}
	}
	return out, nil
}

// Verify checks that a written PDF has the expected page count and size.
func Verify(pdf []byte, pages int, size PageSize) error {
	n, err := PageCount(pdf)
	if err != nil {
		return err
	}
	if n != pages {
		return fmt.Errorf("pdf has %d pages, want %d", n, pages)
	}
	sizes, err := PageSizes(pdf)
	if err != nil {
		return err
	}
	const tolerance = 0.5
	for i, s := range sizes {
		if math.Abs(s.Width-size.Width) > tolerance || math.Abs(s.Height-size.Height) > tolerance {
			return fmt.Errorf("page %d is %.1fx%.1fpt, want %.1fx%.1fpt", i+1, s.Width, s.Height, size.Width, size.Height)
		}
	}
	return nil
}
