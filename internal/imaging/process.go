package imaging

import (
	"image/color"
)

// Options controls sticker processing.
type Options struct {
	Threshold   uint8 // Luminance above which pixels become transparent
	Padding     int   // Pixels kept around the content box
	Border      bool
	BorderWidth int
	BorderStyle BorderStyle
}

// DefaultOptions returns the sticker defaults: threshold 240, padding 10, no border.
func DefaultOptions() Options {
	return Options{
		Threshold:   240,
		Padding:     10,
		BorderWidth: 3,
		BorderStyle: BorderOutline,
	}
}

// Process decodes data, removes the background, crops to content, optionally
// borders the result and returns it as PNG.
func Process(data []byte, opts Options) ([]byte, error) {
	img, err := Decode(data)
	if err != nil {
		return nil, err
	}

	out := AutoCrop(RemoveBackground(img, opts.Threshold), opts.Padding)
	if opts.Border && opts.BorderWidth > 0 {
		out = AddBorder(out, opts.BorderWidth, opts.BorderStyle, color.White)
	}
	return EncodePNG(out)
}
