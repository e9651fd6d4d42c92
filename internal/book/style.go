package book

import (
	"fmt"
	"strings"
)

// Style is an art direction applied to every generated image.
type Style string

const (
	StyleClaymation    Style = "CLAYMATION"
	StyleVintageSketch Style = "VINTAGE_SKETCH"
	StyleFlatDesign    Style = "FLAT_DESIGN"
	Style3DRendered    Style = "3D_RENDERED"
	StyleWatercolor    Style = "WATERCOLOR"
	StyleLineArt       Style = "LINE_ART"

	DefaultStyle = Style3DRendered
)

var styleDescriptions = map[Style]string{
	StyleClaymation:    "claymation style, handcrafted plasticine figures, visible fingerprints, soft stop-motion lighting",
	StyleVintageSketch: "vintage pencil sketch style, cross-hatching, warm sepia tones, aged paper texture",
	StyleFlatDesign:    "flat design style, bold solid shapes, minimal shading, limited bright palette",
	Style3DRendered:    "3D rendered style, smooth glossy surfaces, soft global illumination, cute proportions",
	StyleWatercolor:    "watercolor style, soft washes, gentle color bleeds, visible paper grain",
	StyleLineArt:       "clean line art style, crisp black outlines, simple flat fills, coloring-book look",
}

// Styles lists every supported style in a stable order.
func Styles() []Style {
	return []Style{StyleClaymation, StyleVintageSketch, StyleFlatDesign, Style3DRendered, StyleWatercolor, StyleLineArt}
}

// ParseStyle accepts a style name in any case, with spaces or dashes for underscores.
// An empty name yields DefaultStyle.
func ParseStyle(name string) (Style, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return DefaultStyle, nil
	}
	s := Style(strings.ToUpper(strings.NewReplacer(" ", "_", "-", "_").Replace(name)))
	if _, ok := styleDescriptions[s]; !ok {
		return "", fmt.Errorf("unknown art style %q", name)
	}
	return s, nil
}

// Description returns the prompt text for the style.
func (s Style) Description() string {
	if d, ok := styleDescriptions[s]; ok {
		return d
	}
	return styleDescriptions[DefaultStyle]
}
