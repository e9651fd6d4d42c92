package storybook

import (
	"fmt"

	"github.com/guillermopickman-spec/story-booker/internal/book"
	"github.com/guillermopickman-spec/story-booker/internal/config"
	"github.com/guillermopickman-spec/story-booker/internal/imaging"
	"github.com/guillermopickman-spec/story-booker/internal/layout"
	"github.com/guillermopickman-spec/story-booker/internal/preflight"
	"github.com/guillermopickman-spec/story-booker/internal/render"
)

// Settings are the pipeline knobs captured when a job is submitted.
type Settings struct {
	DefaultStyle     book.Style
	DefaultLanguages []string
	DefaultPages     int

	Processing       imaging.Options
	Layout           layout.Config
	DPI              int
	Profile          preflight.Profile
	ImageConcurrency int // Parallel illustrations per job
}

// DefaultSettings mirrors config.DefaultConfig.
func DefaultSettings() Settings {
	return Settings{
		DefaultStyle:     book.DefaultStyle,
		DefaultLanguages: []string{book.DefaultLanguage},
		DefaultPages:     book.DefaultPages,
		Processing:       imaging.DefaultOptions(),
		Layout:           layout.DefaultConfig(),
		DPI:              render.DefaultDPI,
		Profile:          preflight.DefaultProfile,
		ImageConcurrency: 3,
	}
}

// SettingsFromConfig converts the pipeline sections of cfg.
func SettingsFromConfig(cfg *config.Config) (Settings, error) {
	s := DefaultSettings()

	style, err := book.ParseStyle(cfg.Defaults.Style)
	if err != nil {
		return s, fmt.Errorf("defaults.style: %w", err)
	}
	s.DefaultStyle = style

	if len(cfg.Defaults.Languages) > 0 {
		langs, err := book.NormalizeLanguages(cfg.Defaults.Languages)
		if err != nil {
			return s, fmt.Errorf("defaults.languages: %w", err)
		}
		s.DefaultLanguages = langs
	}
	if p := cfg.Defaults.Pages; p != 0 {
		if p < book.MinPages || p > book.MaxPages {
			return s, fmt.Errorf("defaults.pages: %d is outside %d-%d", p, book.MinPages, book.MaxPages)
		}
		s.DefaultPages = p
	}

	pc := cfg.Pipeline
	if pc.BackgroundThreshold < 0 || pc.BackgroundThreshold > 255 {
		return s, fmt.Errorf("pipeline.background_threshold: %d is outside 0-255", pc.BackgroundThreshold)
	}
	border, err := imaging.ParseBorderStyle(pc.BorderStyle)
	if err != nil {
		return s, fmt.Errorf("pipeline.border_style: %w", err)
	}
	s.Processing = imaging.Options{
		Threshold:   uint8(pc.BackgroundThreshold),
		Padding:     pc.CropPadding,
		Border:      pc.Border,
		BorderWidth: pc.BorderWidth,
		BorderStyle: border,
	}

	trim, err := layout.ParseTrim(pc.TrimSize)
	if err != nil {
		return s, fmt.Errorf("pipeline.trim_size: %w", err)
	}
	if pc.RotationMin > pc.RotationMax {
		return s, fmt.Errorf("pipeline.rotation_min %.1f exceeds rotation_max %.1f", pc.RotationMin, pc.RotationMax)
	}
	s.Layout.Trim = trim
	s.Layout.RotationMin = pc.RotationMin
	s.Layout.RotationMax = pc.RotationMax

	if pc.DPI > 0 {
		s.DPI = pc.DPI
	}
	if pc.ImageConcurrency > 0 {
		s.ImageConcurrency = pc.ImageConcurrency
	}
	return s, nil
}
