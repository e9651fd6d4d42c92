package storybook

import (
	"bytes"
	"context"
	"fmt"
	"hash/fnv"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/guillermopickman-spec/story-booker/internal/book"
	"github.com/guillermopickman-spec/story-booker/internal/characters"
	"github.com/guillermopickman-spec/story-booker/internal/imaging"
	"github.com/guillermopickman-spec/story-booker/internal/jobs"
	"github.com/guillermopickman-spec/story-booker/internal/layout"
	"github.com/guillermopickman-spec/story-booker/internal/preflight"
	"github.com/guillermopickman-spec/story-booker/internal/prompts/artdirector"
	"github.com/guillermopickman-spec/story-booker/internal/prompts/localize"
	"github.com/guillermopickman-spec/story-booker/internal/prompts/story"
	"github.com/guillermopickman-spec/story-booker/internal/providers"
	"github.com/guillermopickman-spec/story-booker/internal/render"
)

const (
	// imageWidth is the requested width of covers and illustrations.
	imageWidth = 1024
	// maxStickers caps character stickers added next to a page illustration.
	maxStickers = layout.MaxImagesPerPage - 1
)

// pipeline is the state of one job run. It is owned by a single goroutine
// apart from the bounded fan-outs inside illustrate and publish.
type pipeline struct {
	svc      *Service
	job      *jobs.Job
	req      jobs.Request
	settings Settings
	style    book.Style
	tracker  *jobs.Tracker
	chars    *characters.Engine
	layout   *layout.Engine
	logger   *slog.Logger

	requested []*characters.Character
	cast      []*characters.Character
	base      *book.StoryBook
	cover     string
	scenes    []characters.ImagePrompt
	images    map[int][]string
}

func (s *Service) newPipeline(job *jobs.Job, settings Settings, tracker *jobs.Tracker) *pipeline {
	logger := s.logger.With("job_id", job.ID)
	style, err := book.ParseStyle(job.Request.Style)
	if err != nil {
		style = settings.DefaultStyle
	}
	p := &pipeline{
		svc:      s,
		job:      job,
		req:      job.Request,
		settings: settings,
		style:    style,
		tracker:  tracker,
		logger:   logger,
	}
	p.chars = characters.NewEngine(characters.EngineConfig{
		Providers:  s.providers,
		Prompts:    s.prompts,
		Store:      s.characters,
		Cache:      s.cache,
		Processing: settings.Processing,
		Style:      style,
		ReferencePath: func(c *characters.Character) string {
			return s.home.CharacterImagePath(job.ID, c.ID)
		},
		Logger: logger,
	})
	return p
}

// run executes every step in order and returns the document path per language.
func (p *pipeline) run(ctx context.Context) (map[string]string, error) {
	cfg := p.settings.Layout
	cfg.Logger = p.logger
	engine, err := layout.NewEngine(cfg)
	if err != nil {
		return nil, fmt.Errorf("layout settings: %w", err)
	}
	p.layout = engine
	if err := p.svc.home.EnsureJobDirs(p.job.ID); err != nil {
		return nil, fmt.Errorf("prepare job directory: %w", err)
	}

	steps := []func(context.Context) error{
		p.writeStory,
		p.resolveCharacters,
		p.lockReferences,
		p.drawCover,
		p.designScenes,
		p.illustrate,
	}
	for _, step := range steps {
		if err := step(ctx); err != nil {
			return nil, err
		}
	}
	return p.publish(ctx)
}

// writeStory generates the base narrative in the primary language.
func (p *pipeline) writeStory(ctx context.Context) error {
	primary := p.req.Languages[0]
	if err := p.tracker.Step(5, fmt.Sprintf("Generating story (%s)", primary)); err != nil {
		return err
	}

	requested, err := p.chars.LoadRequested(ctx, p.req.CharacterIDs)
	if err != nil {
		return fmt.Errorf("load registered characters: %w", err)
	}
	p.requested = requested
	refs := make([]string, len(requested))
	for i, c := range requested {
		refs[i] = c.Reference()
	}

	req, err := story.BuildRequest(ctx, p.svc.prompts, story.Input{
		Theme:      p.req.Theme,
		Pages:      p.req.Pages,
		Language:   primary,
		Characters: refs,
	})
	if err != nil {
		return fmt.Errorf("story prompt: %w", err)
	}
	res, err := p.svc.providers.TextChain().GenerateText(ctx, req)
	if err != nil {
		return fmt.Errorf("generate story: %w", err)
	}
	b, err := story.Parse(res, p.req.Pages, primary)
	if err != nil {
		return fmt.Errorf("generate story: %w", err)
	}
	p.base = b
	p.logger.Info("base story generated", "title", b.Title, "beats", len(b.Beats), "provider", res.Provider)
	return p.tracker.Step(10, "Base story generated")
}

// resolveCharacters merges extracted characters with the registered ones.
func (p *pipeline) resolveCharacters(ctx context.Context) error {
	if err := p.tracker.Step(12, "Extracting characters"); err != nil {
		return err
	}
	extracted, err := p.chars.Extract(ctx, p.req.Theme, p.base)
	if err != nil {
		p.tracker.Warn(fmt.Sprintf("character extraction failed; using registered characters only: %v", err))
	}
	p.cast = p.chars.Resolve(p.requested, extracted)

	always := make(map[string]bool, len(p.requested))
	for _, c := range p.requested {
		always[c.Identity()] = true
	}
	characters.EnsureInBeats(p.base, p.cast, always)
	p.logger.Info("characters resolved", "registered", len(p.requested), "extracted", len(extracted), "cast", len(p.cast))
	return nil
}

// lockReferences generates a reference image and locks the seed for every
// character that lacks one. Failures degrade consistency but do not fail the job.
func (p *pipeline) lockReferences(ctx context.Context) error {
	if err := p.tracker.Step(14, "Generating character references"); err != nil {
		return err
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(p.settings.ImageConcurrency, 1))
	for i, c := range p.cast {
		g.Go(func() error {
			locked, err := p.chars.EnsureReference(gctx, c)
			if err != nil {
				p.tracker.Warn(fmt.Sprintf("reference image for %s failed; continuing without a locked seed: %v", c.Name, err))
			}
			p.cast[i] = locked
			return nil
		})
	}
	_ = g.Wait()

	// Registered characters that were already locked have no file for this job yet.
	for i, c := range p.cast {
		if !c.HasImage || c.ReferenceImage != "" {
			continue
		}
		data, err := p.chars.ReferenceImage(ctx, c)
		if err != nil {
			p.tracker.Warn(fmt.Sprintf("reference image for %s unavailable: %v", c.Name, err))
			continue
		}
		path := p.svc.home.CharacterImagePath(p.job.ID, c.ID)
		if err := writeFileAtomic(path, data); err != nil {
			return fmt.Errorf("write reference for %s: %w", c.Name, err)
		}
		c = c.Clone()
		c.ReferenceImage = path
		p.cast[i] = c
	}
	return nil
}

// drawCover generates the cover illustration.
func (p *pipeline) drawCover(ctx context.Context) error {
	if err := p.tracker.Step(16, "Generating cover image"); err != nil {
		return err
	}
	prompt := characters.BuildPrompt(characters.CoverPrompt(p.base), p.style, characters.InBeat(p.base.Beats[0], p.cast)...)
	trim := p.settings.Layout.Trim
	data, err := p.generateImage(ctx, prompt, trim.Height/trim.Width)
	if err != nil {
		return fmt.Errorf("cover image: %w", err)
	}
	path := p.svc.home.CoverImagePath(p.job.ID)
	if err := writeFileAtomic(path, data); err != nil {
		return fmt.Errorf("write cover image: %w", err)
	}
	p.cover = path
	return nil
}

// designScenes asks the art director for one prompt per beat.
func (p *pipeline) designScenes(ctx context.Context) error {
	n := len(p.base.Beats)
	p.scenes = make([]characters.ImagePrompt, n)
	for i, beat := range p.base.Beats {
		if err := p.tracker.Step(jobs.Span(18, 30, i, n), fmt.Sprintf("Designing illustration %d/%d", i+1, n)); err != nil {
			return err
		}
		present := characters.InBeat(beat, p.cast)
		refs := make([]string, len(present))
		for j, c := range present {
			refs[j] = c.Reference()
		}

		designed, err := p.designScene(ctx, beat, refs)
		if err != nil {
			p.tracker.Warn(fmt.Sprintf("art direction for page %d failed; using the scene description: %v", i+1, err))
			designed = artdirector.FallbackPrompt(beat)
		}
		p.scenes[i] = characters.ScenePrompt(designed, beat, p.style, p.cast)
	}
	return nil
}

func (p *pipeline) designScene(ctx context.Context, beat book.Beat, refs []string) (string, error) {
	req, err := artdirector.BuildRequest(ctx, p.svc.prompts, artdirector.Input{Beat: beat, Style: p.style, Characters: refs})
	if err != nil {
		return "", err
	}
	res, err := p.svc.providers.TextChain().GenerateText(ctx, req)
	if err != nil {
		return "", err
	}
	return artdirector.Parse(res, beat)
}

// illustrate generates every page illustration once, shared by all languages.
func (p *pipeline) illustrate(ctx context.Context) error {
	beats := p.base.Beats
	n := len(beats)
	if err := p.tracker.Step(30, fmt.Sprintf("Illustrating page 1/%d", n)); err != nil {
		return err
	}
	band := p.layout.ArtBand()
	aspect := band.H / band.W

	paths := make([]string, n)
	var done atomic.Int32
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(p.settings.ImageConcurrency, 1))
	for i, beat := range beats {
		g.Go(func() error {
			data, err := p.generateImage(gctx, p.scenes[i], aspect)
			if err != nil {
				return fmt.Errorf("illustrate page %d: %w", i+1, err)
			}
			path := p.svc.home.BeatImagePath(p.job.ID, beat.Index, 0)
			if err := writeFileAtomic(path, data); err != nil {
				return fmt.Errorf("write illustration for page %d: %w", i+1, err)
			}
			paths[i] = path
			if k := int(done.Add(1)); k < n {
				_ = p.tracker.Step(jobs.Span(30, 60, k, n), fmt.Sprintf("Illustrating page %d/%d", k+1, n))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	p.images = make(map[int][]string, n)
	for i, beat := range beats {
		stickers, err := p.stickers(beat)
		if err != nil {
			return err
		}
		p.images[beat.Index] = append([]string{paths[i]}, stickers...)
	}
	return p.tracker.Step(60, fmt.Sprintf("Illustrated %d page(s)", n))
}

// stickers copies up to maxStickers character references matched by the
// beat's subjects into the beat's image slots.
func (p *pipeline) stickers(beat book.Beat) ([]string, error) {
	var out []string
	seen := make(map[string]bool)
	for _, subject := range beat.StickerSubjects {
		if len(out) == maxStickers {
			break
		}
		c := characters.MatchSubject(subject, p.cast)
		if c == nil || c.ReferenceImage == "" || seen[c.ID] {
			continue
		}
		seen[c.ID] = true
		data, err := os.ReadFile(c.ReferenceImage)
		if err != nil {
			p.logger.Warn("sticker source missing", "character", c.Name, "error", err)
			continue
		}
		path := p.svc.home.BeatImagePath(p.job.ID, beat.Index, len(out)+1)
		if err := writeFileAtomic(path, data); err != nil {
			return nil, fmt.Errorf("write sticker for page %d: %w", beat.Index, err)
		}
		out = append(out, path)
	}
	return out, nil
}

// generateImage runs the image chain and normalises the result to PNG.
func (p *pipeline) generateImage(ctx context.Context, prompt characters.ImagePrompt, aspect float64) ([]byte, error) {
	w, h := imageSize(aspect)
	res, err := p.svc.providers.ImageChain().GenerateImage(ctx, &providers.ImageRequest{
		Prompt: prompt.Text,
		Seed:   prompt.Seed,
		Width:  w,
		Height: h,
	})
	if err != nil {
		return nil, err
	}
	img, err := imaging.Decode(res.Data)
	if err != nil {
		return nil, fmt.Errorf("decode image from %s: %w", res.Provider, err)
	}
	p.logger.Debug("image generated", "provider", res.Provider, "characters", prompt.CharacterIDs, "seeded", prompt.Seed != nil)
	return imaging.EncodePNG(img)
}

// imageSize returns a request size of imageWidth by the aspect-scaled height
// rounded to a multiple of 64.
func imageSize(aspect float64) (int, int) {
	h := int(math.Round(imageWidth*aspect/64)) * 64
	return imageWidth, min(max(h, 64), 2048)
}

// publish builds one document per language in parallel.
func (p *pipeline) publish(ctx context.Context) (map[string]string, error) {
	langs := p.req.Languages
	n := len(langs)
	outputs := make(map[string]string, n)
	var mu sync.Mutex
	var started atomic.Int32

	g, gctx := errgroup.WithContext(ctx)
	for _, lang := range langs {
		g.Go(func() error {
			k := int(started.Add(1))
			if err := p.tracker.Step(jobs.Span(70, 95, k-1, n), fmt.Sprintf("Generating PDF in %s (%d/%d)", lang, k, n)); err != nil {
				return err
			}
			path, err := p.edition(gctx, lang)
			if err != nil {
				return fmt.Errorf("%s edition: %w", lang, err)
			}
			mu.Lock()
			outputs[lang] = path
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return outputs, nil
}

// edition localises, lays out, renders and writes one language's PDF.
func (p *pipeline) edition(ctx context.Context, lang string) (string, error) {
	b := p.base
	if lang != p.base.Language {
		req, err := localize.BuildRequest(ctx, p.svc.prompts, p.base, lang)
		if err != nil {
			return "", err
		}
		res, err := p.svc.providers.TextChain().GenerateText(ctx, req)
		if err != nil {
			return "", fmt.Errorf("localize: %w", err)
		}
		if b, err = localize.Apply(res, p.base, lang); err != nil {
			return "", fmt.Errorf("localize: %w", err)
		}
	}

	doc, err := p.layout.Compose(layout.Input{
		Book:   b,
		Cover:  p.cover,
		Images: p.images,
		Blurb:  blurb(b),
		Seed:   layoutSeed(p.job.ID),
	})
	if err != nil {
		return "", fmt.Errorf("layout: %w", err)
	}
	if pages := doc.TruncatedPages(); len(pages) > 0 {
		p.tracker.Warn(fmt.Sprintf("text truncated on page(s) %v (%s)", pages, lang))
	}

	pages, err := render.NewRenderer(render.Config{DPI: p.settings.DPI, Logger: p.logger}).Render(doc)
	if err != nil {
		return "", err
	}

	var encoded [][]byte
	size := render.PageSize{Width: doc.Trim.Width, Height: doc.Trim.Height}
	if p.req.PODReady {
		prep, err := preflight.NewPreparer(preflight.Config{Profile: p.settings.Profile, DPI: p.settings.DPI, Logger: p.logger})
		if err != nil {
			return "", fmt.Errorf("preflight: %w", err)
		}
		if encoded, err = prep.Prepare(doc, pages); err != nil {
			return "", fmt.Errorf("preflight: %w", err)
		}
		size = preflight.PageSize(doc.Trim)
	} else if encoded, err = render.EncodePNG(pages); err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := render.WritePDF(&buf, encoded, size); err != nil {
		return "", err
	}
	if err := render.Verify(buf.Bytes(), len(encoded), size); err != nil {
		return "", fmt.Errorf("verify pdf: %w", err)
	}
	path := p.svc.home.DocumentPath(p.job.ID, lang)
	if err := writeFileAtomic(path, buf.Bytes()); err != nil {
		return "", fmt.Errorf("write pdf: %w", err)
	}
	p.logger.Info("document written", "language", lang, "pages", len(encoded), "pod_ready", p.req.PODReady, "bytes", buf.Len())
	return path, nil
}

// blurb is the first paragraph of the opening page.
func blurb(b *book.StoryBook) string {
	if len(b.Beats) == 0 {
		return ""
	}
	first, _, _ := strings.Cut(strings.TrimSpace(b.Beats[0].Text), "\n\n")
	return first
}

// layoutSeed derives the rotation seed from the job id so every language
// edition of a job shares the same page arrangement.
func layoutSeed(jobID string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(jobID))
	return h.Sum64()
}

func writeFileAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}
