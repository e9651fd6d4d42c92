package storybook

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/guillermopickman-spec/story-booker/internal/book"
	"github.com/guillermopickman-spec/story-booker/internal/characters"
	"github.com/guillermopickman-spec/story-booker/internal/jobs"
	"github.com/guillermopickman-spec/story-booker/internal/providers"
	"github.com/guillermopickman-spec/story-booker/internal/render"
)

func readPDF(t *testing.T, path string) []byte {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return data
}

func TestPipelineCompletes(t *testing.T) {
	env := newTestEnv(t, nil)
	job, err := env.svc.Submit(context.Background(), GenerateRequest{Theme: "a fox who finds a lost owl", NumPages: 2})
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	got := env.wait(t, job.ID)
	if got.Status != jobs.StatusCompleted {
		t.Fatalf("status = %s, error = %+v", got.Status, got.Error)
	}
	if got.Progress != 100 || got.CurrentStep != "Completed (1 language(s))" {
		t.Errorf("progress %d step %q", got.Progress, got.CurrentStep)
	}
	if got.StartedAt == nil || got.CompletedAt == nil {
		t.Error("timestamps not set")
	}

	path, ok := got.Output("en")
	if !ok || path != env.home.DocumentPath(job.ID, "en") {
		t.Fatalf("Output(en) = %q, %v", path, ok)
	}
	pdf := readPDF(t, path)
	n, err := render.PageCount(pdf)
	if err != nil {
		t.Fatalf("PageCount() error = %v", err)
	}
	if n != 4 {
		t.Errorf("page count = %d, want cover + 2 + back cover", n)
	}
	sizes, err := render.PageSizes(pdf)
	if err != nil {
		t.Fatalf("PageSizes() error = %v", err)
	}
	for i, s := range sizes {
		if math.Abs(s.Width-612) > 0.5 || math.Abs(s.Height-792) > 0.5 {
			t.Errorf("page %d size = %+v, want letter", i+1, s)
		}
	}

	for _, p := range []string{
		env.home.CoverImagePath(job.ID),
		env.home.BeatImagePath(job.ID, 1, 0),
		env.home.BeatImagePath(job.ID, 2, 0),
		env.home.BeatImagePath(job.ID, 1, 1),
		env.home.CharacterImagePath(job.ID, "chr_pip"),
	} {
		if _, err := os.Stat(p); err != nil {
			t.Errorf("missing artifact %s: %v", filepath.Base(p), err)
		}
	}
}

func TestPipelineImageFailure(t *testing.T) {
	failing := providers.NewMockProvider()
	failing.ShouldFail = true
	env := newTestEnv(t, []providers.Provider{failing})

	job, err := env.svc.Submit(context.Background(), GenerateRequest{Theme: "a fox", NumPages: 1})
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	got := env.wait(t, job.ID)
	if got.Status != jobs.StatusFailed {
		t.Fatalf("status = %s", got.Status)
	}
	if got.Progress != 16 || got.CurrentStep != "Failed: Generating cover image" {
		t.Errorf("progress %d step %q", got.Progress, got.CurrentStep)
	}
	if got.Error == nil || !strings.Contains(got.Error.Message, "all image providers failed") {
		t.Errorf("error = %+v", got.Error)
	}
	if len(got.Outputs) != 0 {
		t.Errorf("outputs = %v, want none", got.Outputs)
	}
	// Reference failures are recorded before the cover fails.
	if len(got.Warnings) == 0 {
		t.Error("expected reference warnings")
	}
}

func TestPipelinePrintReadyLanguages(t *testing.T) {
	env := newTestEnv(t, nil)
	job, err := env.svc.Submit(context.Background(), GenerateRequest{
		Theme:     "a fox and an owl",
		NumPages:  1,
		Languages: []string{"en", "es"},
		PODReady:  true,
	})
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	got := env.wait(t, job.ID)
	if got.Status != jobs.StatusCompleted {
		t.Fatalf("status = %s, error = %+v", got.Status, got.Error)
	}
	if len(got.Outputs) != 2 || got.CurrentStep != "Completed (2 language(s))" {
		t.Fatalf("outputs = %v step %q", got.Outputs, got.CurrentStep)
	}
	for _, lang := range []string{"en", "es"} {
		path, ok := got.Output(lang)
		if !ok {
			t.Fatalf("no %s output", lang)
		}
		if !strings.HasSuffix(path, "storybook_"+job.ID+"_"+lang+".pdf") {
			t.Errorf("%s path = %s", lang, path)
		}
		sizes, err := render.PageSizes(readPDF(t, path))
		if err != nil {
			t.Fatalf("PageSizes() error = %v", err)
		}
		if len(sizes) != 3 {
			t.Errorf("%s pages = %d, want 3", lang, len(sizes))
		}
		for _, s := range sizes {
			if math.Abs(s.Width-630) > 0.5 || math.Abs(s.Height-810) > 0.5 {
				t.Errorf("%s page size = %+v, want trim plus bleed", lang, s)
			}
		}
	}
}

func TestPipelineLocksRegisteredCharacter(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	pip, err := env.store.Create(ctx, &characters.Character{
		Name:                "Pip",
		Species:             "fox",
		PhysicalDescription: "a small orange fox with a green scarf",
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	job, err := env.svc.Submit(ctx, GenerateRequest{Theme: "a walk in the woods", NumPages: 1, CharacterIDs: []string{pip.ID}})
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if got := env.wait(t, job.ID); got.Status != jobs.StatusCompleted {
		t.Fatalf("status = %s, error = %+v", got.Status, got.Error)
	}

	stored, err := env.store.Get(ctx, pip.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if stored.Seed == nil || *stored.Seed != characters.DeriveSeed("Pip") {
		t.Errorf("seed = %v, want %d", stored.Seed, characters.DeriveSeed("Pip"))
	}
	if !stored.HasImage {
		t.Error("reference image not stored")
	}
	if _, err := os.Stat(env.home.CharacterImagePath(job.ID, pip.ID)); err != nil {
		t.Errorf("job reference missing: %v", err)
	}
}

func TestImageSize(t *testing.T) {
	tests := []struct {
		aspect float64
		w, h   int
	}{
		{792.0 / 612.0, 1024, 1344},
		{1, 1024, 1024},
		{0.5, 1024, 512},
		{0, 1024, 64},
		{10, 1024, 2048},
	}
	for _, tt := range tests {
		w, h := imageSize(tt.aspect)
		if w != tt.w || h != tt.h {
			t.Errorf("imageSize(%.3f) = %dx%d, want %dx%d", tt.aspect, w, h, tt.w, tt.h)
		}
	}
}

func TestBlurbAndSeed(t *testing.T) {
	b := &book.StoryBook{Beats: []book.Beat{{Index: 1, Text: "First part.\n\nSecond part."}}}
	if got := blurb(b); got != "First part." {
		t.Errorf("blurb = %q", got)
	}
	if blurb(&book.StoryBook{}) != "" {
		t.Error("blurb of empty book")
	}
	if layoutSeed("job-a") != layoutSeed("job-a") || layoutSeed("job-a") == layoutSeed("job-b") {
		t.Error("layout seed is not a stable function of the job id")
	}
}

func TestPipelineDefaultResolution(t *testing.T) {
	tests := []struct {
		name          string
		podReady      bool
		width, height float64
	}{
		{name: "rgb", width: 612, height: 792},
		{name: "print ready", podReady: true, width: 630, height: 810},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, nil)
			s := env.svc.Settings()
			s.DPI = render.DefaultDPI
			env.svc.SetSettings(s)

			job, err := env.svc.Submit(context.Background(), GenerateRequest{
				Theme:    "a lighthouse keeper",
				NumPages: 1,
				PODReady: tt.podReady,
			})
			if err != nil {
				t.Fatalf("Submit() error = %v", err)
			}
			got := env.wait(t, job.ID)
			if got.Status != jobs.StatusCompleted {
				t.Fatalf("status = %s, error = %+v", got.Status, got.Error)
			}
			path, ok := got.Output("en")
			if !ok {
				t.Fatal("no en output")
			}
			sizes, err := render.PageSizes(readPDF(t, path))
			if err != nil {
				t.Fatalf("PageSizes() error = %v", err)
			}
			if len(sizes) != 3 {
				t.Fatalf("pages = %d, want 3", len(sizes))
			}
			for i, ps := range sizes {
				if math.Abs(ps.Width-tt.width) > 0.5 || math.Abs(ps.Height-tt.height) > 0.5 {
					t.Errorf("page %d size = %+v, want %.0fx%.0f", i+1, ps, tt.width, tt.height)
				}
			}
		})
	}
}

func TestPipelineSafeZoneViolation(t *testing.T) {
	env := newTestEnv(t, nil)
	s := env.svc.Settings()
	s.Layout.Margin = 6
	env.svc.SetSettings(s)

	job, err := env.svc.Submit(context.Background(), GenerateRequest{
		Theme:    "a kite in the wind",
		NumPages: 1,
		PODReady: true,
	})
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	got := env.wait(t, job.ID)
	if got.Status != jobs.StatusFailed {
		t.Fatalf("status = %s, want failed", got.Status)
	}
	if got.Error == nil || !strings.Contains(got.Error.Message, "text outside safe zone") {
		t.Fatalf("error = %+v, want safe zone violation", got.Error)
	}
	if len(got.Outputs) != 0 {
		t.Errorf("outputs = %v, want none", got.Outputs)
	}
}
