package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"

	"github.com/guillermopickman-spec/story-booker/internal/api"
	"github.com/guillermopickman-spec/story-booker/internal/characters"
	"github.com/guillermopickman-spec/story-booker/internal/jobs"
	"github.com/guillermopickman-spec/story-booker/internal/jobs/storybook"
	"github.com/guillermopickman-spec/story-booker/internal/prompts"
	"github.com/guillermopickman-spec/story-booker/internal/providers"
)

var (
	localReq storybook.GenerateRequest
	localOut string
)

var generateCmd = &cobra.Command{
	Use:   "generate <theme>",
	Short: "Generate a storybook in this process, without a server",
	Long: `Generate a storybook in this process and copy the PDFs to --out.

Uses the same configuration, character registry and prompt overrides as
"storybooker serve". To submit to a running server use "storybooker api generate".

Examples:
  storybooker generate "a shy dragon makes a friend"
  storybooker generate "bedtime in the forest" -p 3 -l en -l es --pod
  storybooker generate "Pip goes sailing" -c chr_pip --out ./books`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		logger := newLogger()

		h, mgr, err := loadEnvironment()
		if err != nil {
			return err
		}
		cfg := mgr.Get()

		settings, err := storybook.SettingsFromConfig(cfg)
		if err != nil {
			return err
		}
		registry := providers.NewRegistry()
		registry.SetLogger(logger)
		registry.Reload(cfg.ToProviderRegistryConfig())

		dbPath := cfg.Characters.DatabasePath
		if dbPath == "" {
			dbPath = h.DatabasePath()
		}
		store, err := characters.OpenStore(cfg.Characters.Backend, h.CharactersDir(), dbPath, logger)
		if err != nil {
			return err
		}
		if c, ok := store.(io.Closer); ok {
			defer c.Close()
		}

		svc, err := storybook.NewService(storybook.Config{
			Home:       h,
			Jobs:       jobs.NewMemoryStore(logger),
			Providers:  registry,
			Prompts:    prompts.NewResolver(prompts.NewStore(h.PromptsDir(), logger), logger),
			Characters: store,
			Settings:   settings,
			Logger:     logger,
		})
		if err != nil {
			return err
		}

		req := localReq
		req.Theme = args[0]
		job, runSettings, err := svc.Create(ctx, req)
		if err != nil {
			return err
		}
		svc.Run(ctx, job.ID, runSettings)

		job, err = svc.Jobs().Get(job.ID)
		if err != nil {
			return err
		}
		if job.Status != jobs.StatusCompleted {
			api.Output(job)
			return fmt.Errorf("job %s %s at %q", job.ID, job.Status, job.CurrentStep)
		}

		if err := os.MkdirAll(localOut, 0o755); err != nil {
			return err
		}
		langs := make([]string, 0, len(job.Outputs))
		for lang := range job.Outputs {
			langs = append(langs, lang)
		}
		sort.Strings(langs)
		for _, lang := range langs {
			src := job.Outputs[lang]
			dst := filepath.Join(localOut, filepath.Base(src))
			if err := copyFile(src, dst); err != nil {
				return err
			}
			job.Outputs[lang] = dst
		}
		return api.Output(job)
	},
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("copy %s: %w", src, err)
	}
	return out.Close()
}

func init() {
	f := generateCmd.Flags()
	f.IntVarP(&localReq.NumPages, "pages", "p", 0, "Number of story pages (default from config)")
	f.StringVar(&localReq.Style, "style", "", "Art style (see: storybooker api styles)")
	f.StringSliceVarP(&localReq.Languages, "lang", "l", nil, "Output languages")
	f.BoolVar(&localReq.PODReady, "pod", false, "Print-ready output with bleed and CMYK images")
	f.StringSliceVarP(&localReq.CharacterIDs, "character", "c", nil, "Registered character ids to cast")
	f.StringVar(&localOut, "out", ".", "Directory to copy finished PDFs into")

	rootCmd.AddCommand(generateCmd)
}
