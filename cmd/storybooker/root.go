package main

import (
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/guillermopickman-spec/story-booker/internal/api"
	"github.com/guillermopickman-spec/story-booker/internal/config"
	"github.com/guillermopickman-spec/story-booker/internal/home"
	"github.com/guillermopickman-spec/story-booker/version"
)

var (
	cfgFile      string
	homeDir      string
	outputFormat string
	logLevel     string
)

var rootCmd = &cobra.Command{
	Use:   "storybooker",
	Short: "Illustrated children's storybook generator",
	Long: `Storybooker turns a short theme into an illustrated children's storybook
and renders it to PDF, optionally print-ready for print-on-demand services.

A generation job:
  - writes the story with a text model, with provider fallback
  - locks recurring characters to a reference image and seed
  - illustrates the cover and every page with an image model
  - lays out text and stickers and renders one PDF per language`,
	Version:       version.GitRelease,
	SilenceUsage:  true,
	SilenceErrors: false,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		format, err := api.ParseOutputFormat(outputFormat)
		if err != nil {
			return err
		}
		api.SetOutputFormat(format)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile, "config", "", "config file (default: ./config.yaml or ~/.storybooker/config.yaml)",
	)
	rootCmd.PersistentFlags().StringVar(
		&homeDir, "home", "", "storybooker home directory (default: ~/.storybooker)",
	)
	rootCmd.PersistentFlags().StringVarP(
		&outputFormat, "output", "o", "yaml", "output format: yaml or json",
	)
	rootCmd.PersistentFlags().StringVar(
		&logLevel, "log-level", "info", "log level: debug, info, warn or error",
	)

	rootCmd.AddCommand(versionCmd)
}

func newLogger() *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(logLevel))); err != nil {
		level = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// loadEnvironment resolves the home directory and configuration. A .env file
// in the working directory is loaded first so ${VAR} references resolve.
func loadEnvironment() (*home.Dir, *config.Manager, error) {
	_ = godotenv.Load()

	h, err := home.New(homeDir)
	if err != nil {
		return nil, nil, err
	}
	if err := h.EnsureExists(); err != nil {
		return nil, nil, err
	}
	mgr, err := config.NewManager(cfgFile, h.Path())
	if err != nil {
		return nil, nil, err
	}
	return h, mgr, nil
}
