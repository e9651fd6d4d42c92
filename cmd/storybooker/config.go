package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/guillermopickman-spec/story-booker/internal/api"
	"github.com/guillermopickman-spec/story-booker/internal/config"
	"github.com/guillermopickman-spec/story-booker/internal/home"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration file commands",
}

var configInitForce bool

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default config to the home directory",
	RunE: func(cmd *cobra.Command, args []string) error {
		h, err := home.New(homeDir)
		if err != nil {
			return err
		}
		if err := h.EnsureExists(); err != nil {
			return err
		}
		path := cfgFile
		if path == "" {
			path = h.ConfigPath()
		}
		if h.ConfigExists() && path == h.ConfigPath() && !configInitForce {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		}
		if err := config.WriteDefault(path); err != nil {
			return err
		}
		fmt.Printf("Wrote %s\n", path)
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Long: `Print the configuration after defaults, the config file and
STORYBOOKER_* environment overrides are merged. API keys are redacted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, mgr, err := loadEnvironment()
		if err != nil {
			return err
		}
		cfg := *mgr.Get()
		cfg.Providers = make(map[string]config.ProviderCfg, len(mgr.Get().Providers))
		for name, p := range mgr.Get().Providers {
			if p.APIKey != "" {
				p.APIKey = "<redacted>"
			}
			cfg.Providers[name] = p
		}
		return api.Output(cfg)
	},
}

func init() {
	configInitCmd.Flags().BoolVar(&configInitForce, "force", false, "Overwrite an existing config file")
	configCmd.AddCommand(configInitCmd, configShowCmd)
	rootCmd.AddCommand(configCmd)
}
