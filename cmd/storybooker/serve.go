package main

import (
	"github.com/spf13/cobra"

	"github.com/guillermopickman-spec/story-booker/internal/server"
)

var (
	serveHost string
	servePort string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the Storybooker server",
	Long: `Start the Storybooker HTTP server and its job workers.

Configuration is watched for changes: provider chains and pipeline settings
are reloaded without a restart. Jobs already running keep their settings.

The server provides:
  POST /generate              - Submit a storybook job
  GET  /status/{job_id}       - Job progress
  GET  /download/{job_id}     - Finished PDF (?lang=es)
  /characters                 - Registered character CRUD
  GET  /health, /ready        - Liveness and readiness

Examples:
  storybooker serve                    # Start on the configured port (8080)
  storybooker serve --port 3000        # Start on custom port
  storybooker serve --host 0.0.0.0     # Bind to all interfaces`,
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := newLogger()

		h, mgr, err := loadEnvironment()
		if err != nil {
			return err
		}
		if used := mgr.ConfigFileUsed(); used != "" {
			logger.Info("loaded config", "file", used)
			mgr.WatchConfig()
		} else {
			logger.Warn("no config file found, using defaults", "hint", "storybooker config init")
		}

		srv, err := server.New(server.Config{
			Host:          serveHost,
			Port:          servePort,
			Home:          h,
			ConfigManager: mgr,
			Logger:        logger,
		})
		if err != nil {
			return err
		}
		return srv.Start(cmd.Context())
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveHost, "host", "", "Host to bind to (default from config)")
	serveCmd.Flags().StringVar(&servePort, "port", "", "Port to listen on (default from config)")

	rootCmd.AddCommand(serveCmd)
}
