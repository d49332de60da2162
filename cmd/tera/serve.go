package main

import (
	"github.com/spf13/cobra"

	"github.com/terahq/tera/bootstrap"
	"github.com/terahq/tera/config"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the module engine server",
	Long: `Start the Tera engine server.

The server will:
  - Load configuration from tera.yaml (or --config)
  - Or load configuration from TERA_* environment variables
  - Load module definitions from the configured directory
  - Serve screens, forms, workflows, and actions over HTTP
  - Hot-reload definitions on file change or SIGHUP

Environment variables (for Docker deployments):
  TERA_MODULES_DIR    - Module definitions directory (required)
  TERA_BACKEND_URL    - Record backend base URL
  TERA_DATABASE_DSN   - Database path (default: tera.db)
  TERA_SERVER_PORT    - Server port (default: 8080)
  TERA_LOG_LEVEL      - Log level: debug, info, warn, error

Examples:
  tera serve
  tera serve --config /etc/tera/config.yaml

  # Docker (env vars only):
  TERA_MODULES_DIR=/opt/modules tera serve`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadWithFallback(cfgFile)
	if err != nil {
		return err
	}

	app, err := bootstrap.New(cfg)
	if err != nil {
		return err
	}

	return app.Run()
}
