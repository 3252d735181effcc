package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/fx"
)

var (
	serveTransport string
	servePort      int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the REST API or the MCP server",
	Long: `Run reqbox as a long-lived server.

The transport comes from server.transport unless --transport is given:
  api        JSON REST API (POST /api/request, GET /api/history, ...)
  mcp-stdio  Model Context Protocol over stdin/stdout
  mcp-http   Model Context Protocol over streamable HTTP`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveTransport, "transport", "", "override server.transport (api, mcp-stdio, mcp-http)")
	serveCmd.Flags().IntVar(&servePort, "port", 0, "override server.http_port")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if serveTransport != "" {
		cfg.Server.Transport = serveTransport
	}
	if servePort != 0 {
		cfg.Server.HTTPPort = servePort
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid flags: %w", err)
	}

	app := fx.New(appOptions(cfg)...)
	if err := app.Err(); err != nil {
		return fmt.Errorf("failed to build application: %w", err)
	}

	app.Run()
	return nil
}
