package main

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"

	"github.com/MrWong99/redline/internal/config"
	"github.com/MrWong99/redline/internal/mcpserver"
	"github.com/MrWong99/redline/internal/reconcile"
)

func newMCPCmd() *cobra.Command {
	var configPath, logLevel string
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Serve the redline tools over MCP on stdio",
		Long: `mcp serves the apply_corrections and locate_text tools to an MCP client
over stdin/stdout. Logs go to stderr as JSON so they never corrupt the
protocol stream.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			level := config.LogLevel(logLevel)
			if !level.IsValid() {
				return fmt.Errorf("invalid --log-level %q", logLevel)
			}
			logger := slog.New(slog.NewJSONHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level.SlogLevel()}))

			opts := reconcile.DefaultOptions()
			if configPath != "" {
				cfg, err := config.Load(configPath)
				if err != nil {
					return err
				}
				opts = cfg.Reconcile.Options()
			}

			srv := mcpserver.New(opts, version, mcpserver.WithLogger(logger))
			logger.Info("mcp server starting", "version", version)
			err := srv.Run(cmd.Context(), &mcp.StdioTransport{})
			if err != nil && !errors.Is(err, cmd.Context().Err()) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "", "optional YAML config; only the reconcile section is used")
	cmd.Flags().StringVar(&logLevel, "log-level", string(config.LogInfo), "log level: debug, info, warn, error")
	return cmd
}
