package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/bobmcallan/openapi-mcp/internal/app"
	"github.com/bobmcallan/openapi-mcp/internal/common"
	"github.com/bobmcallan/openapi-mcp/internal/config"
	"github.com/bobmcallan/openapi-mcp/internal/mcp"
	"github.com/bobmcallan/openapi-mcp/internal/server"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	flagTransport string
	flagJSON      bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the tool catalog over stdio or streamable HTTP.",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "Print the tool listing without serving it.",
	Args:  cobra.NoArgs,
	RunE:  runTools,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information.",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "openapi-mcp version %s\n", config.GetFullVersion())
	},
}

func init() {
	serveCmd.Flags().StringVarP(&flagTransport, "transport", "t", "stdio", "Transport: stdio or http")
	toolsCmd.Flags().BoolVar(&flagJSON, "json", false, "Print the listing as JSON")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := setupLogger(cfg)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to initialize application")
		return err
	}
	defer application.Close()

	switch strings.ToLower(flagTransport) {
	case "stdio":
		// stdout carries protocol frames only
		return application.Adapter.Connect(ctx, mcp.StdioTransport{In: os.Stdin, Out: os.Stdout})
	case "http":
		return serveHTTP(ctx, application, logger)
	default:
		return fmt.Errorf("unknown transport %q (want stdio or http)", flagTransport)
	}
}

func serveHTTP(ctx context.Context, application *app.App, logger *common.Logger) error {
	srv := server.New(application)

	errc := make(chan error, 1)
	go func() {
		errc <- srv.Start()
	}()

	if application.Config.Server.AuthToken == "" {
		logger.Warn().Msg("AUTH_TOKEN is not set: the MCP endpoint accepts unauthenticated requests")
	}

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		logger.Info().Msg("Shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func runTools(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	cfg.Logging.Level = "warn"
	logger := setupLogger(cfg)

	application, err := app.New(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	defer application.Close()

	tools := application.Adapter.ListTools()
	out := cmd.OutOrStdout()

	if flagJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(tools)
	}

	cyan := color.New(color.FgCyan)
	gray := color.New(color.FgHiBlack)
	for _, tool := range tools {
		cyan.Fprintln(out, tool.Name)
		summary, _, _ := strings.Cut(tool.Description, "\n")
		gray.Fprintf(out, "    %s\n", summary)
	}
	fmt.Fprintf(out, "\n%d tools\n", len(tools))
	return nil
}
