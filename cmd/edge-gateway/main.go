// Command edge-gateway is the public entry point in front of openapi-mcp's
// HTTP transport. It checks a shared key and forwards authorized requests
// with the adapter's internal bearer token.
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/bobmcallan/openapi-mcp/internal/common"
	"github.com/bobmcallan/openapi-mcp/internal/config"
	"github.com/bobmcallan/openapi-mcp/internal/gateway"
	"github.com/bobmcallan/openapi-mcp/internal/server"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	configFiles  []string
	flagPort     int
	flagUpstream string
	flagStrategy string
)

var rootCmd = &cobra.Command{
	Use:   "edge-gateway",
	Short: "Key-checking reverse proxy for the MCP adapter.",
	Long: `edge-gateway accepts requests carrying PROXY_KEY (query parameter k or header
X-Proxy-Key by default), rewrites / to the adapter's MCP endpoint and forwards
them with Authorization: Bearer $AUTH_TOKEN. GET /health is always open.`,
	SilenceUsage: true,
	Args:         cobra.NoArgs,
	RunE:         runGateway,
}

var hashKeyCmd = &cobra.Command{
	Use:   "hash-key",
	Short: "Read a key from stdin and print a bcrypt hash for gateway.key_hash.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
		if err != nil && line == "" {
			return fmt.Errorf("failed to read key: %w", err)
		}
		hash, err := gateway.HashKey(strings.TrimRight(line, "\r\n"))
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), hash)
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information.",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "edge-gateway version %s\n", config.GetFullVersion())
	},
}

func init() {
	rootCmd.PersistentFlags().StringSliceVarP(&configFiles, "config", "c", nil, "Configuration file path (can be repeated)")
	rootCmd.Flags().IntVarP(&flagPort, "port", "p", 0, "Listen port (overrides PORT and config)")
	rootCmd.Flags().StringVar(&flagUpstream, "upstream", "", "Adapter base URL (overrides config)")
	rootCmd.Flags().StringVar(&flagStrategy, "strategy", "", "Auth strategy: "+strings.Join(gateway.Strategies(), ", "))

	rootCmd.AddCommand(hashKeyCmd, versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runGateway(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadFromFiles(configFiles...)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if flagPort > 0 {
		cfg.Gateway.Port = flagPort
	}
	if flagUpstream != "" {
		cfg.Gateway.Upstream = flagUpstream
	}
	if flagStrategy != "" {
		cfg.Gateway.Strategy = flagStrategy
	}
	if issues := cfg.ValidateGateway(); len(issues) > 0 {
		fmt.Fprintln(os.Stderr, "Configuration error:")
		for _, issue := range issues {
			fmt.Fprintf(os.Stderr, "  - %s\n", issue)
		}
		return fmt.Errorf("invalid configuration")
	}

	logger := common.NewLoggerFromConfig(cfg.Logging)
	gc := cfg.Gateway

	gw, err := gateway.New(gateway.Config{
		Upstream:      gc.Upstream,
		EndpointPath:  gc.EndpointPath,
		InternalToken: gc.InternalToken,
		Auth: gateway.AuthConfig{
			Strategy:       gc.Strategy,
			Key:            gc.Key,
			KeyHash:        gc.KeyHash,
			QueryParam:     gc.QueryParam,
			HeaderName:     gc.HeaderName,
			RequiredHeader: gc.RequiredHeader,
		},
	}, logger)
	if err != nil {
		return err
	}

	printBanner(gc)
	for _, warning := range gw.Warnings() {
		logger.Warn().Msg(warning)
	}

	srv := server.NewGateway(gc, gw, logger)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errc := make(chan error, 1)
	go func() {
		errc <- srv.Start()
	}()

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

func printBanner(gc config.GatewayConfig) {
	green := color.New(color.FgGreen)
	gray := color.New(color.FgHiBlack)

	gray.Fprintf(os.Stderr, "edge-gateway %s\n", config.GetVersion())
	green.Fprint(os.Stderr, "  ▶ ")
	fmt.Fprintf(os.Stderr, "Listen:   %s\n", gc.Address())
	green.Fprint(os.Stderr, "  ▶ ")
	fmt.Fprintf(os.Stderr, "Upstream: %s (root → %s)\n", gc.Upstream, gc.EndpointPath)
	green.Fprint(os.Stderr, "  ▶ ")
	fmt.Fprintf(os.Stderr, "Auth:     %s\n", gc.Strategy)
}
