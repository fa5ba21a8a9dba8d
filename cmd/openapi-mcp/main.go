// Command openapi-mcp exposes the operations of an OpenAPI document as MCP tools.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/bobmcallan/openapi-mcp/internal/common"
	"github.com/bobmcallan/openapi-mcp/internal/config"
	"github.com/spf13/cobra"
)

var (
	configFiles []string
	flagPort    int
	flagHost    string
	flagSpec    string
)

var rootCmd = &cobra.Command{
	Use:   "openapi-mcp",
	Short: "Serve the operations of an OpenAPI document as MCP tools.",
	Long: `openapi-mcp reads an OpenAPI 3 document and serves one MCP tool per operation.
Tool calls are forwarded to the API at the document's first server URL.

  openapi-mcp serve --spec ./notion-openapi.json            # stdio (default)
  openapi-mcp serve --transport http --port 8081            # streamable HTTP
  openapi-mcp tools --spec https://example.com/openapi.yaml # print the tool listing

Upstream credentials come from OPENAPI_MCP_HEADERS (a JSON object of headers)
or NOTION_TOKEN (sent as a bearer token with a Notion-Version header).`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringSliceVarP(&configFiles, "config", "c", nil, "Configuration file path (can be repeated)")
	rootCmd.PersistentFlags().StringVar(&flagSpec, "spec", "", "OpenAPI document path or URL (overrides config)")
	rootCmd.PersistentFlags().IntVarP(&flagPort, "port", "p", 0, "HTTP port (overrides config)")
	rootCmd.PersistentFlags().StringVar(&flagHost, "host", "", "HTTP host (overrides config)")

	rootCmd.AddCommand(serveCmd, toolsCmd, versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig applies defaults, files, env and flags in that order.
func loadConfig() (*config.Config, error) {
	files := configFiles
	if len(files) == 0 {
		for _, path := range configSearchPaths() {
			if _, err := os.Stat(path); err == nil {
				files = append(files, path)
				break
			}
		}
	}

	cfg, err := config.LoadFromFiles(files...)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	config.ApplyFlagOverrides(cfg, flagPort, flagHost, flagSpec)

	if issues := cfg.Validate(); len(issues) > 0 {
		fmt.Fprintln(os.Stderr, "Configuration error:")
		for _, issue := range issues {
			fmt.Fprintf(os.Stderr, "  - %s\n", issue)
		}
		return nil, fmt.Errorf("invalid configuration")
	}
	return cfg, nil
}

// configSearchPaths returns TOML files to auto-discover (first match wins).
// Binary-relative paths come first, then the working directory.
func configSearchPaths() []string {
	candidates := []string{
		"openapi-mcp.toml",
		filepath.Join("config", "openapi-mcp.toml"),
	}

	exe, err := os.Executable()
	if err != nil {
		return candidates
	}
	binDir := filepath.Dir(exe)

	paths := []string{
		filepath.Join(binDir, "openapi-mcp.toml"),
		filepath.Join(binDir, "config", "openapi-mcp.toml"),
	}
	paths = append(paths, candidates...)

	seen := make(map[string]bool, len(paths))
	deduped := make([]string, 0, len(paths))
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			abs = p
		}
		if seen[abs] {
			continue
		}
		seen[abs] = true
		deduped = append(deduped, p)
	}
	return deduped
}

// setupLogger creates an arbor logger based on config.
func setupLogger(cfg *config.Config) *common.Logger {
	return common.NewLoggerFromConfig(cfg.Logging)
}
