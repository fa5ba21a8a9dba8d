package config

import "github.com/bobmcallan/openapi-mcp/internal/common"

// NewDefaultConfig creates a configuration with default values.
func NewDefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         8081,
			Host:         "127.0.0.1",
			EndpointPath: "/mcp",
			MaxBodyBytes: 1 << 20,
		},
		OpenAPI: OpenAPIConfig{
			Name: "openapi-mcp",
		},
		Auth: AuthConfig{
			VersionHeader: "Notion-Version",
			VersionValue:  "2022-06-28",
		},
		Upstream: UpstreamConfig{
			Timeout:          "30s",
			MaxResponseBytes: 10 << 20,
			UserAgent:        "openapi-mcp",
		},
		Gateway: GatewayConfig{
			Port:         8080,
			Host:         "0.0.0.0",
			Upstream:     "http://127.0.0.1:8081",
			EndpointPath: "/mcp",
			Strategy:     "query_or_header",
			QueryParam:   "k",
			HeaderName:   "X-Proxy-Key",
		},
		Logging: common.LoggingConfig{
			Level:   "info",
			Format:  "text",
			Outputs: []string{"console"},
		},
	}
}
