package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/bobmcallan/openapi-mcp/internal/common"
	"github.com/pelletier/go-toml/v2"
)

// Config represents the application configuration.
type Config struct {
	Server   ServerConfig         `toml:"server"`
	OpenAPI  OpenAPIConfig        `toml:"openapi"`
	Auth     AuthConfig           `toml:"auth"`
	Upstream UpstreamConfig       `toml:"upstream"`
	Gateway  GatewayConfig        `toml:"gateway"`
	Logging  common.LoggingConfig `toml:"logging"`
}

// ServerConfig contains the adapter's HTTP transport settings.
// AuthToken, when set, is required as a bearer token on the MCP endpoint.
type ServerConfig struct {
	Port         int    `toml:"port"`
	Host         string `toml:"host"`
	EndpointPath string `toml:"endpoint_path"`
	AuthToken    string `toml:"auth_token"`
	MaxBodyBytes int64  `toml:"max_body_bytes"`
}

// OpenAPIConfig points at the document the tool catalog is built from.
type OpenAPIConfig struct {
	Spec string `toml:"spec"`
	Name string `toml:"name"`
}

// AuthConfig holds the headers injected into every upstream call.
type AuthConfig struct {
	HeadersJSON   string `toml:"headers_json"`
	BearerToken   string `toml:"bearer_token"`
	VersionHeader string `toml:"version_header"`
	VersionValue  string `toml:"version_value"`
}

// UpstreamConfig tunes the HTTP executor.
type UpstreamConfig struct {
	Timeout          string `toml:"timeout"`
	MaxResponseBytes int64  `toml:"max_response_bytes"`
	UserAgent        string `toml:"user_agent"`
}

// GatewayConfig contains edge gateway settings.
type GatewayConfig struct {
	Port           int    `toml:"port"`
	Host           string `toml:"host"`
	Upstream       string `toml:"upstream"`
	EndpointPath   string `toml:"endpoint_path"`
	Strategy       string `toml:"strategy"`
	Key            string `toml:"key"`
	KeyHash        string `toml:"key_hash"`
	QueryParam     string `toml:"query_param"`
	HeaderName     string `toml:"header_name"`
	RequiredHeader string `toml:"required_header"`
	InternalToken  string `toml:"internal_token"`
}

// TimeoutDuration parses Upstream.Timeout, falling back to 30s.
func (c *UpstreamConfig) TimeoutDuration() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil || d <= 0 {
		return 30 * time.Second
	}
	return d
}

// Address returns host:port for the adapter's HTTP listener.
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Address returns host:port for the gateway listener.
func (c *GatewayConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// LoadFromFile loads configuration with priority: defaults -> file -> env.
func LoadFromFile(path string) (*Config, error) {
	if path == "" {
		return LoadFromFiles()
	}
	return LoadFromFiles(path)
}

// LoadFromFiles loads configuration from multiple files with priority:
// defaults -> file1 -> file2 -> ... -> env.
// Later files override earlier files.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

// applyEnvOverrides applies environment overrides. The unprefixed names are
// the ones existing deployments already set.
func applyEnvOverrides(config *Config) {
	if v := os.Getenv("OPENAPI_MCP_HEADERS"); v != "" {
		config.Auth.HeadersJSON = v
	}
	if v := os.Getenv("NOTION_TOKEN"); v != "" {
		config.Auth.BearerToken = v
	}
	if v := os.Getenv("OPENAPI_MCP_SPEC"); v != "" {
		config.OpenAPI.Spec = v
	}
	if v := os.Getenv("OPENAPI_MCP_NAME"); v != "" {
		config.OpenAPI.Name = v
	}
	if v := os.Getenv("AUTH_TOKEN"); v != "" {
		config.Server.AuthToken = v
		config.Gateway.InternalToken = v
	}
	if v := os.Getenv("PROXY_KEY"); v != "" {
		config.Gateway.Key = v
	}
	if p, ok := envInt("PORT"); ok {
		config.Gateway.Port = p
	}
	if p, ok := envInt("OPENAPI_MCP_SERVER_PORT"); ok {
		config.Server.Port = p
	}
	if v := os.Getenv("OPENAPI_MCP_SERVER_HOST"); v != "" {
		config.Server.Host = v
	}
	if v := os.Getenv("OPENAPI_MCP_UPSTREAM_TIMEOUT"); v != "" {
		config.Upstream.Timeout = v
	}
	if v := os.Getenv("OPENAPI_MCP_GATEWAY_UPSTREAM"); v != "" {
		config.Gateway.Upstream = v
	}
	if v := os.Getenv("OPENAPI_MCP_GATEWAY_STRATEGY"); v != "" {
		config.Gateway.Strategy = v
	}
	if v := os.Getenv("OPENAPI_MCP_LOG_LEVEL"); v != "" {
		config.Logging.Level = v
	}
	if v := os.Getenv("OPENAPI_MCP_LOG_FORMAT"); v != "" {
		config.Logging.Format = v
	}
}

func envInt(name string) (int, bool) {
	v := os.Getenv(name)
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

// ApplyFlagOverrides applies command-line flag overrides to config.
func ApplyFlagOverrides(config *Config, port int, host, spec string) {
	if port > 0 {
		config.Server.Port = port
	}
	if host != "" {
		config.Server.Host = host
	}
	if spec != "" {
		config.OpenAPI.Spec = spec
	}
}

// Validate returns a list of configuration problems. An empty list means
// the configuration is usable.
func (c *Config) Validate() []string {
	var issues []string

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		issues = append(issues, fmt.Sprintf("server.port %d is out of range", c.Server.Port))
	}
	if !strings.HasPrefix(c.Server.EndpointPath, "/") {
		issues = append(issues, fmt.Sprintf("server.endpoint_path %q must start with /", c.Server.EndpointPath))
	}
	if c.Upstream.Timeout != "" {
		if _, err := time.ParseDuration(c.Upstream.Timeout); err != nil {
			issues = append(issues, fmt.Sprintf("upstream.timeout %q is not a duration", c.Upstream.Timeout))
		}
	}
	if c.Upstream.MaxResponseBytes < 0 {
		issues = append(issues, "upstream.max_response_bytes must not be negative")
	}

	return issues
}

// ValidateGateway returns problems specific to the edge gateway.
func (c *Config) ValidateGateway() []string {
	var issues []string
	g := c.Gateway

	if g.Port <= 0 || g.Port > 65535 {
		issues = append(issues, fmt.Sprintf("gateway.port %d is out of range", g.Port))
	}
	if g.Upstream == "" {
		issues = append(issues, "gateway.upstream is required")
	}
	switch g.Strategy {
	case "query_key", "header_key", "bearer_key", "query_or_header":
	case "require_header":
		if g.RequiredHeader == "" {
			issues = append(issues, "gateway.required_header is required for the require_header strategy")
		}
	default:
		issues = append(issues, fmt.Sprintf("gateway.strategy %q is not supported", g.Strategy))
	}

	return issues
}
