package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestNewDefaultConfig(t *testing.T) {
	cfg := NewDefaultConfig()

	if cfg.Server.Port != 8081 {
		t.Errorf("expected default port 8081, got %d", cfg.Server.Port)
	}
	if cfg.Server.EndpointPath != "/mcp" {
		t.Errorf("expected default endpoint /mcp, got %s", cfg.Server.EndpointPath)
	}
	if cfg.Auth.VersionHeader != "Notion-Version" || cfg.Auth.VersionValue != "2022-06-28" {
		t.Errorf("unexpected version header default %s: %s", cfg.Auth.VersionHeader, cfg.Auth.VersionValue)
	}
	if cfg.Gateway.Strategy != "query_or_header" {
		t.Errorf("expected default strategy query_or_header, got %s", cfg.Gateway.Strategy)
	}
	if cfg.Gateway.Upstream != "http://127.0.0.1:8081" {
		t.Errorf("expected default gateway upstream, got %s", cfg.Gateway.Upstream)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("expected default log level info, got %s", cfg.Logging.Level)
	}
	if issues := cfg.Validate(); len(issues) != 0 {
		t.Errorf("default config should validate, got %v", issues)
	}
	if issues := cfg.ValidateGateway(); len(issues) != 0 {
		t.Errorf("default gateway config should validate, got %v", issues)
	}
}

func TestLoadFromFiles_NoFiles(t *testing.T) {
	cfg, err := LoadFromFiles()
	if err != nil {
		t.Fatalf("LoadFromFiles with no files should not error: %v", err)
	}
	if cfg.Server.Port != 8081 {
		t.Errorf("expected default port 8081, got %d", cfg.Server.Port)
	}
}

func TestLoadFromFiles_ValidTOML(t *testing.T) {
	dir := t.TempDir()
	tomlPath := filepath.Join(dir, "test.toml")

	content := `
[server]
port = 9090
host = "0.0.0.0"
auth_token = "internal"

[openapi]
spec = "./notion-openapi.json"
name = "notion-api"

[auth]
headers_json = '{"Authorization":"Bearer abc"}'

[upstream]
timeout = "5s"

[gateway]
strategy = "bearer_key"
key = "secret"

[logging]
level = "debug"
outputs = ["console", "file"]
`
	if err := os.WriteFile(tomlPath, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromFiles(tomlPath)
	if err != nil {
		t.Fatalf("LoadFromFiles failed: %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("expected port 9090, got %d", cfg.Server.Port)
	}
	if cfg.Server.AuthToken != "internal" {
		t.Errorf("expected auth token internal, got %s", cfg.Server.AuthToken)
	}
	if cfg.OpenAPI.Spec != "./notion-openapi.json" || cfg.OpenAPI.Name != "notion-api" {
		t.Errorf("unexpected openapi section %+v", cfg.OpenAPI)
	}
	if cfg.Auth.HeadersJSON != `{"Authorization":"Bearer abc"}` {
		t.Errorf("unexpected headers_json %s", cfg.Auth.HeadersJSON)
	}
	if cfg.Upstream.TimeoutDuration() != 5*time.Second {
		t.Errorf("expected 5s timeout, got %v", cfg.Upstream.TimeoutDuration())
	}
	if cfg.Gateway.Strategy != "bearer_key" || cfg.Gateway.Key != "secret" {
		t.Errorf("unexpected gateway section %+v", cfg.Gateway)
	}
	// Unset keys keep their defaults.
	if cfg.Gateway.QueryParam != "k" {
		t.Errorf("expected default query param k, got %s", cfg.Gateway.QueryParam)
	}
	if len(cfg.Logging.Outputs) != 2 {
		t.Errorf("expected two log outputs, got %v", cfg.Logging.Outputs)
	}
}

func TestLoadFromFiles_MultipleFiles(t *testing.T) {
	dir := t.TempDir()

	base := filepath.Join(dir, "base.toml")
	if err := os.WriteFile(base, []byte("[server]\nport = 3000\nhost = \"base-host\"\n"), 0644); err != nil {
		t.Fatal(err)
	}
	override := filepath.Join(dir, "override.toml")
	if err := os.WriteFile(override, []byte("[server]\nport = 4000\n"), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromFiles(base, override)
	if err != nil {
		t.Fatalf("LoadFromFiles failed: %v", err)
	}
	if cfg.Server.Port != 4000 {
		t.Errorf("expected port 4000 from override, got %d", cfg.Server.Port)
	}
	if cfg.Server.Host != "base-host" {
		t.Errorf("expected host base-host from base file, got %s", cfg.Server.Host)
	}
}

func TestLoadFromFiles_MissingFile(t *testing.T) {
	if _, err := LoadFromFiles("/nonexistent/path.toml"); err == nil {
		t.Error("expected error for missing file, got nil")
	}
}

func TestLoadFromFiles_InvalidTOML(t *testing.T) {
	dir := t.TempDir()
	tomlPath := filepath.Join(dir, "invalid.toml")
	if err := os.WriteFile(tomlPath, []byte("this is not valid {{toml"), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := LoadFromFiles(tomlPath); err == nil {
		t.Error("expected error for invalid TOML, got nil")
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	cfg := NewDefaultConfig()

	t.Setenv("OPENAPI_MCP_HEADERS", `{"X-Api-Key":"k"}`)
	t.Setenv("NOTION_TOKEN", "ntn_123")
	t.Setenv("OPENAPI_MCP_SPEC", "https://example.com/openapi.yaml")
	t.Setenv("AUTH_TOKEN", "internal")
	t.Setenv("PROXY_KEY", "public")
	t.Setenv("PORT", "9000")
	t.Setenv("OPENAPI_MCP_SERVER_PORT", "9001")
	t.Setenv("OPENAPI_MCP_LOG_LEVEL", "error")

	applyEnvOverrides(cfg)

	if cfg.Auth.HeadersJSON != `{"X-Api-Key":"k"}` {
		t.Errorf("expected headers from env, got %s", cfg.Auth.HeadersJSON)
	}
	if cfg.Auth.BearerToken != "ntn_123" {
		t.Errorf("expected bearer token from env, got %s", cfg.Auth.BearerToken)
	}
	if cfg.OpenAPI.Spec != "https://example.com/openapi.yaml" {
		t.Errorf("expected spec from env, got %s", cfg.OpenAPI.Spec)
	}
	if cfg.Server.AuthToken != "internal" || cfg.Gateway.InternalToken != "internal" {
		t.Errorf("AUTH_TOKEN should set both server and gateway tokens, got %q %q", cfg.Server.AuthToken, cfg.Gateway.InternalToken)
	}
	if cfg.Gateway.Key != "public" {
		t.Errorf("expected gateway key public, got %s", cfg.Gateway.Key)
	}
	if cfg.Gateway.Port != 9000 {
		t.Errorf("expected gateway port 9000, got %d", cfg.Gateway.Port)
	}
	if cfg.Server.Port != 9001 {
		t.Errorf("expected server port 9001, got %d", cfg.Server.Port)
	}
	if cfg.Logging.Level != "error" {
		t.Errorf("expected env log level error, got %s", cfg.Logging.Level)
	}
}

func TestApplyEnvOverrides_InvalidPort(t *testing.T) {
	cfg := NewDefaultConfig()
	t.Setenv("PORT", "not-a-number")

	applyEnvOverrides(cfg)

	if cfg.Gateway.Port != 8080 {
		t.Errorf("invalid PORT should be ignored, got %d", cfg.Gateway.Port)
	}
}

func TestApplyFlagOverrides(t *testing.T) {
	cfg := NewDefaultConfig()

	ApplyFlagOverrides(cfg, 7000, "", "spec.yaml")

	if cfg.Server.Port != 7000 {
		t.Errorf("expected port 7000, got %d", cfg.Server.Port)
	}
	if cfg.Server.Host != "127.0.0.1" {
		t.Errorf("empty host flag should keep default, got %s", cfg.Server.Host)
	}
	if cfg.OpenAPI.Spec != "spec.yaml" {
		t.Errorf("expected spec.yaml, got %s", cfg.OpenAPI.Spec)
	}
}

func TestValidate_ReportsIssues(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Server.Port = 0
	cfg.Server.EndpointPath = "mcp"
	cfg.Upstream.Timeout = "soon"

	issues := cfg.Validate()
	if len(issues) != 3 {
		t.Fatalf("expected 3 issues, got %d: %v", len(issues), issues)
	}
	if !strings.Contains(issues[2], "upstream.timeout") {
		t.Errorf("unexpected issue %q", issues[2])
	}
}

func TestValidateGateway_Strategies(t *testing.T) {
	cfg := NewDefaultConfig()

	cfg.Gateway.Strategy = "require_header"
	if issues := cfg.ValidateGateway(); len(issues) != 1 {
		t.Errorf("require_header without a header name should fail, got %v", issues)
	}
	cfg.Gateway.RequiredHeader = "X-Client"
	if issues := cfg.ValidateGateway(); len(issues) != 0 {
		t.Errorf("expected no issues, got %v", issues)
	}
	cfg.Gateway.Strategy = "magic"
	if issues := cfg.ValidateGateway(); len(issues) != 1 {
		t.Errorf("unknown strategy should fail, got %v", issues)
	}
}

func TestTimeoutDuration_Fallback(t *testing.T) {
	u := UpstreamConfig{Timeout: "bogus"}
	if u.TimeoutDuration() != 30*time.Second {
		t.Errorf("expected 30s fallback, got %v", u.TimeoutDuration())
	}
}
