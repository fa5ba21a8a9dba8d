// Package gateway is the public edge in front of the MCP adapter. It checks a
// shared key, injects the adapter's internal bearer token and forwards
// everything else unchanged.
package gateway

import (
	"fmt"
	"net/http"
	"net/http/httputil"
	"net/url"

	"github.com/bobmcallan/openapi-mcp/internal/common"
	"github.com/bobmcallan/openapi-mcp/internal/handlers"
)

// Config describes one gateway.
type Config struct {
	Upstream      string
	EndpointPath  string
	InternalToken string
	Auth          AuthConfig
}

// Gateway is an http.Handler.
type Gateway struct {
	auth     *Authenticator
	proxy    *httputil.ReverseProxy
	target   *url.URL
	endpoint string
	token    string
	logger   *common.Logger
}

// New validates cfg and builds the reverse proxy.
func New(cfg Config, logger *common.Logger) (*Gateway, error) {
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	target, err := url.Parse(cfg.Upstream)
	if err != nil || target.Scheme == "" || target.Host == "" {
		return nil, fmt.Errorf("invalid upstream URL %q", cfg.Upstream)
	}
	authn, err := NewAuthenticator(cfg.Auth)
	if err != nil {
		return nil, err
	}

	g := &Gateway{
		auth:     authn,
		target:   target,
		endpoint: cfg.EndpointPath,
		token:    cfg.InternalToken,
		logger:   logger,
	}
	if g.endpoint == "" {
		g.endpoint = "/mcp"
	}
	g.proxy = &httputil.ReverseProxy{
		Rewrite:       g.rewrite,
		FlushInterval: -1,
		ErrorHandler:  g.proxyError,
	}
	return g, nil
}

// Warnings lists configuration gaps worth logging at startup.
func (g *Gateway) Warnings() []string {
	var out []string
	if !g.auth.HasKey() && g.auth.Strategy() != StrategyRequireHeader {
		out = append(out, "PROXY_KEY is not set: every keyed request will be rejected")
	}
	if g.token == "" {
		out = append(out, "AUTH_TOKEN is not set: requests are forwarded without an internal token")
	}
	return out
}

// ServeHTTP answers /health itself, lets CORS preflight through without the
// internal token, and otherwise requires valid credentials before proxying.
func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path == "/health" && r.Method == http.MethodGet {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
		return
	}

	if r.Method != http.MethodOptions && !g.auth.Authenticate(r) {
		g.logger.Warn().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("remote", r.RemoteAddr).
			Str("strategy", g.auth.Strategy()).
			Msg("Gateway rejected request")
		handlers.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	g.proxy.ServeHTTP(w, r)
}

// RewritePath maps the root path to the adapter endpoint.
func RewritePath(path, endpoint string) string {
	if path == "/" || path == "" {
		return endpoint
	}
	return path
}

func (g *Gateway) rewrite(pr *httputil.ProxyRequest) {
	if rewritten := RewritePath(pr.In.URL.Path, g.endpoint); rewritten != pr.In.URL.Path {
		pr.Out.URL.Path = rewritten
		pr.Out.URL.RawPath = ""
	}
	pr.SetURL(g.target)
	pr.SetXForwarded()
	if g.token != "" && pr.In.Method != http.MethodOptions {
		pr.Out.Header.Set("Authorization", "Bearer "+g.token)
	}
}

func (g *Gateway) proxyError(w http.ResponseWriter, r *http.Request, err error) {
	g.logger.Error().
		Err(err).
		Str("method", r.Method).
		Str("path", r.URL.Path).
		Str("upstream", g.target.String()).
		Msg("Gateway upstream request failed")
	handlers.WriteError(w, http.StatusBadGateway, "bad gateway")
}
