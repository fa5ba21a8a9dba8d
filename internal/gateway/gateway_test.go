package gateway

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type seen struct {
	method string
	path   string
	query  string
	auth   string
	body   string
	host   string
}

func newUpstream(t *testing.T) (*httptest.Server, *seen) {
	t.Helper()
	got := &seen{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		*got = seen{
			method: r.Method,
			path:   r.URL.Path,
			query:  r.URL.RawQuery,
			auth:   r.Header.Get("Authorization"),
			body:   string(body),
			host:   r.Host,
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"ok":true}`))
	}))
	t.Cleanup(srv.Close)
	return srv, got
}

func newGateway(t *testing.T, upstream string, auth AuthConfig) *Gateway {
	t.Helper()
	g, err := New(Config{Upstream: upstream, EndpointPath: "/mcp", InternalToken: "internal", Auth: auth}, nil)
	require.NoError(t, err)
	return g
}

func serve(g http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	g.ServeHTTP(rec, req)
	return rec
}

func TestGateway_HealthIsUnauthenticated(t *testing.T) {
	g := newGateway(t, "http://127.0.0.1:1", AuthConfig{Key: "k1"})

	rec := serve(g, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestGateway_RejectsMissingKey(t *testing.T) {
	srv, got := newUpstream(t)
	g := newGateway(t, srv.URL, AuthConfig{Key: "k1"})

	rec := serve(g, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{}`)))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"error":"unauthorized"}`, rec.Body.String())
	assert.Empty(t, got.method, "upstream must not be called")
}

func TestGateway_ForwardsWithQueryKey(t *testing.T) {
	srv, got := newUpstream(t)
	g := newGateway(t, srv.URL, AuthConfig{Key: "k1"})

	req := httptest.NewRequest(http.MethodPost, "/?k=k1", strings.NewReader(`{"jsonrpc":"2.0"}`))
	req.Header.Set("Authorization", "Bearer caller")
	rec := serve(g, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, http.MethodPost, got.method)
	assert.Equal(t, "/mcp", got.path)
	assert.Equal(t, "k=k1", got.query)
	assert.Equal(t, "Bearer internal", got.auth)
	assert.Equal(t, `{"jsonrpc":"2.0"}`, got.body)
	assert.Equal(t, strings.TrimPrefix(srv.URL, "http://"), got.host)
}

func TestGateway_ForwardsOtherPathsUnchanged(t *testing.T) {
	srv, got := newUpstream(t)
	g := newGateway(t, srv.URL, AuthConfig{Key: "k1"})

	req := httptest.NewRequest(http.MethodGet, "/version", nil)
	req.Header.Set("X-Proxy-Key", "k1")
	rec := serve(g, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "/version", got.path)
}

func TestGateway_PreflightBypassesAuth(t *testing.T) {
	srv, got := newUpstream(t)
	g := newGateway(t, srv.URL, AuthConfig{Key: "k1"})

	rec := serve(g, httptest.NewRequest(http.MethodOptions, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, http.MethodOptions, got.method)
	assert.Equal(t, "/mcp", got.path)
	assert.Empty(t, got.auth)
}

func TestGateway_HeadRequiresKey(t *testing.T) {
	srv, got := newUpstream(t)
	g := newGateway(t, srv.URL, AuthConfig{Key: "k1"})

	rec := serve(g, httptest.NewRequest(http.MethodHead, "/tools", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, got.method)

	rec = serve(g, httptest.NewRequest(http.MethodHead, "/tools?k=k1", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, http.MethodHead, got.method)
	assert.Equal(t, "Bearer internal", got.auth)
}

func TestGateway_UpstreamDown(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	g := newGateway(t, url, AuthConfig{Key: "k1"})
	req := httptest.NewRequest(http.MethodPost, "/?k=k1", nil)
	rec := serve(g, req)

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.JSONEq(t, `{"error":"bad gateway"}`, rec.Body.String())
}

func TestGateway_NoInternalTokenKeepsCallerHeader(t *testing.T) {
	srv, got := newUpstream(t)
	g, err := New(Config{Upstream: srv.URL, Auth: AuthConfig{Key: "k1"}}, nil)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/mcp", nil)
	req.Header.Set("X-Proxy-Key", "k1")
	req.Header.Set("Authorization", "Bearer caller")
	serve(g, req)

	assert.Equal(t, "Bearer caller", got.auth)
}

func TestStrategies(t *testing.T) {
	withQuery := func(v string) *http.Request {
		return httptest.NewRequest(http.MethodGet, "/?k="+v, nil)
	}
	withHeader := func(name, v string) *http.Request {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set(name, v)
		return r
	}

	tests := []struct {
		name     string
		cfg      AuthConfig
		req      *http.Request
		expected bool
	}{
		{"query key", AuthConfig{Strategy: StrategyQueryKey, Key: "s"}, withQuery("s"), true},
		{"query key ignores header", AuthConfig{Strategy: StrategyQueryKey, Key: "s"}, withHeader("X-Proxy-Key", "s"), false},
		{"header key", AuthConfig{Strategy: StrategyHeaderKey, Key: "s"}, withHeader("X-Proxy-Key", "s"), true},
		{"custom header name", AuthConfig{Strategy: StrategyHeaderKey, Key: "s", HeaderName: "X-Key"}, withHeader("X-Key", "s"), true},
		{"header key wrong value", AuthConfig{Strategy: StrategyHeaderKey, Key: "s"}, withHeader("X-Proxy-Key", "t"), false},
		{"bearer key", AuthConfig{Strategy: StrategyBearerKey, Key: "s"}, withHeader("Authorization", "Bearer s"), true},
		{"bearer key wrong scheme", AuthConfig{Strategy: StrategyBearerKey, Key: "s"}, withHeader("Authorization", "Basic s"), false},
		{"query or header via query", AuthConfig{Key: "s"}, withQuery("s"), true},
		{"query or header via header", AuthConfig{Key: "s"}, withHeader("X-Proxy-Key", "s"), true},
		{"no key configured", AuthConfig{}, withQuery(""), false},
		{"no key configured rejects any", AuthConfig{}, withHeader("X-Proxy-Key", "anything"), false},
		{"require header present", AuthConfig{Strategy: StrategyRequireHeader, RequiredHeader: "X-Forwarded-User"}, withHeader("X-Forwarded-User", "alice"), true},
		{"require header missing", AuthConfig{Strategy: StrategyRequireHeader, RequiredHeader: "X-Forwarded-User"}, withQuery("s"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := NewAuthenticator(tt.cfg)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, a.Authenticate(tt.req))
		})
	}
}

func TestAuthenticator_KeyHash(t *testing.T) {
	hash, err := HashKey("s3cret")
	require.NoError(t, err)

	a, err := NewAuthenticator(AuthConfig{Strategy: StrategyHeaderKey, KeyHash: hash})
	require.NoError(t, err)

	good := httptest.NewRequest(http.MethodGet, "/", nil)
	good.Header.Set("X-Proxy-Key", "s3cret")
	assert.True(t, a.Authenticate(good))

	bad := httptest.NewRequest(http.MethodGet, "/", nil)
	bad.Header.Set("X-Proxy-Key", "wrong")
	assert.False(t, a.Authenticate(bad))
}

func TestNewAuthenticator_Errors(t *testing.T) {
	_, err := NewAuthenticator(AuthConfig{Strategy: "magic"})
	assert.ErrorContains(t, err, "unknown auth strategy")

	_, err = NewAuthenticator(AuthConfig{Strategy: StrategyRequireHeader})
	assert.Error(t, err)

	_, err = NewAuthenticator(AuthConfig{KeyHash: "not-a-hash"})
	assert.ErrorContains(t, err, "invalid key hash")

	_, err = HashKey("")
	assert.Error(t, err)
}

func TestNew_InvalidUpstream(t *testing.T) {
	_, err := New(Config{Upstream: "127.0.0.1:8081"}, nil)
	assert.Error(t, err)
}

func TestGateway_Warnings(t *testing.T) {
	g, err := New(Config{Upstream: "http://127.0.0.1:8081"}, nil)
	require.NoError(t, err)
	assert.Len(t, g.Warnings(), 2)

	g = newGateway(t, "http://127.0.0.1:8081", AuthConfig{Key: "k"})
	assert.Empty(t, g.Warnings())
}

func TestRewritePath(t *testing.T) {
	assert.Equal(t, "/mcp", RewritePath("/", "/mcp"))
	assert.Equal(t, "/mcp", RewritePath("", "/mcp"))
	assert.Equal(t, "/sse", RewritePath("/sse", "/mcp"))
	assert.Equal(t, "/mcp/", RewritePath("/mcp/", "/mcp"))
}
