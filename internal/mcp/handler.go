package mcp

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/bobmcallan/openapi-mcp/internal/common"
	mcpserver "github.com/mark3labs/mcp-go/server"
)

// Handler is the HTTP handler for the MCP endpoint.
// It wraps mcp-go's StreamableHTTPServer and delegates to it.
type Handler struct {
	streamable *mcpserver.StreamableHTTPServer
	logger     *common.Logger
	authToken  string
}

// NewHandler serves the adapter in stateless streamable HTTP mode. When
// authToken is set every request must carry it as a bearer token.
func NewHandler(a *Adapter, endpointPath, authToken string, logger *common.Logger) *Handler {
	if logger == nil {
		logger = a.logger
	}
	streamable := mcpserver.NewStreamableHTTPServer(a.server,
		mcpserver.WithStateLess(true),
		mcpserver.WithEndpointPath(endpointPath),
		mcpserver.WithLogger(streamableLogger{logger: logger}),
	)

	logger.Info().
		Str("endpoint", endpointPath).
		Bool("auth_required", authToken != "").
		Int("tools", len(a.tools)).
		Msg("MCP handler initialized")

	return &Handler{
		streamable: streamable,
		logger:     logger,
		authToken:  authToken,
	}
}

// ServeHTTP checks the bearer token, if one is configured, and delegates to
// the StreamableHTTPServer.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.authToken != "" && !h.authorized(r) {
		w.Header().Set("WWW-Authenticate", `Bearer realm="mcp"`)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]string{
			"error":             "unauthorized",
			"error_description": "Authentication required to access MCP endpoint",
		})
		return
	}

	h.streamable.ServeHTTP(w, r)
}

// Shutdown closes open streams.
func (h *Handler) Shutdown(ctx context.Context) error {
	return h.streamable.Shutdown(ctx)
}

func (h *Handler) authorized(r *http.Request) bool {
	header := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(strings.TrimSpace(token)), []byte(h.authToken)) == 1
}
