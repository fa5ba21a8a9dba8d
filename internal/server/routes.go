package server

import (
	"net/http"

	"github.com/bobmcallan/openapi-mcp/internal/handlers"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	// MCP endpoint (streamable HTTP)
	endpoint := s.app.Config.Server.EndpointPath
	if endpoint == "" {
		endpoint = "/mcp"
	}
	mux.Handle(endpoint, s.app.MCPHandler)

	mux.Handle("/health", s.app.HealthHandler)
	mux.Handle("/version", s.app.VersionHandler)
	mux.Handle("/tools", s.app.ToolsHandler)
	mux.Handle("/metrics", promhttp.Handler())

	mux.HandleFunc("/", s.handleNotFound)

	return mux
}

// handleNotFound returns a JSON 404 for unmatched routes.
func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	handlers.WriteError(w, http.StatusNotFound, "not found")
}
