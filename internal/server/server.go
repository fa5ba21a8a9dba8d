// Package server hosts the adapter's HTTP transport and the edge gateway
// behind the shared middleware chain.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/bobmcallan/openapi-mcp/internal/app"
	"github.com/bobmcallan/openapi-mcp/internal/common"
	"github.com/bobmcallan/openapi-mcp/internal/config"
	"github.com/bobmcallan/openapi-mcp/internal/gateway"
)

// Server manages the HTTP server and routes.
type Server struct {
	app    *app.App
	router *http.ServeMux
	server *http.Server
	logger *common.Logger
	name   string
}

// New creates the adapter's HTTP server.
func New(application *app.App) *Server {
	s := &Server{
		app:    application,
		logger: application.Logger,
		name:   "MCP adapter",
	}

	s.router = s.setupRoutes()

	cfg := application.Config.Server
	handler := s.withMiddleware(s.router, cfg.MaxBodyBytes)
	s.server = newHTTPServer(cfg.Address(), handler)
	return s
}

// NewGateway creates the edge gateway's HTTP server.
func NewGateway(cfg config.GatewayConfig, gw *gateway.Gateway, logger *common.Logger) *Server {
	s := &Server{
		logger: logger,
		name:   "Edge gateway",
	}
	s.server = newHTTPServer(cfg.Address(), s.withGatewayMiddleware(gw))
	return s
}

// WriteTimeout is zero: streamable HTTP responses stay open for as long as
// a tool call takes.
func newHTTPServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.logger.Info().
		Str("address", s.server.Addr).
		Str("url", fmt.Sprintf("http://%s", s.server.Addr)).
		Msg(s.name + " starting")

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info().Msg("Shutting down " + s.name)

	if s.app != nil && s.app.MCPHandler != nil {
		if err := s.app.MCPHandler.Shutdown(ctx); err != nil {
			s.logger.Warn().Err(err).Msg("MCP handler shutdown failed")
		}
	}
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	s.logger.Info().Msg(s.name + " stopped")
	return nil
}

// Handler returns the HTTP handler for testing.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}
