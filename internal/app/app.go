// Package app wires configuration, the OpenAPI document and the MCP adapter
// into the components the binaries serve.
package app

import (
	"context"
	"fmt"

	"github.com/bobmcallan/openapi-mcp/internal/auth"
	"github.com/bobmcallan/openapi-mcp/internal/common"
	"github.com/bobmcallan/openapi-mcp/internal/config"
	"github.com/bobmcallan/openapi-mcp/internal/handlers"
	"github.com/bobmcallan/openapi-mcp/internal/mcp"
	"github.com/bobmcallan/openapi-mcp/internal/openapi"
)

// App holds all application components and dependencies.
type App struct {
	Config   *config.Config
	Logger   *common.Logger
	Document *openapi.Document
	Adapter  *mcp.Adapter

	// HTTP handlers
	MCPHandler     *mcp.Handler
	HealthHandler  *handlers.HealthHandler
	VersionHandler *handlers.VersionHandler
	ToolsHandler   *handlers.ToolsHandler
}

// New loads cfg.OpenAPI.Spec and builds the adapter.
func New(ctx context.Context, cfg *config.Config, logger *common.Logger) (*App, error) {
	if cfg.OpenAPI.Spec == "" {
		return nil, fmt.Errorf("no OpenAPI spec configured (set openapi.spec, OPENAPI_MCP_SPEC or --spec)")
	}

	doc, err := openapi.Load(ctx, cfg.OpenAPI.Spec)
	if err != nil {
		return nil, err
	}
	title := ""
	if doc.Info != nil {
		title = doc.Info.Title
	}
	logger.Info().
		Str("spec", cfg.OpenAPI.Spec).
		Str("title", title).
		Str("base_url", doc.BaseURL()).
		Msg("OpenAPI document loaded")

	return NewWithDocument(cfg, logger, doc)
}

// NewWithDocument builds the application around an already loaded document.
func NewWithDocument(cfg *config.Config, logger *common.Logger, doc *openapi.Document, opts ...mcp.Option) (*App, error) {
	a := &App{
		Config:   cfg,
		Logger:   logger,
		Document: doc,
	}

	adapterOpts := []mcp.Option{
		mcp.WithLogger(logger),
		mcp.WithVersion(config.GetVersion()),
		mcp.WithAuth(auth.Config{
			HeadersJSON:   cfg.Auth.HeadersJSON,
			BearerToken:   cfg.Auth.BearerToken,
			VersionHeader: cfg.Auth.VersionHeader,
			VersionValue:  cfg.Auth.VersionValue,
		}),
		mcp.WithHTTPOptions(cfg.Upstream.TimeoutDuration(), cfg.Upstream.MaxResponseBytes, cfg.Upstream.UserAgent, nil),
	}
	adapter, err := mcp.NewAdapter(cfg.OpenAPI.Name, doc, append(adapterOpts, opts...)...)
	if err != nil {
		return nil, err
	}
	a.Adapter = adapter

	a.initHandlers()

	logger.Info().Msg("application initialization complete")
	return a, nil
}

// initHandlers initializes all HTTP handlers.
func (a *App) initHandlers() {
	a.MCPHandler = mcp.NewHandler(a.Adapter, a.Config.Server.EndpointPath, a.Config.Server.AuthToken, a.Logger)
	a.HealthHandler = handlers.NewHealthHandler(a.Logger, func() int { return len(a.Adapter.ListTools()) })
	a.VersionHandler = handlers.NewVersionHandler()
	a.ToolsHandler = handlers.NewToolsHandler(a.Adapter.ListTools)

	a.Logger.Debug().Msg("HTTP handlers initialized")
}

// Close closes all application resources.
func (a *App) Close() error {
	return nil
}
