// Package mcp exposes an OpenAPI tool catalog over the Model Context Protocol.
package mcp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/bobmcallan/openapi-mcp/internal/auth"
	"github.com/bobmcallan/openapi-mcp/internal/common"
	"github.com/bobmcallan/openapi-mcp/internal/executor"
	"github.com/bobmcallan/openapi-mcp/internal/openapi"
	"github.com/bobmcallan/openapi-mcp/internal/params"
	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// CatalogBuilder turns a document into tools and an operation index.
type CatalogBuilder interface {
	Build(doc *openapi.Document) (*openapi.Catalog, error)
}

// Executor performs one upstream operation. Classified failures are
// returned as *executor.UpstreamError.
type Executor interface {
	Execute(ctx context.Context, op *openapi.OperationRecord, args params.Value) (*executor.Response, error)
}

type options struct {
	version   string
	logger    *common.Logger
	auth      auth.Config
	resolvers []auth.Resolver
	builder   CatalogBuilder
	exec      Executor
	execOpts  executor.Options
}

// Option customises NewAdapter.
type Option func(*options)

// WithLogger sets the adapter's logger.
func WithLogger(l *common.Logger) Option { return func(o *options) { o.logger = l } }

// WithVersion sets the server version reported on initialize.
func WithVersion(v string) Option { return func(o *options) { o.version = v } }

// WithAuth sets the configuration the upstream auth headers are resolved from.
func WithAuth(cfg auth.Config, resolvers ...auth.Resolver) Option {
	return func(o *options) {
		o.auth = cfg
		o.resolvers = resolvers
	}
}

// WithCatalogBuilder replaces the default openapi.Builder.
func WithCatalogBuilder(b CatalogBuilder) Option { return func(o *options) { o.builder = b } }

// WithExecutor replaces the HTTP executor entirely.
func WithExecutor(e Executor) Option { return func(o *options) { o.exec = e } }

// WithHTTPOptions tunes the default executor. BaseURL and Headers are ignored.
func WithHTTPOptions(timeout time.Duration, maxResponseBytes int64, userAgent string, client *http.Client) Option {
	return func(o *options) {
		o.execOpts.Timeout = timeout
		o.execOpts.MaxResponseBytes = maxResponseBytes
		o.execOpts.UserAgent = userAgent
		o.execOpts.HTTPClient = client
	}
}

// Adapter serves a fixed tool catalog and dispatches calls to the API the
// catalog was built from. Nothing is mutated after NewAdapter returns.
type Adapter struct {
	name    string
	server  *server.MCPServer
	catalog *openapi.Catalog
	tools   []mcp.Tool
	aliases map[string]string
	exec    Executor
	headers map[string]string
	logger  *common.Logger
}

// NewAdapter builds the catalog for doc and registers list and call handlers.
// It fails with a *ConfigurationError when doc has no server URL.
func NewAdapter(name string, doc *openapi.Document, opts ...Option) (*Adapter, error) {
	o := options{version: "1.0.0", builder: openapi.Builder{}}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = common.NewSilentLogger()
	}

	baseURL := doc.BaseURL()
	if baseURL == "" {
		return nil, &ConfigurationError{Err: ErrNoBaseURL}
	}

	headers := auth.Resolve(o.auth, o.logger, o.resolvers...)

	exec := o.exec
	if exec == nil {
		execOpts := o.execOpts
		execOpts.BaseURL = baseURL
		execOpts.Headers = headers
		e, err := executor.New(execOpts, o.logger)
		if err != nil {
			return nil, &ConfigurationError{Err: err}
		}
		exec = e
	}

	catalog, err := o.builder.Build(doc)
	if err != nil {
		return nil, &ConfigurationError{Err: err}
	}

	a := &Adapter{
		name:    name,
		catalog: catalog,
		aliases: make(map[string]string),
		exec:    exec,
		headers: headers,
		logger:  o.logger,
	}
	a.indexTools()

	a.server = server.NewMCPServer(name, o.version,
		server.WithToolCapabilities(true),
		server.WithToolFilter(func(context.Context, []mcp.Tool) []mcp.Tool {
			return a.ListTools()
		}),
	)
	a.registerTools()

	catalogTools.Set(float64(len(a.tools)))
	a.logger.Info().
		Str("name", name).
		Str("base_url", baseURL).
		Int("resources", len(catalog.Resources)).
		Int("tools", len(a.tools)).
		Int("auth_headers", len(headers)).
		Msg("MCP adapter initialized")

	return a, nil
}

// Name returns the adapter's server name.
func (a *Adapter) Name() string { return a.name }

// Server returns the underlying MCP server.
func (a *Adapter) Server() *server.MCPServer { return a.server }

// Catalog returns the catalog the adapter was built with.
func (a *Adapter) Catalog() *openapi.Catalog { return a.catalog }

// ListTools returns the listing in catalog order: resources as first
// declared, methods in declaration order.
func (a *Adapter) ListTools() []mcp.Tool {
	out := make([]mcp.Tool, len(a.tools))
	copy(out, a.tools)
	return out
}

// Resolve finds the operation for a tool name. The untruncated operation id
// is tried first, then the listed display name.
func (a *Adapter) Resolve(name string) (*openapi.OperationRecord, bool) {
	if rec, ok := a.catalog.Index[name]; ok {
		return rec, true
	}
	if id, ok := a.aliases[name]; ok {
		rec, ok := a.catalog.Index[id]
		return rec, ok
	}
	return nil, false
}

// Dispatch sanitizes args and runs the named operation. Upstream failures are
// returned as an OutcomeUpstreamError, not as an error. The error return is
// reserved for lookup failures and internal problems.
func (a *Adapter) Dispatch(ctx context.Context, name string, args params.Value) (Outcome, error) {
	rec, ok := a.Resolve(name)
	if !ok {
		return Outcome{}, &LookupError{Name: name}
	}

	resp, err := a.exec.Execute(ctx, rec, params.Sanitize(args))
	if err != nil {
		var upstream *executor.UpstreamError
		if errors.As(err, &upstream) {
			return Outcome{Kind: OutcomeUpstreamError, StatusCode: upstream.StatusCode, Payload: upstream.Body()}, nil
		}
		return Outcome{}, err
	}
	if resp == nil {
		return Outcome{}, fmt.Errorf("%s: %w", rec.ID, ErrNoResponse)
	}
	return Outcome{Kind: OutcomeOK, StatusCode: resp.StatusCode, Payload: resp.Data}, nil
}

// CallTool dispatches and renders the result. Lookup and internal errors are
// returned unchanged for the protocol layer to report.
func (a *Adapter) CallTool(ctx context.Context, name string, args params.Value) (*mcp.CallToolResult, error) {
	logger := a.logger.WithCorrelationId(uuid.New().String())
	start := time.Now()

	outcome, err := a.Dispatch(ctx, name, args)
	if err != nil {
		var lookup *LookupError
		if errors.As(err, &lookup) {
			observeToolCall("", outcomeLookupError, time.Since(start))
			logger.Warn().Str("tool", name).Msg("Unknown tool")
			return nil, err
		}
		observeToolCall(a.operationLabel(name), outcomeInternalError, time.Since(start))
		logger.Error().Str("tool", name).Err(err).Msg("Error in tool call")
		return nil, err
	}

	observeToolCall(a.operationLabel(name), outcome.Kind.String(), time.Since(start))
	event := logger.Info()
	if outcome.Kind == OutcomeUpstreamError {
		event = logger.Warn()
	}
	event.Str("tool", name).
		Str("outcome", outcome.Kind.String()).
		Int("status", outcome.StatusCode).
		Dur("duration", time.Since(start)).
		Msg("Tool call completed")

	return outcome.Result()
}

func (a *Adapter) operationLabel(name string) string {
	if rec, ok := a.Resolve(name); ok {
		return rec.ID
	}
	return ""
}
