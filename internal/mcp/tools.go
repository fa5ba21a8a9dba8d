package mcp

import (
	"context"
	"encoding/json"

	"github.com/bobmcallan/openapi-mcp/internal/openapi"
	"github.com/bobmcallan/openapi-mcp/internal/params"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// indexTools builds the ordered listing and the display name aliases.
// When two operations truncate to the same name, the first declared keeps it.
func (a *Adapter) indexTools() {
	for _, res := range a.catalog.Resources {
		for _, m := range res.Methods {
			name := openapi.DisplayName(res.Name, m.Name)
			schema, err := m.InputSchema.MarshalJSON()
			if err != nil || m.InputSchema.IsAbsent() {
				schema = []byte(`{"type":"object","properties":{}}`)
			}
			a.tools = append(a.tools, mcp.NewToolWithRawSchema(name, m.Description, json.RawMessage(schema)))

			if name == m.OperationID {
				continue
			}
			if prev, taken := a.aliases[name]; taken {
				a.logger.Warn().
					Str("tool", name).
					Str("kept", prev).
					Str("shadowed", m.OperationID).
					Msg("Truncated tool name collides with an earlier operation")
				continue
			}
			if _, exact := a.catalog.Index[name]; exact {
				a.logger.Warn().
					Str("tool", name).
					Str("shadowed", m.OperationID).
					Msg("Truncated tool name matches another operation id")
				continue
			}
			a.aliases[name] = m.OperationID
		}
	}
}

// registerTools adds a handler under every name a call can arrive with.
// The listing itself comes from the tool filter, so extra names stay hidden.
func (a *Adapter) registerTools() {
	seen := make(map[string]bool)
	var entries []server.ServerTool
	add := func(tool mcp.Tool) {
		if seen[tool.Name] {
			return
		}
		seen[tool.Name] = true
		entries = append(entries, server.ServerTool{Tool: tool, Handler: a.handleToolCall})
	}

	for _, tool := range a.tools {
		add(tool)
	}
	for _, res := range a.catalog.Resources {
		for _, m := range res.Methods {
			add(mcp.Tool{Name: m.OperationID, Description: m.Description})
		}
	}
	a.server.AddTools(entries...)
}

// handleToolCall adapts an MCP request to CallTool.
func (a *Adapter) handleToolCall(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return a.CallTool(ctx, req.Params.Name, argumentsOf(req))
}

// argumentsOf converts request arguments to a Value. Missing arguments
// become an empty object.
func argumentsOf(req mcp.CallToolRequest) params.Value {
	switch raw := req.Params.Arguments.(type) {
	case nil:
		return params.Object()
	case json.RawMessage:
		if v, err := params.Parse(raw); err == nil {
			return v
		}
		return params.Object()
	}
	args := req.GetArguments()
	if args == nil {
		return params.Object()
	}
	return params.FromAny(args)
}
