package handlers

import (
	"net/http"

	"github.com/mark3labs/mcp-go/mcp"
)

// ToolSummary is one row of the /tools listing.
type ToolSummary struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// ToolsHandler serves the tool listing as plain JSON for operators.
type ToolsHandler struct {
	list func() []mcp.Tool
}

// NewToolsHandler creates a handler over a listing function.
func NewToolsHandler(list func() []mcp.Tool) *ToolsHandler {
	return &ToolsHandler{list: list}
}

// ServeHTTP handles GET /tools.
func (h *ToolsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	tools := h.list()
	out := make([]ToolSummary, len(tools))
	for i, t := range tools {
		out[i] = ToolSummary{Name: t.Name, Description: t.Description}
	}
	WriteJSON(w, http.StatusOK, map[string]any{
		"count": len(out),
		"tools": out,
	})
}
