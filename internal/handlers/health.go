package handlers

import (
	"net/http"
	"time"

	"github.com/bobmcallan/openapi-mcp/internal/common"
)

// HealthHandler reports liveness and the size of the served catalog.
type HealthHandler struct {
	logger  *common.Logger
	started time.Time
	tools   func() int
}

// NewHealthHandler creates a health handler. tools may be nil.
func NewHealthHandler(logger *common.Logger, tools func() int) *HealthHandler {
	return &HealthHandler{logger: logger, started: time.Now(), tools: tools}
}

// ServeHTTP handles GET /health.
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	body := map[string]any{
		"status": "ok",
		"uptime": time.Since(h.started).Round(time.Second).String(),
	}
	if h.tools != nil {
		body["tools"] = h.tools()
	}
	WriteJSON(w, http.StatusOK, body)
}
