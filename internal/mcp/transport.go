package mcp

import (
	"context"
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/bobmcallan/openapi-mcp/internal/common"
	"github.com/mark3labs/mcp-go/server"
)

// Transport carries protocol messages between a client and the adapter.
type Transport interface {
	Serve(ctx context.Context, s *server.MCPServer, logger *common.Logger) error
}

// Connect serves the adapter over t until ctx is cancelled or the transport
// closes.
func (a *Adapter) Connect(ctx context.Context, t Transport) error {
	return t.Serve(ctx, a.server, a.logger)
}

// StdioTransport speaks newline-delimited JSON-RPC over a reader and writer.
// Only protocol messages may be written to Out.
type StdioTransport struct {
	In  io.Reader
	Out io.Writer
}

func (t StdioTransport) Serve(ctx context.Context, s *server.MCPServer, logger *common.Logger) error {
	stdio := server.NewStdioServer(s)
	stdio.SetErrorLogger(log.New(errorLogWriter{logger: logger}, "", 0))
	logger.Info().Msg("Serving MCP over stdio")
	return stdio.Listen(ctx, t.In, t.Out)
}

// errorLogWriter routes the stdio server's error log into the structured logger.
type errorLogWriter struct {
	logger *common.Logger
}

func (w errorLogWriter) Write(p []byte) (int, error) {
	w.logger.Error().Str("component", "stdio").Msg(strings.TrimSpace(string(p)))
	return len(p), nil
}

// streamableLogger satisfies mcp-go's util.Logger.
type streamableLogger struct {
	logger *common.Logger
}

func (l streamableLogger) Infof(format string, v ...any) {
	l.logger.Debug().Str("component", "streamable_http").Msg(fmt.Sprintf(format, v...))
}

func (l streamableLogger) Errorf(format string, v ...any) {
	l.logger.Error().Str("component", "streamable_http").Msg(fmt.Sprintf(format, v...))
}
