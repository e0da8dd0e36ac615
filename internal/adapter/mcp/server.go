package mcp

import (
	"log/slog"

	"github.com/guillermoBallester/plumbline/internal/core/port"
	"github.com/mark3labs/mcp-go/server"
	"go.opentelemetry.io/otel/trace"
)

// NewServer creates an MCPServer with the plumbline tools and logging hooks.
// tracer and inst may be nil.
func NewServer(version string, tools Tools, logger *slog.Logger, tracer trace.Tracer, inst port.Instrumentation) *server.MCPServer {
	s := server.NewMCPServer(
		serverName,
		version,
		server.WithToolCapabilities(false),
		server.WithHooks(ToolCallHooks(logger, tracer, inst)),
	)

	RegisterTools(s, tools, logger)

	return s
}
