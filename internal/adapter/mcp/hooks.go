package mcp

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/guillermoBallester/plumbline/internal/core/port"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// targetArgs are the tool arguments copied onto logs and spans.
var targetArgs = []string{"table_name", "name", "asset", "suite"}

type callState struct {
	start time.Time
	span  trace.Span
	attrs []slog.Attr
}

// ToolCallHooks logs every tool call with its duration and target, and
// records a span and the tool-duration metric when tracer and inst are set.
func ToolCallHooks(logger *slog.Logger, tracer trace.Tracer, inst port.Instrumentation) *server.Hooks {
	hooks := &server.Hooks{}
	var calls sync.Map // request id -> *callState

	hooks.AddBeforeCallTool(func(ctx context.Context, id any, req *mcp.CallToolRequest) {
		state := &callState{start: time.Now(), attrs: targetAttrs(req)}

		if tracer != nil {
			spanAttrs := []attribute.KeyValue{attribute.String("mcp.tool", req.Params.Name)}
			for _, a := range state.attrs {
				spanAttrs = append(spanAttrs, attribute.String("plumbline."+a.Key, a.Value.String()))
			}
			_, state.span = tracer.Start(ctx, "mcp.tool/"+req.Params.Name, trace.WithAttributes(spanAttrs...))
		}

		calls.Store(id, state)
	})

	hooks.AddAfterCallTool(func(ctx context.Context, id any, req *mcp.CallToolRequest, result any) {
		state := finish(&calls, id)

		isErr := false
		if r, ok := result.(*mcp.CallToolResult); ok && r.IsError {
			isErr = true
		}
		logCall(ctx, logger, req.Params.Name, state, isErr, "")

		if inst != nil && state != nil {
			inst.RecordToolDuration(ctx, float64(time.Since(state.start).Milliseconds()))
		}
		if state != nil && state.span != nil {
			if isErr {
				state.span.SetStatus(codes.Error, "tool returned error")
				state.span.RecordError(fmt.Errorf("tool %s returned error", req.Params.Name))
			}
			state.span.End()
		}
	})

	hooks.AddOnError(func(ctx context.Context, id any, method mcp.MCPMethod, message any, err error) {
		state := finish(&calls, id)

		if req, ok := message.(*mcp.CallToolRequest); ok {
			logCall(ctx, logger, req.Params.Name, state, true, err.Error())
		}
		if state != nil && state.span != nil {
			state.span.RecordError(err)
			state.span.SetStatus(codes.Error, err.Error())
			state.span.End()
		}
	})

	return hooks
}

func finish(calls *sync.Map, id any) *callState {
	if v, ok := calls.LoadAndDelete(id); ok {
		return v.(*callState)
	}
	return nil
}

func logCall(ctx context.Context, logger *slog.Logger, tool string, state *callState, isErr bool, msg string) {
	level := slog.LevelInfo
	if isErr {
		level = slog.LevelError
	}

	attrs := []slog.Attr{
		slog.String("rpc.method", "tools/call"),
		slog.String("mcp.tool", tool),
		slog.Bool("error", isErr),
	}
	if state != nil {
		attrs = append(attrs, slog.Duration("duration", time.Since(state.start)))
		attrs = append(attrs, state.attrs...)
	}
	if msg != "" {
		attrs = append(attrs, slog.String("error.message", msg))
	}
	logger.LogAttrs(ctx, level, "tool call", attrs...)
}

func targetAttrs(req *mcp.CallToolRequest) []slog.Attr {
	args := req.GetArguments()
	var out []slog.Attr
	for _, key := range targetArgs {
		if v, ok := args[key].(string); ok && v != "" {
			out = append(out, slog.String(key, v))
		}
	}
	return out
}
