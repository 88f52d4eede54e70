package common

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/teemow/bandavail/internal/instrumentation"
)

// ToolHandler is the signature of an MCP tool handler.
type ToolHandler = func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error)

// Instruments are the optional recorders a tool invocation reports to.
type Instruments struct {
	Metrics *instrumentation.Metrics
	Audit   *instrumentation.AuditLogger
}

// InstrumentedToolHandler wraps a tool handler with tracing, metrics and audit
// logging. A handler that returns an error result counts as a failure. Nil
// recorders in inst are skipped.
//
// Usage:
//
//	s.AddTool(myTool, common.InstrumentedToolHandler("my_tool", inst, handler))
func InstrumentedToolHandler(toolName string, inst Instruments, handler ToolHandler) ToolHandler {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		member := GetMemberFromArgs(request.GetArguments())

		attrs := instrumentation.NewSpanAttributeBuilder().WithMember(member).Build()
		ctx, span := instrumentation.StartToolSpan(ctx, toolName, attrs...)
		defer span.End()

		invocation := instrumentation.NewToolInvocation(ctx, toolName, member)
		result, err := handler(ctx, request)
		invocation.Finish(result != nil && result.IsError, err)

		if invocation.Success {
			instrumentation.SetSpanSuccess(span)
		} else {
			instrumentation.SetSpanError(span, err)
		}

		inst.Metrics.RecordToolInvocation(ctx, toolName, invocation.Status(), invocation.Duration)
		inst.Audit.LogToolInvocation(invocation)

		return result, err
	}
}
