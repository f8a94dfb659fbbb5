package common

import (
	"context"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"go.opentelemetry.io/otel/attribute"

	"github.com/teemow/senderwatch/internal/instrumentation"
	"github.com/teemow/senderwatch/internal/logging"
	"github.com/teemow/senderwatch/internal/server"
	"github.com/teemow/senderwatch/internal/tools/batch"
)

// ToolHandler is the signature of an MCP tool handler.
type ToolHandler = mcpserver.ToolHandlerFunc

// InstrumentedToolHandler wraps a tool handler with a span, metrics and audit logging.
// The sender and thread targets of the call are taken from the "sender",
// "threadId" and "threadIds" arguments.
//
// Usage:
//
//	s.AddTool(myTool, common.InstrumentedToolHandler("my_tool", sc, handler))
func InstrumentedToolHandler(toolName string, sc *server.ServerContext, handler ToolHandler) ToolHandler {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := request.GetArguments()
		sender := StringArg(args, "sender")

		spanAttrs := instrumentation.NewSpanAttributeBuilder().
			WithAccount(sc.Account()).
			WithOperation(toolName)
		if sender != "" {
			spanAttrs.WithSender(logging.AnonymizeSender(sender))
		}
		ctx, span := instrumentation.StartToolSpan(ctx, toolName, spanAttrs.Build()...)
		defer span.End()

		start := time.Now()
		invocation := instrumentation.NewToolInvocation(toolName).
			WithSpanContext(ctx).
			WithAccount(sc.Account())
		switch {
		case sender != "":
			invocation.WithSender(sender, toolName)
		case args["threadIds"] != nil:
			if ids, err := batch.ParseIDs(args["threadIds"], "threadIds"); err == nil {
				invocation.WithThreads(toolName, ids...)
			}
		case args["threadId"] != nil:
			invocation.WithThreads(toolName, StringArg(args, "threadId"))
		}

		result, err := handler(ctx, request)
		duration := time.Since(start)

		status := instrumentation.StatusSuccess
		switch {
		case err != nil:
			status = instrumentation.StatusError
			invocation.CompleteWithError(err)
			instrumentation.SetSpanError(span, err)
		case result != nil && result.IsError:
			status = instrumentation.StatusError
			invocation.Complete(false, nil)
		default:
			invocation.CompleteSuccess()
			instrumentation.SetSpanSuccess(span)
		}
		span.SetAttributes(attribute.String(instrumentation.SpanAttrStatus, status))

		sc.Metrics().RecordToolInvocationWithAccount(ctx, toolName, status, sc.Account(), duration)
		sc.AuditLogger().LogToolInvocation(invocation)

		return result, err
	}
}
