package sender_tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/senderwatch/internal/server"
	"github.com/teemow/senderwatch/internal/tools/common"
)

// RegisterSenderTools registers all sender, thread and mailbox tools with the MCP server.
func RegisterSenderTools(s *mcpserver.MCPServer, sc *server.ServerContext, readOnly bool) error {
	if sc == nil {
		return fmt.Errorf("server context is required")
	}

	// Filter tools (write operations require !readOnly)
	if err := RegisterFilterTools(s, sc, readOnly); err != nil {
		return fmt.Errorf("failed to register filter tools: %w", err)
	}

	// Stats tools (read-only)
	if err := RegisterStatsTools(s, sc); err != nil {
		return fmt.Errorf("failed to register stats tools: %w", err)
	}

	// Thread tools (write operations require !readOnly)
	if err := RegisterThreadTools(s, sc, readOnly); err != nil {
		return fmt.Errorf("failed to register thread tools: %w", err)
	}

	listLabelsTool := mcp.NewTool("mailbox_list_labels",
		mcp.WithDescription("List the labels of the mailbox. Use the label IDs with sender_auto_archive."),
	)
	s.AddTool(listLabelsTool, common.InstrumentedToolHandler("mailbox_list_labels", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleListLabels(ctx, request, sc)
		}))

	return nil
}

func handleListLabels(ctx context.Context, _ mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	labels, err := sc.Orchestrator().Labels(ctx)
	if err != nil {
		return common.ErrorResult("list labels", err), nil
	}

	return common.JSONResult(map[string]interface{}{
		"account": sc.Account(),
		"total":   len(labels),
		"labels":  labels,
	}), nil
}

// senderArg returns the required "sender" argument.
func senderArg(request mcp.CallToolRequest) (string, *mcp.CallToolResult) {
	sender, err := common.RequiredString(request.GetArguments(), "sender")
	if err != nil {
		return "", mcp.NewToolResultError(err.Error())
	}
	return sender, nil
}
