package sender_tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/senderwatch/internal/apperrors"
	"github.com/teemow/senderwatch/internal/server"
	"github.com/teemow/senderwatch/internal/tools/common"
)

// RegisterFilterTools registers the auto-archive filter tools.
func RegisterFilterTools(s *mcpserver.MCPServer, sc *server.ServerContext, readOnly bool) error {
	if !readOnly {
		autoArchiveTool := mcp.NewTool("sender_auto_archive",
			mcp.WithDescription("Create a filter that archives all future mail from a sender, optionally labelling it"),
			mcp.WithString("sender",
				mcp.Required(),
				mcp.Description("Sender email address"),
			),
			mcp.WithString("labelId",
				mcp.Description("Label ID to apply to archived mail (see mailbox_list_labels)"),
			),
		)
		s.AddTool(autoArchiveTool, common.InstrumentedToolHandler("sender_auto_archive", sc,
			func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				return handleAutoArchive(ctx, request, sc)
			}))

		disableTool := mcp.NewTool("sender_disable_auto_archive",
			mcp.WithDescription("Delete the auto-archive filter of a sender"),
			mcp.WithString("sender",
				mcp.Required(),
				mcp.Description("Sender email address"),
			),
		)
		s.AddTool(disableTool, common.InstrumentedToolHandler("sender_disable_auto_archive", sc,
			func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				return handleDisableAutoArchive(ctx, request, sc)
			}))
	}

	verifyTool := mcp.NewTool("sender_verify_auto_archive",
		mcp.WithDescription("Check with the mailbox provider whether a sender is auto-archived"),
		mcp.WithString("sender",
			mcp.Required(),
			mcp.Description("Sender email address"),
		),
	)
	s.AddTool(verifyTool, common.InstrumentedToolHandler("sender_verify_auto_archive", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleVerifyAutoArchive(ctx, request, sc)
		}))

	linkTool := mcp.NewTool("sender_filter_settings_link",
		mcp.WithDescription("Get the link to the mailbox filter settings page for a sender with an active filter"),
		mcp.WithString("sender",
			mcp.Required(),
			mcp.Description("Sender email address"),
		),
	)
	s.AddTool(linkTool, common.InstrumentedToolHandler("sender_filter_settings_link", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleFilterSettingsLink(ctx, request, sc)
		}))

	infoTool := mcp.NewTool("sender_info",
		mcp.WithDescription("Show what is known about a sender: auto-archive state, unsubscribe link and the latest refreshed stats"),
		mcp.WithString("sender",
			mcp.Required(),
			mcp.Description("Sender email address"),
		),
	)
	s.AddTool(infoTool, common.InstrumentedToolHandler("sender_info", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleSenderInfo(ctx, request, sc)
		}))

	return nil
}

func handleAutoArchive(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	sender, errResult := senderArg(request)
	if errResult != nil {
		return errResult, nil
	}
	labelID := common.StringArg(request.GetArguments(), "labelId")

	f, err := sc.Orchestrator().CreateAutoArchiveFilter(ctx, sender, labelID)
	if err != nil {
		return common.ErrorResult("create auto-archive filter", err), nil
	}

	result := map[string]interface{}{
		"sender":   f.SenderAddress,
		"filterId": f.ID,
		"message":  "Auto archive enabled!",
	}
	if f.LabelID != "" {
		result["labelId"] = f.LabelID
	}
	return common.JSONResult(result), nil
}

func handleDisableAutoArchive(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	sender, errResult := senderArg(request)
	if errResult != nil {
		return errResult, nil
	}

	if err := sc.Orchestrator().DeleteAutoArchiveFilter(ctx, sender); err != nil {
		return common.ErrorResult("delete auto-archive filter", err), nil
	}

	return common.JSONResult(map[string]interface{}{
		"sender":  sender,
		"message": "Auto archive disabled!",
	}), nil
}

func handleVerifyAutoArchive(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	sender, errResult := senderArg(request)
	if errResult != nil {
		return errResult, nil
	}

	state, err := sc.Orchestrator().VerifyAutoArchiveFilter(ctx, sender)
	if err != nil {
		return common.ErrorResult("verify auto-archive filter", err), nil
	}
	return common.JSONResult(state), nil
}

func handleFilterSettingsLink(_ context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	sender, errResult := senderArg(request)
	if errResult != nil {
		return errResult, nil
	}

	link, err := sc.Orchestrator().FilterSettingsLink(sender)
	if err != nil {
		return common.ErrorResult("build filter settings link", err), nil
	}
	return mcp.NewToolResultText(link), nil
}

func handleSenderInfo(_ context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	sender, errResult := senderArg(request)
	if errResult != nil {
		return errResult, nil
	}

	state, ok := sc.Orchestrator().Sender(sender)
	if !ok {
		return common.ErrorResult("get sender", apperrors.NewNotConfiguredError("sender", sender,
			"not seen yet, list its threads with sender_list_threads first")), nil
	}

	result := map[string]interface{}{
		"sender": state,
	}
	if scheduler := sc.Scheduler(); scheduler != nil {
		if snapshot, ok := scheduler.Snapshot(state.Address); ok {
			result["stats"] = snapshot
		}
	}
	return common.JSONResult(result), nil
}
