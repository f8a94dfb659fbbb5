package sender_tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/senderwatch/internal/mailbox"
	"github.com/teemow/senderwatch/internal/server"
	"github.com/teemow/senderwatch/internal/tools/batch"
	"github.com/teemow/senderwatch/internal/tools/common"
)

// Thread list types.
const (
	threadTypeUnarchived = "unarchived"
	threadTypeAll        = "all"
)

const defaultThreadLimit = 25

// RegisterThreadTools registers the thread listing and mutation tools.
func RegisterThreadTools(s *mcpserver.MCPServer, sc *server.ServerContext, readOnly bool) error {
	listTool := mcp.NewTool("sender_list_threads",
		mcp.WithDescription("List the threads of a sender, newest first. Also records the sender's latest unsubscribe link."),
		mcp.WithString("sender",
			mcp.Required(),
			mcp.Description("Sender email address"),
		),
		mcp.WithString("type",
			mcp.Description("unarchived (still in the inbox, default) or all"),
			mcp.Enum(threadTypeUnarchived, threadTypeAll),
		),
		mcp.WithBoolean("includeTrashed",
			mcp.Description("Include trashed threads (default: false)"),
		),
		mcp.WithNumber("limit",
			mcp.Description(fmt.Sprintf("Maximum number of threads to return (default: %d)", defaultThreadLimit)),
		),
	)
	s.AddTool(listTool, common.InstrumentedToolHandler("sender_list_threads", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleListThreads(ctx, request, sc)
		}))

	if readOnly {
		return nil
	}

	threadIDsParam := mcp.WithString("threadIds",
		mcp.Required(),
		mcp.Description("Thread ID (string) or array of thread IDs"),
	)

	markReadTool := mcp.NewTool("thread_mark_read",
		mcp.WithDescription("Mark one or more threads as read"),
		threadIDsParam,
	)
	s.AddTool(markReadTool, common.InstrumentedToolHandler("thread_mark_read", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleSetRead(ctx, request, sc, true)
		}))

	markUnreadTool := mcp.NewTool("thread_mark_unread",
		mcp.WithDescription("Mark one or more threads as unread"),
		threadIDsParam,
	)
	s.AddTool(markUnreadTool, common.InstrumentedToolHandler("thread_mark_unread", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleSetRead(ctx, request, sc, false)
		}))

	trashTool := mcp.NewTool("thread_trash",
		mcp.WithDescription("Move one or more threads to the trash"),
		threadIDsParam,
	)
	s.AddTool(trashTool, common.InstrumentedToolHandler("thread_trash", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleTrash(ctx, request, sc)
		}))

	return nil
}

func handleListThreads(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	sender, errResult := senderArg(request)
	if errResult != nil {
		return errResult, nil
	}
	args := request.GetArguments()

	threadType := common.StringArg(args, "type")
	switch threadType {
	case "":
		threadType = threadTypeUnarchived
	case threadTypeUnarchived, threadTypeAll:
	default:
		return mcp.NewToolResultError(fmt.Sprintf("type must be %q or %q", threadTypeUnarchived, threadTypeAll)), nil
	}

	limit := common.IntArg(args, "limit", defaultThreadLimit)
	if limit <= 0 {
		return mcp.NewToolResultError("limit must be positive"), nil
	}

	list, err := sc.Orchestrator().ListThreads(ctx, mailbox.ThreadQuery{
		Sender:         sender,
		IncludeTrashed: common.BoolArg(args, "includeTrashed", false),
		InboxOnly:      threadType == threadTypeUnarchived,
		Limit:          limit,
	})
	if err != nil {
		return common.ErrorResult("list threads", err), nil
	}

	result := map[string]interface{}{
		"sender":  mailbox.NormalizeAddress(sender),
		"type":    threadType,
		"total":   len(list),
		"threads": list,
	}
	if state, ok := sc.Orchestrator().Sender(sender); ok {
		result["autoArchived"] = state.AutoArchived
		if state.LastUnsubscribeLink != "" {
			result["unsubscribeLink"] = state.LastUnsubscribeLink
		}
	}
	return common.JSONResult(result), nil
}

func handleSetRead(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext, read bool) (*mcp.CallToolResult, error) {
	ids, err := batch.ParseIDs(request.GetArguments()["threadIds"], "threadIds")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	message := "Marked as read"
	if !read {
		message = "Marked as unread"
	}

	results := batch.Process(ctx, ids, batch.DefaultWorkers, func(ctx context.Context, id string) (string, error) {
		if err := sc.Orchestrator().SetRead(ctx, id, read); err != nil {
			return "", err
		}
		return message, nil
	})
	return batchResult(results), nil
}

func handleTrash(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	ids, err := batch.ParseIDs(request.GetArguments()["threadIds"], "threadIds")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	results := batch.Process(ctx, ids, batch.DefaultWorkers, func(ctx context.Context, id string) (string, error) {
		if err := sc.Orchestrator().Trash(ctx, id); err != nil {
			return "", err
		}
		return "Thread deleted!", nil
	})
	return batchResult(results), nil
}

// batchResult reports a batch as an error only when every item failed.
func batchResult(results []batch.Result) *mcp.CallToolResult {
	summary := batch.Summarize(results)
	text := batch.FormatResults(results)
	if summary.Successful == 0 {
		return mcp.NewToolResultError(text)
	}
	return mcp.NewToolResultText(text)
}
