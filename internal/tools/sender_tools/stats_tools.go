package sender_tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/senderwatch/internal/server"
	"github.com/teemow/senderwatch/internal/stats"
	"github.com/teemow/senderwatch/internal/tools/common"
)

// RegisterStatsTools registers the sender statistics tools.
func RegisterStatsTools(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	statsTool := mcp.NewTool("sender_stats",
		mcp.WithDescription("Count the messages received from a sender per day, week or month. Empty periods are reported with a count of 0."),
		mcp.WithString("sender",
			mcp.Required(),
			mcp.Description("Sender email address"),
		),
		mcp.WithString("period",
			mcp.Description("Bucket size: day, week or month (default: week)"),
			mcp.Enum(string(stats.PeriodDay), string(stats.PeriodWeek), string(stats.PeriodMonth)),
		),
		mcp.WithString("start",
			mcp.Description("Range start, RFC3339 or YYYY-MM-DD (default: a lookback window ending at end)"),
		),
		mcp.WithString("end",
			mcp.Description("Range end, RFC3339 or YYYY-MM-DD; a bare date includes the whole day (default: now)"),
		),
	)
	s.AddTool(statsTool, common.InstrumentedToolHandler("sender_stats", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleSenderStats(ctx, request, sc)
		}))

	return nil
}

func handleSenderStats(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	sender, errResult := senderArg(request)
	if errResult != nil {
		return errResult, nil
	}
	args := request.GetArguments()

	period := stats.PeriodWeek
	if p := common.StringArg(args, "period"); p != "" {
		parsed, err := stats.ParsePeriod(p)
		if err != nil {
			return common.ErrorResult("parse period", err), nil
		}
		period = parsed
	}
	start, err := common.TimeArg(args, "start")
	if err != nil {
		return common.ErrorResult("parse start", err), nil
	}
	end, err := common.EndOfDayArg(args, "end")
	if err != nil {
		return common.ErrorResult("parse end", err), nil
	}

	q, err := stats.NewQuery(sender, period, start, end)
	if err != nil {
		return common.ErrorResult("build stats query", err), nil
	}

	buckets, err := sc.Orchestrator().SenderStats(ctx, q)
	if err != nil {
		return common.ErrorResult("get sender stats", err), nil
	}

	return common.JSONResult(map[string]interface{}{
		"sender":  q.Sender(),
		"period":  q.Period(),
		"start":   q.Start(),
		"end":     q.End(),
		"total":   stats.Total(buckets),
		"buckets": buckets,
	}), nil
}
