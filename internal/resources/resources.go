package resources

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/senderwatch/internal/refresh"
	"github.com/teemow/senderwatch/internal/server"
)

// Resource URIs.
const (
	SendersURI = "senderwatch://senders"
	RefreshURI = "senderwatch://refresh"
)

// RegisterSenderResources registers the sender and refresh resources.
func RegisterSenderResources(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	if sc == nil {
		return fmt.Errorf("server context is required")
	}

	sendersResource := mcp.NewResource(
		SendersURI,
		"Known Senders",
		mcp.WithResourceDescription("Senders seen so far with their auto-archive state and latest unsubscribe link"),
		mcp.WithMIMEType("application/json"),
	)
	s.AddResource(sendersResource, func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		return handleSenders(ctx, request, sc)
	})

	refreshResource := mcp.NewResource(
		RefreshURI,
		"Refreshed Sender Stats",
		mcp.WithResourceDescription("Refresh schedule and the latest stats of every watched sender"),
		mcp.WithMIMEType("application/json"),
	)
	s.AddResource(refreshResource, func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		return handleRefresh(ctx, request, sc)
	})

	return nil
}

func handleSenders(_ context.Context, request mcp.ReadResourceRequest, sc *server.ServerContext) ([]mcp.ResourceContents, error) {
	senders := sc.Orchestrator().Senders()
	return jsonContents(request.Params.URI, map[string]interface{}{
		"account": sc.Account(),
		"total":   len(senders),
		"senders": senders,
	})
}

func handleRefresh(_ context.Context, request mcp.ReadResourceRequest, sc *server.ServerContext) ([]mcp.ResourceContents, error) {
	data := map[string]interface{}{
		"enabled": false,
	}
	if scheduler := sc.Scheduler(); scheduler != nil {
		snapshots := scheduler.Snapshots()
		if snapshots == nil {
			snapshots = []refresh.Snapshot{}
		}
		data["enabled"] = true
		data["schedule"] = scheduler.Spec()
		data["senders"] = scheduler.Senders()
		data["snapshots"] = snapshots
	}
	return jsonContents(request.Params.URI, data)
}

func jsonContents(uri string, v interface{}) ([]mcp.ResourceContents, error) {
	jsonData, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal resource data: %w", err)
	}

	return []mcp.ResourceContents{
		&mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(jsonData),
		},
	}, nil
}
