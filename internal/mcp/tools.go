package mcp

import (
	"context"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
)

// Tool names
const (
	ToolGetMessages  = "console_get_messages"
	ToolListOrigins  = "console_list_origins"
	ToolCheckOrigins = "console_check_origins"
)

// NewServer creates an MCP server exposing the console tools
func NewServer(handler *Handler, version string) *sdk.Server {
	server := sdk.NewServer(&sdk.Implementation{
		Name:    "console-relay",
		Version: version,
	}, nil)
	registerTools(server, handler)
	return server
}

// registerTools registers all console tools
func registerTools(server *sdk.Server, h *Handler) {
	sdk.AddTool(server, &sdk.Tool{
		Name:        ToolGetMessages,
		Description: "Get the most recent SMS messages held by the relay, newest first. Filter by app name to find a verification code.",
	}, func(ctx context.Context, _ *sdk.CallToolRequest, input GetMessagesInput) (*sdk.CallToolResult, GetMessagesOutput, error) {
		out, err := h.GetMessages(ctx, input)
		return nil, out, err
	})

	sdk.AddTool(server, &sdk.Tool{
		Name:        ToolListOrigins,
		Description: "List every app that has sent an SMS, with its discovered login URL and check status.",
	}, func(ctx context.Context, _ *sdk.CallToolRequest, input ListOriginsInput) (*sdk.CallToolResult, ListOriginsOutput, error) {
		out, err := h.ListOrigins(ctx, input)
		return nil, out, err
	})

	sdk.AddTool(server, &sdk.Tool{
		Name:        ToolCheckOrigins,
		Description: "Queue login URL discovery for every known app. Results show up in console_list_origins once the crawler finishes.",
	}, func(ctx context.Context, _ *sdk.CallToolRequest, input CheckOriginsInput) (*sdk.CallToolResult, CheckOriginsOutput, error) {
		out, err := h.CheckOrigins(ctx, input)
		return nil, out, err
	})
}
