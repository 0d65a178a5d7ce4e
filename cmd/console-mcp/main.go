package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/consolerelay/console-relay/internal/mcp"
)

// This MCP server exposes the relay's messages and origins to an agent over stdio.
// It talks to a running relay through its HTTP API.

const version = "v1.0.0"

func main() {
	// stdout carries the protocol, so logs go to stderr
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	apiURL := os.Getenv("RELAY_API_URL")
	if apiURL == "" {
		apiURL = "http://127.0.0.1:8002"
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	server := mcp.NewServer(mcp.NewHandler(mcp.NewClient(apiURL)), version)
	logger.Info("console MCP server starting", "relay", apiURL)

	if err := server.Run(ctx, &sdk.StdioTransport{}); err != nil && ctx.Err() == nil {
		logger.Error("MCP server stopped", "err", err)
		os.Exit(1)
	}
}
