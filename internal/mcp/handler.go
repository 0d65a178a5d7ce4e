package mcp

import (
	"context"
	"fmt"
	"strings"
)

const defaultMessageLimit = 20

// Handler implements the console tools on top of the relay API
type Handler struct {
	client *Client
}

// NewHandler creates a new MCP handler
func NewHandler(client *Client) *Handler {
	return &Handler{client: client}
}

// ============ Message Handlers ============

// GetMessagesInput filters the latest batch
type GetMessagesInput struct {
	AppName string `json:"app_name,omitempty" jsonschema:"only return messages from this app (case-insensitive)"`
	Limit   int    `json:"limit,omitempty" jsonschema:"maximum number of messages to return (default 20)"`
}

// GetMessagesOutput is the filtered batch, newest first
type GetMessagesOutput struct {
	BatchID  string    `json:"batch_id,omitempty"`
	Messages []Message `json:"messages"`
	Total    int       `json:"total"`
}

// GetMessages returns the most recent messages
func (h *Handler) GetMessages(ctx context.Context, input GetMessagesInput) (GetMessagesOutput, error) {
	console, err := h.client.GetMessages(ctx)
	if err != nil {
		return GetMessagesOutput{}, err
	}

	limit := input.Limit
	if limit <= 0 {
		limit = defaultMessageLimit
	}

	out := GetMessagesOutput{BatchID: console.BatchID, Messages: []Message{}}
	for _, m := range console.Messages {
		if input.AppName != "" && !strings.EqualFold(m.AppName, input.AppName) {
			continue
		}
		out.Total++
		if len(out.Messages) < limit {
			out.Messages = append(out.Messages, m)
		}
	}
	return out, nil
}

// ============ Origin Handlers ============

// ListOriginsInput narrows the origin list
type ListOriginsInput struct {
	MissingOnly bool `json:"missing_only,omitempty" jsonschema:"only return origins without a login URL"`
}

// ListOriginsOutput is the origin list sorted by app name
type ListOriginsOutput struct {
	Origins []Origin `json:"origins"`
}

// ListOrigins returns the known origins
func (h *Handler) ListOrigins(ctx context.Context, input ListOriginsInput) (ListOriginsOutput, error) {
	origins, err := h.client.ListOrigins(ctx)
	if err != nil {
		return ListOriginsOutput{}, err
	}

	out := ListOriginsOutput{Origins: []Origin{}}
	for _, o := range origins {
		if input.MissingOnly && o.LoginURL != nil {
			continue
		}
		out.Origins = append(out.Origins, o)
	}
	return out, nil
}

// CheckOriginsInput is empty
type CheckOriginsInput struct{}

// CheckOriginsOutput reports how many checks were queued
type CheckOriginsOutput struct {
	Queued  int    `json:"queued"`
	Message string `json:"message"`
}

// CheckOrigins queues login URL discovery for every origin
func (h *Handler) CheckOrigins(ctx context.Context, _ CheckOriginsInput) (CheckOriginsOutput, error) {
	queued, err := h.client.CheckOrigins(ctx)
	if err != nil {
		return CheckOriginsOutput{}, err
	}
	return CheckOriginsOutput{
		Queued:  queued,
		Message: fmt.Sprintf("Queued login URL checks for %d origins", queued),
	}, nil
}
