package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Client is the HTTP client for the relay API
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new relay API client
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Message is one SMS as served by the relay
type Message struct {
	AppName string `json:"app_name"`
	Carrier string `json:"carrier"`
	SMS     string `json:"sms"`
	Time    string `json:"time"`
	Color   string `json:"color"`
}

// Origin is a known app with its discovered login URL
type Origin struct {
	ID           int64   `json:"id"`
	AppName      string  `json:"app_name"`
	LoginURL     *string `json:"login_url"`
	URLChecked   bool    `json:"url_checked"`
	URLCheckedAt *string `json:"url_checked_at"`
	Color        string  `json:"color"`
}

// ============ Messages ============

// Console is the stored batch as served by the relay
type Console struct {
	BatchID  string
	Messages []Message
}

// GetMessages returns the latest batch, newest first
func (c *Client) GetMessages(ctx context.Context) (*Console, error) {
	var result struct {
		Meta struct {
			BatchID string `json:"batch_id"`
		} `json:"meta"`
		Data struct {
			Messages []Message `json:"messages"`
		} `json:"data"`
	}
	if err := c.get(ctx, "/api/console-data", &result); err != nil {
		return nil, err
	}
	return &Console{BatchID: result.Meta.BatchID, Messages: result.Data.Messages}, nil
}

// ============ Origins ============

// ListOrigins returns every known origin
func (c *Client) ListOrigins(ctx context.Context) ([]Origin, error) {
	var result struct {
		Origins []Origin `json:"origins"`
	}
	if err := c.get(ctx, "/api/origins", &result); err != nil {
		return nil, err
	}
	return result.Origins, nil
}

// CheckOrigins queues a login URL check for every origin
func (c *Client) CheckOrigins(ctx context.Context) (int, error) {
	var result struct {
		Count int `json:"count"`
	}
	if err := c.post(ctx, "/api/origins/check-all", nil, &result); err != nil {
		return 0, err
	}
	return result.Count, nil
}

// ============ HTTP Helpers ============

func (c *Client) get(ctx context.Context, path string, result interface{}) error {
	return c.do(ctx, http.MethodGet, path, nil, result)
}

func (c *Client) post(ctx context.Context, path string, body interface{}, result interface{}) error {
	return c.do(ctx, http.MethodPost, path, body, result)
}

func (c *Client) do(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	var reqBody io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal body: %w", err)
		}
		reqBody = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("HTTP %s failed: %w", method, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}
