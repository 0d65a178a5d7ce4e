package llm

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

const (
	defaultModel   = "gpt-4o-mini"
	defaultTimeout = 15 * time.Second

	// maxSuggestions bounds how many candidates are checked per app
	maxSuggestions = 3
)

const loginURLPrompt = `You help locate the web login page of consumer applications that send SMS verification codes.

Given an application name, reply with up to 3 candidate URLs of its official sign-in page.

Rules:
1. One absolute https URL per line, most likely first
2. Only official domains of the application, never third-party sites
3. If you do not know the application, reply with NONE

No explanations.`

// Client suggests login URLs through an OpenAI-compatible chat API
type Client struct {
	client  *openai.Client
	model   string
	prompt  string
	timeout time.Duration
}

// NewClient creates a client; an empty baseURL uses the OpenAI default
func NewClient(apiKey, baseURL, model string) *Client {
	if model == "" {
		model = defaultModel
	}

	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = strings.TrimRight(baseURL, "/")
	}

	return &Client{
		client:  openai.NewClientWithConfig(config),
		model:   model,
		prompt:  loginURLPrompt,
		timeout: defaultTimeout,
	}
}

// SetPrompt replaces the login URL system prompt; empty keeps the default
func (c *Client) SetPrompt(prompt string) {
	if strings.TrimSpace(prompt) != "" {
		c.prompt = prompt
	}
}

// Chat sends a message and returns the response
func (c *Client) Chat(ctx context.Context, systemPrompt, userMessage string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userMessage},
		},
		Temperature: 0.1,
		MaxTokens:   200,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response choices")
	}

	return resp.Choices[0].Message.Content, nil
}

// SuggestLoginURLs asks the model for candidate login pages of appName
func (c *Client) SuggestLoginURLs(ctx context.Context, appName string) ([]string, error) {
	reply, err := c.Chat(ctx, c.prompt, "Application: "+appName)
	if err != nil {
		return nil, err
	}
	return ParseURLs(reply), nil
}

// ParseURLs extracts absolute http(s) URLs from a model reply, one per line
func ParseURLs(reply string) []string {
	var urls []string
	seen := make(map[string]bool)
	for _, line := range strings.Split(reply, "\n") {
		line = strings.TrimSpace(line)
		// Tolerate list markers and numbering
		line = strings.TrimLeft(line, "-*0123456789.) ")
		line = strings.Trim(line, "<>`\"'")
		if line == "" {
			continue
		}

		u, err := url.Parse(line)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			continue
		}
		if seen[line] {
			continue
		}
		seen[line] = true
		urls = append(urls, line)
		if len(urls) == maxSuggestions {
			break
		}
	}
	return urls
}
