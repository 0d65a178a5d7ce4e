package feishu

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	lark "github.com/larksuite/oapi-sdk-go/v3"
	larkcore "github.com/larksuite/oapi-sdk-go/v3/core"
	larkim "github.com/larksuite/oapi-sdk-go/v3/service/im/v1"
)

// maxLines caps how many messages go into one chat post
const maxLines = 20

// Line is one SMS rendered into a notification
type Line struct {
	AppName string
	Carrier string
	Body    string
	Time    string
}

// Client posts relay notifications into a Feishu chat
type Client struct {
	larkCli *lark.Client
	chatID  string
	logger  *slog.Logger
}

// Option configures a Client
type Option func(*clientOptions)

type clientOptions struct {
	baseURL string
	logger  *slog.Logger
}

// WithBaseURL points the client at a different open platform host
func WithBaseURL(baseURL string) Option {
	return func(o *clientOptions) {
		o.baseURL = baseURL
	}
}

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) Option {
	return func(o *clientOptions) {
		o.logger = logger
	}
}

// NewClient creates a Feishu client that sends to chatID
func NewClient(appID, appSecret, chatID string, opts ...Option) *Client {
	o := clientOptions{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}

	larkOpts := []lark.ClientOptionFunc{lark.WithLogLevel(larkcore.LogLevelError)}
	if o.baseURL != "" {
		larkOpts = append(larkOpts, lark.WithOpenBaseUrl(o.baseURL))
	}

	return &Client{
		larkCli: lark.NewClient(appID, appSecret, larkOpts...),
		chatID:  chatID,
		logger:  o.logger.With("component", "feishu"),
	}
}

// SendText sends a text message to the configured chat
func (c *Client) SendText(ctx context.Context, text string) error {
	content := map[string]string{"text": text}
	contentJSON, _ := json.Marshal(content)

	req := larkim.NewCreateMessageReqBuilder().
		ReceiveIdType(larkim.ReceiveIdTypeChatId).
		Body(larkim.NewCreateMessageReqBodyBuilder().
			ReceiveId(c.chatID).
			MsgType(larkim.MsgTypeText).
			Content(string(contentJSON)).
			Build()).
		Build()

	resp, err := c.larkCli.Im.Message.Create(ctx, req)
	if err != nil {
		return fmt.Errorf("send message failed: %w", err)
	}
	if !resp.Success() {
		return fmt.Errorf("send message error: %s", resp.Msg)
	}

	c.logger.Debug("message sent", "chat_id", c.chatID)
	return nil
}

// SendBatch posts one summary message for a batch of SMS
func (c *Client) SendBatch(ctx context.Context, lines []Line) error {
	if len(lines) == 0 {
		return nil
	}
	return c.SendText(ctx, FormatBatch(lines))
}

// FormatBatch renders lines as a plain text post, newest first
func FormatBatch(lines []Line) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%d new SMS", len(lines))

	shown := lines
	if len(shown) > maxLines {
		shown = shown[:maxLines]
	}
	for _, l := range shown {
		sb.WriteString("\n")
		sb.WriteString("[" + l.AppName + "]")
		if l.Carrier != "" {
			sb.WriteString(" " + l.Carrier)
		}
		if l.Time != "" {
			sb.WriteString(" " + l.Time)
		}
		sb.WriteString(": " + truncate(l.Body, 200))
	}
	if rest := len(lines) - len(shown); rest > 0 {
		fmt.Fprintf(&sb, "\n... and %d more", rest)
	}
	return sb.String()
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
