package data

import (
	"context"

	"github.com/consolerelay/console-relay/internal/biz/domain"
	"github.com/consolerelay/console-relay/internal/biz/repo"
	"github.com/consolerelay/console-relay/internal/infra/feishu"
)

// batchSender is the part of the Feishu client the notifier needs
type batchSender interface {
	SendBatch(ctx context.Context, lines []feishu.Line) error
}

// feishuNotifier implements repo.Notifier by posting to a Feishu chat
type feishuNotifier struct {
	sender batchSender
}

// NewFeishuNotifier creates a notifier on a Feishu client
func NewFeishuNotifier(client *feishu.Client) repo.Notifier {
	return &feishuNotifier{sender: client}
}

// NotifyMessages posts msgs, which arrive most recent last, newest first
func (n *feishuNotifier) NotifyMessages(ctx context.Context, msgs []*domain.Message) error {
	lines := make([]feishu.Line, 0, len(msgs))
	for i := len(msgs) - 1; i >= 0; i-- {
		m := msgs[i]
		lines = append(lines, feishu.Line{
			AppName: m.AppName,
			Carrier: m.Carrier,
			Body:    m.Body,
			Time:    m.DisplayTime,
		})
	}
	return n.sender.SendBatch(ctx, lines)
}
