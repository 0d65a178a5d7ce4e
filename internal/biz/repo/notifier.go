package repo

import (
	"context"

	"github.com/consolerelay/console-relay/internal/biz/domain"
)

// Notifier announces newly arrived messages to an external channel
type Notifier interface {
	NotifyMessages(ctx context.Context, msgs []*domain.Message) error
}
