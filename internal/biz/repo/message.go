package repo

import (
	"context"

	"github.com/consolerelay/console-relay/internal/biz/domain"
)

// MessageRepo is the message store interface
// Holds exactly one batch: the most recently ingested one
type MessageRepo interface {
	// ReplaceBatch atomically swaps the stored batch for msgs.
	// Slice order is "most recent last"; ID, BatchID and ReceivedAt are assigned on msgs.
	ReplaceBatch(ctx context.Context, msgs []*domain.Message) error

	// ListLatest returns the stored batch, most recent first
	ListLatest(ctx context.Context) ([]*domain.Message, error)
}
