package repo

import (
	"context"
	"encoding/json"

	"github.com/consolerelay/console-relay/internal/biz/domain"
)

// UpstreamRepo is the pull-mode dashboard data source
type UpstreamRepo interface {
	// Login authenticates with explicit credentials and returns the upstream response as-is
	Login(ctx context.Context, email, password string) (json.RawMessage, error)

	// RefreshToken returns a usable token and whether it came from the cache
	RefreshToken(ctx context.Context) (token string, fromCache bool, err error)

	// FetchConsole returns the live console messages, newest first
	FetchConsole(ctx context.Context) ([]domain.RawMessage, error)
}
