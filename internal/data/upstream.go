package data

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/consolerelay/console-relay/internal/biz/domain"
	"github.com/consolerelay/console-relay/internal/biz/repo"
	"github.com/consolerelay/console-relay/internal/infra/dashboard"
)

// upstreamRepo implements the pull-mode data source on the dashboard client
type upstreamRepo struct {
	client *dashboard.Client
}

// NewUpstreamRepo creates an upstream repository
func NewUpstreamRepo(client *dashboard.Client) repo.UpstreamRepo {
	return &upstreamRepo{client: client}
}

// Login authenticates with explicit credentials
func (r *upstreamRepo) Login(ctx context.Context, email, password string) (json.RawMessage, error) {
	body, err := r.client.Login(ctx, email, password)
	if err != nil {
		return nil, classify("login", err)
	}
	return body, nil
}

// RefreshToken returns a token, served from the cache when still fresh
func (r *upstreamRepo) RefreshToken(ctx context.Context) (string, bool, error) {
	token, fromCache, err := r.client.EnsureToken(ctx)
	if err != nil {
		return "", false, classify("refresh token", err)
	}
	return token, fromCache, nil
}

// FetchConsole returns the live console, newest first
func (r *upstreamRepo) FetchConsole(ctx context.Context) ([]domain.RawMessage, error) {
	resp, err := r.client.FetchConsole(ctx)
	if err != nil {
		return nil, classify("fetch console", err)
	}

	msgs := make([]domain.RawMessage, 0, len(resp.Data.Messages))
	for _, item := range resp.Data.Messages {
		var raw domain.RawMessage
		if err := json.Unmarshal(item, &raw); err != nil {
			return nil, domain.UpstreamError("fetch console", fmt.Errorf("failed to decode message: %w", err))
		}
		msgs = append(msgs, raw)
	}
	return msgs, nil
}

// classify maps dashboard failures onto domain error kinds
func classify(op string, err error) error {
	var authErr *dashboard.AuthError
	if errors.As(err, &authErr) || dashboard.IsUnauthorized(err) {
		return domain.AuthError(op, err)
	}
	return domain.UpstreamError(op, err)
}
