package usecase

import (
	"context"
	"encoding/json"

	"github.com/consolerelay/console-relay/internal/biz/domain"
	"github.com/consolerelay/console-relay/internal/biz/repo"
)

// PullUsecase feeds the upstream dashboard into the ingestion pipeline
type PullUsecase struct {
	upstream repo.UpstreamRepo
	console  *ConsoleUsecase
}

// NewPullUsecase creates a pull usecase
func NewPullUsecase(upstream repo.UpstreamRepo, console *ConsoleUsecase) *PullUsecase {
	return &PullUsecase{upstream: upstream, console: console}
}

// Sync fetches the live console and mirrors it into the store.
// An empty console clears the stored batch.
func (uc *PullUsecase) Sync(ctx context.Context) (int, error) {
	raws, err := uc.upstream.FetchConsole(ctx)
	if err != nil {
		return 0, err
	}

	// Upstream lists newest first; ingestion wants most recent last
	ordered := make([]domain.RawMessage, len(raws))
	for i, raw := range raws {
		ordered[len(raws)-1-i] = raw
	}
	return uc.console.Mirror(ctx, ordered)
}

// Login authenticates against the upstream with explicit credentials
func (uc *PullUsecase) Login(ctx context.Context, email, password string) (json.RawMessage, error) {
	if email == "" || password == "" {
		return nil, domain.NewError(domain.KindValidation, "login", errMissingCredentials)
	}
	return uc.upstream.Login(ctx, email, password)
}

// RefreshToken returns a usable upstream token
func (uc *PullUsecase) RefreshToken(ctx context.Context) (string, bool, error) {
	return uc.upstream.RefreshToken(ctx)
}
