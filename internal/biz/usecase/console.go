package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/consolerelay/console-relay/internal/biz/domain"
	"github.com/consolerelay/console-relay/internal/biz/repo"
)

// notifyTimeout bounds one detached notification
const notifyTimeout = 15 * time.Second

// CrawlScheduler queues login URL discovery for an origin without waiting
type CrawlScheduler interface {
	// Enqueue reports whether the origin was accepted
	Enqueue(appName string) bool
}

// ConsoleUsecase ingests batches into the store and serves the latest one
type ConsoleUsecase struct {
	normalizer *domain.Normalizer
	messages   repo.MessageRepo
	origins    repo.OriginRepo
	crawls     CrawlScheduler // optional
	notifier   repo.Notifier  // optional
	logger     *slog.Logger

	// detach runs best-effort work outside the request
	detach func(func())
}

// NewConsoleUsecase creates a console usecase; crawls and notifier may be nil
func NewConsoleUsecase(
	normalizer *domain.Normalizer,
	messages repo.MessageRepo,
	origins repo.OriginRepo,
	crawls CrawlScheduler,
	notifier repo.Notifier,
	logger *slog.Logger,
) *ConsoleUsecase {
	if logger == nil {
		logger = slog.Default()
	}
	return &ConsoleUsecase{
		normalizer: normalizer,
		messages:   messages,
		origins:    origins,
		crawls:     crawls,
		notifier:   notifier,
		logger:     logger.With("component", "console"),
		detach:     func(f func()) { go f() },
	}
}

// Ingest normalizes raws and replaces the stored batch with them.
// raws are ordered oldest first, so the last item reads back as the most recent.
// An empty batch leaves the store untouched.
func (uc *ConsoleUsecase) Ingest(ctx context.Context, raws []domain.RawMessage) (int, error) {
	if len(raws) == 0 {
		return 0, nil
	}
	return uc.replace(ctx, raws)
}

// Mirror is Ingest for a source that always sends its full current list:
// an empty batch clears the store.
func (uc *ConsoleUsecase) Mirror(ctx context.Context, raws []domain.RawMessage) (int, error) {
	return uc.replace(ctx, raws)
}

func (uc *ConsoleUsecase) replace(ctx context.Context, raws []domain.RawMessage) (int, error) {
	msgs := uc.normalizer.NormalizeAll(raws)
	sightings := domain.SightingsFrom(msgs)

	// Origins first: a failure here leaves the previous batch in place
	if err := uc.origins.Upsert(ctx, sightings); err != nil {
		return 0, err
	}
	if err := uc.messages.ReplaceBatch(ctx, msgs); err != nil {
		return 0, err
	}

	uc.logger.Info("batch stored", "count", len(msgs), "origins", len(sightings))

	uc.scheduleCrawls(ctx, sightings)
	uc.notify(msgs)
	return len(msgs), nil
}

// Latest returns the stored batch, most recent first
func (uc *ConsoleUsecase) Latest(ctx context.Context) ([]*domain.Message, error) {
	return uc.messages.ListLatest(ctx)
}

// scheduleCrawls queues origins that have never been checked
func (uc *ConsoleUsecase) scheduleCrawls(ctx context.Context, sightings []domain.OriginSighting) {
	if uc.crawls == nil {
		return
	}
	for _, s := range sightings {
		if s.AppName == domain.UnknownApp {
			continue
		}
		origin, err := uc.origins.Get(ctx, s.AppName)
		if err != nil {
			uc.logger.Warn("failed to read origin", "app", s.AppName, "err", err)
			continue
		}
		if origin != nil && origin.NeverChecked() {
			uc.crawls.Enqueue(s.AppName)
		}
	}
}

func (uc *ConsoleUsecase) notify(msgs []*domain.Message) {
	if uc.notifier == nil || len(msgs) == 0 {
		return
	}
	uc.detach(func() {
		ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
		defer cancel()
		if err := uc.notifier.NotifyMessages(ctx, msgs); err != nil {
			uc.logger.Warn("notification failed", "err", err)
		}
	})
}
