package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/consolerelay/console-relay/internal/biz/domain"
	"github.com/consolerelay/console-relay/internal/biz/repo"
)

// OriginUsecase lists origins and queues their login URL checks
type OriginUsecase struct {
	origins repo.OriginRepo
	crawls  CrawlScheduler // optional
	logger  *slog.Logger
}

// NewOriginUsecase creates an origin usecase
func NewOriginUsecase(origins repo.OriginRepo, crawls CrawlScheduler, logger *slog.Logger) *OriginUsecase {
	if logger == nil {
		logger = slog.Default()
	}
	return &OriginUsecase{
		origins: origins,
		crawls:  crawls,
		logger:  logger.With("component", "origin"),
	}
}

// List returns all origins by app name
func (uc *OriginUsecase) List(ctx context.Context) ([]*domain.Origin, error) {
	return uc.origins.List(ctx)
}

// CheckAll queues a crawl for every known origin and returns how many were accepted
func (uc *OriginUsecase) CheckAll(ctx context.Context) (int, error) {
	origins, err := uc.origins.List(ctx)
	if err != nil {
		return 0, err
	}
	if uc.crawls == nil {
		return 0, nil
	}

	queued := 0
	for _, o := range origins {
		if o.AppName == domain.UnknownApp {
			continue
		}
		if uc.crawls.Enqueue(o.AppName) {
			queued++
		}
	}
	uc.logger.Info("origin checks queued", "queued", queued, "origins", len(origins))
	return queued, nil
}

// CrawlUsecase performs one login URL discovery and records its outcome
type CrawlUsecase struct {
	origins repo.OriginRepo
	finder  repo.LoginURLFinder
	now     func() time.Time
	logger  *slog.Logger
}

// NewCrawlUsecase creates a crawl usecase
func NewCrawlUsecase(origins repo.OriginRepo, finder repo.LoginURLFinder, logger *slog.Logger) *CrawlUsecase {
	if logger == nil {
		logger = slog.Default()
	}
	return &CrawlUsecase{
		origins: origins,
		finder:  finder,
		now:     time.Now,
		logger:  logger.With("component", "crawl"),
	}
}

// CheckOrigin discovers appName's login URL and records the check.
// Discovery failures are recorded as absence; only storage errors are returned.
func (uc *CrawlUsecase) CheckOrigin(ctx context.Context, appName string) error {
	loginURL, err := uc.finder.FindLoginURL(ctx, appName)
	if err != nil {
		uc.logger.Warn("login url discovery failed", "app", appName, "err", domain.CrawlError("discover login url", err))
		loginURL = ""
	}
	return uc.origins.RecordCheck(ctx, appName, loginURL, uc.now())
}
