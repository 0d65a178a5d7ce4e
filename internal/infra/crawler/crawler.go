package crawler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

const (
	// DefaultTimeout bounds every outbound crawl request
	DefaultTimeout = 8 * time.Second

	userAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"
)

// Strategy is one way of locating a login page.
// Discover returns "" with a nil error when it found nothing.
type Strategy interface {
	Name() string
	Discover(ctx context.Context, appName string) (string, error)
}

// Crawler runs strategies in order until one finds a login URL
type Crawler struct {
	strategies []Strategy
	logger     *slog.Logger
}

// New creates a crawler over the given strategies
func New(logger *slog.Logger, strategies ...Strategy) *Crawler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Crawler{
		strategies: strategies,
		logger:     logger.With("component", "crawler"),
	}
}

// FindLoginURL returns the first URL any strategy finds.
// Exhausting every strategy is not an error; an error is returned only
// when every strategy failed outright.
func (c *Crawler) FindLoginURL(ctx context.Context, appName string) (string, error) {
	var errs []error
	for _, s := range c.strategies {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		found, err := s.Discover(ctx, appName)
		if err != nil {
			c.logger.Debug("strategy failed", "strategy", s.Name(), "app", appName, "err", err)
			errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
			continue
		}
		if found != "" {
			c.logger.Info("login url found", "strategy", s.Name(), "app", appName, "url", found)
			return found, nil
		}
	}

	if len(errs) > 0 && len(errs) == len(c.strategies) {
		return "", errors.Join(errs...)
	}
	return "", nil
}

// NewHTTPClient returns a client with the crawl timeout that follows redirects
func NewHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &http.Client{Timeout: timeout}
}
