package service

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

const (
	// DefaultCrawlTaskTimeout bounds one origin crawl across all strategies
	DefaultCrawlTaskTimeout = 60 * time.Second
)

// OriginChecker discovers and records one origin's login URL
type OriginChecker interface {
	CheckOrigin(ctx context.Context, appName string) error
}

// CrawlRunner runs origin checks on a bounded queue with a fixed worker pool.
// An origin already queued or in flight is not queued again.
type CrawlRunner struct {
	checker     OriginChecker
	workers     int
	taskTimeout time.Duration
	logger      *slog.Logger

	queue chan string

	mu      sync.Mutex
	pending map[string]bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewCrawlRunner creates a crawl runner
func NewCrawlRunner(checker OriginChecker, workers, queueSize int, logger *slog.Logger) *CrawlRunner {
	if workers <= 0 {
		workers = 1
	}
	if queueSize <= 0 {
		queueSize = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CrawlRunner{
		checker:     checker,
		workers:     workers,
		taskTimeout: DefaultCrawlTaskTimeout,
		logger:      logger.With("component", "crawl-runner"),
		queue:       make(chan string, queueSize),
		pending:     make(map[string]bool),
	}
}

// Start launches the workers; they stop when ctx is done or Stop is called
func (r *CrawlRunner) Start(ctx context.Context) {
	r.ctx, r.cancel = context.WithCancel(ctx)

	r.wg.Add(r.workers)
	for i := 0; i < r.workers; i++ {
		go r.worker()
	}
	r.logger.Info("started", "workers", r.workers, "queue", cap(r.queue))
}

// Stop cancels in-flight crawls and waits for the workers
func (r *CrawlRunner) Stop() {
	if r.cancel != nil {
		r.cancel()
	}
	r.wg.Wait()
	r.logger.Info("stopped")
}

// Enqueue queues appName without blocking.
// It returns false when the origin is already pending or the queue is full.
func (r *CrawlRunner) Enqueue(appName string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.pending[appName] {
		return false
	}
	select {
	case r.queue <- appName:
		r.pending[appName] = true
		return true
	default:
		r.logger.Warn("crawl queue full, dropping", "app", appName)
		return false
	}
}

// Pending returns how many origins are queued or in flight
func (r *CrawlRunner) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pending)
}

func (r *CrawlRunner) worker() {
	defer r.wg.Done()
	for {
		select {
		case <-r.ctx.Done():
			return
		case appName := <-r.queue:
			r.run(appName)
		}
	}
}

func (r *CrawlRunner) run(appName string) {
	defer func() {
		r.mu.Lock()
		delete(r.pending, appName)
		r.mu.Unlock()
	}()

	ctx, cancel := context.WithTimeout(r.ctx, r.taskTimeout)
	defer cancel()

	start := time.Now()
	if err := r.checker.CheckOrigin(ctx, appName); err != nil {
		r.logger.Error("origin check failed", "app", appName, "err", err)
		return
	}
	r.logger.Debug("origin checked", "app", appName, "duration", time.Since(start))
}
