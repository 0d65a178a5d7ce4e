package service

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Syncer pulls the upstream console into the store
type Syncer interface {
	Sync(ctx context.Context) (int, error)
}

// PullRunner syncs from the upstream dashboard on a fixed interval
type PullRunner struct {
	syncer   Syncer
	interval time.Duration
	timeout  time.Duration
	logger   *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewPullRunner creates a pull runner; each sync is bounded by timeout
func NewPullRunner(syncer Syncer, interval, timeout time.Duration, logger *slog.Logger) *PullRunner {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = interval
	}
	return &PullRunner{
		syncer:   syncer,
		interval: interval,
		timeout:  timeout,
		logger:   logger.With("component", "pull-runner"),
	}
}

// Start starts the sync loop with an immediate first sync
func (r *PullRunner) Start(ctx context.Context) {
	r.ctx, r.cancel = context.WithCancel(ctx)

	r.wg.Add(1)
	go r.loop()

	r.logger.Info("started", "interval", r.interval)
}

// Stop stops the loop and waits for an in-flight sync
func (r *PullRunner) Stop() {
	if r.cancel != nil {
		r.cancel()
	}
	r.wg.Wait()
	r.logger.Info("stopped")
}

func (r *PullRunner) loop() {
	defer r.wg.Done()

	r.syncOnce()

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.ctx.Done():
			return
		case <-ticker.C:
			r.syncOnce()
		}
	}
}

func (r *PullRunner) syncOnce() {
	ctx, cancel := context.WithTimeout(r.ctx, r.timeout)
	defer cancel()

	count, err := r.syncer.Sync(ctx)
	if err != nil {
		r.logger.Error("sync failed", "err", err)
		return
	}
	r.logger.Debug("synced", "count", count)
}
