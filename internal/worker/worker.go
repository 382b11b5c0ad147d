// SPDX-License-Identifier: AGPL-3.0-only
package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/fluffyriot/tweetrss/internal/fetcher"
	"github.com/fluffyriot/tweetrss/internal/fetcher/common"
)

// Reporter receives the summary of every finished run.
type Reporter interface {
	Report(ctx context.Context, s *RunSummary) error
}

type Worker struct {
	Pipeline      *fetcher.Pipeline
	Accounts      []common.Account
	OutputDir     string
	PublicBaseURL string
	MaxRetries    int
	Reporter      Reporter
	Logger        *slog.Logger

	// Sleep waits between attempts; tests replace it.
	Sleep func(ctx context.Context, d time.Duration) error

	Ticker  *time.Ticker
	cancel  context.CancelFunc
	stopped chan struct{}
	mu      sync.Mutex
	running bool
	active  bool
}

func NewWorker(p *fetcher.Pipeline, accounts []common.Account, outputDir, publicBaseURL string, maxRetries int, logger *slog.Logger) *Worker {
	return &Worker{
		Pipeline:      p,
		Accounts:      accounts,
		OutputDir:     outputDir,
		PublicBaseURL: publicBaseURL,
		MaxRetries:    maxRetries,
		Logger:        logger,
	}
}

func (w *Worker) logger() *slog.Logger {
	if w.Logger == nil {
		return slog.Default()
	}
	return w.Logger
}

func (w *Worker) sleep(ctx context.Context, d time.Duration) error {
	if w.Sleep != nil {
		return w.Sleep(ctx, d)
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Start runs SyncAll on every tick until Stop is called or ctx ends.
func (w *Worker) Start(ctx context.Context, interval time.Duration) {
	w.mu.Lock()
	if w.active {
		w.mu.Unlock()
		w.logger().Warn("Scheduler already active")
		return
	}
	w.active = true
	schedCtx, cancel := context.WithCancel(ctx)
	stopped := make(chan struct{})
	w.cancel = cancel
	w.stopped = stopped
	w.Ticker = time.NewTicker(interval)
	ticker := w.Ticker
	w.mu.Unlock()

	go func() {
		defer func() {
			ticker.Stop()
			cancel()
			w.mu.Lock()
			w.active = false
			w.mu.Unlock()
			close(stopped)
		}()
		for {
			select {
			case <-ticker.C:
				if schedCtx.Err() != nil {
					return
				}
				w.SyncAll(schedCtx, RunOptions{})
			case <-schedCtx.Done():
				return
			}
		}
	}()
	w.logger().Info("Scheduler started", "interval", interval)
}

// Stop cancels the scheduler, including a run in progress, and waits for
// it to exit.
func (w *Worker) Stop() {
	w.mu.Lock()
	if !w.active {
		w.mu.Unlock()
		w.logger().Warn("Scheduler not active")
		return
	}
	cancel, stopped := w.cancel, w.stopped
	w.mu.Unlock()

	cancel()
	<-stopped
	w.logger().Info("Scheduler stopped")
}

func (w *Worker) IsActive() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.active
}

func (w *Worker) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

// SyncAll performs one run unless another is still in progress, in which
// case it returns nil, nil.
func (w *Worker) SyncAll(ctx context.Context, opts RunOptions) (*RunSummary, error) {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		w.logger().Warn("Run already in progress, skipping")
		return nil, nil
	}
	w.running = true
	w.mu.Unlock()

	defer func() {
		w.mu.Lock()
		w.running = false
		w.mu.Unlock()
	}()

	return RunSync(ctx, w, opts)
}
