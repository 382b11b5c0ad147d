// SPDX-License-Identifier: AGPL-3.0-only
package worker

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/fluffyriot/tweetrss/internal/fetcher"
	"github.com/fluffyriot/tweetrss/internal/fetcher/common"
	"github.com/fluffyriot/tweetrss/internal/helpers"
	"github.com/google/uuid"
)

func backoffWithJitter(attempt int) time.Duration {
	const (
		baseDelay = 10 * time.Second
		maxDelay  = 15 * time.Minute
	)

	delay := baseDelay * (1 << attempt)
	if delay > maxDelay || delay <= 0 {
		delay = maxDelay
	}

	var b [8]byte
	_, _ = rand.Read(b[:])
	jitter := time.Duration(binary.LittleEndian.Uint64(b[:]) % uint64(delay))

	return jitter
}

// AccountFailure records why one account produced no feed.
type AccountFailure struct {
	Key string
	Err error
}

// RunSummary describes a finished run, successful or not.
type RunSummary struct {
	RunID    uuid.UUID
	Started  time.Time
	Finished time.Time
	Attempts int
	Feeds    []fetcher.SyncResult
	URLs     []string
	Failures []AccountFailure
}

func (s *RunSummary) OK() bool {
	return len(s.Failures) == 0
}

// RunError is returned when accounts are still failing after the last
// attempt.
type RunError struct {
	Attempts int
	Failures []AccountFailure
}

func (e *RunError) Error() string {
	return fmt.Sprintf("%d account(s) failed after %d attempt(s): %v", len(e.Failures), e.Attempts, e.Unwrap())
}

func (e *RunError) Unwrap() error {
	errs := make([]error, 0, len(e.Failures))
	for _, f := range e.Failures {
		errs = append(errs, fmt.Errorf("%s: %w", f.Key, f.Err))
	}
	return errors.Join(errs...)
}

// RunOptions narrows a run. A zero Since means the current day.
type RunOptions struct {
	Since time.Time
}

// RunSync processes every account in order. Any failed account fails the
// attempt and the whole run is retried from scratch with backoff.
func RunSync(ctx context.Context, w *Worker, opts RunOptions) (*RunSummary, error) {
	summary := &RunSummary{RunID: uuid.New(), Started: time.Now()}
	logger := w.logger().With("run", summary.RunID.String())
	logger.Info("Run started", "accounts", len(w.Accounts), "max_retries", w.MaxRetries)

	for attempt := 0; attempt <= w.MaxRetries; attempt++ {
		isLastRetry := attempt == w.MaxRetries
		summary.Attempts = attempt + 1

		feeds, failures := syncAllInternal(ctx, w, logger, opts, isLastRetry, attempt)
		summary.Feeds = feeds
		summary.Failures = failures

		if len(failures) == 0 {
			break
		}

		if isLastRetry || ctx.Err() != nil {
			logger.Error("Run FAILED", "attempts", attempt+1, "failed_accounts", len(failures))
			break
		}

		delay := backoffWithJitter(attempt)
		logger.Warn("Run attempt failed, retrying", "attempt", attempt+1, "failed_accounts", len(failures), "delay", delay)
		if err := w.sleep(ctx, delay); err != nil {
			logger.Error("Run cancelled while waiting to retry", "error", err)
			break
		}
	}

	summary.Finished = time.Now()
	for _, f := range summary.Feeds {
		summary.URLs = append(summary.URLs, helpers.FeedURL(w.PublicBaseURL, w.OutputDir, f.Key))
	}

	if summary.OK() {
		logger.Info("Run completed", "feeds", len(summary.Feeds), "urls", summary.URLs, "attempts", summary.Attempts, "duration", summary.Finished.Sub(summary.Started))
	}

	if w.Reporter != nil {
		if err := w.Reporter.Report(ctx, summary); err != nil {
			logger.Warn("Failed to send run report", "error", err)
		}
	}

	if !summary.OK() {
		return summary, &RunError{Attempts: summary.Attempts, Failures: summary.Failures}
	}
	return summary, nil
}

func syncAllInternal(ctx context.Context, w *Worker, logger *slog.Logger, opts RunOptions, isLastRetry bool, attempt int) ([]fetcher.SyncResult, []AccountFailure) {
	pipeline := *w.Pipeline
	pipeline.Logger = logger

	var (
		feeds    []fetcher.SyncResult
		failures []AccountFailure
	)

	for _, acc := range w.Accounts {
		if err := ctx.Err(); err != nil {
			failures = append(failures, AccountFailure{Key: acc.Key, Err: err})
			continue
		}

		res, err := syncAccountInternal(ctx, w, &pipeline, acc, opts, isLastRetry)
		if err != nil {
			logger.Warn("Account failed", "account", acc.Key, "attempt", attempt+1, "error", err)
			failures = append(failures, AccountFailure{Key: acc.Key, Err: err})
			continue
		}
		feeds = append(feeds, *res)
	}

	return feeds, failures
}

func syncAccountInternal(ctx context.Context, w *Worker, p *fetcher.Pipeline, acc common.Account, opts RunOptions, isLastRetry bool) (res *fetcher.SyncResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in account sync: %v", r)
		}
	}()

	return fetcher.SyncAccount(ctx, p, acc, opts.Since, w.OutputDir, w.PublicBaseURL, isLastRetry)
}
