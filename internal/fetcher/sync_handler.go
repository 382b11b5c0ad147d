// SPDX-License-Identifier: AGPL-3.0-only
package fetcher

import (
	"context"
	"log/slog"
	"time"

	"github.com/fluffyriot/tweetrss/internal/feed"
	"github.com/fluffyriot/tweetrss/internal/fetcher/common"
	"github.com/fluffyriot/tweetrss/internal/helpers"
)

// SyncResult describes one account's finished feed.
type SyncResult struct {
	Key      string
	Path     string
	Entries  int
	Skipped  int
	Excluded int
	Duration time.Duration
}

func executeSync(
	logger *slog.Logger,
	acc common.Account,
	syncFunc func() (*SyncResult, error),
	isLastRetry bool,
) (*SyncResult, error) {
	syncStartTime := time.Now()
	logger.Info("Account sync started", "account", acc.Key, "handle", acc.Handle)

	res, err := syncFunc()
	if err != nil {
		level := slog.LevelWarn
		if isLastRetry {
			level = slog.LevelError
		}
		logger.Log(context.Background(), level, "Account sync failed", "account", acc.Key, "error", err, "duration", time.Since(syncStartTime))
		return nil, err
	}

	res.Duration = time.Since(syncStartTime)
	logger.Info("Feed written", "account", acc.Key, "path", res.Path, "entries", res.Entries, "skipped", res.Skipped, "duration", res.Duration)
	return res, nil
}

// SyncAccount builds an account's feed and writes it to outDir. Nothing is
// written when the build fails.
func SyncAccount(ctx context.Context, p *Pipeline, acc common.Account, since time.Time, outDir, selfBaseURL string, isLastRetry bool) (*SyncResult, error) {
	return executeSync(p.logger(), acc, func() (*SyncResult, error) {
		built, err := p.BuildFeed(ctx, acc, since)
		if err != nil {
			return nil, err
		}

		if selfBaseURL != "" {
			built.Document.SelfURL = helpers.FeedURL(selfBaseURL, outDir, acc.Key)
		}

		path, err := feed.Write(outDir, acc.Key, built.Document)
		if err != nil {
			return nil, err
		}

		return &SyncResult{
			Key:      acc.Key,
			Path:     path,
			Entries:  len(built.Document.Entries),
			Skipped:  built.Skipped,
			Excluded: built.Excluded,
		}, nil
	}, isLastRetry)
}
