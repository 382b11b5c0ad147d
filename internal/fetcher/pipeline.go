// SPDX-License-Identifier: AGPL-3.0-only
package fetcher

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/fluffyriot/tweetrss/internal/config"
	"github.com/fluffyriot/tweetrss/internal/feed"
	"github.com/fluffyriot/tweetrss/internal/fetcher/common"
	"github.com/fluffyriot/tweetrss/internal/fetcher/sources"
	"github.com/fluffyriot/tweetrss/internal/helpers"
)

// Pipeline turns one account's search results into a feed document. Posts
// are handled one at a time, oldest first.
type Pipeline struct {
	Searcher sources.Searcher
	Details  sources.DetailSource
	Policy   config.PostErrorPolicy
	Logger   *slog.Logger
	Now      func() time.Time
}

// AccountResult is the outcome of building one account's feed.
type AccountResult struct {
	Document *feed.Document
	Found    int
	Excluded int
	Skipped  int
}

func (p *Pipeline) logger() *slog.Logger {
	if p.Logger == nil {
		return slog.Default()
	}
	return p.Logger
}

func (p *Pipeline) now() time.Time {
	if p.Now == nil {
		return time.Now()
	}
	return p.Now()
}

// BuildFeed searches the account's posts since the given day and resolves
// each into a feed entry. A zero since means the current UTC day.
func (p *Pipeline) BuildFeed(ctx context.Context, acc common.Account, since time.Time) (*AccountResult, error) {
	logger := p.logger().With("account", acc.Key)

	if since.IsZero() {
		since = p.now()
	}
	query := sources.SearchQuery(acc.Handle, sinceDate(since))

	handles, err := p.Searcher.Search(ctx, query)
	if err != nil {
		return nil, err
	}
	logger.Info("Search completed", "query", query, "posts", len(handles))

	slices.SortStableFunc(handles, func(a, b common.PostHandle) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})

	doc := feed.NewDocument(acc)
	doc.Updated = p.now()
	res := &AccountResult{Document: doc, Found: len(handles)}

	resolver := &sources.ReplyResolver{Details: p.Details, Logger: logger}
	exclusions := common.LoadExclusionMap(acc.Exclude)

	for _, h := range handles {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if exclusions[h.ID] {
			logger.Debug("Post excluded", "post", h.ID)
			res.Excluded++
			continue
		}

		postURL := helpers.PostURL(acc.Handle, h.ID)
		logger.Info("Scraping post", "url", postURL)

		entry, err := p.resolveEntry(ctx, resolver, postURL)
		if err != nil {
			if p.Policy == config.PostErrorSkip {
				logger.Warn("Skipping post", "url", postURL, "error", err)
				res.Skipped++
				continue
			}
			return nil, fmt.Errorf("post %s: %w", h.ID, err)
		}

		doc.Append(entry)
		logger.Info("Post scraped", "url", postURL, "title", entry.Title, "media", len(entry.Media))
	}

	return res, nil
}

func (p *Pipeline) resolveEntry(ctx context.Context, resolver *sources.ReplyResolver, postURL string) (feed.Entry, error) {
	rec, err := sources.FetchPost(ctx, p.Details, postURL)
	if err != nil {
		return feed.Entry{}, err
	}

	resolved, err := resolver.Resolve(ctx, rec)
	if err != nil {
		return feed.Entry{}, err
	}

	return ShapeEntry(resolved), nil
}
