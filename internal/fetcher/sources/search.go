// SPDX-License-Identifier: AGPL-3.0-only
package sources

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/fluffyriot/tweetrss/internal/fetcher/browser"
	"github.com/fluffyriot/tweetrss/internal/fetcher/common"
	"github.com/fluffyriot/tweetrss/internal/helpers"
	"github.com/tidwall/gjson"
)

// SearchMarker matches either a rendered result or the empty-results notice.
const SearchMarker = `article[data-testid="tweet"], [data-testid="empty_state_header_text"]`

var searchEndpoint = regexp.MustCompile(`/graphql/[A-Za-z0-9_-]+/SearchTimeline(\?|$)`)

// Searcher runs a platform search query.
type Searcher interface {
	Search(ctx context.Context, query string) ([]common.PostHandle, error)
}

func SearchQuery(handle string, since time.Time) string {
	return fmt.Sprintf("from:%s since:%s", handle, since.Format(time.DateOnly))
}

// SearchClient runs searches through the live search page and reads the
// results from its timeline responses.
type SearchClient struct {
	Launcher browser.Launcher
	Cookies  []*network.Cookie
	Timeout  time.Duration
	Settle   time.Duration
	Logger   *slog.Logger
}

func (c *SearchClient) Search(ctx context.Context, query string) ([]common.PostHandle, error) {
	logger := c.Logger
	if logger == nil {
		logger = slog.Default()
	}
	settle := c.Settle
	if settle == 0 {
		settle = DefaultSettle
	}

	var (
		handles []common.PostHandle
		parsed  int
		matched int
	)

	err := browser.Visit(ctx, c.Launcher, browser.VisitOptions{
		URL:     helpers.SearchURL(query),
		Marker:  SearchMarker,
		Timeout: c.Timeout,
		Settle:  settle,
		Match:   searchEndpoint.MatchString,
		Cookies: c.Cookies,
		Logger:  logger,
	}, func(ctx context.Context, page browser.Page, captured []browser.Response) error {
		matched = len(captured)
		seen := make(map[string]struct{})
		for _, r := range captured {
			body, err := page.ResponseBody(ctx, r.RequestID)
			if err != nil {
				logger.Warn("Failed to read search response", "query", query, "error", err)
				continue
			}
			if !gjson.ValidBytes(body) {
				logger.Warn("Search response is not JSON, skipping", "query", query, "bytes", len(body))
				continue
			}
			found, err := parseSearchTimeline(body)
			if err != nil {
				logger.Warn("Malformed search response, skipping", "query", query, "error", err)
				continue
			}
			parsed++
			for _, h := range found {
				if _, ok := seen[h.ID]; ok {
					continue
				}
				seen[h.ID] = struct{}{}
				handles = append(handles, h)
			}
		}
		return nil
	})
	if err != nil {
		var mErr *browser.MarkerTimeoutError
		if errors.As(err, &mErr) {
			if d := DiagnosePage(mErr.HTML); d != "" {
				err = fmt.Errorf("%w (%s)", err, d)
			}
		}
		return nil, &common.SearchError{Query: query, Err: err}
	}

	if matched == 0 {
		return nil, &common.SearchError{Query: query, Err: errors.New("no search response captured")}
	}
	if parsed == 0 {
		return nil, &common.SearchError{Query: query, Err: fmt.Errorf("none of %d search responses could be parsed", matched)}
	}

	return handles, nil
}

func parseSearchTimeline(body []byte) ([]common.PostHandle, error) {
	instructions := gjson.GetBytes(body, "data.search_by_raw_query.search_timeline.timeline.instructions")
	if !instructions.IsArray() {
		return nil, errors.New("no timeline instructions")
	}

	var handles []common.PostHandle
	add := func(result gjson.Result) error {
		result = unwrapResult(result)
		if !result.Exists() {
			return nil
		}
		id := result.Get("rest_id").String()
		if id == "" {
			return nil
		}
		createdAt, err := time.Parse(createdAtLayout, result.Get("legacy.created_at").String())
		if err != nil {
			return fmt.Errorf("post %s: parsing created_at: %w", id, err)
		}
		handles = append(handles, common.PostHandle{ID: id, CreatedAt: createdAt.UTC()})
		return nil
	}

	for _, ins := range instructions.Array() {
		for _, e := range ins.Get("entries").Array() {
			if err := add(e.Get("content.itemContent.tweet_results.result")); err != nil {
				return nil, err
			}
			for _, item := range e.Get("content.items").Array() {
				if err := add(item.Get("item.itemContent.tweet_results.result")); err != nil {
					return nil, err
				}
			}
		}
	}

	return handles, nil
}
