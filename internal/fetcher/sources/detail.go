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

const (
	TweetMarker   = `article[data-testid="tweet"]`
	DefaultSettle = 3 * time.Second
)

var detailEndpoint = regexp.MustCompile(`/graphql/[A-Za-z0-9_-]+/(TweetDetail|TweetResultByRestId)(\?|$)`)

// DetailSource returns the raw post-detail document for a canonical post URL.
type DetailSource interface {
	Fetch(ctx context.Context, postURL string) ([]byte, error)
}

// DetailFetcher loads a post page in a fresh browser and takes the post
// detail from the page's own API traffic. When several matching responses
// arrive, the first one that parses and contains the requested post wins.
type DetailFetcher struct {
	Launcher browser.Launcher
	Cookies  []*network.Cookie
	Timeout  time.Duration
	Settle   time.Duration
	Logger   *slog.Logger
}

func (f *DetailFetcher) logger() *slog.Logger {
	if f.Logger == nil {
		return slog.Default()
	}
	return f.Logger
}

func (f *DetailFetcher) Fetch(ctx context.Context, postURL string) ([]byte, error) {
	postID, err := helpers.PostIDFromURL(postURL)
	if err != nil {
		return nil, err
	}

	settle := f.Settle
	if settle == 0 {
		settle = DefaultSettle
	}

	var (
		detail  []byte
		matched int
	)

	err = browser.Visit(ctx, f.Launcher, browser.VisitOptions{
		URL:     postURL,
		Marker:  TweetMarker,
		Timeout: f.Timeout,
		Settle:  settle,
		Match:   detailEndpoint.MatchString,
		Cookies: f.Cookies,
		Logger:  f.logger(),
	}, func(ctx context.Context, page browser.Page, captured []browser.Response) error {
		matched = len(captured)
		for _, r := range captured {
			body, err := page.ResponseBody(ctx, r.RequestID)
			if err != nil {
				f.logger().Warn("Failed to read post detail response", "url", postURL, "endpoint", r.URL, "error", err)
				continue
			}
			if !gjson.ValidBytes(body) {
				f.logger().Warn("Post detail response is not JSON, skipping", "url", postURL, "endpoint", r.URL, "bytes", len(body))
				continue
			}
			result, ok := locateTweetResult(body, postID)
			if !ok {
				f.logger().Debug("Post detail response does not contain the post", "url", postURL, "endpoint", r.URL)
				continue
			}
			detail = []byte(result.Raw)
			return nil
		}
		return nil
	})
	if err != nil {
		var mErr *browser.MarkerTimeoutError
		if errors.As(err, &mErr) {
			return nil, &common.NoDetailCapturedError{
				URL:       postURL,
				Matched:   matched,
				Diagnosis: DiagnosePage(mErr.HTML),
				Err:       err,
			}
		}
		return nil, fmt.Errorf("fetching %s: %w", postURL, err)
	}

	if detail == nil {
		return nil, &common.NoDetailCapturedError{URL: postURL, Matched: matched}
	}

	return detail, nil
}

// locateTweetResult finds the result node for postID in either of the two
// detail payload shapes.
func locateTweetResult(body []byte, postID string) (gjson.Result, bool) {
	if r := gjson.GetBytes(body, "data.tweetResult.result"); r.Exists() {
		r = unwrapResult(r)
		if r.Get("rest_id").String() == postID {
			return r, true
		}
	}

	entryID := "tweet-" + postID
	for _, ins := range gjson.GetBytes(body, "data.threaded_conversation_with_injections_v2.instructions").Array() {
		for _, e := range ins.Get("entries").Array() {
			if e.Get("entryId").String() != entryID {
				continue
			}
			r := unwrapResult(e.Get("content.itemContent.tweet_results.result"))
			if r.Exists() {
				return r, true
			}
		}
	}

	return gjson.Result{}, false
}

// FetchPost fetches and extracts one post.
func FetchPost(ctx context.Context, src DetailSource, postURL string) (common.PostRecord, error) {
	raw, err := src.Fetch(ctx, postURL)
	if err != nil {
		return common.PostRecord{}, err
	}
	return ExtractPost(raw)
}
