// SPDX-License-Identifier: AGPL-3.0-only
package sources

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/fluffyriot/tweetrss/internal/fetcher/browser/browsertest"
	"github.com/fluffyriot/tweetrss/internal/fetcher/common"
	"github.com/fluffyriot/tweetrss/internal/helpers"
)

const searchURL = "https://x.com/i/api/graphql/s1/SearchTimeline?variables=%7B%7D"

func TestSearchQuery(t *testing.T) {
	got := SearchQuery("wr_news", time.Date(2024, 5, 1, 23, 0, 0, 0, time.UTC))
	if want := "from:wr_news since:2024-05-01"; got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestSearchClient(t *testing.T) {
	a := baseFixture()
	a.ID = "11"
	a.CreatedAt = "Wed May 01 12:00:00 +0000 2024"
	b := baseFixture()
	b.ID = "10"
	b.CreatedAt = "Wed May 01 09:00:00 +0000 2024"

	query := SearchQuery("wr_news", time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC))
	l := browsertest.NewLauncher()
	l.Handle(helpers.SearchURL(query), &browsertest.Script{Responses: []browsertest.Served{
		{URL: searchURL, Body: searchPayload(t, a, b)},
		{URL: searchURL, Body: []byte("<html>")},
		{URL: searchURL, Body: searchPayload(t, b)},
	}})

	c := &SearchClient{Launcher: l, Timeout: time.Second, Settle: time.Millisecond}
	got, err := c.Search(context.Background(), query)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}

	want := []common.PostHandle{
		{ID: "11", CreatedAt: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)},
		{ID: "10", CreatedAt: time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)},
	}
	if len(got) != len(want) {
		t.Fatalf("got %d handles, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i].ID != want[i].ID || !got[i].CreatedAt.Equal(want[i].CreatedAt) {
			t.Errorf("handle %d = %+v, want %+v", i, got[i], want[i])
		}
	}
	if !l.Balanced() {
		t.Error("browser or page left open")
	}
}

func TestSearchClientEmptyResults(t *testing.T) {
	query := "from:quiet since:2024-05-01"
	l := browsertest.NewLauncher()
	l.Handle(helpers.SearchURL(query), &browsertest.Script{Responses: []browsertest.Served{
		{URL: searchURL, Body: searchPayload(t)},
	}})

	c := &SearchClient{Launcher: l, Timeout: time.Second, Settle: time.Millisecond}
	got, err := c.Search(context.Background(), query)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("got %d handles, want 0", len(got))
	}
}

func TestSearchClientFailures(t *testing.T) {
	tests := []struct {
		name   string
		script *browsertest.Script
	}{
		{"marker timeout", &browsertest.Script{MarkerErr: context.DeadlineExceeded}},
		{"nothing captured", &browsertest.Script{}},
		{"nothing parseable", &browsertest.Script{Responses: []browsertest.Served{
			{URL: searchURL, Body: []byte(`{"data":{}}`)},
		}}},
		{"navigation failed", &browsertest.Script{NavigateErr: errors.New("net::ERR_NAME_NOT_RESOLVED")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			query := "from:wr_news since:2024-05-01"
			l := browsertest.NewLauncher()
			l.Handle(helpers.SearchURL(query), tt.script)

			c := &SearchClient{Launcher: l, Timeout: time.Second, Settle: time.Millisecond}
			_, err := c.Search(context.Background(), query)

			var sErr *common.SearchError
			if !errors.As(err, &sErr) {
				t.Fatalf("got %v, want SearchError", err)
			}
			if sErr.Query != query {
				t.Errorf("Query = %q", sErr.Query)
			}
			if !l.Balanced() {
				t.Error("browser or page left open")
			}
		})
	}
}

func TestParseSearchTimelineModuleItems(t *testing.T) {
	f := baseFixture()
	body := mustJSON(t, map[string]any{"data": map[string]any{"search_by_raw_query": map[string]any{
		"search_timeline": map[string]any{"timeline": map[string]any{
			"instructions": []any{map[string]any{"entries": []any{
				map[string]any{"content": map[string]any{"items": []any{
					map[string]any{"item": map[string]any{"itemContent": map[string]any{"tweet_results": map[string]any{"result": f.result()}}}},
				}}},
			}}},
		}},
	}}})

	got, err := parseSearchTimeline(body)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].ID != "1001" {
		t.Fatalf("got %+v", got)
	}
}
